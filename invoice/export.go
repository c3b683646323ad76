package invoice

import (
	"fmt"
	"io"

	"table-order/models"

	"github.com/tealeg/xlsx"
)

var exportHeaders = []string{
	"Order #", "Table", "Items", "Subtotal", "Total",
	"Status", "Payment", "Method", "Instructions", "Created At",
}

// WriteOrdersXLSX writes one row per order to a single "Orders" sheet.
func WriteOrdersXLSX(w io.Writer, orders []models.Order) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Orders")
	if err != nil {
		return fmt.Errorf("add sheet: %w", err)
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeaders {
		headerRow.AddCell().SetValue(h)
	}

	for _, o := range orders {
		row := sheet.AddRow()
		row.AddCell().SetValue(o.Number())
		row.AddCell().SetValue(orDefault(o.TableNumber, "N/A"))
		row.AddCell().SetInt(itemCount(o))
		row.AddCell().SetFloat(o.Subtotal.InexactFloat64())
		row.AddCell().SetFloat(o.Total.InexactFloat64())
		row.AddCell().SetValue(o.Status)
		row.AddCell().SetValue(orDefault(o.PaymentStatus, models.PaymentStatusPending))
		row.AddCell().SetValue(o.PaymentMethod)
		row.AddCell().SetValue(o.SpecialInstructions)
		created := ""
		if !o.CreatedAt.IsZero() {
			created = o.CreatedAt.Format("2006-01-02 15:04:05")
		}
		row.AddCell().SetValue(created)
	}

	return file.Write(w)
}

func itemCount(o models.Order) int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
