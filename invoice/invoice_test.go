package invoice

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"table-order/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

func paidOrder() models.Order {
	return models.Order{
		ID:            "o-1",
		OrderNumber:   "ORD-0001",
		TableNumber:   "T4",
		CustomerName:  "Asha <3",
		Items:         []models.OrderItem{{Name: "Dosa", Quantity: 2, Price: decimal.NewFromInt(60)}, {Quantity: 1, Price: decimal.RequireFromString("15.5")}},
		Subtotal:      decimal.RequireFromString("135.5"),
		Total:         decimal.RequireFromString("135.5"),
		Status:        models.OrderStatusServed,
		PaymentStatus: models.PaymentStatusPaid,
		PaymentMethod: models.PaymentMethodCash,
		CreatedAt:     time.Date(2025, 3, 9, 19, 30, 0, 0, time.UTC),
	}
}

func TestRenderBill(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderBill(&buf, paidOrder(), time.Now()))
	html := buf.String()

	for _, want := range []string{
		"Order # ORD-0001",
		">PAID<",
		"09 Mar 2025, 19:30",
		"<strong>Table:</strong> T4",
		"Asha &lt;3",
		"<strong>Email:</strong> -",
		"<td>Dosa</td>",
		"₹120.00",
		"<td>Item</td>",
		"₹15.50",
		"<strong>Tax:</strong> ₹0.00",
		"<strong>Grand Total:</strong> ₹135.50",
	} {
		assert.Contains(t, html, want)
	}
}

func TestRenderBill_Fallbacks(t *testing.T) {
	var buf bytes.Buffer
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	o := models.Order{ID: "64f0", Items: []models.OrderItem{{Name: "Tea", Price: decimal.NewFromInt(20)}}}
	require.NoError(t, RenderBill(&buf, o, now))
	html := buf.String()

	assert.Contains(t, html, "Order # 64f0")
	assert.Contains(t, html, ">PENDING<")
	assert.Contains(t, html, "<strong>Table:</strong> N/A")
	assert.Contains(t, html, "<strong>Name:</strong> Guest")
	assert.Contains(t, html, "01 Jan 2025, 08:00")
	assert.Contains(t, html, `<td style="text-align:center">1</td>`)
	assert.Equal(t, "bill-64f0.html", BillFilename(o))
}

func TestWriteOrdersXLSX(t *testing.T) {
	var buf bytes.Buffer
	second := models.Order{ID: "o-2", Total: decimal.NewFromInt(40), Status: models.OrderStatusPlaced}
	require.NoError(t, WriteOrdersXLSX(&buf, []models.Order{paidOrder(), second}))

	file, err := xlsx.OpenBinary(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, file.Sheets, 1)
	sheet := file.Sheets[0]
	assert.Equal(t, "Orders", sheet.Name)
	require.Equal(t, 3, sheet.MaxRow)

	cell := func(r, c int) string { return strings.TrimSpace(sheet.Rows[r].Cells[c].Value) }
	assert.Equal(t, "Order #", cell(0, 0))
	assert.Equal(t, "ORD-0001", cell(1, 0))
	assert.Equal(t, "T4", cell(1, 1))
	assert.Equal(t, "3", cell(1, 2))
	assert.Equal(t, "135.5", cell(1, 4))
	assert.Equal(t, "served", cell(1, 5))
	assert.Equal(t, "paid", cell(1, 6))
	assert.Equal(t, "2025-03-09 19:30:00", cell(1, 9))

	assert.Equal(t, "o-2", cell(2, 0))
	assert.Equal(t, "N/A", cell(2, 1))
	assert.Equal(t, "pending", cell(2, 6))
}
