// Package invoice renders customer bills and staff order exports.
package invoice

import (
	"html/template"
	"io"
	"strings"
	"time"

	"table-order/models"

	"github.com/shopspring/decimal"
)

type billRow struct {
	Index    int
	Name     string
	Quantity int
	Price    string
	Total    string
}

type billView struct {
	Number   string
	Badge    string
	Date     string
	Table    string
	Customer string
	Email    string
	Rows     []billRow
	Subtotal string
	Tax      string
	Total    string
}

var billTmpl = template.Must(template.New("bill").Parse(`<!doctype html>
<html>
<head>
<meta charset="utf-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>Bill - {{.Number}}</title>
<style>
body{font-family:Arial,Helvetica,sans-serif;color:#111;}
.container{max-width:800px;margin:24px auto;padding:24px;border:1px solid #eee;border-radius:12px}
.row{display:flex;justify-content:space-between;gap:16px;flex-wrap:wrap}
.muted{color:#666}
.title{font-size:22px;font-weight:700}
.badge{padding:4px 8px;border-radius:999px;background:#f3f4f6;font-size:12px}
.total{font-size:18px;font-weight:700}
td,th{padding:8px;border-bottom:1px solid #eee}
th{border-bottom:2px solid #111}
</style>
</head>
<body>
<div class="container">
  <div class="row" style="margin-bottom:16px;align-items:center;">
    <div>
      <div class="title">Restaurant Bill</div>
      <div class="muted">Order # {{.Number}}</div>
    </div>
    <div class="badge">{{.Badge}}</div>
  </div>
  <div class="row" style="margin-bottom:16px">
    <div>
      <div><strong>Date:</strong> {{.Date}}</div>
      <div><strong>Table:</strong> {{.Table}}</div>
    </div>
    <div>
      <div><strong>Name:</strong> {{.Customer}}</div>
      <div><strong>Email:</strong> {{.Email}}</div>
    </div>
  </div>
  <table style="width:100%;border-collapse:collapse;margin-top:8px;">
    <thead>
      <tr><th style="text-align:left">#</th><th style="text-align:left">Item</th><th>Qty</th><th style="text-align:right">Price</th><th style="text-align:right">Total</th></tr>
    </thead>
    <tbody>
{{- range .Rows}}
      <tr><td>{{.Index}}</td><td>{{.Name}}</td><td style="text-align:center">{{.Quantity}}</td><td style="text-align:right">{{.Price}}</td><td style="text-align:right">{{.Total}}</td></tr>
{{- end}}
    </tbody>
  </table>
  <div style="margin-top:16px;display:flex;justify-content:flex-end">
    <div>
      <div><strong>Subtotal:</strong> {{.Subtotal}}</div>
      <div><strong>Tax:</strong> {{.Tax}}</div>
      <div class="total"><strong>Grand Total:</strong> {{.Total}}</div>
    </div>
  </div>
</div>
</body>
</html>
`))

func money(d decimal.Decimal) string {
	return "₹" + d.StringFixed(2)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// RenderBill writes a printable HTML bill for o. now is used when the order
// carries no creation time.
func RenderBill(w io.Writer, o models.Order, now time.Time) error {
	created := o.CreatedAt
	if created.IsZero() {
		created = now
	}
	v := billView{
		Number:   o.Number(),
		Badge:    strings.ToUpper(orDefault(o.PaymentStatus, models.PaymentStatusPending)),
		Date:     created.Format("02 Jan 2006, 15:04"),
		Table:    orDefault(o.TableNumber, "N/A"),
		Customer: orDefault(o.CustomerName, "Guest"),
		Email:    orDefault(o.CustomerEmail, "-"),
		Subtotal: money(o.Subtotal),
		Tax:      money(o.Tax),
		Total:    money(o.Total),
	}
	for i, it := range o.Items {
		qty := it.Quantity
		if qty < 1 {
			qty = 1
		}
		v.Rows = append(v.Rows, billRow{
			Index:    i + 1,
			Name:     orDefault(it.Name, "Item"),
			Quantity: qty,
			Price:    money(it.Price),
			Total:    money(it.Price.Mul(decimal.NewFromInt(int64(qty)))),
		})
	}
	return billTmpl.Execute(w, v)
}

// BillFilename is the download name for o's bill.
func BillFilename(o models.Order) string {
	return "bill-" + o.Number() + ".html"
}
