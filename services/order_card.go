package services

import (
	"fmt"
	"strings"

	"table-order/models"
)

// OrderCardButton is one inline button (text + callback_data or url).
type OrderCardButton struct {
	Text         string
	CallbackData string
	URL          string // if set, use as URL button instead of callback
}

// OrderCardContent is the text and optional inline keyboard for an order card.
type OrderCardContent struct {
	Text    string
	Buttons [][]OrderCardButton
}

const (
	CallbackOrderStatus = "order_status:"
	CallbackOrderPaid   = "order_paid:"
	CallbackOrderCancel = "order_cancel:"
	CallbackOrderBill   = "order_bill:"
)

func orderLines(o *models.Order) string {
	var b strings.Builder
	for _, it := range o.Items {
		name := it.Name
		if name == "" {
			name = "Item"
		}
		fmt.Fprintf(&b, "• %s × %d = %s\n", name, it.Quantity, FormatMoney(it.Price.Mul(decimalFromInt(it.Quantity))))
		if it.Note != "" {
			fmt.Fprintf(&b, "   ✏️ %s\n", it.Note)
		}
	}
	return b.String()
}

func paymentLabel(o *models.Order) string {
	if o.Paid() {
		if o.PaymentMethod != "" {
			return "Paid (" + o.PaymentMethod + ")"
		}
		return "Paid"
	}
	return "Pending"
}

// BuildAdminCard returns full card text and inline keyboard for staff. Buttons
// offer the next legal statuses and, while unpaid, a mark-paid action.
func BuildAdminCard(o *models.Order) OrderCardContent {
	table := o.TableNumber
	if table == "" {
		table = "N/A"
	}
	text := fmt.Sprintf("🧾 Order #%s\n🪑 Table: %s\n\n", o.Number(), table)
	text += orderLines(o)
	text += fmt.Sprintf("\n💵 Total: %s\n", FormatMoney(o.Total))
	text += fmt.Sprintf("Status: %s\nPayment: %s", StatusLabel(o.Status), paymentLabel(o))
	if o.SpecialInstructions != "" {
		text += "\n📝 " + o.SpecialInstructions
	}

	var buttons [][]OrderCardButton
	for _, next := range NextStatuses(o.Status) {
		buttons = append(buttons, []OrderCardButton{{
			Text:         "➡️ " + StatusLabel(next),
			CallbackData: CallbackOrderStatus + o.ID + ":" + next,
		}})
	}
	if !o.Paid() && o.Status != models.OrderStatusCanceled {
		buttons = append(buttons, []OrderCardButton{{Text: "💰 Mark paid (cash)", CallbackData: CallbackOrderPaid + o.ID}})
	}
	return OrderCardContent{Text: text, Buttons: buttons}
}

// BuildCustomerCard returns the diner's view of an order with a cancel button
// while the kitchen has not started.
func BuildCustomerCard(o *models.Order) OrderCardContent {
	text := fmt.Sprintf("Order #%s\n\n", o.Number())
	text += orderLines(o)
	text += fmt.Sprintf("\n💵 Total: %s\n", FormatMoney(o.Total))
	text += "Status: " + StatusLabel(o.Status) + "\n"
	text += "Payment: " + paymentLabel(o)

	buttons := [][]OrderCardButton{{{Text: "📄 Bill", CallbackData: CallbackOrderBill + o.ID}}}
	if CanCustomerCancel(o) {
		buttons = append(buttons, []OrderCardButton{{Text: "❌ Cancel order", CallbackData: CallbackOrderCancel + o.ID}})
	}
	return OrderCardContent{Text: text, Buttons: buttons}
}

// ParseStatusCallback splits "order_status:<id>:<status>".
func ParseStatusCallback(data string) (orderID, status string, ok bool) {
	rest, found := strings.CutPrefix(data, CallbackOrderStatus)
	if !found {
		return "", "", false
	}
	i := strings.LastIndex(rest, ":")
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}
