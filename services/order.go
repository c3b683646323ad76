package services

import (
	"fmt"

	"table-order/models"
)

var nextStatus = map[string][]string{
	models.OrderStatusPlaced:    {models.OrderStatusPreparing, models.OrderStatusCanceled},
	models.OrderStatusPreparing: {models.OrderStatusReady, models.OrderStatusCanceled},
	models.OrderStatusReady:     {models.OrderStatusServed},
}

// ValidStatusTransition reports whether staff may move an order from one status to another.
func ValidStatusTransition(from, to string) bool {
	for _, s := range nextStatus[from] {
		if s == to {
			return true
		}
	}
	return false
}

// NextStatuses lists the statuses reachable from status, in display order.
func NextStatuses(status string) []string {
	return append([]string(nil), nextStatus[status]...)
}

// IsFinalStatus reports whether staff can no longer move the order.
func IsFinalStatus(status string) bool {
	return status == models.OrderStatusServed || status == models.OrderStatusCanceled
}

// CanCustomerCancel reports whether a diner may still cancel their own order.
func CanCustomerCancel(o *models.Order) bool {
	return o.Status == models.OrderStatusPlaced
}

func StatusLabel(status string) string {
	switch status {
	case models.OrderStatusPlaced:
		return "Placed"
	case models.OrderStatusPreparing:
		return "Preparing"
	case models.OrderStatusReady:
		return "Ready"
	case models.OrderStatusServed:
		return "Served"
	case models.OrderStatusCanceled:
		return "Canceled"
	default:
		return status
	}
}

// CustomerMessageForOrderStatus is the notification a diner gets when staff move their order.
func CustomerMessageForOrderStatus(o *models.Order, status string) string {
	total := FormatMoney(o.Total)
	switch status {
	case models.OrderStatusPreparing:
		return fmt.Sprintf("👨‍🍳 Order #%s (%s) is being prepared.", o.Number(), total)
	case models.OrderStatusReady:
		return fmt.Sprintf("✅ Order #%s is ready and on its way to your table.", o.Number())
	case models.OrderStatusServed:
		return fmt.Sprintf("🍽 Order #%s has been served. Enjoy!", o.Number())
	case models.OrderStatusCanceled:
		return fmt.Sprintf("❌ Order #%s was canceled.", o.Number())
	default:
		return fmt.Sprintf("Order #%s: %s", o.Number(), StatusLabel(status))
	}
}
