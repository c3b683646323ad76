package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPlaced    = "placed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusServed    = "served"
	OrderStatusCanceled  = "canceled"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"

	PaymentMethodCash    = "cash"
	PaymentMethodDigital = "digital"
)

// OrderStatuses lists statuses in the order the kitchen moves through them.
var OrderStatuses = []string{
	OrderStatusPlaced,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusServed,
	OrderStatusCanceled,
}

type OrderItem struct {
	MenuItemID string
	Name       string
	Quantity   int `validate:"gte=1"`
	Price      decimal.Decimal
	Note       string
}

// Order is a created order as returned by the API.
type Order struct {
	ID                  string `validate:"required"`
	OrderNumber         string
	TableID             string
	TableNumber         string
	CustomerName        string
	CustomerEmail       string
	Items               []OrderItem `validate:"dive"`
	Subtotal            decimal.Decimal
	Tax                 decimal.Decimal
	Total               decimal.Decimal
	Status              string
	PaymentStatus       string
	PaymentMethod       string
	SpecialInstructions string
	CreatedAt           time.Time
}

// Number is the human facing order number, falling back to the id.
func (o *Order) Number() string {
	if o.OrderNumber != "" {
		return o.OrderNumber
	}
	return o.ID
}

func (o *Order) Paid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// SnapshotItem is one submitted line; Price is the menu price at capture time.
type SnapshotItem struct {
	MenuItemID string
	Quantity   int
	Note       string
	Price      decimal.Decimal
}

// OrderSnapshot is the immutable copy of a cart sent to create an order.
// Subtotal and Total are always equal: there is no tax or discount.
type OrderSnapshot struct {
	TableID             string
	Items               []SnapshotItem
	Subtotal            decimal.Decimal
	Total               decimal.Decimal
	PaymentStatus       string
	PaymentMethod       string
	SpecialInstructions string
}
