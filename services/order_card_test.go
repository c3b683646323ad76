package services

import (
	"strings"
	"testing"

	"table-order/models"

	"github.com/shopspring/decimal"
)

func sampleOrder() *models.Order {
	return &models.Order{
		ID:          "o-1",
		TableNumber: "T3",
		Status:      models.OrderStatusPlaced,
		Items: []models.OrderItem{
			{MenuItemID: "m1", Name: "Dosa", Quantity: 2, Price: decimal.NewFromInt(60), Note: "crispy"},
			{MenuItemID: "m2", Quantity: 1, Price: decimal.NewFromInt(30)},
		},
		Total:         decimal.NewFromInt(150),
		PaymentStatus: models.PaymentStatusPending,
	}
}

func TestBuildAdminCard(t *testing.T) {
	card := BuildAdminCard(sampleOrder())
	for _, want := range []string{"#o-1", "Table: T3", "Dosa × 2 = ₹120.00", "crispy", "Item × 1", "₹150.00", "Placed", "Pending"} {
		if !strings.Contains(card.Text, want) {
			t.Errorf("admin card missing %q:\n%s", want, card.Text)
		}
	}
	if len(card.Buttons) != 3 {
		t.Fatalf("want 2 status buttons and mark paid, got %d rows", len(card.Buttons))
	}
	if card.Buttons[0][0].CallbackData != "order_status:o-1:preparing" {
		t.Errorf("first button = %q", card.Buttons[0][0].CallbackData)
	}
	if card.Buttons[2][0].CallbackData != "order_paid:o-1" {
		t.Errorf("last button = %q", card.Buttons[2][0].CallbackData)
	}
}

func TestBuildAdminCard_PaidServed(t *testing.T) {
	o := sampleOrder()
	o.Status = models.OrderStatusServed
	o.PaymentStatus = models.PaymentStatusPaid
	o.PaymentMethod = models.PaymentMethodCash
	o.TableNumber = ""
	card := BuildAdminCard(o)
	if len(card.Buttons) != 0 {
		t.Errorf("served and paid order should have no buttons, got %v", card.Buttons)
	}
	if !strings.Contains(card.Text, "Table: N/A") || !strings.Contains(card.Text, "Paid (cash)") {
		t.Errorf("unexpected card:\n%s", card.Text)
	}
}

func TestBuildCustomerCard(t *testing.T) {
	o := sampleOrder()
	card := BuildCustomerCard(o)
	if len(card.Buttons) != 2 || card.Buttons[1][0].CallbackData != "order_cancel:o-1" {
		t.Errorf("placed order should offer cancel: %v", card.Buttons)
	}
	o.Status = models.OrderStatusReady
	card = BuildCustomerCard(o)
	if len(card.Buttons) != 1 || card.Buttons[0][0].CallbackData != "order_bill:o-1" {
		t.Errorf("ready order should only offer the bill: %v", card.Buttons)
	}
}

func TestParseStatusCallback(t *testing.T) {
	tests := []struct {
		in         string
		id, status string
		ok         bool
	}{
		{"order_status:o-1:ready", "o-1", "ready", true},
		{"order_status:abc", "", "", false},
		{"order_status::ready", "", "", false},
		{"order_status:o-1:", "", "", false},
		{"order_paid:o-1", "", "", false},
	}
	for _, tt := range tests {
		id, st, ok := ParseStatusCallback(tt.in)
		if id != tt.id || st != tt.status || ok != tt.ok {
			t.Errorf("ParseStatusCallback(%q) = %q, %q, %v", tt.in, id, st, ok)
		}
	}
}
