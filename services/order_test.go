package services

import (
	"strings"
	"testing"

	"table-order/models"

	"github.com/shopspring/decimal"
)

func TestValidStatusTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{models.OrderStatusPlaced, models.OrderStatusPreparing, true},
		{models.OrderStatusPlaced, models.OrderStatusReady, false},
		{models.OrderStatusPlaced, models.OrderStatusServed, false},
		{models.OrderStatusPlaced, models.OrderStatusCanceled, true},
		{models.OrderStatusPreparing, models.OrderStatusReady, true},
		{models.OrderStatusPreparing, models.OrderStatusPlaced, false},
		{models.OrderStatusPreparing, models.OrderStatusCanceled, true},
		{models.OrderStatusReady, models.OrderStatusServed, true},
		{models.OrderStatusReady, models.OrderStatusCanceled, false},
		{models.OrderStatusServed, models.OrderStatusPlaced, false},
		{models.OrderStatusCanceled, models.OrderStatusPlaced, false},
		{"", models.OrderStatusPlaced, false},
		{models.OrderStatusPlaced, "", false},
	}
	for _, tt := range tests {
		got := ValidStatusTransition(tt.from, tt.to)
		if got != tt.want {
			t.Errorf("ValidStatusTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestNextStatusesIsACopy(t *testing.T) {
	next := NextStatuses(models.OrderStatusPlaced)
	next[0] = "bogus"
	if NextStatuses(models.OrderStatusPlaced)[0] != models.OrderStatusPreparing {
		t.Error("NextStatuses must not expose the transition table")
	}
	if len(NextStatuses(models.OrderStatusServed)) != 0 {
		t.Error("served is terminal")
	}
}

func TestIsFinalStatus(t *testing.T) {
	for _, st := range models.OrderStatuses {
		want := st == models.OrderStatusServed || st == models.OrderStatusCanceled
		if got := IsFinalStatus(st); got != want {
			t.Errorf("IsFinalStatus(%q) = %v, want %v", st, got, want)
		}
		if want && len(NextStatuses(st)) != 0 {
			t.Errorf("final status %q has next statuses", st)
		}
	}
}

func TestCustomerMessageForOrderStatus(t *testing.T) {
	o := &models.Order{ID: "64f1", OrderNumber: "ORD-123", Total: decimal.NewFromInt(750)}
	m := CustomerMessageForOrderStatus(o, models.OrderStatusPreparing)
	if !strings.Contains(m, "ORD-123") || !strings.Contains(m, "₹750.00") {
		t.Errorf("message should contain order number and total: %s", m)
	}
	m = CustomerMessageForOrderStatus(o, models.OrderStatusServed)
	if !strings.Contains(m, "served") {
		t.Errorf("served message should say so: %s", m)
	}
	m = CustomerMessageForOrderStatus(o, "weird")
	if !strings.Contains(m, "weird") {
		t.Errorf("unknown status should be echoed: %s", m)
	}
}

func TestCanCustomerCancel(t *testing.T) {
	if !CanCustomerCancel(&models.Order{Status: models.OrderStatusPlaced}) {
		t.Error("placed orders are cancelable")
	}
	if CanCustomerCancel(&models.Order{Status: models.OrderStatusPreparing}) {
		t.Error("orders in the kitchen are not cancelable")
	}
}

func TestFormatMoney(t *testing.T) {
	if got := FormatMoney(decimal.RequireFromString("120.5")); got != "₹120.50" {
		t.Errorf("FormatMoney = %q", got)
	}
	if got := FormatMoney(decimal.Zero); got != "₹0.00" {
		t.Errorf("FormatMoney(0) = %q", got)
	}
}
