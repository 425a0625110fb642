package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPaymentStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  PaymentStatus
		isValid bool
	}{
		{PaymentStatusPaid, true},
		{PaymentStatusPartial, true},
		{PaymentStatusDue, true},
		{PaymentStatusOverdue, true},
		{PaymentStatus("INVALID"), false},
		{PaymentStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestOrderStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  OrderStatus
		isValid bool
	}{
		{OrderStatusPending, true},
		{OrderStatusConfirmed, true},
		{OrderStatusShipped, true},
		{OrderStatusDelivered, true},
		{OrderStatusCancelled, true},
		{OrderStatus("DISPATCHED"), false},
		{OrderStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	pastDue := now.AddDate(0, 0, -5)
	futureDue := now.AddDate(0, 0, 5)

	tests := []struct {
		name     string
		total    decimal.Decimal
		received decimal.Decimal
		dueDate  *time.Time
		want     PaymentStatus
	}{
		{"fully paid", decimal.NewFromInt(1000), decimal.NewFromInt(1000), nil, PaymentStatusPaid},
		{"paid with past due date", decimal.NewFromInt(1000), decimal.NewFromInt(1000), &pastDue, PaymentStatusPaid},
		{"zero total", decimal.Zero, decimal.Zero, nil, PaymentStatusPaid},
		{"unpaid no due date", decimal.NewFromInt(1000), decimal.Zero, nil, PaymentStatusDue},
		{"unpaid future due date", decimal.NewFromInt(1000), decimal.Zero, &futureDue, PaymentStatusDue},
		{"unpaid past due date", decimal.NewFromInt(1000), decimal.Zero, &pastDue, PaymentStatusOverdue},
		{"partial no due date", decimal.NewFromInt(1000), decimal.NewFromInt(400), nil, PaymentStatusPartial},
		{"partial past due date", decimal.NewFromInt(1000), decimal.NewFromInt(400), &pastDue, PaymentStatusOverdue},
		{"one unit short of paid", decimal.NewFromInt(1000), decimal.NewFromInt(999), nil, PaymentStatusPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.total, tt.received, tt.dueDate, now))
		})
	}
}

// DeriveStatus is a pure function: identical inputs must always yield
// identical output with no hidden state.
func TestDeriveStatus_Idempotent(t *testing.T) {
	now := time.Now()
	due := now.AddDate(0, 0, -1)
	total := decimal.NewFromFloat(1234.56)
	received := decimal.NewFromFloat(200.00)

	first := DeriveStatus(total, received, &due, now)
	second := DeriveStatus(total, received, &due, now)

	assert.Equal(t, first, second)
	assert.Equal(t, PaymentStatusOverdue, first)
}

func TestDeriveStatus_ExactBalanceBoundary(t *testing.T) {
	now := time.Now()
	total := decimal.NewFromInt(500)

	assert.Equal(t, PaymentStatusPaid, DeriveStatus(total, decimal.NewFromInt(500), nil, now))
	assert.Equal(t, PaymentStatusPartial, DeriveStatus(total, decimal.NewFromInt(499), nil, now))
	assert.Equal(t, PaymentStatusDue, DeriveStatus(total, decimal.Zero, nil, now))
}
