package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateSortOrder(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "DESC"},
		{"ASC", "ASC"},
		{"asc", "ASC"},
		{"  Asc  ", "ASC"},
		{"DESC", "DESC"},
		{"desc", "DESC"},
		{"sideways", "DESC"},
		{"   ", "DESC"},
		{"ASC; DROP TABLE orders;--", "DESC"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ValidateSortOrder(tt.input), "input %q", tt.input)
	}
}

func TestValidateSortField(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty returns default", "", "created_at"},
		{"whitelisted field passes", "order_number", "order_number"},
		{"whitelisted with surrounding whitespace", "  due_date  ", "due_date"},
		{"unknown column returns default", "secret_column", "created_at"},
		{"case sensitive", "ORDER_NUMBER", "created_at"},
		{"embedded space rejected", "order_number customer_name", "created_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, OrderSortFields, "created_at"))
		})
	}

	t.Run("default passes through unchecked", func(t *testing.T) {
		assert.Equal(t, "", ValidateSortField("nope", OrderSortFields, ""))
	})
}

func TestSortWhitelists(t *testing.T) {
	for name, whitelist := range map[string]map[string]bool{
		"orders":   OrderSortFields,
		"payments": PaymentSortFields,
	} {
		t.Run(name, func(t *testing.T) {
			for _, field := range []string{"id", "created_at", "updated_at"} {
				assert.True(t, whitelist[field], "missing %s", field)
			}
		})
	}

	assert.True(t, OrderSortFields["balance_amount"])
	assert.True(t, PaymentSortFields["payment_date"])
	assert.False(t, PaymentSortFields["customer_name"], "payment sorts must not expose order columns")
}

func TestSortValidationRejectsInjection(t *testing.T) {
	payloads := []string{
		"id; DROP TABLE orders;--",
		"id' OR '1'='1",
		"id UNION SELECT * FROM payment_transactions",
		"id, (SELECT notes FROM payment_transactions)",
		"id/**/;DROP TABLE orders",
		"id\n; DROP TABLE orders",
		"CASE WHEN 1=1 THEN id ELSE status END",
	}

	for _, payload := range payloads {
		assert.Equal(t, "created_at", ValidateSortField(payload, OrderSortFields, "created_at"), "payload %q", payload)
		assert.Equal(t, "DESC", ValidateSortOrder(payload), "payload %q", payload)
	}
}
