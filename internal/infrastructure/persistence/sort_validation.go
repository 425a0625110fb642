package persistence

import "strings"

// Sort fields and directions come straight from query parameters and end up
// interpolated into ORDER BY clauses, so both pass through a whitelist first.

// OrderSortFields lists the columns orders may be sorted by.
var OrderSortFields = map[string]bool{
	"id":              true,
	"created_at":      true,
	"updated_at":      true,
	"order_number":    true,
	"customer_name":   true,
	"total_amount":    true,
	"amount_received": true,
	"balance_amount":  true,
	"due_date":        true,
	"status":          true,
	"payment_status":  true,
}

// PaymentSortFields lists the columns payment transactions may be sorted by.
var PaymentSortFields = map[string]bool{
	"id":             true,
	"created_at":     true,
	"updated_at":     true,
	"order_id":       true,
	"amount_paid":    true,
	"payment_method": true,
	"payment_date":   true,
	"due_date":       true,
	"status":         true,
}

// ValidateSortField returns sortField if allowed lists it, defaultField
// otherwise.
func ValidateSortField(sortField string, allowed map[string]bool, defaultField string) string {
	field := strings.TrimSpace(sortField)
	if allowed[field] {
		return field
	}
	return defaultField
}

// ValidateSortOrder normalizes a sort direction. Anything that is not ASC,
// in any casing, becomes DESC.
func ValidateSortOrder(orderDir string) string {
	if strings.EqualFold(strings.TrimSpace(orderDir), "ASC") {
		return "ASC"
	}
	return "DESC"
}
