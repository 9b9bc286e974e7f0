package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	normalized := strings.ToUpper(strings.TrimSpace(orderDir))
	if normalized == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// buildOrderClause combines a validated sort field and direction into an
// ORDER BY expression with id as a stable secondary key.
func buildOrderClause(orderBy string, orderDir string, allowedFields map[string]bool, defaultField string) string {
	field := ValidateSortField(orderBy, allowedFields, defaultField)
	dir := ValidateSortOrder(orderDir)
	return field + " " + dir + ", id " + dir
}

// ChargeSortFields contains allowed sort fields for ledger charges
var ChargeSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"charge_number":      true,
	"contract_id":        true,
	"category":           true,
	"status":             true,
	"amount":             true,
	"paid_amount":        true,
	"outstanding_amount": true,
	"entry_date":         true,
	"due_date":           true,
}

// PaymentSortFields contains allowed sort fields for ledger payments
var PaymentSortFields = map[string]bool{
	"id":                 true,
	"created_at":         true,
	"updated_at":         true,
	"payment_number":     true,
	"contract_id":        true,
	"status":             true,
	"method":             true,
	"amount":             true,
	"allocated_amount":   true,
	"unallocated_amount": true,
	"reference":          true,
	"received_at":        true,
}

// ReminderEventSortFields contains allowed sort fields for reminder events
var ReminderEventSortFields = map[string]bool{
	"id":          true,
	"created_at":  true,
	"contract_id": true,
	"charge_id":   true,
	"tier":        true,
	"event_date":  true,
}
