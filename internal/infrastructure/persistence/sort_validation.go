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

// HouseSortFields contains allowed sort fields for houses
var HouseSortFields = map[string]bool{
	"created_at":    true,
	"updated_at":    true,
	"block":         true,
	"number":        true,
	"occupancy":     true,
	"is_subsidized": true,
	"is_connected":  true,
}

// houseOrder returns the ORDER BY clause of a house listing. Block and number
// always break ties so pages stay stable.
func houseOrder(orderBy, orderDir string) string {
	field := ValidateSortField(orderBy, HouseSortFields, "")
	if field == "" || field == "block" {
		dir := "ASC"
		if field == "block" {
			dir = ValidateSortOrder(orderDir)
		}
		return "block " + dir + ", number " + dir
	}
	return field + " " + ValidateSortOrder(orderDir) + ", block ASC, number ASC"
}
