package reminder

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OutstandingLine is one unpaid month in a reminder
type OutstandingLine struct {
	Period    string          `json:"period"`
	MonthName string          `json:"month_name"`
	Remaining decimal.Decimal `json:"remaining"`
	Partial   bool            `json:"partial"`
}

// ReminderResponse describes a reminder for one house
type ReminderResponse struct {
	HouseID    uuid.UUID         `json:"house_id"`
	HouseLabel string            `json:"house_label"`
	OwnerName  string            `json:"owner_name"`
	Phone      string            `json:"phone"`
	Year       int               `json:"year"`
	Lines      []OutstandingLine `json:"lines"`
	Total      decimal.Decimal   `json:"total"`
	Message    string            `json:"message"`
	Sent       bool              `json:"sent"`
}

// AutoRunResult counts the outcome of an automatic run
type AutoRunResult struct {
	Enabled bool `json:"enabled"`
	Year    int  `json:"year"`
	// Considered is the number of billable houses with a reachable owner
	Considered int `json:"considered"`
	Sent       int `json:"sent"`
	// Skipped counts houses that owe nothing or were already reminded today
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// SettingsResponse holds the reminder settings
type SettingsResponse struct {
	AutoReminder bool `json:"auto_reminder"`
}
