package finance

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/finance"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ExpenseRequest creates or replaces an expense. Proof is optional.
type ExpenseRequest struct {
	Title    string
	Amount   decimal.Decimal
	Date     time.Time
	Category string
	Notes    string

	Proof       io.Reader
	ProofSize   int64
	ContentType string
	FileName    string
}

// ExpenseResponse is an expense as returned to callers
type ExpenseResponse struct {
	ID        uuid.UUID       `json:"id"`
	Title     string          `json:"title"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category,omitempty"`
	Date      time.Time       `json:"date"`
	Period    string          `json:"period"`
	Notes     string          `json:"notes,omitempty"`
	HasProof  bool            `json:"has_proof"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func toExpenseResponse(e *finance.Expense) ExpenseResponse {
	return ExpenseResponse{
		ID:        e.ID,
		Title:     e.Title,
		Amount:    e.Amount,
		Category:  e.Category,
		Date:      e.Date,
		Period:    e.Period().String(),
		Notes:     e.Notes,
		HasProof:  e.ProofKey != "",
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

// ExpenseList is a filtered listing with its total
type ExpenseList struct {
	Items []ExpenseResponse `json:"items"`
	Total decimal.Decimal   `json:"total"`
}

// ExpenseListFilter selects expenses
type ExpenseListFilter struct {
	Period   *valueobject.Period
	Year     int
	Category string
}

// CloneResult reports an expense clone
type CloneResult struct {
	Source  string            `json:"source"`
	Target  string            `json:"target"`
	Created []ExpenseResponse `json:"created"`
}

// MonthlyReport is the cash statement of one month
type MonthlyReport struct {
	Period         string            `json:"period"`
	PeriodLabel    string            `json:"period_label"`
	OpeningBalance decimal.Decimal   `json:"opening_balance"`
	Anchored       bool              `json:"anchored"`
	IncomeWajib    decimal.Decimal   `json:"income_wajib"`
	IncomeSukarela decimal.Decimal   `json:"income_sukarela"`
	TotalIncome    decimal.Decimal   `json:"total_income"`
	Expenses       []ExpenseResponse `json:"expenses"`
	TotalExpenses  decimal.Decimal   `json:"total_expenses"`
	ClosingBalance decimal.Decimal   `json:"closing_balance"`
}

// YearlyRow is one month of the yearly overview
type YearlyRow struct {
	Period         string          `json:"period"`
	MonthName      string          `json:"month_name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Anchored       bool            `json:"anchored"`
	IncomeWajib    decimal.Decimal `json:"income_wajib"`
	IncomeSukarela decimal.Decimal `json:"income_sukarela"`
	TotalIncome    decimal.Decimal `json:"total_income"`
	TotalExpenses  decimal.Decimal `json:"total_expenses"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// YearlyReport is twelve monthly rows with year totals
type YearlyReport struct {
	Year           int             `json:"year"`
	Months         []YearlyRow     `json:"months"`
	TotalIncome    decimal.Decimal `json:"total_income"`
	TotalExpenses  decimal.Decimal `json:"total_expenses"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// AnchorResponse is a stored opening balance
type AnchorResponse struct {
	Period         string          `json:"period"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Notes          string          `json:"notes,omitempty"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
