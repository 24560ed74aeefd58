package dues

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DueResponse is a due with its house label and verified wajib total
type DueResponse struct {
	ID            uuid.UUID       `json:"id"`
	HouseID       uuid.UUID       `json:"house_id"`
	HouseLabel    string          `json:"house_label,omitempty"`
	Period        string          `json:"period"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	DueDate       time.Time       `json:"due_date"`
	VerifiedWajib decimal.Decimal `json:"verified_wajib"`
	Remaining     decimal.Decimal `json:"remaining"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func toDueResponse(d *dues.Due, label string, verifiedWajib decimal.Decimal) DueResponse {
	return DueResponse{
		ID:            d.ID,
		HouseID:       d.HouseID,
		HouseLabel:    label,
		Period:        d.Period.String(),
		Amount:        d.Amount,
		Status:        string(d.Status),
		DueDate:       d.DueDate,
		VerifiedWajib: verifiedWajib,
		Remaining:     decimal.Max(decimal.Zero, d.Amount.Sub(verifiedWajib)),
		UpdatedAt:     d.UpdatedAt,
	}
}

// DueListFilter selects dues for listing
type DueListFilter struct {
	HouseID *uuid.UUID
	Year    int
	Period  *valueobject.Period
	Status  dues.DueStatus
}

// GenerateResult reports a generation run
type GenerateResult struct {
	Period     string `json:"period"`
	Created    int    `json:"created"`
	Skipped    int    `json:"skipped"`
	Subsidized int    `json:"subsidized"`
}

// BulkAmountRequest sets the amount of every due in a period, optionally
// limited to some houses
type BulkAmountRequest struct {
	Period   valueobject.Period
	Amount   decimal.Decimal
	HouseIDs []uuid.UUID
}

// CalendarStatusNone marks a month without a due
const CalendarStatusNone = "none"

// CalendarCell is one house-month of the calendar grid
type CalendarCell struct {
	Month         int             `json:"month"`
	DueID         *uuid.UUID      `json:"due_id,omitempty"`
	Status        string          `json:"status"`
	Amount        decimal.Decimal `json:"amount"`
	VerifiedWajib decimal.Decimal `json:"verified_wajib"`
}

// CalendarRow is one house across twelve months
type CalendarRow struct {
	HouseID      uuid.UUID      `json:"house_id"`
	HouseLabel   string         `json:"house_label"`
	IsSubsidized bool           `json:"is_subsidized"`
	Months       []CalendarCell `json:"months"`
}

// Calendar is the houses by months grid of a year
type Calendar struct {
	Year int           `json:"year"`
	Rows []CalendarRow `json:"rows"`
}

// Dashboard summarises the current month
type Dashboard struct {
	Period           string          `json:"period"`
	Houses           int             `json:"houses"`
	BillableHouses   int             `json:"billable_houses"`
	PaidDues         int             `json:"paid_dues"`
	UnpaidDues       int             `json:"unpaid_dues"`
	OverdueDues      int             `json:"overdue_dues"`
	Billed           decimal.Decimal `json:"billed"`
	Collected        decimal.Decimal `json:"collected"`
	PendingTransfers int64           `json:"pending_transfers"`
}

// PaymentResponse is a payment as returned to callers
type PaymentResponse struct {
	ID             uuid.UUID       `json:"id"`
	DueID          uuid.UUID       `json:"due_id"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	AmountWajib    decimal.Decimal `json:"amount_wajib"`
	AmountSukarela decimal.Decimal `json:"amount_sukarela"`
	Method         string          `json:"method"`
	Status         string          `json:"status"`
	PaymentDate    time.Time       `json:"payment_date"`
	Notes          string          `json:"notes,omitempty"`
	HasProof       bool            `json:"has_proof"`
	VerifiedAt     *time.Time      `json:"verified_at,omitempty"`
	VerifiedBy     *uuid.UUID      `json:"verified_by,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func toPaymentResponse(p *dues.Payment) PaymentResponse {
	return PaymentResponse{
		ID:             p.ID,
		DueID:          p.DueID,
		AmountPaid:     p.AmountPaid,
		AmountWajib:    p.AmountWajib,
		AmountSukarela: p.AmountSukarela,
		Method:         string(p.Method),
		Status:         string(p.Status),
		PaymentDate:    p.PaymentDate,
		Notes:          p.Notes,
		HasProof:       p.ProofKey != "",
		VerifiedAt:     p.VerifiedAt,
		VerifiedBy:     p.VerifiedBy,
		CreatedAt:      p.CreatedAt,
	}
}

// PaymentListFilter selects payments for listing
type PaymentListFilter struct {
	DueID  *uuid.UUID
	Status dues.PaymentStatus
	Method dues.PaymentMethod
}

// AllocationResult is the outcome of a single-due allocation
type AllocationResult struct {
	DueID          uuid.UUID       `json:"due_id"`
	AmountWajib    decimal.Decimal `json:"amount_wajib"`
	AmountSukarela decimal.Decimal `json:"amount_sukarela"`
	// Removed is set when a zero amount deleted the manual payment
	Removed bool   `json:"removed"`
	Status  string `json:"status"`
}

// LumpSumRequest spreads one payment over several dues of a house
type LumpSumRequest struct {
	HouseID     uuid.UUID
	DueIDs      []uuid.UUID
	AmountPaid  decimal.Decimal
	PaymentDate *time.Time
	RecordedBy  *uuid.UUID
}

// LumpSumLine is the outcome for one due of a lump sum
type LumpSumLine struct {
	DueID     uuid.UUID       `json:"due_id"`
	Period    string          `json:"period"`
	Allocated decimal.Decimal `json:"allocated"`
	Sukarela  decimal.Decimal `json:"sukarela"`
	Status    string          `json:"status"`
}

// LumpSumResult is the committed allocation of a lump sum
type LumpSumResult struct {
	HouseID        uuid.UUID       `json:"house_id"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	TotalAllocated decimal.Decimal `json:"total_allocated"`
	Leftover       decimal.Decimal `json:"leftover"`
	Lines          []LumpSumLine   `json:"lines"`
}

// TransferRequest is a resident's proof-of-transfer submission
type TransferRequest struct {
	DueID       uuid.UUID
	AmountPaid  decimal.Decimal
	PayerID     *uuid.UUID
	Notes       string
	// IdempotencyKey deduplicates resubmissions of the same form
	IdempotencyKey string
	Proof          io.Reader
	ProofSize      int64
	ContentType    string
	FileName       string
}

// CashRequest records cash handed to an admin
type CashRequest struct {
	DueID       uuid.UUID
	AmountPaid  decimal.Decimal
	PaymentDate *time.Time
	PayerID     *uuid.UUID
	RecordedBy  *uuid.UUID
}

// Receipt is the data printed on a payment receipt
type Receipt struct {
	PaymentID      uuid.UUID       `json:"payment_id"`
	HouseLabel     string          `json:"house_label"`
	OwnerName      string          `json:"owner_name,omitempty"`
	Period         string          `json:"period"`
	PeriodLabel    string          `json:"period_label"`
	AmountWajib    decimal.Decimal `json:"amount_wajib"`
	AmountSukarela decimal.Decimal `json:"amount_sukarela"`
	AmountPaid     decimal.Decimal `json:"amount_paid"`
	AmountText     string          `json:"amount_text"`
	Method         string          `json:"method"`
	PaymentDate    time.Time       `json:"payment_date"`
	VerifiedAt     *time.Time      `json:"verified_at,omitempty"`
	ProofURL       string          `json:"proof_url,omitempty"`
	ProofExpiresAt *time.Time      `json:"proof_expires_at,omitempty"`
}
