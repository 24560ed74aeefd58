package dues

import (
	"time"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentMethod is the channel a payment came through
type PaymentMethod string

const (
	PaymentMethodTransfer PaymentMethod = "transfer"
	PaymentMethodCash     PaymentMethod = "cash"
	// PaymentMethodManual is the admin ledger-correction channel. At most one
	// manual payment exists per due; it is upserted, never appended.
	PaymentMethodManual PaymentMethod = "manual"
)

// IsValid checks if the method is valid
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodTransfer, PaymentMethodCash, PaymentMethodManual:
		return true
	}
	return false
}

// String returns the string representation of PaymentMethod
func (m PaymentMethod) String() string {
	return string(m)
}

// PaymentStatus is the verification state of a payment
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusVerified PaymentStatus = "verified"
	PaymentStatusRejected PaymentStatus = "rejected"
)

// IsValid checks if the status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusVerified, PaymentStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// Payment is money received against exactly one due
type Payment struct {
	shared.BaseEntity
	DueID          uuid.UUID
	PayerID        *uuid.UUID
	RecordedBy     *uuid.UUID
	AmountPaid     decimal.Decimal
	AmountWajib    decimal.Decimal
	AmountSukarela decimal.Decimal
	Method         PaymentMethod
	Status         PaymentStatus
	PaymentDate    time.Time
	ProofKey       string
	Notes          string
	VerifiedAt     *time.Time
	VerifiedBy     *uuid.UUID
}

func newPayment(dueID uuid.UUID, split Split, method PaymentMethod, status PaymentStatus, paymentDate time.Time) *Payment {
	return &Payment{
		BaseEntity:     shared.NewBaseEntity(),
		DueID:          dueID,
		AmountPaid:     split.Total(),
		AmountWajib:    split.Wajib,
		AmountSukarela: split.Sukarela,
		Method:         method,
		Status:         status,
		PaymentDate:    shared.Today(paymentDate),
	}
}

// NewManualPayment creates a verified admin ledger entry
func NewManualPayment(dueID uuid.UUID, split Split, paymentDate time.Time, recordedBy *uuid.UUID) *Payment {
	p := newPayment(dueID, split, PaymentMethodManual, PaymentStatusVerified, paymentDate)
	p.RecordedBy = recordedBy
	now := time.Now()
	p.VerifiedAt = &now
	p.VerifiedBy = recordedBy
	return p
}

// NewCashPayment creates a cash payment handed to an admin, verified on receipt
func NewCashPayment(dueID uuid.UUID, split Split, paymentDate time.Time, payerID, recordedBy *uuid.UUID) *Payment {
	p := newPayment(dueID, split, PaymentMethodCash, PaymentStatusVerified, paymentDate)
	p.PayerID = payerID
	p.RecordedBy = recordedBy
	now := time.Now()
	p.VerifiedAt = &now
	p.VerifiedBy = recordedBy
	return p
}

// NewTransferPayment creates a pending payment backed by an uploaded proof
func NewTransferPayment(dueID uuid.UUID, split Split, paymentDate time.Time, payerID *uuid.UUID, proofKey string) (*Payment, error) {
	if proofKey == "" {
		return nil, shared.NewDomainError("PROOF_REQUIRED", "Transfer payments require a proof of transfer")
	}
	if !split.Total().IsPositive() {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount paid must be positive")
	}
	p := newPayment(dueID, split, PaymentMethodTransfer, PaymentStatusPending, paymentDate)
	p.PayerID = payerID
	p.ProofKey = proofKey
	return p, nil
}

// ApplySplit overwrites the amounts, used when a manual payment is upserted
func (p *Payment) ApplySplit(split Split, paymentDate time.Time) {
	p.AmountPaid = split.Total()
	p.AmountWajib = split.Wajib
	p.AmountSukarela = split.Sukarela
	p.PaymentDate = shared.Today(paymentDate)
	p.Touch()
}

// AddSukarela records an overpayment on top of the current amounts
func (p *Payment) AddSukarela(amount decimal.Decimal) {
	p.AmountSukarela = p.AmountSukarela.Add(amount)
	p.AmountPaid = p.AmountWajib.Add(p.AmountSukarela)
	p.Touch()
}

// Verify accepts a pending payment
func (p *Payment) Verify(by *uuid.UUID, at time.Time) error {
	if p.Status != PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Only pending payments can be verified")
	}
	p.Status = PaymentStatusVerified
	p.VerifiedAt = &at
	p.VerifiedBy = by
	p.Touch()
	return nil
}

// Reject declines a pending or verified payment
func (p *Payment) Reject(by *uuid.UUID, at time.Time, reason string) error {
	if p.Status == PaymentStatusRejected {
		return shared.NewDomainError("INVALID_STATE", "Payment is already rejected")
	}
	if p.Method == PaymentMethodManual {
		return shared.NewDomainError("INVALID_STATE", "Manual payments are removed, not rejected")
	}
	p.Status = PaymentStatusRejected
	p.VerifiedAt = &at
	p.VerifiedBy = by
	if reason != "" {
		p.Notes = reason
	}
	p.Touch()
	return nil
}

// IsVerified reports whether the payment counts toward income and due status
func (p *Payment) IsVerified() bool {
	return p.Status == PaymentStatusVerified
}

// IsManual reports whether the payment is the admin ledger entry
func (p *Payment) IsManual() bool {
	return p.Method == PaymentMethodManual
}
