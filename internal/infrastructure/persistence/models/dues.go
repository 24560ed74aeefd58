package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ResidentModel is the persistence model for Resident
type ResidentModel struct {
	BaseModel
	Name  string `gorm:"type:varchar(100);not null"`
	Email string `gorm:"type:varchar(255);index"`
	Phone string `gorm:"type:varchar(30)"`
}

// TableName returns the table name for GORM
func (ResidentModel) TableName() string {
	return "residents"
}

// ToDomain converts the model to a domain Resident
func (m *ResidentModel) ToDomain() *dues.Resident {
	return &dues.Resident{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		Email:      m.Email,
		Phone:      m.Phone,
	}
}

// FromDomain populates the model from a domain Resident
func (m *ResidentModel) FromDomain(r *dues.Resident) {
	m.FromDomainBaseEntity(r.BaseEntity)
	m.Name = r.Name
	m.Email = r.Email
	m.Phone = r.Phone
}

// HouseModel is the persistence model for the House aggregate
type HouseModel struct {
	AggregateModel
	Block          string              `gorm:"type:varchar(10);not null;uniqueIndex:idx_houses_block_number,priority:1"`
	Number         string              `gorm:"type:varchar(10);not null;uniqueIndex:idx_houses_block_number,priority:2"`
	Occupancy      dues.Occupancy      `gorm:"type:varchar(20);not null"`
	ResidentStatus dues.ResidentStatus `gorm:"type:varchar(20);not null"`
	IsSubsidized   bool                `gorm:"not null;default:false"`
	IsConnected    bool                `gorm:"not null;default:false"`
	MeterCount     int                 `gorm:"not null;default:1"`
	OwnerID        *uuid.UUID          `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (HouseModel) TableName() string {
	return "houses"
}

// ToDomain converts the model to a domain House
func (m *HouseModel) ToDomain() *dues.House {
	return &dues.House{
		BaseAggregateRoot: m.ToDomainAggregate(),
		Block:             m.Block,
		Number:            m.Number,
		Occupancy:         m.Occupancy,
		ResidentStatus:    m.ResidentStatus,
		IsSubsidized:      m.IsSubsidized,
		IsConnected:       m.IsConnected,
		MeterCount:        m.MeterCount,
		OwnerID:           m.OwnerID,
	}
}

// FromDomain populates the model from a domain House
func (m *HouseModel) FromDomain(h *dues.House) {
	m.FromDomainAggregateRoot(h.BaseAggregateRoot)
	m.Block = h.Block
	m.Number = h.Number
	m.Occupancy = h.Occupancy
	m.ResidentStatus = h.ResidentStatus
	m.IsSubsidized = h.IsSubsidized
	m.IsConnected = h.IsConnected
	m.MeterCount = h.MeterCount
	m.OwnerID = h.OwnerID
}

// DueModel is the persistence model for the Due aggregate. Period is stored
// as the first day of the month.
type DueModel struct {
	AggregateModel
	HouseID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_dues_house_period,priority:1"`
	Period  time.Time       `gorm:"type:date;not null;uniqueIndex:idx_dues_house_period,priority:2;index"`
	Amount  decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Status  dues.DueStatus  `gorm:"type:varchar(20);not null;default:'unpaid';index"`
	DueDate time.Time       `gorm:"type:date;not null"`
}

// TableName returns the table name for GORM
func (DueModel) TableName() string {
	return "dues"
}

// ToDomain converts the model to a domain Due
func (m *DueModel) ToDomain() *dues.Due {
	return &dues.Due{
		BaseAggregateRoot: m.ToDomainAggregate(),
		HouseID:           m.HouseID,
		Period:            valueobject.PeriodOf(m.Period),
		Amount:            m.Amount,
		Status:            m.Status,
		DueDate:           shared.Today(m.DueDate),
	}
}

// FromDomain populates the model from a domain Due
func (m *DueModel) FromDomain(d *dues.Due) {
	m.FromDomainAggregateRoot(d.BaseAggregateRoot)
	m.HouseID = d.HouseID
	m.Period = d.Period.Start()
	m.Amount = d.Amount
	m.Status = d.Status
	m.DueDate = d.DueDate
}

// PaymentModel is the persistence model for Payment
type PaymentModel struct {
	BaseModel
	DueID          uuid.UUID          `gorm:"type:uuid;not null;index:idx_payments_due_method,priority:1"`
	PayerID        *uuid.UUID         `gorm:"type:uuid"`
	RecordedBy     *uuid.UUID         `gorm:"type:uuid"`
	AmountPaid     decimal.Decimal    `gorm:"type:decimal(15,2);not null"`
	AmountWajib    decimal.Decimal    `gorm:"type:decimal(15,2);not null"`
	AmountSukarela decimal.Decimal    `gorm:"type:decimal(15,2);not null"`
	Method         dues.PaymentMethod `gorm:"type:varchar(20);not null;index:idx_payments_due_method,priority:2"`
	Status         dues.PaymentStatus `gorm:"type:varchar(20);not null;index"`
	PaymentDate    time.Time          `gorm:"type:date;not null;index"`
	ProofKey       string             `gorm:"type:varchar(500)"`
	Notes          string             `gorm:"type:text"`
	VerifiedAt     *time.Time
	VerifiedBy     *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the model to a domain Payment
func (m *PaymentModel) ToDomain() *dues.Payment {
	return &dues.Payment{
		BaseEntity:     m.BaseModel.ToDomain(),
		DueID:          m.DueID,
		PayerID:        m.PayerID,
		RecordedBy:     m.RecordedBy,
		AmountPaid:     m.AmountPaid,
		AmountWajib:    m.AmountWajib,
		AmountSukarela: m.AmountSukarela,
		Method:         m.Method,
		Status:         m.Status,
		PaymentDate:    shared.Today(m.PaymentDate),
		ProofKey:       m.ProofKey,
		Notes:          m.Notes,
		VerifiedAt:     m.VerifiedAt,
		VerifiedBy:     m.VerifiedBy,
	}
}

// FromDomain populates the model from a domain Payment
func (m *PaymentModel) FromDomain(p *dues.Payment) {
	m.FromDomainBaseEntity(p.BaseEntity)
	m.DueID = p.DueID
	m.PayerID = p.PayerID
	m.RecordedBy = p.RecordedBy
	m.AmountPaid = p.AmountPaid
	m.AmountWajib = p.AmountWajib
	m.AmountSukarela = p.AmountSukarela
	m.Method = p.Method
	m.Status = p.Status
	m.PaymentDate = p.PaymentDate
	m.ProofKey = p.ProofKey
	m.Notes = p.Notes
	m.VerifiedAt = p.VerifiedAt
	m.VerifiedBy = p.VerifiedBy
}
