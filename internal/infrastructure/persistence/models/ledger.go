package models

import (
	"time"

	"github.com/rt44/backend/internal/domain/finance"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// ExpenseModel is the persistence model for Expense
type ExpenseModel struct {
	BaseModel
	Title    string          `gorm:"type:varchar(255);not null"`
	Amount   decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Category string          `gorm:"type:varchar(100);index"`
	Date     time.Time       `gorm:"type:date;not null;index"`
	Notes    string          `gorm:"type:text"`
	ProofKey string          `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (ExpenseModel) TableName() string {
	return "expenses"
}

// ToDomain converts the model to a domain Expense
func (m *ExpenseModel) ToDomain() *finance.Expense {
	return &finance.Expense{
		BaseEntity: m.BaseModel.ToDomain(),
		Title:      m.Title,
		Amount:     m.Amount,
		Category:   m.Category,
		Date:       shared.Today(m.Date),
		Notes:      m.Notes,
		ProofKey:   m.ProofKey,
	}
}

// FromDomain populates the model from a domain Expense
func (m *ExpenseModel) FromDomain(e *finance.Expense) {
	m.FromDomainBaseEntity(e.BaseEntity)
	m.Title = e.Title
	m.Amount = e.Amount
	m.Category = e.Category
	m.Date = e.Date
	m.Notes = e.Notes
	m.ProofKey = e.ProofKey
}

// MonthlyBalanceModel stores balance anchors, one per period
type MonthlyBalanceModel struct {
	BaseModel
	Period         time.Time       `gorm:"type:date;not null;uniqueIndex"`
	InitialBalance decimal.Decimal `gorm:"type:decimal(15,2);not null"`
	Notes          string          `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (MonthlyBalanceModel) TableName() string {
	return "monthly_balances"
}

// ToDomain converts the model to a domain MonthlyBalance
func (m *MonthlyBalanceModel) ToDomain() *finance.MonthlyBalance {
	return &finance.MonthlyBalance{
		BaseEntity:     m.BaseModel.ToDomain(),
		Period:         valueobject.PeriodOf(m.Period),
		InitialBalance: m.InitialBalance,
		Notes:          m.Notes,
	}
}

// FromDomain populates the model from a domain MonthlyBalance
func (m *MonthlyBalanceModel) FromDomain(b *finance.MonthlyBalance) {
	m.FromDomainBaseEntity(b.BaseEntity)
	m.Period = b.Period.Start()
	m.InitialBalance = b.InitialBalance
	m.Notes = b.Notes
}

// SettingModel is a key/value application setting
type SettingModel struct {
	Key       string    `gorm:"type:varchar(100);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SettingModel) TableName() string {
	return "settings"
}
