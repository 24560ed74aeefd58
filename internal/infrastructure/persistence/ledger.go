package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/finance"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/rt44/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLedger implements finance.Ledger over the payments, expenses and
// monthly_balances tables. Monthly sums are folded in Go so the same code
// runs on postgres and sqlite.
type GormLedger struct {
	db *gorm.DB
}

// NewGormLedger creates a new GormLedger
func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

var _ finance.Ledger = (*GormLedger)(nil)

// LatestAnchorAtOrBefore returns the newest anchor not after p, nil when none
func (l *GormLedger) LatestAnchorAtOrBefore(ctx context.Context, p valueobject.Period) (*finance.MonthlyBalance, error) {
	var model models.MonthlyBalanceModel
	err := l.db.WithContext(ctx).
		Where("period <= ?", p.Start()).
		Order("period DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// AnchorsBetween returns the anchors in [from, to] keyed by period
func (l *GormLedger) AnchorsBetween(ctx context.Context, from, to valueobject.Period) (map[valueobject.Period]finance.MonthlyBalance, error) {
	var anchorModels []models.MonthlyBalanceModel
	if err := l.db.WithContext(ctx).
		Where("period >= ? AND period <= ?", from.Start(), to.Start()).
		Find(&anchorModels).Error; err != nil {
		return nil, err
	}
	out := make(map[valueobject.Period]finance.MonthlyBalance, len(anchorModels))
	for i := range anchorModels {
		b := anchorModels[i].ToDomain()
		out[b.Period] = *b
	}
	return out, nil
}

// EarliestRecordPeriod returns the month of the earliest verified payment or
// expense, nil when there is neither
func (l *GormLedger) EarliestRecordPeriod(ctx context.Context) (*valueobject.Period, error) {
	var earliest *time.Time

	var payment models.PaymentModel
	err := l.db.WithContext(ctx).Select("payment_date").
		Where("status = ?", dues.PaymentStatusVerified).
		Order("payment_date ASC").Take(&payment).Error
	switch {
	case err == nil:
		earliest = &payment.PaymentDate
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var expense models.ExpenseModel
	err = l.db.WithContext(ctx).Select("date").Order("date ASC").Take(&expense).Error
	switch {
	case err == nil:
		if earliest == nil || expense.Date.Before(*earliest) {
			earliest = &expense.Date
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	if earliest == nil {
		return nil, nil
	}
	p := valueobject.PeriodOf(*earliest)
	return &p, nil
}

type incomeRow struct {
	PaymentDate    time.Time
	AmountWajib    decimal.Decimal
	AmountSukarela decimal.Decimal
}

// IncomeByPeriod sums verified payments by the month of their payment date
func (l *GormLedger) IncomeByPeriod(ctx context.Context, from, to valueobject.Period) (map[valueobject.Period]finance.Income, error) {
	var rows []incomeRow
	if err := l.db.WithContext(ctx).Model(&models.PaymentModel{}).
		Select("payment_date, amount_wajib, amount_sukarela").
		Where("status = ? AND payment_date >= ? AND payment_date < ?", dues.PaymentStatusVerified, from.Start(), to.End()).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[valueobject.Period]finance.Income)
	for _, row := range rows {
		p := valueobject.PeriodOf(row.PaymentDate)
		in := out[p]
		in.Wajib = in.Wajib.Add(row.AmountWajib)
		in.Sukarela = in.Sukarela.Add(row.AmountSukarela)
		out[p] = in
	}
	return out, nil
}

type expenseRow struct {
	Date   time.Time
	Amount decimal.Decimal
}

// ExpensesByPeriod sums expenses by month
func (l *GormLedger) ExpensesByPeriod(ctx context.Context, from, to valueobject.Period) (map[valueobject.Period]decimal.Decimal, error) {
	var rows []expenseRow
	if err := l.db.WithContext(ctx).Model(&models.ExpenseModel{}).
		Select("date, amount").
		Where("date >= ? AND date < ?", from.Start(), to.End()).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make(map[valueobject.Period]decimal.Decimal)
	for _, row := range rows {
		p := valueobject.PeriodOf(row.Date)
		out[p] = out[p].Add(row.Amount)
	}
	return out, nil
}
