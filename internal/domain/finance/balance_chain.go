package finance

import (
	"context"

	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Income is verified money received in a period. Payments are attributed to
// the month of their payment date, not to the period of the due they settle.
type Income struct {
	Wajib    decimal.Decimal
	Sukarela decimal.Decimal
}

// Total returns wajib + sukarela
func (i Income) Total() decimal.Decimal {
	return i.Wajib.Add(i.Sukarela)
}

// Ledger is the read side the balance chain walks over
type Ledger interface {
	// LatestAnchorAtOrBefore returns nil when no anchor exists at or before p
	LatestAnchorAtOrBefore(ctx context.Context, p valueobject.Period) (*MonthlyBalance, error)
	AnchorsBetween(ctx context.Context, from, to valueobject.Period) (map[valueobject.Period]MonthlyBalance, error)
	// EarliestRecordPeriod returns the period of the earliest verified payment
	// or expense, nil when there is neither
	EarliestRecordPeriod(ctx context.Context) (*valueobject.Period, error)
	IncomeByPeriod(ctx context.Context, from, to valueobject.Period) (map[valueobject.Period]Income, error)
	ExpensesByPeriod(ctx context.Context, from, to valueobject.Period) (map[valueobject.Period]decimal.Decimal, error)
}

// PeriodBalance is the cash movement of one month
type PeriodBalance struct {
	Period   valueobject.Period
	Opening  decimal.Decimal
	Anchored bool
	Income   Income
	Expenses decimal.Decimal
	Closing  decimal.Decimal
}

// BalanceChainResolver derives opening and closing balances. A month's
// opening balance is its anchor when one exists, otherwise the previous
// month's closing balance. The chain starts at the nearest anchor at or
// before the requested month, or at the earliest financial record with a
// zero balance; months before either open at zero.
//
// The walk is a forward accumulation with one query per input kind, so its
// cost does not depend on call depth.
type BalanceChainResolver struct {
	ledger Ledger
}

// NewBalanceChainResolver creates a resolver over a ledger
func NewBalanceChainResolver(ledger Ledger) *BalanceChainResolver {
	return &BalanceChainResolver{ledger: ledger}
}

// ResolveOpeningBalance returns the opening balance of p
func (r *BalanceChainResolver) ResolveOpeningBalance(ctx context.Context, p valueobject.Period) (decimal.Decimal, error) {
	b, err := r.Resolve(ctx, p)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Opening, nil
}

// ResolveClosingBalance returns opening + income - expenses of p
func (r *BalanceChainResolver) ResolveClosingBalance(ctx context.Context, p valueobject.Period) (decimal.Decimal, error) {
	b, err := r.Resolve(ctx, p)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Closing, nil
}

// Resolve returns the full balance row of p
func (r *BalanceChainResolver) Resolve(ctx context.Context, p valueobject.Period) (*PeriodBalance, error) {
	rows, err := r.ResolveRange(ctx, p, p)
	if err != nil {
		return nil, err
	}
	return &rows[0], nil
}

// ResolveRange returns one balance row per month in [from, to]
func (r *BalanceChainResolver) ResolveRange(ctx context.Context, from, to valueobject.Period) ([]PeriodBalance, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, shared.NewDomainError("INVALID_PERIOD", "Invalid period range")
	}

	start, err := r.chainStart(ctx, from)
	if err != nil {
		return nil, err
	}

	anchors, err := r.ledger.AnchorsBetween(ctx, start, to)
	if err != nil {
		return nil, err
	}
	income, err := r.ledger.IncomeByPeriod(ctx, start, to)
	if err != nil {
		return nil, err
	}
	expenses, err := r.ledger.ExpensesByPeriod(ctx, start, to)
	if err != nil {
		return nil, err
	}

	rows := make([]PeriodBalance, 0, to.Index()-from.Index()+1)
	balance := decimal.Zero
	for m := start; !m.After(to); m = m.Next() {
		row := PeriodBalance{
			Period:   m,
			Opening:  balance,
			Income:   income[m],
			Expenses: expenses[m],
		}
		if anchor, ok := anchors[m]; ok {
			row.Opening = anchor.InitialBalance
			row.Anchored = true
		}
		row.Closing = row.Opening.Add(row.Income.Total()).Sub(row.Expenses)
		balance = row.Closing

		if !m.Before(from) {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// chainStart finds the month the forward walk begins at. It is from itself
// when nothing earlier contributes to the balance.
func (r *BalanceChainResolver) chainStart(ctx context.Context, from valueobject.Period) (valueobject.Period, error) {
	anchor, err := r.ledger.LatestAnchorAtOrBefore(ctx, from)
	if err != nil {
		return valueobject.Period{}, err
	}
	if anchor != nil {
		return anchor.Period, nil
	}

	earliest, err := r.ledger.EarliestRecordPeriod(ctx)
	if err != nil {
		return valueobject.Period{}, err
	}
	if earliest != nil && earliest.Before(from) {
		return *earliest, nil
	}
	return from, nil
}
