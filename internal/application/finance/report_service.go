package finance

import (
	"context"
	"time"

	"github.com/rt44/backend/internal/domain/finance"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/rt44/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReportService builds cash statements over the balance chain
type ReportService struct {
	resolver *finance.BalanceChainResolver
	expenses finance.ExpenseRepository
	anchors  finance.MonthlyBalanceRepository
	logger   *zap.Logger
}

// NewReportService creates a new ReportService
func NewReportService(
	ledger finance.Ledger,
	expenses finance.ExpenseRepository,
	anchors finance.MonthlyBalanceRepository,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		resolver: finance.NewBalanceChainResolver(ledger),
		expenses: expenses,
		anchors:  anchors,
		logger:   logger,
	}
}

// Monthly returns the statement of one month with its itemized expenses
func (s *ReportService) Monthly(ctx context.Context, period valueobject.Period) (*MonthlyReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "monthly", telemetry.SpanAttrPeriod, period.String())
	defer span.End()

	row, err := s.resolver.Resolve(ctx, period)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	list, err := s.expenses.FindAll(ctx, finance.ExpenseFilter{Period: &period})
	if err != nil {
		return nil, err
	}

	report := &MonthlyReport{
		Period:         period.String(),
		PeriodLabel:    period.Label(),
		OpeningBalance: row.Opening,
		Anchored:       row.Anchored,
		IncomeWajib:    row.Income.Wajib,
		IncomeSukarela: row.Income.Sukarela,
		TotalIncome:    row.Income.Total(),
		Expenses:       make([]ExpenseResponse, len(list)),
		TotalExpenses:  row.Expenses,
		ClosingBalance: row.Closing,
	}
	for i := range list {
		report.Expenses[i] = toExpenseResponse(&list[i])
	}
	return report, nil
}

// Yearly returns twelve monthly rows of year
func (s *ReportService) Yearly(ctx context.Context, year int) (*YearlyReport, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "report", "yearly", telemetry.SpanAttrPeriod, year)
	defer span.End()

	rows, err := s.resolver.ResolveRange(ctx,
		valueobject.Period{Year: year, Month: time.January},
		valueobject.Period{Year: year, Month: time.December},
	)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	report := &YearlyReport{
		Year:          year,
		Months:        make([]YearlyRow, len(rows)),
		TotalIncome:   decimal.Zero,
		TotalExpenses: decimal.Zero,
	}
	for i, r := range rows {
		report.Months[i] = YearlyRow{
			Period:         r.Period.String(),
			MonthName:      r.Period.MonthName(),
			OpeningBalance: r.Opening,
			Anchored:       r.Anchored,
			IncomeWajib:    r.Income.Wajib,
			IncomeSukarela: r.Income.Sukarela,
			TotalIncome:    r.Income.Total(),
			TotalExpenses:  r.Expenses,
			ClosingBalance: r.Closing,
		}
		report.TotalIncome = report.TotalIncome.Add(r.Income.Total())
		report.TotalExpenses = report.TotalExpenses.Add(r.Expenses)
	}
	report.OpeningBalance = rows[0].Opening
	report.ClosingBalance = rows[len(rows)-1].Closing
	return report, nil
}

// UpsertAnchor pins the opening balance of a period
func (s *ReportService) UpsertAnchor(ctx context.Context, period valueobject.Period, amount decimal.Decimal, notes string) (*AnchorResponse, error) {
	anchor, err := finance.NewMonthlyBalance(period, amount, notes)
	if err != nil {
		return nil, err
	}
	if err := s.anchors.Upsert(ctx, anchor); err != nil {
		return nil, err
	}
	s.logger.Info("Opening balance anchored",
		zap.String("period", period.String()),
		zap.String("initial_balance", amount.String()),
	)
	stored, err := s.anchors.FindByPeriod(ctx, period)
	if err != nil {
		return nil, err
	}
	return &AnchorResponse{
		Period:         stored.Period.String(),
		InitialBalance: stored.InitialBalance,
		Notes:          stored.Notes,
		UpdatedAt:      stored.UpdatedAt,
	}, nil
}

// DeleteAnchor removes the anchor of a period so its opening balance is
// chained again
func (s *ReportService) DeleteAnchor(ctx context.Context, period valueobject.Period) error {
	removed, err := s.anchors.DeleteByPeriod(ctx, period)
	if err != nil {
		return err
	}
	if !removed {
		return finance.ErrAnchorNotFound
	}
	s.logger.Info("Opening balance anchor removed", zap.String("period", period.String()))
	return nil
}
