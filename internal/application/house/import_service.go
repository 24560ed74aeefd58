package house

import (
	"context"
	"errors"
	"io"
	"strings"

	appdues "github.com/rt44/backend/internal/application/dues"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	csvimport "github.com/rt44/backend/internal/infrastructure/import"
	"github.com/rt44/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// placeholderEmailDomain completes the address of owners imported without one
const placeholderEmailDomain = "rt44.com"

// ImportService loads houses and owners from a CSV sheet
type ImportService struct {
	txScope appdues.TransactionScope
	config  appdues.Config
	clock   shared.Clock
	logger  *zap.Logger
}

// NewImportService creates a new ImportService
func NewImportService(txScope appdues.TransactionScope, config appdues.Config, clock shared.Clock, logger *zap.Logger) *ImportService {
	if config.DueDay <= 0 {
		config.DueDay = dues.DefaultDueDay
	}
	return &ImportService{txScope: txScope, config: config, clock: clock, logger: logger}
}

// Template writes the import header with an example row
func (s *ImportService) Template(w io.Writer) error {
	return csvimport.WriteHouseTemplate(w)
}

// Import upserts every row of the sheet in one transaction: the owner by
// email (or name and phone), then the house by block and number, then the
// current month's due. Any invalid row rejects the whole file with an
// ImportError.
func (s *ImportService) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "house", "import")
	defer span.End()

	rows, rowErrs, err := csvimport.ReadHouseRows(req.File)
	if err != nil {
		return nil, shared.WrapDomainError("INVALID_FILE", err.Error(), err)
	}
	if rowErrs.HasErrors() {
		return nil, rejection(rowErrs)
	}

	result := &ImportResult{Rows: len(rows)}
	period := valueobject.PeriodOf(s.clock.Now())
	err = s.txScope.Execute(ctx, func(repos appdues.TransactionalRepositories) error {
		failed := csvimport.NewErrorCollection(100)
		imported := make([]*dues.House, 0, len(rows))
		for _, row := range rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			h, err := s.importRow(ctx, repos, row, result)
			var de *shared.DomainError
			if errors.As(err, &de) {
				failed.Add(csvimport.NewRowError(row.Line, "", de.Code, de.Message))
				continue
			}
			if err != nil {
				return err
			}
			imported = append(imported, h)
		}
		if failed.HasErrors() {
			return rejection(failed)
		}

		connected, err := repos.Houses().FindConnected(ctx)
		if err != nil {
			return err
		}
		calc := dues.NewCalculator(s.config.Tariff, dues.NewOwnerGroupIndex(connected))
		for _, h := range imported {
			if !h.IsBillable() {
				continue
			}
			exists, err := repos.Dues().ExistsForPeriod(ctx, h.ID, period)
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			due, err := dues.NewDue(h.ID, period, calc.Calculate(h), s.config.DueDay)
			if err != nil {
				return err
			}
			if err := repos.Dues().Save(ctx, due); err != nil {
				return err
			}
			result.DuesCreated++
		}
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("Houses imported",
		zap.Int("rows", result.Rows),
		zap.Int("houses_created", result.HousesCreated),
		zap.Int("houses_updated", result.HousesUpdated),
		zap.Int("dues_created", result.DuesCreated),
	)
	return result, nil
}

func (s *ImportService) importRow(ctx context.Context, repos appdues.TransactionalRepositories, row csvimport.HouseRow, result *ImportResult) (*dues.House, error) {
	owner, err := s.upsertOwner(ctx, repos, row, result)
	if err != nil {
		return nil, err
	}

	h, err := repos.Houses().FindByBlockNumber(ctx, row.Block, row.Number)
	switch {
	case errors.Is(err, dues.ErrHouseNotFound):
		if h, err = dues.NewHouse(row.Block, row.Number, row.Occupancy); err != nil {
			return nil, err
		}
		result.HousesCreated++
	case err != nil:
		return nil, err
	default:
		result.HousesUpdated++
	}

	if err := h.SetOccupancy(row.Occupancy, row.ResidentStatus); err != nil {
		return nil, err
	}
	if owner != nil {
		h.AssignOwner(&owner.ID)
	}
	if err := repos.Houses().Save(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

// upsertOwner returns nil when the row names no owner
func (s *ImportService) upsertOwner(ctx context.Context, repos appdues.TransactionalRepositories, row csvimport.HouseRow, result *ImportResult) (*dues.Resident, error) {
	if row.OwnerName == "" {
		return nil, nil
	}
	email := row.Email
	if email == "" {
		email = strings.ToLower(row.Block+row.Number) + "@" + placeholderEmailDomain
	}

	owner, err := repos.Residents().FindByEmail(ctx, email)
	if errors.Is(err, dues.ErrResidentNotFound) && row.Phone != "" {
		owner, err = repos.Residents().FindByNamePhone(ctx, row.OwnerName, row.Phone)
	}
	switch {
	case errors.Is(err, dues.ErrResidentNotFound):
		if owner, err = dues.NewResident(row.OwnerName, email, row.Phone); err != nil {
			return nil, err
		}
		result.ResidentsCreated++
	case err != nil:
		return nil, err
	default:
		phone := row.Phone
		if phone == "" {
			phone = owner.Phone
		}
		if err := owner.UpdateContact(row.OwnerName, email, phone); err != nil {
			return nil, err
		}
		result.ResidentsUpdated++
	}

	if err := repos.Residents().Save(ctx, owner); err != nil {
		return nil, err
	}
	return owner, nil
}

func rejection(errs *csvimport.ErrorCollection) *ImportError {
	return &ImportError{
		Rows:      errs.Errors(),
		Total:     errs.Total(),
		Truncated: errs.Truncated(),
	}
}
