// Package house manages the house register: CRUD, owner groups and the
// spreadsheet import.
package house

import (
	"context"
	"errors"

	"github.com/google/uuid"
	appdues "github.com/rt44/backend/internal/application/dues"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/domain/shared/valueobject"
	"github.com/rt44/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// HouseService manages houses and keeps the current month's dues in step
// with house changes
type HouseService struct {
	houses    dues.HouseRepository
	residents dues.ResidentRepository
	txScope   appdues.TransactionScope
	config    appdues.Config
	clock     shared.Clock
	logger    *zap.Logger
}

// NewHouseService creates a new HouseService
func NewHouseService(
	houses dues.HouseRepository,
	residents dues.ResidentRepository,
	txScope appdues.TransactionScope,
	config appdues.Config,
	clock shared.Clock,
	logger *zap.Logger,
) *HouseService {
	if config.DueDay <= 0 {
		config.DueDay = dues.DefaultDueDay
	}
	return &HouseService{
		houses:    houses,
		residents: residents,
		txScope:   txScope,
		config:    config,
		clock:     clock,
		logger:    logger,
	}
}

// Create registers a house. Other houses of the owner's connected group get
// their current-month amount recomputed.
func (s *HouseService) Create(ctx context.Context, req CreateHouseRequest) (*UpdateResult, error) {
	occupancy := req.Occupancy
	if occupancy == "" {
		occupancy = dues.OccupancyOccupied
	}
	h, err := dues.NewHouse(req.Block, req.Number, occupancy)
	if err != nil {
		return nil, err
	}
	if req.ResidentStatus != "" {
		if err := h.SetOccupancy(occupancy, req.ResidentStatus); err != nil {
			return nil, err
		}
	}
	meters := 1
	if req.MeterCount != nil {
		meters = *req.MeterCount
	}
	if err := h.SetConnection(req.IsConnected, meters); err != nil {
		return nil, err
	}
	h.SetSubsidized(req.IsSubsidized)
	h.AssignOwner(req.OwnerID)

	result := &UpdateResult{}
	err = s.txScope.Execute(ctx, func(repos appdues.TransactionalRepositories) error {
		if err := s.checkOwner(ctx, repos, h.OwnerID); err != nil {
			return err
		}
		if err := repos.Houses().Save(ctx, h); err != nil {
			return err
		}
		n, err := s.recompute(ctx, repos, nil, h)
		result.DuesRecomputed = n
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("House created", zap.String("house_id", h.ID.String()), zap.String("label", h.Label()))
	resp, err := s.describe(ctx, h)
	if err != nil {
		return nil, err
	}
	result.House = *resp
	return result, nil
}

// Update changes a house. Becoming subsidized deletes its outstanding dues;
// any change recomputes the current-month amount of the house and of the
// connected group it belongs to before and after the change.
func (s *HouseService) Update(ctx context.Context, id uuid.UUID, req UpdateHouseRequest) (*UpdateResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "house", "update", telemetry.SpanAttrHouseID, id.String())
	defer span.End()

	result := &UpdateResult{}
	var saved *dues.House
	err := s.txScope.Execute(ctx, func(repos appdues.TransactionalRepositories) error {
		h, err := repos.Houses().FindByID(ctx, id)
		if err != nil {
			return err
		}
		before := *h

		becameSubsidized, err := applyUpdate(h, req)
		if err != nil {
			return err
		}
		if err := s.checkOwner(ctx, repos, h.OwnerID); err != nil {
			return err
		}
		if err := repos.Houses().Save(ctx, h); err != nil {
			return err
		}
		if becameSubsidized {
			if result.DuesRemoved, err = repos.Dues().DeleteOutstandingByHouse(ctx, h.ID); err != nil {
				return err
			}
		}
		if result.DuesRecomputed, err = s.recompute(ctx, repos, &before, h); err != nil {
			return err
		}
		saved = h
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("House updated",
		zap.String("house_id", id.String()),
		zap.Int("dues_recomputed", result.DuesRecomputed),
		zap.Int64("dues_removed", result.DuesRemoved),
	)
	resp, err := s.describe(ctx, saved)
	if err != nil {
		return nil, err
	}
	result.House = *resp
	return result, nil
}

func applyUpdate(h *dues.House, req UpdateHouseRequest) (bool, error) {
	if req.Block != nil || req.Number != nil {
		block, number := h.Block, h.Number
		if req.Block != nil {
			block = *req.Block
		}
		if req.Number != nil {
			number = *req.Number
		}
		if err := h.SetAddress(block, number); err != nil {
			return false, err
		}
	}
	if req.Occupancy != nil || req.ResidentStatus != nil {
		occupancy, status := h.Occupancy, h.ResidentStatus
		if req.Occupancy != nil {
			occupancy = *req.Occupancy
		}
		if req.ResidentStatus != nil {
			status = *req.ResidentStatus
		}
		if err := h.SetOccupancy(occupancy, status); err != nil {
			return false, err
		}
	}
	if req.IsConnected != nil || req.MeterCount != nil {
		connected, meters := h.IsConnected, h.MeterCount
		if req.IsConnected != nil {
			connected = *req.IsConnected
		}
		if req.MeterCount != nil {
			meters = *req.MeterCount
		}
		if err := h.SetConnection(connected, meters); err != nil {
			return false, err
		}
	}
	switch {
	case req.ClearOwner:
		h.AssignOwner(nil)
	case req.OwnerID != nil:
		owner := *req.OwnerID
		h.AssignOwner(&owner)
	}
	became := false
	if req.IsSubsidized != nil {
		became = h.SetSubsidized(*req.IsSubsidized)
	}
	return became, nil
}

// Get returns one house
func (s *HouseService) Get(ctx context.Context, id uuid.UUID) (*HouseResponse, error) {
	h, err := s.houses.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.describe(ctx, h)
}

// List returns a page of houses, ordered by block and number by default
func (s *HouseService) List(ctx context.Context, filter ListFilter) (*shared.Paginated[HouseResponse], error) {
	query := dues.HouseFilter{
		Filter: shared.Filter{
			Page:     filter.Page,
			PageSize: filter.PageSize,
			Search:   filter.Search,
			OrderBy:  filter.OrderBy,
			OrderDir: filter.OrderDir,
		},
		Occupancy:  filter.Occupancy,
		Subsidized: filter.Subsidized,
	}
	list, err := s.houses.FindAll(ctx, query)
	if err != nil {
		return nil, err
	}
	total, err := s.houses.Count(ctx, query)
	if err != nil {
		return nil, err
	}

	ownerIDs := make([]uuid.UUID, 0, len(list))
	for i := range list {
		if list[i].OwnerID != nil {
			ownerIDs = append(ownerIDs, *list[i].OwnerID)
		}
	}
	owners := map[uuid.UUID]*dues.Resident{}
	if len(ownerIDs) > 0 {
		found, err := s.residents.FindByIDs(ctx, ownerIDs)
		if err != nil {
			return nil, err
		}
		for i := range found {
			owners[found[i].ID] = &found[i]
		}
	}
	calc, err := s.calculator(ctx, s.houses)
	if err != nil {
		return nil, err
	}

	items := make([]HouseResponse, len(list))
	for i := range list {
		var owner *dues.Resident
		if list[i].OwnerID != nil {
			owner = owners[*list[i].OwnerID]
		}
		items[i] = toHouseResponse(&list[i], owner, calc.Calculate(&list[i]))
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Delete removes a house with its dues and payments. The rest of its
// connected group is recomputed.
func (s *HouseService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.txScope.Execute(ctx, func(repos appdues.TransactionalRepositories) error {
		h, err := repos.Houses().FindByID(ctx, id)
		if err != nil {
			return err
		}
		connected, err := repos.Houses().FindConnected(ctx)
		if err != nil {
			return err
		}
		group := dues.NewOwnerGroupIndex(connected).ConnectedGroup(h)

		if err := repos.Houses().Delete(ctx, id); err != nil {
			return err
		}
		ids := make([]uuid.UUID, 0, len(group))
		for _, g := range group {
			if g.ID != id {
				ids = append(ids, g.ID)
			}
		}
		_, err = s.recomputeHouses(ctx, repos, ids)
		return err
	})
	if err != nil {
		return err
	}
	s.logger.Info("House deleted", zap.String("house_id", id.String()))
	return nil
}

func (s *HouseService) checkOwner(ctx context.Context, repos appdues.TransactionalRepositories, ownerID *uuid.UUID) error {
	if ownerID == nil {
		return nil
	}
	_, err := repos.Residents().FindByID(ctx, *ownerID)
	if errors.Is(err, dues.ErrResidentNotFound) {
		return ErrOwnerNotFound
	}
	return err
}

func (s *HouseService) calculator(ctx context.Context, houses dues.HouseRepository) (*dues.Calculator, error) {
	connected, err := houses.FindConnected(ctx)
	if err != nil {
		return nil, err
	}
	return dues.NewCalculator(s.config.Tariff, dues.NewOwnerGroupIndex(connected)), nil
}

// recompute refreshes the current-month amount of h and of everything in its
// connected group, before (when given) and after the change
func (s *HouseService) recompute(ctx context.Context, repos appdues.TransactionalRepositories, before, after *dues.House) (int, error) {
	connected, err := repos.Houses().FindConnected(ctx)
	if err != nil {
		return 0, err
	}
	index := dues.NewOwnerGroupIndex(connected)

	seen := map[uuid.UUID]bool{after.ID: true}
	ids := []uuid.UUID{after.ID}
	add := func(group []dues.House) {
		for _, g := range group {
			if !seen[g.ID] {
				seen[g.ID] = true
				ids = append(ids, g.ID)
			}
		}
	}
	add(index.ConnectedGroup(after))
	if before != nil {
		// the old owner's remaining group may have lost its shared meter
		add(index.ConnectedGroup(before))
	}
	return s.recomputeHouses(ctx, repos, ids)
}

// recomputeHouses sets each house's current-month due to the calculated
// amount and re-derives its status. Houses without such a due are skipped.
func (s *HouseService) recomputeHouses(ctx context.Context, repos appdues.TransactionalRepositories, ids []uuid.UUID) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	calc, err := s.calculator(ctx, repos.Houses())
	if err != nil {
		return 0, err
	}
	period := valueobject.PeriodOf(s.clock.Now())

	changed := 0
	for _, id := range ids {
		h, err := repos.Houses().FindByID(ctx, id)
		if errors.Is(err, dues.ErrHouseNotFound) {
			continue
		}
		if err != nil {
			return changed, err
		}
		if !h.IsBillable() {
			continue
		}
		due, err := repos.Dues().FindByHousePeriod(ctx, id, period)
		if errors.Is(err, dues.ErrDueNotFound) {
			continue
		}
		if err != nil {
			return changed, err
		}
		amount := calc.Calculate(h)
		if due.Amount.Equal(amount) {
			continue
		}
		if err := due.UpdateAmount(amount); err != nil {
			return changed, err
		}
		payments, err := repos.Payments().FindByDue(ctx, due.ID)
		if err != nil {
			return changed, err
		}
		due.ApplyStatus(dues.SettleStatus(due, payments))
		if err := repos.Dues().Save(ctx, due); err != nil {
			return changed, err
		}
		changed++
	}
	return changed, nil
}

func (s *HouseService) describe(ctx context.Context, h *dues.House) (*HouseResponse, error) {
	var owner *dues.Resident
	if h.OwnerID != nil {
		found, err := s.residents.FindByID(ctx, *h.OwnerID)
		if err != nil && !shared.IsNotFound(err) {
			return nil, err
		}
		owner = found
	}
	calc, err := s.calculator(ctx, s.houses)
	if err != nil {
		return nil, err
	}
	amount := decimal.Zero
	if h.IsBillable() {
		amount = calc.Calculate(h)
	}
	resp := toHouseResponse(h, owner, amount)
	return &resp, nil
}
