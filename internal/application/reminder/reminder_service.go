// Package reminder sends WhatsApp reminders about outstanding dues.
package reminder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rt44/backend/internal/domain/dues"
	"github.com/rt44/backend/internal/domain/reminder"
	"github.com/rt44/backend/internal/domain/shared"
	"github.com/rt44/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	triggerManual = "manual"
	triggerAuto   = "auto"

	outcomeSent    = "sent"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"

	// dedupeTTL outlives the day the key is scoped to
	dedupeTTL = 48 * time.Hour
)

// MessageSender delivers a text message to a phone number
type MessageSender interface {
	Send(ctx context.Context, target, message string) error
}

// Config holds reminder settings
type Config struct {
	Sender    reminder.Sender
	CutoffDay int
	// SendPause spaces consecutive automatic messages
	SendPause time.Duration
}

// ReminderService builds and sends dues reminders
type ReminderService struct {
	houses      dues.HouseRepository
	residents   dues.ResidentRepository
	dueRepo     dues.DueRepository
	payments    dues.PaymentRepository
	settings    reminder.SettingRepository
	sender      MessageSender
	idempotency shared.IdempotencyStore
	config      Config
	clock       shared.Clock
	metrics     *telemetry.FinanceMetrics
	logger      *zap.Logger
}

// NewReminderService creates a new ReminderService. metrics may be nil.
func NewReminderService(
	houses dues.HouseRepository,
	residents dues.ResidentRepository,
	dueRepo dues.DueRepository,
	payments dues.PaymentRepository,
	settings reminder.SettingRepository,
	sender MessageSender,
	idempotency shared.IdempotencyStore,
	config Config,
	clock shared.Clock,
	metrics *telemetry.FinanceMetrics,
	logger *zap.Logger,
) *ReminderService {
	return &ReminderService{
		houses:      houses,
		residents:   residents,
		dueRepo:     dueRepo,
		payments:    payments,
		settings:    settings,
		sender:      sender,
		idempotency: idempotency,
		config:      config,
		clock:       clock,
		metrics:     metrics,
		logger:      logger,
	}
}

// Preview renders the reminder of a house without sending it
func (s *ReminderService) Preview(ctx context.Context, houseID uuid.UUID, year int) (*ReminderResponse, error) {
	return s.prepare(ctx, houseID, year)
}

// SendForHouse sends the reminder of a house for year. Manual sends are not
// deduplicated.
func (s *ReminderService) SendForHouse(ctx context.Context, houseID uuid.UUID, year int) (*ReminderResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "reminder", "send_for_house",
		telemetry.SpanAttrHouseID, houseID.String(), telemetry.SpanAttrPeriod, year)
	defer span.End()

	resp, err := s.prepare(ctx, houseID, year)
	if err != nil {
		return nil, err
	}
	if err := s.sender.Send(ctx, resp.Phone, resp.Message); err != nil {
		telemetry.RecordError(span, err)
		s.metrics.ReminderAttempted(ctx, triggerManual, outcomeFailed)
		s.logger.Warn("Reminder send failed",
			zap.String("house", resp.HouseLabel),
			zap.Error(err),
		)
		return nil, NewSendFailedError(err)
	}

	s.metrics.ReminderAttempted(ctx, triggerManual, outcomeSent)
	s.logger.Info("Reminder sent",
		zap.String("house", resp.HouseLabel),
		zap.Int("year", year),
		zap.Int("months", len(resp.Lines)),
	)
	resp.Sent = true
	return resp, nil
}

// SendAuto reminds every billable house with a reachable owner about the
// current year. It does nothing unless the auto reminder setting is on.
// Failures are counted and the run continues.
func (s *ReminderService) SendAuto(ctx context.Context) (*AutoRunResult, error) {
	enabled, err := s.AutoReminderEnabled(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	today := shared.Today(now)
	result := &AutoRunResult{Enabled: enabled, Year: today.Year()}
	if !enabled {
		s.logger.Info("Auto reminder is disabled, skipping")
		return result, nil
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "reminder", "send_auto", telemetry.SpanAttrPeriod, today.Year())
	defer span.End()

	targets, err := s.loadTargets(ctx, today.Year(), today)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	result.Considered = len(targets)

	limiter := rate.NewLimiter(rate.Inf, 1)
	if s.config.SendPause > 0 {
		limiter = rate.NewLimiter(rate.Every(s.config.SendPause), 1)
	}

	for _, t := range targets {
		if t.summary == nil {
			result.Skipped++
			s.metrics.ReminderAttempted(ctx, triggerAuto, outcomeSkipped)
			continue
		}

		key := fmt.Sprintf("reminder:auto:%s:%s", t.house.ID, today.Format(time.DateOnly))
		fresh, err := s.idempotency.MarkProcessed(ctx, key, dedupeTTL)
		if err != nil {
			return result, fmt.Errorf("failed to check reminder dedupe key: %w", err)
		}
		if !fresh {
			result.Skipped++
			s.metrics.ReminderAttempted(ctx, triggerAuto, outcomeSkipped)
			continue
		}

		if err := limiter.Wait(ctx); err != nil {
			_ = s.idempotency.Release(context.WithoutCancel(ctx), key)
			return result, err
		}

		message := reminder.ComposeMessage(s.config.Sender, t.recipient(), t.summary, true)
		if err := s.sender.Send(ctx, t.owner.Phone, message); err != nil {
			result.Failed++
			s.metrics.ReminderAttempted(ctx, triggerAuto, outcomeFailed)
			s.logger.Warn("Auto reminder failed",
				zap.String("house", t.house.Label()),
				zap.Error(err),
			)
			if relErr := s.idempotency.Release(ctx, key); relErr != nil {
				s.logger.Warn("Failed to release reminder key", zap.String("key", key), zap.Error(relErr))
			}
			continue
		}
		result.Sent++
		s.metrics.ReminderAttempted(ctx, triggerAuto, outcomeSent)
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrCount, result.Sent)
	s.logger.Info("Auto reminder run finished",
		zap.Int("considered", result.Considered),
		zap.Int("sent", result.Sent),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

// AutoReminderEnabled reads the auto reminder setting. Unset means off.
func (s *ReminderService) AutoReminderEnabled(ctx context.Context) (bool, error) {
	value, found, err := s.settings.Get(ctx, reminder.SettingAutoReminder)
	if err != nil || !found {
		return false, err
	}
	enabled, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		s.logger.Warn("Unreadable auto reminder setting, treating as off", zap.String("value", value))
		return false, nil
	}
	return enabled, nil
}

// GetSettings returns the reminder settings
func (s *ReminderService) GetSettings(ctx context.Context) (*SettingsResponse, error) {
	enabled, err := s.AutoReminderEnabled(ctx)
	if err != nil {
		return nil, err
	}
	return &SettingsResponse{AutoReminder: enabled}, nil
}

// SetAutoReminder turns the daily automatic run on or off
func (s *ReminderService) SetAutoReminder(ctx context.Context, enabled bool) (*SettingsResponse, error) {
	if err := s.settings.Set(ctx, reminder.SettingAutoReminder, strconv.FormatBool(enabled)); err != nil {
		return nil, err
	}
	s.logger.Info("Auto reminder setting changed", zap.Bool("enabled", enabled))
	return &SettingsResponse{AutoReminder: enabled}, nil
}

type target struct {
	house   dues.House
	owner   dues.Resident
	summary *reminder.Summary
}

func (t target) recipient() reminder.Recipient {
	return reminder.Recipient{OwnerName: t.owner.Name, HouseLabel: t.house.Label()}
}

func (s *ReminderService) prepare(ctx context.Context, houseID uuid.UUID, year int) (*ReminderResponse, error) {
	house, err := s.houses.FindByID(ctx, houseID)
	if err != nil {
		return nil, err
	}
	if house.IsSubsidized {
		return nil, ErrHouseSubsidized
	}
	if house.OwnerID == nil {
		return nil, ErrNoRecipient
	}
	owner, err := s.residents.FindByID(ctx, *house.OwnerID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(owner.Phone) == "" {
		return nil, ErrNoRecipient
	}

	summaries, err := s.summaries(ctx, []uuid.UUID{house.ID}, year, shared.Today(s.clock.Now()))
	if err != nil {
		return nil, err
	}
	summary := summaries[house.ID]
	if summary == nil {
		return nil, ErrNothingOutstanding
	}

	t := target{house: *house, owner: *owner, summary: summary}
	resp := &ReminderResponse{
		HouseID:    house.ID,
		HouseLabel: house.Label(),
		OwnerName:  owner.Name,
		Phone:      owner.Phone,
		Year:       year,
		Lines:      make([]OutstandingLine, len(summary.Lines)),
		Total:      summary.Total,
		Message:    reminder.ComposeMessage(s.config.Sender, t.recipient(), summary, false),
	}
	for i, l := range summary.Lines {
		resp.Lines[i] = OutstandingLine{
			Period:    l.Period.String(),
			MonthName: l.Period.MonthName(),
			Remaining: l.Remaining,
			Partial:   l.Partial,
		}
	}
	return resp, nil
}

// loadTargets returns the billable houses whose owner has a phone, each with
// its outstanding summary (nil when nothing is owed)
func (s *ReminderService) loadTargets(ctx context.Context, year int, today time.Time) ([]target, error) {
	notSubsidized, hasOwner := false, true
	houses, err := s.houses.FindAll(ctx, dues.HouseFilter{Subsidized: &notSubsidized, HasOwner: &hasOwner})
	if err != nil {
		return nil, err
	}
	if len(houses) == 0 {
		return nil, nil
	}

	ownerIDs := make([]uuid.UUID, 0, len(houses))
	seen := make(map[uuid.UUID]bool)
	for _, h := range houses {
		if h.OwnerID != nil && !seen[*h.OwnerID] {
			seen[*h.OwnerID] = true
			ownerIDs = append(ownerIDs, *h.OwnerID)
		}
	}
	owners, err := s.residents.FindByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]dues.Resident, len(owners))
	for _, o := range owners {
		byID[o.ID] = o
	}

	targets := make([]target, 0, len(houses))
	houseIDs := make([]uuid.UUID, 0, len(houses))
	for _, h := range houses {
		owner, ok := byID[*h.OwnerID]
		if !ok || strings.TrimSpace(owner.Phone) == "" {
			continue
		}
		targets = append(targets, target{house: h, owner: owner})
		houseIDs = append(houseIDs, h.ID)
	}
	if len(targets) == 0 {
		return nil, nil
	}

	summaries, err := s.summaries(ctx, houseIDs, year, today)
	if err != nil {
		return nil, err
	}
	for i := range targets {
		targets[i].summary = summaries[targets[i].house.ID]
	}
	return targets, nil
}

func (s *ReminderService) summaries(ctx context.Context, houseIDs []uuid.UUID, year int, today time.Time) (map[uuid.UUID]*reminder.Summary, error) {
	outstanding, err := s.dueRepo.FindAll(ctx, dues.DueFilter{
		HouseIDs: houseIDs,
		Year:     year,
		Statuses: []dues.DueStatus{dues.DueStatusUnpaid, dues.DueStatusOverdue},
	})
	if err != nil {
		return nil, err
	}

	dueIDs := make([]uuid.UUID, len(outstanding))
	for i := range outstanding {
		dueIDs[i] = outstanding[i].ID
	}
	paid, err := s.payments.FindByDues(ctx, dueIDs)
	if err != nil {
		return nil, err
	}

	balances := make(map[uuid.UUID][]reminder.DueBalance, len(houseIDs))
	for _, d := range outstanding {
		balances[d.HouseID] = append(balances[d.HouseID], reminder.DueBalance{
			Due:           d,
			VerifiedWajib: dues.VerifiedWajib(paid[d.ID]),
		})
	}

	out := make(map[uuid.UUID]*reminder.Summary, len(houseIDs))
	for _, id := range houseIDs {
		out[id] = reminder.BuildOutstandingSummary(id, balances[id], year, today, s.config.CutoffDay)
	}
	return out, nil
}
