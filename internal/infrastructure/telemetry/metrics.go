package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rt44/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when FinanceMetrics is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter is nil")

const metricExportInterval = 60 * time.Second

// MeterProvider wraps the SDK meter provider.
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
}

// NewMeterProvider creates the OTLP gRPC metric pipeline. When telemetry is
// disabled the global no-op meter is used.
func NewMeterProvider(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger}
	if !cfg.Enabled {
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	res, err := newResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricExportInterval))),
	)
	otel.SetMeterProvider(mp.provider)
	logger.Info("OpenTelemetry MeterProvider initialized", zap.String("collector_endpoint", cfg.CollectorEndpoint))
	return mp, nil
}

// Meter returns a named meter.
func (mp *MeterProvider) Meter(name string) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name)
	}
	return mp.provider.Meter(name)
}

// Shutdown flushes pending metrics.
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := mp.provider.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	return nil
}

// Attribute keys shared by the finance counters.
var (
	AttrPaymentMethod = attribute.Key("payment_method")
	AttrPaymentStatus = attribute.Key("payment_status")
	AttrTrigger       = attribute.Key("trigger")
	AttrOutcome       = attribute.Key("outcome")
)

// FinanceMetrics counts the dues engine's business events.
type FinanceMetrics struct {
	duesGenerated    metric.Int64Counter
	duesOverdue      metric.Int64Counter
	paymentsRecorded metric.Int64Counter
	paymentAmount    metric.Float64Counter
	paymentsReviewed metric.Int64Counter
	remindersSent    metric.Int64Counter
}

// NewFinanceMetrics registers the counters on meter.
func NewFinanceMetrics(meter metric.Meter) (*FinanceMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	fm := &FinanceMetrics{}
	var err error
	if fm.duesGenerated, err = meter.Int64Counter("rt44_dues_generated_total",
		metric.WithDescription("Monthly dues created"), metric.WithUnit("{dues}")); err != nil {
		return nil, err
	}
	if fm.duesOverdue, err = meter.Int64Counter("rt44_dues_overdue_total",
		metric.WithDescription("Dues moved to overdue by the sweep"), metric.WithUnit("{dues}")); err != nil {
		return nil, err
	}
	if fm.paymentsRecorded, err = meter.Int64Counter("rt44_payments_recorded_total",
		metric.WithDescription("Payment rows recorded"), metric.WithUnit("{payments}")); err != nil {
		return nil, err
	}
	if fm.paymentAmount, err = meter.Float64Counter("rt44_payment_amount_total",
		metric.WithDescription("Rupiah recorded as payments"), metric.WithUnit("{rupiah}")); err != nil {
		return nil, err
	}
	if fm.paymentsReviewed, err = meter.Int64Counter("rt44_payments_reviewed_total",
		metric.WithDescription("Transfer payments verified or rejected"), metric.WithUnit("{payments}")); err != nil {
		return nil, err
	}
	if fm.remindersSent, err = meter.Int64Counter("rt44_reminders_total",
		metric.WithDescription("WhatsApp reminders attempted"), metric.WithUnit("{messages}")); err != nil {
		return nil, err
	}
	return fm, nil
}

// DuesGenerated records dues created by a generation run.
func (m *FinanceMetrics) DuesGenerated(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.duesGenerated.Add(ctx, int64(n))
}

// DuesOverdue records dues flipped to overdue.
func (m *FinanceMetrics) DuesOverdue(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.duesOverdue.Add(ctx, int64(n))
}

// PaymentRecorded records one payment row.
func (m *FinanceMetrics) PaymentRecorded(ctx context.Context, method, status string, amount float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(AttrPaymentMethod.String(method), AttrPaymentStatus.String(status))
	m.paymentsRecorded.Add(ctx, 1, attrs)
	m.paymentAmount.Add(ctx, amount, attrs)
}

// PaymentReviewed records a verify or reject decision.
func (m *FinanceMetrics) PaymentReviewed(ctx context.Context, status string) {
	if m == nil {
		return
	}
	m.paymentsReviewed.Add(ctx, 1, metric.WithAttributes(AttrPaymentStatus.String(status)))
}

// ReminderAttempted records one reminder send with its trigger (manual or
// auto) and outcome (sent, failed, skipped).
func (m *FinanceMetrics) ReminderAttempted(ctx context.Context, trigger, outcome string) {
	if m == nil {
		return
	}
	m.remindersSent.Add(ctx, 1, metric.WithAttributes(AttrTrigger.String(trigger), AttrOutcome.String(outcome)))
}
