package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Drop reasons reported in CreateResult and on intake metrics.
const (
	DropSuppressed = "suppressed"
	DropDuplicate  = "duplicate"
)

// CreateResult is the outcome of an alert submission.
type CreateResult struct {
	ID      string
	Dropped bool
	Reason  string
}

// Manager is the composition root for alert intake: it orchestrates the
// deduplicator, storm detector, and repository for creation, and implements
// acknowledgment and filtered listing.
type Manager struct {
	store   Store
	dedup   *Deduplicator
	storm   *StormDetector
	logger  log.Logger
	metrics *Metrics
}

// NewManager creates a Manager.
func NewManager(store Store, dedup *Deduplicator, storm *StormDetector, logger log.Logger, metrics *Metrics) *Manager {
	if logger == nil {
		logger = log.Nop()
	}
	if metrics == nil {
		metrics = NewMetrics(prometheus.NewRegistry())
	}
	return &Manager{
		store:   store,
		dedup:   dedup,
		storm:   storm,
		logger:  logger,
		metrics: metrics,
	}
}

// CreateAlert runs the intake pipeline: suppression check, dedup check,
// persist, storm check. The suppression check runs before the dedup check so
// a storming device never consumes dedup markers (the reverse order would
// shorten the effective dedup window once suppression lifts).
//
// Device-less alerts skip suppression and storm logic entirely but still pass
// through deduplication. A dropped alert is not an error: the result carries
// the drop reason and a nil error. Repository failures propagate.
func (m *Manager) CreateAlert(ctx context.Context, in *CreateInput) (*CreateResult, error) {
	if in.TenantID == "" {
		return nil, ErrTenantRequired
	}

	L := m.logger.With(
		"tenant_id", in.TenantID,
		"device_id", in.DeviceID,
		"alert_type", in.Type,
		"severity", in.Severity,
	)

	if in.DeviceID != "" && m.storm.Suppressed(ctx, in.TenantID, in.DeviceID) {
		L.Debug(ctx, "alert dropped, device suppressed")
		m.metrics.IntakeTotal.WithLabelValues(DropSuppressed).Inc()
		return &CreateResult{Dropped: true, Reason: DropSuppressed}, nil
	}

	if m.dedup.IsDuplicate(ctx, in) {
		m.metrics.IntakeTotal.WithLabelValues(DropDuplicate).Inc()
		return &CreateResult{Dropped: true, Reason: DropDuplicate}, nil
	}

	a := &Alert{
		ID:        ulid.Make().String(),
		TenantID:  in.TenantID,
		DeviceID:  in.DeviceID,
		Type:      in.Type,
		Severity:  in.Severity,
		Message:   in.Message,
		Source:    in.Source,
		Metadata:  in.Metadata,
		CreatedAt: time.Now().UTC(),
	}

	if err := m.store.Insert(ctx, a); err != nil {
		L.Error(ctx, err, "failed to persist alert")
		m.metrics.IntakeTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("insert alert: %w", err)
	}

	m.metrics.IntakeTotal.WithLabelValues("created").Inc()
	L.Info(ctx, "alert created", "alert_id", a.ID, "source", a.Source)

	if in.DeviceID != "" {
		source := in.Source
		if source == "" {
			source = "api"
		}
		m.storm.Check(ctx, in.TenantID, in.DeviceID, source)
	}

	return &CreateResult{ID: a.ID}, nil
}

// DeduplicateAlert exposes the deduplicator directly. The check has the same
// marker-writing side effect as the intake pipeline: a not-duplicate result
// starts a fresh dedup window.
func (m *Manager) DeduplicateAlert(ctx context.Context, in *CreateInput) bool {
	return m.dedup.IsDuplicate(ctx, in)
}

// CheckAlertStorm exposes the storm detector directly. It increments the
// device's counter and returns true only when this call newly detects a
// storm.
func (m *Manager) CheckAlertStorm(ctx context.Context, tenantID, deviceID string) bool {
	return m.storm.Check(ctx, tenantID, deviceID, "api")
}

// AcknowledgeAlert atomically sets the acknowledgment triple on the alert.
// There is no already-acknowledged guard: a later call overwrites the triple.
// Returns an error wrapping ErrNotFound when no alert with that id exists.
func (m *Manager) AcknowledgeAlert(ctx context.Context, alertID, userID string) error {
	found, err := m.store.Acknowledge(ctx, alertID, userID, time.Now().UTC())
	if err != nil {
		m.logger.Error(ctx, err, "failed to acknowledge alert", "alert_id", alertID, "user_id", userID)
		return fmt.Errorf("acknowledge alert %s: %w", alertID, err)
	}
	if !found {
		return fmt.Errorf("alert %s: %w", alertID, ErrNotFound)
	}

	m.metrics.AcksTotal.Inc()
	m.logger.Info(ctx, "alert acknowledged", "alert_id", alertID, "user_id", userID)
	return nil
}

// GetAlerts returns alerts matching the filter, newest first. The tenant
// scope is mandatory; there is no code path returning cross-tenant data.
func (m *Manager) GetAlerts(ctx context.Context, f ListFilter) ([]*Alert, error) {
	if f.TenantID == "" {
		return nil, ErrTenantRequired
	}

	start := time.Now()
	alerts, err := m.store.List(ctx, f)
	if err != nil {
		m.logger.Error(ctx, err, "failed to list alerts", "tenant_id", f.TenantID)
		return nil, fmt.Errorf("list alerts: %w", err)
	}

	m.metrics.ListDuration.Observe(time.Since(start).Seconds())
	return alerts, nil
}
