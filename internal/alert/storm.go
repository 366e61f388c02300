package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/stormgate/internal/coordstore"
)

const (
	// DefaultStormThreshold is the per-device alert count above which a
	// storm is declared (the threshold+1'th alert in the window triggers).
	DefaultStormThreshold = 10

	// DefaultStormWindow is the tumbling counting window per device.
	DefaultStormWindow = 5 * time.Minute

	// DefaultSuppression is how long a storming device stays suppressed.
	DefaultSuppression = 15 * time.Minute
)

func stormCountKey(tenantID, deviceID string) string {
	return fmt.Sprintf("alert:storm:count:%s:%s", tenantID, deviceID)
}

func suppressionKey(tenantID, deviceID string) string {
	return fmt.Sprintf("alert:storm:suppress:%s:%s", tenantID, deviceID)
}

// StormDetector counts accepted alerts per device inside a tumbling window
// and flips a per-device suppression marker when the threshold is exceeded,
// synthesizing a meta-alert exactly once per storm episode.
type StormDetector struct {
	coord       coordstore.Client
	store       Store
	threshold   int64
	window      time.Duration
	suppression time.Duration
	logger      log.Logger
	metrics     *Metrics
	notifier    Notifier
}

// StormConfig tunes the detector. Zero values fall back to the defaults.
type StormConfig struct {
	Threshold   int64
	Window      time.Duration
	Suppression time.Duration
}

// NewStormDetector creates a StormDetector. A nil coord client disables storm
// detection entirely; the notifier is optional.
func NewStormDetector(coord coordstore.Client, store Store, cfg StormConfig, logger log.Logger, metrics *Metrics, notifier Notifier) *StormDetector {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultStormThreshold
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultStormWindow
	}
	if cfg.Suppression <= 0 {
		cfg.Suppression = DefaultSuppression
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &StormDetector{
		coord:       coord,
		store:       store,
		threshold:   cfg.Threshold,
		window:      cfg.Window,
		suppression: cfg.Suppression,
		logger:      logger,
		metrics:     metrics,
		notifier:    notifier,
	}
}

// Suppressed reports whether the device currently carries an active
// suppression marker. Fails open when the coordination store is unavailable.
func (s *StormDetector) Suppressed(ctx context.Context, tenantID, deviceID string) bool {
	if s.coord == nil {
		return false
	}
	ok, err := s.coord.Exists(ctx, suppressionKey(tenantID, deviceID))
	if err != nil {
		s.logger.Warn(ctx, "suppression check failed, treating device as not suppressed",
			"tenant_id", tenantID, "device_id", deviceID, "error", err)
		return false
	}
	return ok
}

// Check increments the device's storm counter and returns true only when this
// call newly detects a storm and activates suppression — not merely when the
// device is already suppressed. The counter's TTL is set only on the first
// increment of a window, so the window tumbles rather than slides. Fails open
// (returns false) when the coordination store is unavailable or erroring.
func (s *StormDetector) Check(ctx context.Context, tenantID, deviceID, source string) bool {
	if s.coord == nil {
		return false
	}

	L := s.logger.With("tenant_id", tenantID, "device_id", deviceID)

	key := stormCountKey(tenantID, deviceID)
	count, err := s.coord.Increment(ctx, key)
	if err != nil {
		L.Warn(ctx, "storm counter increment failed, skipping storm check", "error", err)
		return false
	}

	if count == 1 {
		if err := s.coord.SetExpiry(ctx, key, s.window); err != nil {
			L.Warn(ctx, "failed to set storm window expiry", "error", err)
		}
	}

	if s.metrics != nil {
		s.metrics.StormCounter.Observe(float64(count))
	}

	if count <= s.threshold {
		return false
	}

	// Threshold exceeded. The suppression marker is created atomically, so
	// exactly one caller per episode wins and synthesizes the meta-alert;
	// the counter keeps incrementing but later callers see the marker.
	created, err := s.coord.SetIfNotExists(ctx, suppressionKey(tenantID, deviceID), s.suppression, "1")
	if err != nil {
		L.Warn(ctx, "failed to set suppression marker", "error", err)
		return false
	}
	if !created {
		// Storm already handled for this episode.
		return false
	}

	meta := s.newMetaAlert(tenantID, deviceID, source, count)
	if err := s.store.Insert(ctx, meta); err != nil {
		L.Error(ctx, err, "failed to persist storm meta-alert", "alert_count", count)
	}

	L.Warn(ctx, "alert storm detected, suppressing device",
		"device_id", deviceID,
		"alert_count", count,
		"window", s.window.String(),
		"suppression", s.suppression.String(),
	)

	if s.metrics != nil {
		s.metrics.StormsDetected.Inc()
	}

	if s.notifier != nil {
		if err := s.notifier.Send(ctx, meta); err != nil {
			L.Warn(ctx, "storm notification failed", "error", err)
		}
	}

	return true
}

// newMetaAlert synthesizes the alert record representing the storm episode
// itself. Downstream consumers rely on the count, window, suppression
// statement, and suppression duration being discoverable in the message text.
func (s *StormDetector) newMetaAlert(tenantID, deviceID, source string, count int64) *Alert {
	windowMin := int(s.window.Minutes())
	suppressionMin := int(s.suppression.Minutes())

	return &Alert{
		ID:       ulid.Make().String(),
		TenantID: tenantID,
		DeviceID: deviceID,
		Type:     TypeStormDetected,
		Severity: SeverityHigh,
		Message: fmt.Sprintf(
			"Alert storm detected for device %s: %d alerts in the last %d minutes. Further alerts for this device are suppressed for %d minutes.",
			deviceID, count, windowMin, suppressionMin,
		),
		Source: source,
		Metadata: Metadata{
			"alertCount":         count,
			"windowSeconds":      int(s.window.Seconds()),
			"suppressionSeconds": int(s.suppression.Seconds()),
		},
		CreatedAt: time.Now().UTC(),
	}
}
