package alert

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/stormgate/internal/coordstore"
)

// DefaultDedupWindow is the span during which a semantically identical alert
// is treated as a repeat.
const DefaultDedupWindow = 120 * time.Second

// Fingerprint builds the deterministic dedup key input for an alert. Message
// text is deliberately excluded: two differently worded alerts for the same
// tenant/device/type/severity/source are the same alert.
func Fingerprint(in *CreateInput) string {
	h := sha256.Sum256([]byte(strings.Join([]string{
		in.TenantID, in.DeviceID, in.Type, string(in.Severity), in.Source,
	}, "|")))
	return hex.EncodeToString(h[:])
}

func dedupKey(in *CreateInput) string {
	return "alert:dedup:" + Fingerprint(in)
}

// Deduplicator decides whether an equivalent alert was already accepted
// inside the dedup window, using the coordination store for cross-process
// state.
type Deduplicator struct {
	coord  coordstore.Client
	window time.Duration
	logger log.Logger
}

// NewDeduplicator creates a Deduplicator. A nil coord client disables dedup
// (every alert passes); a non-positive window falls back to the default.
func NewDeduplicator(coord coordstore.Client, window time.Duration, logger log.Logger) *Deduplicator {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &Deduplicator{
		coord:  coord,
		window: window,
		logger: logger,
	}
}

// IsDuplicate reports whether an equivalent alert was accepted inside the
// window. The first accepted alert writes the marker atomically
// (set-if-not-exists with TTL), so two concurrent equivalents cannot both
// pass, and a duplicate never refreshes the window — the original
// acceptance's timestamp governs re-acceptance.
//
// Any coordination-store problem fails open: the alert is treated as not a
// duplicate and no marker is written. Never returns an error.
func (d *Deduplicator) IsDuplicate(ctx context.Context, in *CreateInput) bool {
	fields := []any{
		"tenant_id", in.TenantID,
		"device_id", in.DeviceID,
		"alert_type", in.Type,
		"severity", in.Severity,
		"source", in.Source,
	}

	if d.coord == nil {
		d.logger.Debug(ctx, "coordination store unavailable, skipping dedup", fields...)
		return false
	}

	created, err := d.coord.SetIfNotExists(ctx, dedupKey(in), d.window, "1")
	if err != nil {
		d.logger.Warn(ctx, "dedup check failed, allowing alert through", append(fields, "error", err)...)
		return false
	}
	if !created {
		d.logger.Info(ctx, "duplicate alert within dedup window", fields...)
		return true
	}

	d.logger.Info(ctx, "dedup marker set", append(fields, "window", d.window.String())...)
	return false
}
