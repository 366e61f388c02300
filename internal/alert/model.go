package alert

import "time"

// Severity is the ordinal alert severity category.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// TypeStormDetected is the alert type of synthesized storm meta-alerts.
const TypeStormDetected = "alert_storm_detected"

// Metadata is an open key/value bag attached to an alert. It is opaque to the
// engine except for the fields the storm detector writes itself (alertCount,
// windowSeconds, suppressionSeconds).
type Metadata map[string]any

// Alert is the persisted unit. An alert is immutable after creation except
// for the acknowledgment triple, which transitions once via Acknowledge.
type Alert struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	DeviceID       string    `json:"device_id,omitempty"`
	Type           string    `json:"alert_type"`
	Severity       Severity  `json:"severity"`
	Message        string    `json:"message"`
	Source         string    `json:"source"`
	Metadata       Metadata  `json:"metadata,omitempty"`
	Acknowledged   bool      `json:"acknowledged"`
	AcknowledgedBy string    `json:"acknowledged_by,omitempty"`
	AcknowledgedAt time.Time `json:"acknowledged_at,omitzero"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateInput is a structured alert-creation request as produced by the
// source adapters (API handlers, email parsers, device pollers).
type CreateInput struct {
	TenantID string   `json:"tenant_id"`
	DeviceID string   `json:"device_id,omitempty"` // empty for tenant-wide alerts
	Type     string   `json:"alert_type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Source   string   `json:"source"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// ListFilter selects alerts for retrieval. TenantID is mandatory and always
// applied; all other fields are optional and compose with logical AND.
// Zero-valued Start/End mean unbounded.
type ListFilter struct {
	TenantID     string
	DeviceID     string
	Severities   []Severity
	Acknowledged *bool
	Start        time.Time // inclusive lower bound on CreatedAt
	End          time.Time // inclusive upper bound on CreatedAt
	Limit        int
	Offset       int
}
