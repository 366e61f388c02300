package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds application-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	APIToken              string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	SlackWebhookURL       string
	DedupWindowSeconds    int
	StormThreshold        int
	StormWindowSeconds    int
	SuppressionSeconds    int
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.RedisAddr, "redis-addr", "", "Redis address for the coordination store (empty = dedup/storm control disabled)")
	fs.StringVar(&c.RedisPassword, "redis-password", "", "Redis password")
	fs.IntVar(&c.RedisDB, "redis-db", 0, "Redis logical database number")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for storm notifications")
	fs.IntVar(&c.DedupWindowSeconds, "dedup-window-seconds", 120, "window during which an equivalent alert is a duplicate")
	fs.IntVar(&c.StormThreshold, "storm-threshold", 10, "per-device alert count above which a storm is declared")
	fs.IntVar(&c.StormWindowSeconds, "storm-window-seconds", 300, "tumbling counting window per device")
	fs.IntVar(&c.SuppressionSeconds, "suppression-seconds", 900, "how long a storming device stays suppressed")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Token is required so the API is never accidentally exposed open
	if c.APIToken == "" {
		errs = append(errs, errors.New("API_TOKEN is required"))
	}

	// Window and threshold sanity
	if c.DedupWindowSeconds <= 0 {
		errs = append(errs, fmt.Errorf("invalid DEDUP_WINDOW_SECONDS %d (must be positive)", c.DedupWindowSeconds))
	}
	if c.StormThreshold <= 0 {
		errs = append(errs, fmt.Errorf("invalid STORM_THRESHOLD %d (must be positive)", c.StormThreshold))
	}
	if c.StormWindowSeconds <= 0 {
		errs = append(errs, fmt.Errorf("invalid STORM_WINDOW_SECONDS %d (must be positive)", c.StormWindowSeconds))
	}
	if c.SuppressionSeconds <= 0 {
		errs = append(errs, fmt.Errorf("invalid SUPPRESSION_SECONDS %d (must be positive)", c.SuppressionSeconds))
	}

	// Suppression shorter than the counting window would re-trigger a storm
	// mid-episode
	if c.SuppressionSeconds > 0 && c.StormWindowSeconds > 0 && c.SuppressionSeconds < c.StormWindowSeconds {
		errs = append(errs, fmt.Errorf("SUPPRESSION_SECONDS %d must be at least STORM_WINDOW_SECONDS %d", c.SuppressionSeconds, c.StormWindowSeconds))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
