// Package alertapi exposes the alert intake engine over HTTP.
package alertapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/stormgate/internal/alert"
)

// AlertService defines the business operations alertapi needs.
type AlertService interface {
	CreateAlert(ctx context.Context, in *alert.CreateInput) (*alert.CreateResult, error)
	DeduplicateAlert(ctx context.Context, in *alert.CreateInput) bool
	CheckAlertStorm(ctx context.Context, tenantID, deviceID string) bool
	AcknowledgeAlert(ctx context.Context, alertID, userID string) error
	GetAlerts(ctx context.Context, f alert.ListFilter) ([]*alert.Alert, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger log.Logger
	svc    AlertService
}

// New creates a new API handler.
func New(logger log.Logger, svc AlertService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("alert service is required"))
	}
	return &API{
		logger: logger,
		svc:    svc,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/alerts", a.handleCreateAlert)
		r.Get("/alerts", a.handleListAlerts)
		r.Post("/alerts/{id}/ack", a.handleAcknowledge)
		r.Post("/alerts/dedup-check", a.handleDedupCheck)
		r.Post("/alerts/storm-check", a.handleStormCheck)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
