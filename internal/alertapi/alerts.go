package alertapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/stormgate/internal/alert"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func (a *API) handleCreateAlert(w http.ResponseWriter, r *http.Request) {
	var in alert.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if in.Source == "" {
		in.Source = "api"
	}

	res, err := a.svc.CreateAlert(r.Context(), &in)
	if err != nil {
		if errors.Is(err, alert.ErrTenantRequired) {
			http.Error(w, `{"error":"tenant_id is required"}`, http.StatusBadRequest)
			return
		}
		a.logger.Error(r.Context(), err, "create alert failed",
			"tenant_id", in.TenantID, "alert_type", in.Type)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	if res.Dropped {
		writeJSON(w, http.StatusAccepted, map[string]any{
			"id":     nil,
			"reason": res.Reason,
		})
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("stormgate.alert.id", res.ID))

	writeJSON(w, http.StatusCreated, map[string]any{"id": res.ID})
}

func (a *API) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	f, err := parseListFilter(r)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	alerts, err := a.svc.GetAlerts(r.Context(), f)
	if err != nil {
		if errors.Is(err, alert.ErrTenantRequired) {
			http.Error(w, `{"error":"tenant_id is required"}`, http.StatusBadRequest)
			return
		}
		a.logger.Error(r.Context(), err, "list alerts failed", "tenant_id", f.TenantID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts})
}

func (a *API) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserID == "" {
		http.Error(w, `{"error":"user_id is required"}`, http.StatusBadRequest)
		return
	}

	if err := a.svc.AcknowledgeAlert(r.Context(), id, body.UserID); err != nil {
		if errors.Is(err, alert.ErrNotFound) {
			http.Error(w, `{"error":"alert not found"}`, http.StatusNotFound)
			return
		}
		a.logger.Error(r.Context(), err, "acknowledge failed", "alert_id", id, "user_id", body.UserID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDedupCheck(w http.ResponseWriter, r *http.Request) {
	var in alert.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if in.TenantID == "" {
		http.Error(w, `{"error":"tenant_id is required"}`, http.StatusBadRequest)
		return
	}
	if in.Source == "" {
		in.Source = "api"
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"duplicate": a.svc.DeduplicateAlert(r.Context(), &in),
	})
}

func (a *API) handleStormCheck(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TenantID string `json:"tenant_id"`
		DeviceID string `json:"device_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if body.TenantID == "" || body.DeviceID == "" {
		http.Error(w, `{"error":"tenant_id and device_id are required"}`, http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"storm": a.svc.CheckAlertStorm(r.Context(), body.TenantID, body.DeviceID),
	})
}

func parseListFilter(r *http.Request) (alert.ListFilter, error) {
	q := r.URL.Query()

	f := alert.ListFilter{
		TenantID: q.Get("tenant_id"),
		DeviceID: q.Get("device_id"),
		Limit:    defaultListLimit,
	}

	for _, sev := range q["severity"] {
		f.Severities = append(f.Severities, alert.Severity(sev))
	}

	if v := q.Get("acknowledged"); v != "" {
		acked, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.New("invalid acknowledged value")
		}
		f.Acknowledged = &acked
	}

	if v := q.Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, errors.New("invalid start timestamp")
		}
		f.Start = t
	}
	if v := q.Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, errors.New("invalid end timestamp")
		}
		f.End = t
	}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("invalid limit")
		}
		f.Limit = min(n, maxListLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, errors.New("invalid offset")
		}
		f.Offset = n
	}

	return f, nil
}
