package slack

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/stormgate/internal/alert"
)

func stormAlert() *alert.Alert {
	return &alert.Alert{
		ID:       "01ARZ3NDEKTSV4RRFFQ69G5FAV",
		TenantID: "tenant-a",
		DeviceID: "router-1",
		Type:     alert.TypeStormDetected,
		Severity: alert.SeverityHigh,
		Message:  "Alert storm detected for device router-1: 11 alerts in the last 5 minutes. Further alerts for this device are suppressed for 15 minutes.",
		Source:   "snmp",
		Metadata: alert.Metadata{
			"alertCount":         int64(11),
			"windowSeconds":      300,
			"suppressionSeconds": 900,
		},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSend(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	var gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	if err := n.Send(context.Background(), stormAlert()); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}

	var payload struct {
		Blocks []json.RawMessage `json:"blocks"`
	}
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if len(payload.Blocks) == 0 {
		t.Fatal("payload has no blocks")
	}

	body := string(gotBody)
	for _, want := range []string{
		"Alert Storm: router-1",
		"*Tenant:* tenant-a",
		"*Alerts in window:* 11",
		"suppressed for 15 minutes",
		"01ARZ3NDEKTSV4RRFFQ69G5FAV",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("payload missing %q", want)
		}
	}
}

func TestSend_NoWebhookConfigured(t *testing.T) {
	t.Parallel()

	n := New("", log.Nop())
	if err := n.Send(context.Background(), stormAlert()); err != nil {
		t.Fatalf("Send with empty webhook = %v, want nil", err)
	}
}

func TestSend_WebhookFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := New(srv.URL, log.Nop())
	err := n.Send(context.Background(), stormAlert())
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("error = %v, want status code in message", err)
	}
}

func TestSend_ServerUnreachable(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // shut down before sending

	n := New(srv.URL, log.Nop())
	if err := n.Send(context.Background(), stormAlert()); err == nil {
		t.Fatal("expected error when webhook endpoint is unreachable")
	}
}

func TestSend_ContextCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := New(srv.URL, log.Nop())
	if err := n.Send(ctx, stormAlert()); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
