package alert_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/stormgate/internal/alert"
	"github.com/linnemanlabs/stormgate/internal/alert/memstore"
	"github.com/linnemanlabs/stormgate/internal/coordstore"
	"github.com/linnemanlabs/stormgate/internal/coordstore/memcoord"
)

func newTestManager(coord coordstore.Client, store alert.Store) *alert.Manager {
	dedup := alert.NewDeduplicator(coord, 120*time.Second, log.Nop())
	storm := alert.NewStormDetector(coord, store, alert.StormConfig{}, log.Nop(), nil, nil)
	return alert.NewManager(store, dedup, storm, log.Nop(), nil)
}

func TestManager_CreateAlert(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	m := newTestManager(memcoord.New(), store)
	ctx := context.Background()

	in := sampleInput()
	in.Metadata = alert.Metadata{"ifIndex": "3"}
	res, err := m.CreateAlert(ctx, in)
	if err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}
	if res.Dropped {
		t.Fatalf("alert dropped: %s", res.Reason)
	}
	if res.ID == "" {
		t.Fatal("result has empty ID")
	}

	got, err := m.GetAlerts(ctx, alert.ListFilter{TenantID: "tenant-a"})
	if err != nil {
		t.Fatalf("GetAlerts: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("alerts = %d, want 1", len(got))
	}

	a := got[0]
	if a.ID != res.ID {
		t.Errorf("persisted ID = %q, want %q", a.ID, res.ID)
	}
	if a.TenantID != in.TenantID || a.DeviceID != in.DeviceID || a.Type != in.Type {
		t.Errorf("persisted identity = %s/%s/%s, want %s/%s/%s",
			a.TenantID, a.DeviceID, a.Type, in.TenantID, in.DeviceID, in.Type)
	}
	if a.Severity != in.Severity || a.Message != in.Message || a.Source != in.Source {
		t.Errorf("persisted payload mismatch: %+v", a)
	}
	if a.Metadata["ifIndex"] != "3" {
		t.Errorf("persisted metadata = %v", a.Metadata)
	}
	if a.Acknowledged {
		t.Error("new alert is acknowledged")
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

func TestManager_CreateAlert_TenantRequired(t *testing.T) {
	t.Parallel()

	m := newTestManager(memcoord.New(), memstore.New())

	in := sampleInput()
	in.TenantID = ""
	_, err := m.CreateAlert(context.Background(), in)
	if !errors.Is(err, alert.ErrTenantRequired) {
		t.Fatalf("error = %v, want ErrTenantRequired", err)
	}
}

func TestManager_CreateAlert_DuplicateDropped(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	m := newTestManager(memcoord.New(), store)
	ctx := context.Background()

	first, err := m.CreateAlert(ctx, sampleInput())
	if err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}
	if first.Dropped {
		t.Fatalf("first submission dropped: %s", first.Reason)
	}

	second, err := m.CreateAlert(ctx, sampleInput())
	if err != nil {
		t.Fatalf("CreateAlert duplicate: %v", err)
	}
	if !second.Dropped || second.Reason != alert.DropDuplicate {
		t.Fatalf("second submission = %+v, want dropped as duplicate", second)
	}
	if second.ID != "" {
		t.Errorf("dropped result carries ID %q", second.ID)
	}

	got, _ := m.GetAlerts(ctx, alert.ListFilter{TenantID: "tenant-a"})
	if len(got) != 1 {
		t.Fatalf("persisted alerts = %d, want 1", len(got))
	}
}

// stormInput returns a submission for the storm device with a distinct alert
// type per index so deduplication never interferes with the count.
func stormInput(i int) *alert.CreateInput {
	return &alert.CreateInput{
		TenantID: "tenant-a",
		DeviceID: "router-1",
		Type:     fmt.Sprintf("bgp_flap_%d", i),
		Severity: alert.SeverityMedium,
		Message:  fmt.Sprintf("BGP session flap %d", i),
		Source:   "snmp",
	}
}

func TestManager_StormEndToEnd(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	m := newTestManager(memcoord.New(), store)
	ctx := context.Background()

	// Eleven distinct alerts for one device are all accepted; the eleventh
	// tips the device into a storm.
	for i := range 11 {
		res, err := m.CreateAlert(ctx, stormInput(i))
		if err != nil {
			t.Fatalf("CreateAlert %d: %v", i, err)
		}
		if res.Dropped {
			t.Fatalf("alert %d dropped: %s", i, res.Reason)
		}
	}

	// The store now holds the eleven originals plus the synthesized
	// meta-alert.
	got, err := m.GetAlerts(ctx, alert.ListFilter{TenantID: "tenant-a"})
	if err != nil {
		t.Fatalf("GetAlerts: %v", err)
	}
	if len(got) != 12 {
		t.Fatalf("persisted alerts = %d, want 12", len(got))
	}

	var metas []*alert.Alert
	for _, a := range got {
		if a.Type == alert.TypeStormDetected {
			metas = append(metas, a)
		}
	}
	if len(metas) != 1 {
		t.Fatalf("meta-alerts = %d, want exactly 1", len(metas))
	}
	if metas[0].Severity != alert.SeverityHigh {
		t.Errorf("meta severity = %q, want high", metas[0].Severity)
	}

	// Further submissions for the device are dropped as suppressed, even
	// with brand-new alert types.
	res, err := m.CreateAlert(ctx, stormInput(99))
	if err != nil {
		t.Fatalf("CreateAlert during suppression: %v", err)
	}
	if !res.Dropped || res.Reason != alert.DropSuppressed {
		t.Fatalf("result during suppression = %+v, want dropped as suppressed", res)
	}

	// Other devices are unaffected.
	other := sampleInput()
	other.DeviceID = "router-2"
	res, err = m.CreateAlert(ctx, other)
	if err != nil {
		t.Fatalf("CreateAlert other device: %v", err)
	}
	if res.Dropped {
		t.Fatalf("unrelated device dropped: %s", res.Reason)
	}
}

func TestManager_DevicelessAlertsSkipStormControl(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	m := newTestManager(memcoord.New(), store)
	ctx := context.Background()

	// Far more than the threshold, but with no device there is nothing to
	// count or suppress.
	for i := range 15 {
		in := stormInput(i)
		in.DeviceID = ""
		res, err := m.CreateAlert(ctx, in)
		if err != nil {
			t.Fatalf("CreateAlert %d: %v", i, err)
		}
		if res.Dropped {
			t.Fatalf("device-less alert %d dropped: %s", i, res.Reason)
		}
	}

	got, _ := m.GetAlerts(ctx, alert.ListFilter{TenantID: "tenant-a"})
	for _, a := range got {
		if a.Type == alert.TypeStormDetected {
			t.Fatal("storm meta-alert synthesized for device-less alerts")
		}
	}

	// Deduplication still applies to device-less alerts.
	in := stormInput(0)
	in.DeviceID = ""
	res, err := m.CreateAlert(ctx, in)
	if err != nil {
		t.Fatalf("CreateAlert repeat: %v", err)
	}
	if !res.Dropped || res.Reason != alert.DropDuplicate {
		t.Fatalf("repeat device-less alert = %+v, want dropped as duplicate", res)
	}
}

func TestManager_FailOpenWithoutCoordinationStore(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	m := newTestManager(nil, store)
	ctx := context.Background()

	// Identical submissions, way past both the dedup window count and the
	// storm threshold: with no coordination store everything is accepted.
	for i := range 15 {
		res, err := m.CreateAlert(ctx, sampleInput())
		if err != nil {
			t.Fatalf("CreateAlert %d: %v", i, err)
		}
		if res.Dropped {
			t.Fatalf("alert %d dropped without a coordination store: %s", i, res.Reason)
		}
	}

	got, _ := m.GetAlerts(ctx, alert.ListFilter{TenantID: "tenant-a"})
	if len(got) != 15 {
		t.Fatalf("persisted alerts = %d, want 15", len(got))
	}
}

func TestManager_CreateAlert_StoreError(t *testing.T) {
	t.Parallel()

	store := &recordStore{insertErr: errors.New("db down")}
	m := newTestManager(memcoord.New(), store)

	_, err := m.CreateAlert(context.Background(), sampleInput())
	if err == nil {
		t.Fatal("expected error when persistence fails")
	}
}

func TestManager_DeduplicateAlert(t *testing.T) {
	t.Parallel()

	m := newTestManager(memcoord.New(), memstore.New())
	ctx := context.Background()

	if m.DeduplicateAlert(ctx, sampleInput()) {
		t.Fatal("first check reported duplicate")
	}
	if !m.DeduplicateAlert(ctx, sampleInput()) {
		t.Fatal("second check did not report duplicate")
	}
}

func TestManager_CheckAlertStorm(t *testing.T) {
	t.Parallel()

	m := newTestManager(memcoord.New(), memstore.New())
	ctx := context.Background()

	stormed := false
	for range 11 {
		stormed = m.CheckAlertStorm(ctx, "tenant-a", "router-1")
	}
	if !stormed {
		t.Fatal("eleventh check did not declare a storm")
	}
	if m.CheckAlertStorm(ctx, "tenant-a", "router-1") {
		t.Fatal("check during suppression declared a second storm")
	}
}

func TestManager_AcknowledgeAlert(t *testing.T) {
	t.Parallel()

	store := memstore.New()
	m := newTestManager(memcoord.New(), store)
	ctx := context.Background()

	res, err := m.CreateAlert(ctx, sampleInput())
	if err != nil {
		t.Fatalf("CreateAlert: %v", err)
	}

	if err := m.AcknowledgeAlert(ctx, res.ID, "oncall@example.com"); err != nil {
		t.Fatalf("AcknowledgeAlert: %v", err)
	}

	got, _ := m.GetAlerts(ctx, alert.ListFilter{TenantID: "tenant-a"})
	a := got[0]
	if !a.Acknowledged {
		t.Error("alert not marked acknowledged")
	}
	if a.AcknowledgedBy != "oncall@example.com" {
		t.Errorf("AcknowledgedBy = %q, want %q", a.AcknowledgedBy, "oncall@example.com")
	}
	if a.AcknowledgedAt.IsZero() {
		t.Error("AcknowledgedAt not set")
	}

	// A later acknowledgment overwrites the triple.
	if err := m.AcknowledgeAlert(ctx, res.ID, "backup@example.com"); err != nil {
		t.Fatalf("re-acknowledge: %v", err)
	}
	got, _ = m.GetAlerts(ctx, alert.ListFilter{TenantID: "tenant-a"})
	if got[0].AcknowledgedBy != "backup@example.com" {
		t.Errorf("AcknowledgedBy after re-ack = %q, want %q", got[0].AcknowledgedBy, "backup@example.com")
	}
}

func TestManager_AcknowledgeAlert_NotFound(t *testing.T) {
	t.Parallel()

	m := newTestManager(memcoord.New(), memstore.New())

	err := m.AcknowledgeAlert(context.Background(), "no-such-id", "oncall@example.com")
	if !errors.Is(err, alert.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestManager_GetAlerts_TenantRequired(t *testing.T) {
	t.Parallel()

	m := newTestManager(memcoord.New(), memstore.New())

	_, err := m.GetAlerts(context.Background(), alert.ListFilter{})
	if !errors.Is(err, alert.ErrTenantRequired) {
		t.Fatalf("error = %v, want ErrTenantRequired", err)
	}
}

func TestManager_GetAlerts_StoreError(t *testing.T) {
	t.Parallel()

	store := &recordStore{listErr: errors.New("db down")}
	m := newTestManager(memcoord.New(), store)

	_, err := m.GetAlerts(context.Background(), alert.ListFilter{TenantID: "tenant-a"})
	if err == nil {
		t.Fatal("expected error when listing fails")
	}
}
