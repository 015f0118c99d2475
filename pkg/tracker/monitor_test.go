package tracker

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/australsec/opswatch/pkg/comms"
	"github.com/australsec/opswatch/pkg/config"
	"github.com/australsec/opswatch/pkg/models"
	"github.com/australsec/opswatch/pkg/notify"
)

type fakePositionStore struct {
	mu      sync.Mutex
	reports map[uuid.UUID]*models.PositionReport
}

func newFakePositionStore() *fakePositionStore {
	return &fakePositionStore{reports: make(map[uuid.UUID]*models.PositionReport)}
}

func (f *fakePositionStore) Upsert(report *models.PositionReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *report
	f.reports[report.UnitID] = &cp
	return nil
}

func (f *fakePositionStore) GetByUnitID(unitID uuid.UUID) (*models.PositionReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.reports[unitID]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, nil
}

func (f *fakePositionStore) GetAuthorized() ([]*models.PositionReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.PositionReport, 0, len(f.reports))
	for _, r := range f.reports {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakePositionStore) Delete(unitID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.reports, unitID)
	return nil
}

type fakeSender struct {
	mu    sync.Mutex
	sent  []comms.Draft
	msgID int64
}

func (f *fakeSender) Send(d comms.Draft) (*models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, d)
	f.msgID++
	return &models.Message{ID: f.msgID}, nil
}

func (f *fakeSender) drafts() []comms.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]comms.Draft, len(f.sent))
	copy(out, f.sent)
	return out
}

var testTracking = config.TrackingSettings{
	ReportInterval: 5 * time.Second,
	StaleAfter:     20 * time.Second,
	ReferenceLat:   -33.4489,
	ReferenceLng:   -70.6483,
}

func TestMonitorClassifiesStaleAtThreshold(t *testing.T) {
	store := newFakePositionStore()
	sender := &fakeSender{}
	monitor := NewMonitor(store, sender, notify.NewHub(), testTracking)

	unitID := uuid.New()
	now := time.Now()
	store.Upsert(&models.PositionReport{
		UnitID:      unitID,
		DisplayName: "Jane Doe",
		Latitude:    -33.45,
		Longitude:   -70.65,
		StatusTag:   models.StatusTagActive,
		LastSeen:    now.Add(-19 * time.Second),
	})

	// Just under the threshold: still live.
	monitor.reconcile(now)
	snapshot := monitor.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("snapshot has %d units, want 1", len(snapshot))
	}
	if snapshot[0].Lost {
		t.Error("unit classified lost at 19s")
	}
	if len(monitor.Alerts()) != 0 {
		t.Errorf("alert raised before threshold")
	}

	// Exactly at the threshold: lost.
	monitor.reconcile(now.Add(time.Second))
	snapshot = monitor.Snapshot()
	if !snapshot[0].Lost {
		t.Error("unit not classified lost at exactly 20s")
	}
	alerts := monitor.Alerts()
	if len(alerts) != 1 {
		t.Fatalf("got %d alerts, want 1", len(alerts))
	}
	if alerts[0].DisplayName != "Jane Doe" || alerts[0].UnitID != unitID {
		t.Errorf("alert for wrong unit: %+v", alerts[0])
	}
}

func TestMonitorAlertsOncePerLostEpisode(t *testing.T) {
	store := newFakePositionStore()
	sender := &fakeSender{}
	monitor := NewMonitor(store, sender, notify.NewHub(), testTracking)

	unitID := uuid.New()
	base := time.Now()
	store.Upsert(&models.PositionReport{
		UnitID: unitID, DisplayName: "G-1", LastSeen: base.Add(-30 * time.Second),
	})

	monitor.reconcile(base)
	monitor.reconcile(base.Add(5 * time.Second))
	monitor.reconcile(base.Add(10 * time.Second))

	if got := len(sender.drafts()); got != 1 {
		t.Fatalf("sent %d broadcast alerts while continuously lost, want 1", got)
	}
	d := sender.drafts()[0]
	if d.Priority != models.PriorityHigh {
		t.Errorf("alert priority = %q, want high", d.Priority)
	}
	if d.Target.String() != "all" {
		t.Errorf("alert target = %q, want all", d.Target.String())
	}
	if d.SenderRole != models.RoleControl {
		t.Errorf("alert sender role = %q, want control", d.SenderRole)
	}
}

func TestMonitorRecoveryRearmsAlert(t *testing.T) {
	store := newFakePositionStore()
	sender := &fakeSender{}
	monitor := NewMonitor(store, sender, notify.NewHub(), testTracking)

	unitID := uuid.New()
	base := time.Now()
	store.Upsert(&models.PositionReport{UnitID: unitID, DisplayName: "G-1", LastSeen: base.Add(-25 * time.Second)})
	monitor.reconcile(base)

	// Fresh report: recovers.
	store.Upsert(&models.PositionReport{UnitID: unitID, DisplayName: "G-1", LastSeen: base})
	monitor.reconcile(base.Add(time.Second))
	if monitor.Snapshot()[0].Lost {
		t.Fatal("unit still lost after fresh report")
	}

	// Goes quiet again: a second alert fires.
	monitor.reconcile(base.Add(21 * time.Second))
	if got := len(sender.drafts()); got != 2 {
		t.Fatalf("sent %d broadcast alerts across two episodes, want 2", got)
	}
	// The local alert log keeps both entries.
	if got := len(monitor.Alerts()); got != 2 {
		t.Fatalf("got %d local alerts, want 2", got)
	}
}

func TestMonitorsAlertIndependently(t *testing.T) {
	store := newFakePositionStore()
	senderA := &fakeSender{}
	senderB := &fakeSender{}
	hub := notify.NewHub()
	monA := NewMonitor(store, senderA, hub, testTracking)
	monB := NewMonitor(store, senderB, hub, testTracking)

	unitID := uuid.New()
	now := time.Now()
	store.Upsert(&models.PositionReport{UnitID: unitID, DisplayName: "G-2", LastSeen: now.Add(-time.Minute)})

	monA.reconcile(now)
	monB.reconcile(now)

	// Each observing console raises its own broadcast; duplicates are
	// accepted.
	if len(senderA.drafts()) != 1 || len(senderB.drafts()) != 1 {
		t.Fatalf("each monitor should alert once, got %d and %d",
			len(senderA.drafts()), len(senderB.drafts()))
	}
}

func TestMonitorForgetsDepartedUnits(t *testing.T) {
	store := newFakePositionStore()
	sender := &fakeSender{}
	monitor := NewMonitor(store, sender, notify.NewHub(), testTracking)

	unitID := uuid.New()
	base := time.Now()
	store.Upsert(&models.PositionReport{UnitID: unitID, DisplayName: "G-3", LastSeen: base.Add(-time.Minute)})
	monitor.reconcile(base)

	// Logout removes the row; the lost-set entry goes with it.
	store.Delete(unitID)
	monitor.reconcile(base.Add(time.Second))
	if len(monitor.Snapshot()) != 0 {
		t.Fatal("departed unit still in snapshot")
	}

	// The unit comes back and goes stale again: a fresh episode.
	store.Upsert(&models.PositionReport{UnitID: unitID, DisplayName: "G-3", LastSeen: base.Add(-time.Minute)})
	monitor.reconcile(base.Add(2 * time.Second))
	if got := len(sender.drafts()); got != 2 {
		t.Fatalf("sent %d broadcast alerts, want 2", got)
	}
}

func TestReporterWritesImmediately(t *testing.T) {
	store := newFakePositionStore()
	hub := notify.NewHub()
	unitID := uuid.New()

	cfg := testTracking
	cfg.ReportInterval = 10 * time.Millisecond
	reporter := NewReporter(unitID, "Jane Doe", store, hub, nil, cfg)
	if reporter == nil {
		t.Fatal("reporter is nil for a valid unit")
	}

	ch := hub.Subscribe(notify.TablePositions)
	defer hub.Unsubscribe(notify.TablePositions, ch)

	ctx, cancel := testContext(t)
	defer cancel()
	go reporter.Run(ctx)

	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("no position change signal")
	}
	report, err := store.GetByUnitID(unitID)
	if err != nil || report == nil {
		t.Fatalf("no position row written: %v", err)
	}
	if report.DisplayName != "Jane Doe" {
		t.Errorf("display name = %q", report.DisplayName)
	}
	if report.StatusTag != models.StatusTagActive {
		t.Errorf("status tag = %q, want active", report.StatusTag)
	}
}

func TestNewReporterRejectsAnonymousUnits(t *testing.T) {
	store := newFakePositionStore()
	hub := notify.NewHub()

	if r := NewReporter(uuid.Nil, "name", store, hub, nil, testTracking); r != nil {
		t.Error("reporter created for nil unit id")
	}
	if r := NewReporter(uuid.New(), "", store, hub, nil, testTracking); r != nil {
		t.Error("reporter created for empty display name")
	}
}
