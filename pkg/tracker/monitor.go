package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/australsec/opswatch/pkg/comms"
	"github.com/australsec/opswatch/pkg/config"
	"github.com/australsec/opswatch/pkg/metrics"
	"github.com/australsec/opswatch/pkg/models"
	"github.com/australsec/opswatch/pkg/notify"
	"github.com/australsec/opswatch/pkg/store"
)

// AlertSender is the slice of the message channel a monitor needs.
type AlertSender interface {
	Send(d comms.Draft) (*models.Message, error)
}

// Alert is one locally-appended lost-signal entry.
type Alert struct {
	UnitID      uuid.UUID
	DisplayName string
	At          time.Time
}

// Monitor watches the authorized position snapshot for one observing
// session and classifies each unit's liveness. The lost-set belongs to
// this monitor alone: two consoles watching the same stale unit will
// each raise their own broadcast alert. That duplication is accepted;
// there is no cross-client mutual exclusion.
type Monitor struct {
	positions  store.PositionStore
	sender     AlertSender
	hub        *notify.Hub
	staleAfter time.Duration
	poll       time.Duration

	mu       sync.RWMutex
	lost     map[uuid.UUID]time.Time
	alerts   []Alert
	snapshot []UnitStatus

	updates chan struct{}
}

// UnitStatus is one unit's classified entry in the monitor's snapshot.
type UnitStatus struct {
	Report models.PositionReport
	Lost   bool
}

// NewMonitor builds a monitor over the authorized position snapshot.
func NewMonitor(positions store.PositionStore, sender AlertSender, hub *notify.Hub,
	cfg config.TrackingSettings) *Monitor {
	return &Monitor{
		positions:  positions,
		sender:     sender,
		hub:        hub,
		staleAfter: cfg.StaleAfter,
		poll:       cfg.ReportInterval,
		lost:       make(map[uuid.UUID]time.Time),
		updates:    make(chan struct{}, 1),
	}
}

// Run reconciles until ctx is cancelled. The position change feed is
// the fast path; the poll ticker is the correctness fallback. Both
// triggers run the same reconciliation.
func (m *Monitor) Run(ctx context.Context) {
	notifyCh := m.hub.Subscribe(notify.TablePositions)
	defer m.hub.Unsubscribe(notify.TablePositions, notifyCh)

	ticker := time.NewTicker(m.poll)
	defer ticker.Stop()

	m.reconcile(time.Now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-notifyCh:
			m.reconcile(time.Now())
		case <-ticker.C:
			m.reconcile(time.Now())
		}
	}
}

// reconcile refreshes the snapshot and walks the staleness edges. A
// unit crossing into lost is alerted exactly once until it recovers;
// recovery (a report younger than the threshold) re-arms the alert.
func (m *Monitor) reconcile(now time.Time) {
	reports, err := m.positions.GetAuthorized()
	if err != nil {
		// Keep showing the previous snapshot until the next trigger.
		slog.Error("position snapshot fetch failed", "error", err)
		return
	}

	m.mu.Lock()
	seen := make(map[uuid.UUID]struct{}, len(reports))
	snapshot := make([]UnitStatus, 0, len(reports))
	var entered []models.PositionReport
	for _, r := range reports {
		seen[r.UnitID] = struct{}{}
		stale := now.Sub(r.LastSeen) >= m.staleAfter
		if stale {
			if _, already := m.lost[r.UnitID]; !already {
				m.lost[r.UnitID] = now
				m.alerts = append(m.alerts, Alert{UnitID: r.UnitID, DisplayName: r.DisplayName, At: now})
				entered = append(entered, *r)
			}
		} else {
			delete(m.lost, r.UnitID)
		}
		snapshot = append(snapshot, UnitStatus{Report: *r, Lost: stale})
	}
	// Units that left the snapshot (logout removes the row) also leave
	// the lost-set, so a returning unit starts clean.
	for id := range m.lost {
		if _, ok := seen[id]; !ok {
			delete(m.lost, id)
		}
	}
	m.snapshot = snapshot
	m.mu.Unlock()

	for _, r := range entered {
		m.broadcastLost(r)
	}

	select {
	case m.updates <- struct{}{}:
	default:
	}
}

// broadcastLost writes the high-priority alert message every console
// sees when a unit's signal goes stale.
func (m *Monitor) broadcastLost(r models.PositionReport) {
	metrics.LostSignalAlerts.Inc()
	_, err := m.sender.Send(comms.Draft{
		Title:      "Lost GPS signal",
		Body:       fmt.Sprintf("%s (unit %s) stopped reporting position", r.DisplayName, r.UnitID),
		SenderRole: models.RoleControl,
		Target:     comms.Broadcast(comms.ScopeAll),
		Priority:   models.PriorityHigh,
	})
	if err != nil {
		// The unit stays in the lost-set; the alert is not retried.
		slog.Error("lost-signal broadcast failed", "unit", r.UnitID, "error", err)
	}
}

// Snapshot returns the most recent classified unit list.
func (m *Monitor) Snapshot() []UnitStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]UnitStatus, len(m.snapshot))
	copy(out, m.snapshot)
	return out
}

// Alerts returns the locally-appended lost-signal entries, oldest first.
func (m *Monitor) Alerts() []Alert {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Alert, len(m.alerts))
	copy(out, m.alerts)
	return out
}

// Updates signals after each reconciliation. The channel coalesces; a
// slow consumer sees at least one signal for any burst of changes.
func (m *Monitor) Updates() <-chan struct{} {
	return m.updates
}
