package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/australsec/opswatch/pkg/config"
	"github.com/australsec/opswatch/pkg/metrics"
	"github.com/australsec/opswatch/pkg/models"
	"github.com/australsec/opswatch/pkg/notify"
	"github.com/australsec/opswatch/pkg/store"
)

// Reporter owns one unit's position write path for the lifetime of its
// session. Every interval it takes a coordinate from its source and
// upserts the unit's position row; a failed write is logged and the
// next tick simply tries again. There is no in-flight guard between
// ticks: the store's upsert-by-key makes overlapping writes land
// last-write-wins, which only ever freshens the row.
type Reporter struct {
	unitID      uuid.UUID
	displayName string
	positions   store.PositionStore
	hub         *notify.Hub
	source      coordSource
	interval    time.Duration
}

// NewReporter builds a reporter for one unit. Returns nil when the unit
// has no identity or display name; such units never report. The source
// is selected here, once: the device feed when it already carries a fix
// for this unit, otherwise the synthetic walker.
func NewReporter(unitID uuid.UUID, displayName string, positions store.PositionStore,
	hub *notify.Hub, feed *DeviceFeed, cfg config.TrackingSettings) *Reporter {
	if unitID == uuid.Nil || displayName == "" {
		return nil
	}

	var source coordSource
	if feed != nil && feed.HasFix(unitID) {
		source = &deviceSource{feed: feed, unitID: unitID}
	} else {
		source = newSyntheticSource(cfg.ReferenceLat, cfg.ReferenceLng, time.Now().UnixNano())
	}

	return &Reporter{
		unitID:      unitID,
		displayName: displayName,
		positions:   positions,
		hub:         hub,
		source:      source,
		interval:    cfg.ReportInterval,
	}
}

// Run reports until ctx is cancelled. It writes immediately, then once
// per interval.
func (r *Reporter) Run(ctx context.Context) {
	slog.Info("position reporting started", "unit", r.unitID, "name", r.displayName)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.report()
	for {
		select {
		case <-ctx.Done():
			slog.Info("position reporting stopped", "unit", r.unitID)
			return
		case <-ticker.C:
			r.report()
		}
	}
}

func (r *Reporter) report() {
	lat, lng, ok := r.source.Next()
	if !ok {
		// Device went quiet; the staleness monitor will notice.
		return
	}
	err := r.positions.Upsert(&models.PositionReport{
		UnitID:      r.unitID,
		DisplayName: r.displayName,
		Latitude:    lat,
		Longitude:   lng,
		StatusTag:   models.StatusTagActive,
		LastSeen:    time.Now(),
	})
	if err != nil {
		metrics.PositionWriteErrors.Inc()
		slog.Error("position write failed", "unit", r.unitID, "error", err)
		return
	}
	metrics.PositionWrites.Inc()
	r.hub.Notify(notify.TablePositions)
}
