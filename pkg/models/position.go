package models

import (
	"time"

	"github.com/google/uuid"
)

// Status tags carried on a position report. Only "active" is ever
// written today; the schema accepts the other two for field apps that
// may set them later.
const (
	StatusTagActive    = "active"
	StatusTagBreak     = "break"
	StatusTagEmergency = "emergency"
)

// PositionReport is the last-known-location row for one unit. At most
// one row per unit is retained; every report overwrites it in place, so
// a reader's view is a snapshot, not a history.
type PositionReport struct {
	UnitID      uuid.UUID `db:"unit_id"`
	DisplayName string    `db:"display_name"`
	Latitude    float64   `db:"latitude"`
	Longitude   float64   `db:"longitude"`
	StatusTag   string    `db:"status_tag"`
	LastSeen    time.Time `db:"last_seen"`
}

// Age returns how long ago the unit last reported, as of now.
func (p *PositionReport) Age(now time.Time) time.Duration {
	return now.Sub(p.LastSeen)
}
