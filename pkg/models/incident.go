package models

import (
	"time"

	"github.com/google/uuid"
)

// Incident severities, as chosen by the reporting guard.
const (
	IncidentLow    = "low"
	IncidentMedium = "medium"
	IncidentHigh   = "high"
)

// Incident is a guard-reported event from the field: suspicious
// activity, damage, anything worth the shift log.
type Incident struct {
	ID          uuid.UUID `db:"id"`
	GuardID     uuid.UUID `db:"guard_id"`
	Description string    `db:"description"`
	Priority    string    `db:"priority"`
	PhotoURL    string    `db:"photo_url"`
	CreatedAt   time.Time `db:"created_at"`
}
