package models

import (
	"time"

	"github.com/google/uuid"
)

// Access event directions.
const (
	DirectionEntry = "entry"
	DirectionExit  = "exit"
)

// AccessLog records one person or vehicle passing a controlled gate,
// written by the guard on duty. PhotoURL points at the evidence photo
// in object storage when one was captured.
type AccessLog struct {
	ID         int64     `db:"id"`
	GuardID    uuid.UUID `db:"guard_id"`
	PersonName string    `db:"person_name"`
	DocumentID string    `db:"document_id"`
	Vehicle    string    `db:"vehicle"`
	Plate      string    `db:"plate"`
	Direction  string    `db:"direction"`
	Note       string    `db:"note"`
	PhotoURL   string    `db:"photo_url"`
	CreatedAt  time.Time `db:"created_at"`
}
