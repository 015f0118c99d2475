package models

import (
	"time"

	"github.com/google/uuid"
)

// Message priorities.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// Message is one role- or individually-addressed text message.
// Immutable after insert except for IsRead, which transitions
// false -> true exactly once and never back.
type Message struct {
	ID         int64  `db:"id"`
	Title      string `db:"title"`
	Body       string `db:"body"`
	SenderRole string `db:"sender_role"`
	// SenderID is the sending identity when known. Broadcasts from a
	// shared console may omit it; direct replies to a guard require it.
	SenderID *uuid.UUID `db:"sender_id"`
	// RecipientTarget is the string form of a comms.Target: one of the
	// four broadcast tags or a unit id.
	RecipientTarget string    `db:"recipient_target"`
	Priority        string    `db:"priority"`
	IsRead          bool      `db:"is_read"`
	CreatedAt       time.Time `db:"created_at"`
}

// SentBy reports whether the message was authored by the given unit.
func (m *Message) SentBy(unitID uuid.UUID) bool {
	return m.SenderID != nil && *m.SenderID == unitID
}
