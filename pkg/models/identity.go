package models

import (
	"time"

	"github.com/google/uuid"
)

// Console roles. Every identity carries exactly one.
const (
	RoleAdmin   = "admin"
	RoleControl = "control"
	RoleGuard   = "guard"
)

// Identity lifecycle status. Inactive identities keep their rows but are
// excluded from the authorized position snapshot and cannot log in.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Identity is one console account: an administrator, a dispatch/control
// operator, or a field guard. Guard identities double as units for
// position reporting; the identity id is the unit id.
type Identity struct {
	ID           uuid.UUID `db:"id"`
	UserName     string    `db:"username"`
	DisplayName  string    `db:"display_name"`
	Role         string    `db:"role"`
	Status       string    `db:"status"`
	PasswordHash string    `db:"password_hash"`
	Salt         string    `db:"salt"`
	Created      time.Time `db:"created"`
}

func (i *Identity) IsActive() bool {
	return i.Status == StatusActive
}

// MayReportPosition reports whether this identity's role is allowed to
// appear on the live map. The snapshot join enforces the same rule
// server-side; this helper exists for request validation.
func (i *Identity) MayReportPosition() bool {
	return i.Role == RoleGuard || i.Role == RoleControl
}

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleControl, RoleGuard:
		return true
	}
	return false
}
