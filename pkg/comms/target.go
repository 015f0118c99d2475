package comms

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/australsec/opswatch/pkg/models"
)

// BroadcastScope is a recipient tag matching a role group.
type BroadcastScope string

const (
	ScopeAll     BroadcastScope = "all"
	ScopeGuards  BroadcastScope = "guards"
	ScopeAdmin   BroadcastScope = "admin"
	ScopeControl BroadcastScope = "control"
)

var broadcastScopes = map[BroadcastScope]struct{}{
	ScopeAll:     {},
	ScopeGuards:  {},
	ScopeAdmin:   {},
	ScopeControl: {},
}

// Target addresses a message to either a role group (broadcast) or one
// specific unit (direct). The four broadcast tags are reserved words;
// unit ids are UUIDs, so the two namespaces never collide. A Target is
// resolved once when the message is composed and stored as its string
// form.
type Target struct {
	scope  BroadcastScope
	unitID uuid.UUID
	direct bool
}

// Broadcast addresses a role group.
func Broadcast(scope BroadcastScope) Target {
	return Target{scope: scope}
}

// Direct addresses a single unit.
func Direct(unitID uuid.UUID) Target {
	return Target{unitID: unitID, direct: true}
}

// ParseTarget reads a stored recipient string back into a Target. The
// reserved tag set is checked before the unit-id fallback.
func ParseTarget(s string) (Target, error) {
	if _, ok := broadcastScopes[BroadcastScope(s)]; ok {
		return Broadcast(BroadcastScope(s)), nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return Target{}, fmt.Errorf("recipient %q is neither a broadcast tag nor a unit id", s)
	}
	return Direct(id), nil
}

func (t Target) IsBroadcast() bool {
	return !t.direct
}

// Scope returns the broadcast tag; zero for direct targets.
func (t Target) Scope() BroadcastScope {
	if t.direct {
		return ""
	}
	return t.scope
}

// UnitID returns the addressed unit; uuid.Nil for broadcasts.
func (t Target) UnitID() uuid.UUID {
	if !t.direct {
		return uuid.Nil
	}
	return t.unitID
}

func (t Target) String() string {
	if t.direct {
		return t.unitID.String()
	}
	return string(t.scope)
}

// Covers reports whether a recipient with the given role and unit id
// should see a message addressed to this target.
func (t Target) Covers(role string, unitID uuid.UUID) bool {
	if t.direct {
		return t.unitID == unitID
	}
	switch t.scope {
	case ScopeAll:
		return true
	case ScopeGuards:
		return role == models.RoleGuard
	case ScopeAdmin:
		return role == models.RoleAdmin
	case ScopeControl:
		return role == models.RoleControl
	}
	return false
}
