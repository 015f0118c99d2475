package comms

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/australsec/opswatch/pkg/models"
)

func TestParseTargetBroadcastTags(t *testing.T) {
	for _, tag := range []string{"all", "guards", "admin", "control"} {
		target, err := ParseTarget(tag)
		require.NoError(t, err, "tag %s", tag)
		assert.True(t, target.IsBroadcast())
		assert.Equal(t, tag, target.String())
		assert.Equal(t, uuid.Nil, target.UnitID())
	}
}

func TestParseTargetUnitID(t *testing.T) {
	id := uuid.New()
	target, err := ParseTarget(id.String())
	require.NoError(t, err)
	assert.False(t, target.IsBroadcast())
	assert.Equal(t, id, target.UnitID())
	assert.Equal(t, id.String(), target.String())
}

func TestParseTargetInvalid(t *testing.T) {
	for _, s := range []string{"", "everyone", "guard", "not-a-uuid"} {
		_, err := ParseTarget(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestTargetStringRoundTrip(t *testing.T) {
	targets := []Target{
		Broadcast(ScopeAll),
		Broadcast(ScopeGuards),
		Direct(uuid.New()),
	}
	for _, want := range targets {
		got, err := ParseTarget(want.String())
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestCovers(t *testing.T) {
	guardID := uuid.New()
	otherID := uuid.New()

	tests := []struct {
		name   string
		target Target
		role   string
		unitID uuid.UUID
		want   bool
	}{
		{"all covers guard", Broadcast(ScopeAll), models.RoleGuard, guardID, true},
		{"all covers admin", Broadcast(ScopeAll), models.RoleAdmin, otherID, true},
		{"guards covers guard", Broadcast(ScopeGuards), models.RoleGuard, guardID, true},
		{"guards excludes control", Broadcast(ScopeGuards), models.RoleControl, otherID, false},
		{"admin excludes guard", Broadcast(ScopeAdmin), models.RoleGuard, guardID, false},
		{"control covers control", Broadcast(ScopeControl), models.RoleControl, otherID, true},
		{"direct covers addressee", Direct(guardID), models.RoleGuard, guardID, true},
		{"direct excludes others", Direct(guardID), models.RoleGuard, otherID, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.target.Covers(tt.role, tt.unitID))
		})
	}
}
