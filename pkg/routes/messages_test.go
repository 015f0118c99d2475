package routes

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/australsec/opswatch/pkg/comms"
	"github.com/australsec/opswatch/pkg/models"
)

func TestVisibleToGuard(t *testing.T) {
	guardID := uuid.New()
	otherGuard := uuid.New()
	guard := &models.Identity{ID: guardID, Role: models.RoleGuard}

	mk := func(id int64, senderID *uuid.UUID, target comms.Target) *models.Message {
		return &models.Message{ID: id, SenderID: senderID, RecipientTarget: target.String()}
	}

	msgs := []*models.Message{
		mk(1, nil, comms.Broadcast(comms.ScopeAll)),
		mk(2, nil, comms.Broadcast(comms.ScopeGuards)),
		mk(3, nil, comms.Broadcast(comms.ScopeAdmin)),
		mk(4, nil, comms.Direct(guardID)),
		mk(5, nil, comms.Direct(otherGuard)),
		mk(6, &guardID, comms.Broadcast(comms.ScopeControl)),
	}

	visible := visibleTo(msgs, guard)
	ids := make([]int64, 0, len(visible))
	for _, m := range visible {
		ids = append(ids, m.ID)
	}
	// Broadcasts covering guards, the direct message, and the guard's
	// own outbound message. Admin traffic and other guards' mail stay
	// hidden.
	assert.Equal(t, []int64{1, 2, 4, 6}, ids)
}

func TestVisibleToControlSeesEverything(t *testing.T) {
	control := &models.Identity{ID: uuid.New(), Role: models.RoleControl}
	msgs := []*models.Message{
		{ID: 1, RecipientTarget: "admin"},
		{ID: 2, RecipientTarget: uuid.New().String()},
	}
	assert.Len(t, visibleTo(msgs, control), 2)
}
