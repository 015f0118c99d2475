package comms

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/australsec/opswatch/pkg/models"
	"github.com/australsec/opswatch/pkg/notify"
)

// memoryMessageStore is an in-memory MessageStore for channel tests.
type memoryMessageStore struct {
	mu     sync.Mutex
	nextID int64
	msgs   []*models.Message
}

func newMemoryMessageStore() *memoryMessageStore {
	return &memoryMessageStore{nextID: 1}
}

func (s *memoryMessageStore) Insert(msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msg.ID = s.nextID
	s.nextID++
	msg.CreatedAt = time.Now()
	stored := *msg
	s.msgs = append(s.msgs, &stored)
	return nil
}

func (s *memoryMessageStore) GetAllDesc(limit int) ([]*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Message, 0, len(s.msgs))
	for i := len(s.msgs) - 1; i >= 0; i-- {
		m := *s.msgs[i]
		out = append(out, &m)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *memoryMessageStore) GetByID(id int64) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.msgs {
		if m.ID == id {
			cp := *m
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memoryMessageStore) MarkRead(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.msgs {
		if m.ID == id {
			m.IsRead = true
		}
	}
	return nil
}

func TestSendDefaultsAndStores(t *testing.T) {
	mem := newMemoryMessageStore()
	ch := NewChannel(mem, notify.NewHub())

	senderID := uuid.New()
	msg, err := ch.Send(Draft{
		Title:      "Radio check",
		Body:       "All posts report in",
		SenderRole: models.RoleControl,
		SenderID:   &senderID,
		Target:     Broadcast(ScopeGuards),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), msg.ID)
	assert.Equal(t, models.PriorityNormal, msg.Priority)
	assert.Equal(t, "guards", msg.RecipientTarget)
	assert.False(t, msg.IsRead)

	all, err := ch.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestSendNoDedup(t *testing.T) {
	mem := newMemoryMessageStore()
	ch := NewChannel(mem, notify.NewHub())

	draft := Draft{Title: "t", Body: "b", SenderRole: models.RoleControl, Target: Broadcast(ScopeAll)}
	_, err := ch.Send(draft)
	require.NoError(t, err)
	_, err = ch.Send(draft)
	require.NoError(t, err)

	all, err := ch.All()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMarkReadIdempotent(t *testing.T) {
	mem := newMemoryMessageStore()
	ch := NewChannel(mem, notify.NewHub())

	msg, err := ch.Send(Draft{Title: "t", Body: "b", SenderRole: models.RoleGuard, Target: Broadcast(ScopeControl)})
	require.NoError(t, err)

	require.NoError(t, ch.MarkRead(msg.ID))
	require.NoError(t, ch.MarkRead(msg.ID))

	got, err := mem.GetByID(msg.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
}

func waitForMessages(t *testing.T, sub *Subscription, want int) []*models.Message {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msgs := <-sub.Messages:
			if len(msgs) == want {
				return msgs
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %d messages", want)
		}
	}
}

func TestSubscribeDeliversNewMessages(t *testing.T) {
	mem := newMemoryMessageStore()
	hub := notify.NewHub()
	ch := NewChannel(mem, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := ch.Subscribe(ctx, nil, 50*time.Millisecond)
	waitForMessages(t, sub, 0)

	_, err := ch.Send(Draft{Title: "t", Body: "b", SenderRole: models.RoleControl, Target: Broadcast(ScopeAll)})
	require.NoError(t, err)

	msgs := waitForMessages(t, sub, 1)
	assert.Equal(t, "t", msgs[0].Title)

	select {
	case alert := <-sub.Alerts:
		assert.Equal(t, msgs[0].ID, alert.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an alert signal")
	}
}

func TestSubscribeNeverAlertsForPreexisting(t *testing.T) {
	mem := newMemoryMessageStore()
	hub := notify.NewHub()
	ch := NewChannel(mem, hub)

	_, err := ch.Send(Draft{Title: "old", Body: "b", SenderRole: models.RoleControl, Target: Broadcast(ScopeAll)})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := ch.Subscribe(ctx, nil, 50*time.Millisecond)
	waitForMessages(t, sub, 1)

	select {
	case alert := <-sub.Alerts:
		t.Fatalf("unexpected alert for preexisting message %d", alert.ID)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSubscribeSuppressesSelfAuthored(t *testing.T) {
	mem := newMemoryMessageStore()
	hub := notify.NewHub()
	ch := NewChannel(mem, hub)

	selfID := uuid.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sub := ch.Subscribe(ctx, &selfID, 50*time.Millisecond)
	waitForMessages(t, sub, 0)

	_, err := ch.Send(Draft{Title: "mine", Body: "b", SenderRole: models.RoleGuard, SenderID: &selfID, Target: Broadcast(ScopeControl)})
	require.NoError(t, err)
	waitForMessages(t, sub, 1)

	select {
	case alert := <-sub.Alerts:
		t.Fatalf("unexpected alert for own message %d", alert.ID)
	case <-time.After(200 * time.Millisecond):
	}

	// A message from someone else still alerts.
	otherID := uuid.New()
	_, err = ch.Send(Draft{Title: "theirs", Body: "b", SenderRole: models.RoleControl, SenderID: &otherID, Target: Broadcast(ScopeAll), Priority: models.PriorityHigh})
	require.NoError(t, err)
	waitForMessages(t, sub, 2)

	select {
	case alert := <-sub.Alerts:
		assert.Equal(t, "theirs", alert.Title)
		assert.Equal(t, models.PriorityHigh, alert.Priority)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an alert for the other sender's message")
	}
}
