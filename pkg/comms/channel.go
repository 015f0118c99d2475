package comms

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/australsec/opswatch/pkg/metrics"
	"github.com/australsec/opswatch/pkg/models"
	"github.com/australsec/opswatch/pkg/notify"
	"github.com/australsec/opswatch/pkg/store"
)

// Channel is the send/receive path for console messages. Writes go
// straight to the store and signal the change feed; reads are full
// re-fetches triggered by that feed, with a timed poll as the fallback.
type Channel struct {
	messages store.MessageStore
	hub      *notify.Hub
}

// NewChannel creates a message channel over the given store.
func NewChannel(messages store.MessageStore, hub *notify.Hub) *Channel {
	return &Channel{messages: messages, hub: hub}
}

// Draft is a message about to be sent. Title, Body, SenderRole and
// Priority are required; SenderID is required only for messages that
// expect an individual reply. Blank-body rejection is the composer's
// job, not enforced here.
type Draft struct {
	Title      string
	Body       string
	SenderRole string
	SenderID   *uuid.UUID
	Target     Target
	Priority   string
}

// Send inserts the draft as a new unread message. There is no dedup:
// sending the same draft twice produces two rows. Store errors are
// returned to the caller, which owns the user-facing handling.
func (c *Channel) Send(d Draft) (*models.Message, error) {
	if d.Priority == "" {
		d.Priority = models.PriorityNormal
	}
	msg := &models.Message{
		Title:           d.Title,
		Body:            d.Body,
		SenderRole:      d.SenderRole,
		SenderID:        d.SenderID,
		RecipientTarget: d.Target.String(),
		Priority:        d.Priority,
	}
	if err := c.messages.Insert(msg); err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}
	metrics.MessagesSent.Inc()
	c.hub.Notify(notify.TableMessages)
	return msg, nil
}

// MarkRead sets is_read on the named message. Idempotent: marking an
// already-read message succeeds and changes nothing.
func (c *Channel) MarkRead(id int64) error {
	if err := c.messages.MarkRead(id); err != nil {
		return fmt.Errorf("marking message %d read: %w", id, err)
	}
	c.hub.Notify(notify.TableMessages)
	return nil
}

// All retrieves every message, newest first, with no recipient
// narrowing. Each consumer filters the full feed for its own scope.
func (c *Channel) All() ([]*models.Message, error) {
	return c.messages.GetAllDesc(0)
}

// Subscription is one consumer's live view of the message feed.
type Subscription struct {
	// Messages delivers the full message list, newest first, replaced
	// wholesale after every change.
	Messages <-chan []*models.Message
	// Alerts delivers at most one message per insert notification:
	// the newest message, unless it is self-authored or already read.
	Alerts <-chan *models.Message
}

// Subscribe starts a live feed for one consumer. selfID suppresses
// alert signals for the consumer's own messages; pollInterval is the
// fallback cadence when change notifications are missed. The feed runs
// until ctx is cancelled.
func (c *Channel) Subscribe(ctx context.Context, selfID *uuid.UUID, pollInterval time.Duration) *Subscription {
	msgCh := make(chan []*models.Message, 1)
	alertCh := make(chan *models.Message, 8)

	go func() {
		defer close(msgCh)
		defer close(alertCh)

		notifyCh := c.hub.Subscribe(notify.TableMessages)
		defer c.hub.Unsubscribe(notify.TableMessages, notifyCh)

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		var lastAlertedID int64
		primed := false
		refresh := func() {
			msgs, err := c.messages.GetAllDesc(0)
			if err != nil {
				// Stale data is shown until the next tick succeeds.
				slog.Error("message feed refresh failed", "error", err)
				return
			}
			select {
			case msgCh <- msgs:
			case <-ctx.Done():
				return
			}
			if len(msgs) == 0 {
				primed = true
				return
			}
			newest := msgs[0]
			if !primed {
				// Messages that predate the subscription never alert.
				lastAlertedID = newest.ID
				primed = true
				return
			}
			if newest.ID <= lastAlertedID {
				return
			}
			lastAlertedID = newest.ID
			if newest.IsRead {
				return
			}
			if selfID != nil && newest.SentBy(*selfID) {
				return
			}
			select {
			case alertCh <- newest:
			default:
				// Alerting is advisory; drop when the consumer lags.
			}
		}

		refresh()
		for {
			select {
			case <-ctx.Done():
				return
			case <-notifyCh:
				refresh()
			case <-ticker.C:
				refresh()
			}
		}
	}()

	return &Subscription{Messages: msgCh, Alerts: alertCh}
}
