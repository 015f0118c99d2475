package comms

import (
	"sort"

	"github.com/google/uuid"

	"github.com/australsec/opswatch/pkg/models"
)

// Reserved thread keys. Any other key is a guard's unit id.
const (
	ThreadGeneral = "general"
	ThreadAdmin   = "admin"
)

// Thread is a derived conversation bucket on the control console: a
// grouping key, the messages that fall in it (newest first), and a
// computed unread count. Threads are recomputed from the full message
// list on every change; nothing here is stored.
type Thread struct {
	Key      string
	Name     string
	Messages []*models.Message
	Latest   *models.Message
	Unread   int
}

// PartitionThreads groups messages into conversation buckets for the
// control console. Classification is first-match-wins with this
// precedence:
//
//  1. general: target is guards or all
//  2. admin: target is admin, or the sender is admin
//  3. individual: the guard who sent it, or the guard it directly
//     addresses
//
// An admin-authored broadcast to guards therefore lands in general,
// not admin. Messages that match no rule (for example a direct message
// to a guard no longer on the roster) are dropped from the thread view.
//
// Threads are sorted by unread count descending, then latest message
// descending, then name ascending.
func PartitionThreads(msgs []*models.Message, guards []*models.Identity) []*Thread {
	threads := map[string]*Thread{
		ThreadGeneral: {Key: ThreadGeneral, Name: "General"},
		ThreadAdmin:   {Key: ThreadAdmin, Name: "Administration"},
	}
	order := []string{ThreadGeneral, ThreadAdmin}
	guardNames := make(map[uuid.UUID]string, len(guards))
	for _, g := range guards {
		guardNames[g.ID] = g.DisplayName
		key := g.ID.String()
		threads[key] = &Thread{Key: key, Name: g.DisplayName}
		order = append(order, key)
	}

	for _, m := range msgs {
		th := classify(m, guardNames)
		if th == "" {
			continue
		}
		t := threads[th]
		t.Messages = append(t.Messages, m)
		if t.Latest == nil || m.ID > t.Latest.ID {
			t.Latest = m
		}
		if !m.IsRead && m.SenderRole != models.RoleControl {
			t.Unread++
		}
	}

	out := make([]*Thread, 0, len(order))
	for _, key := range order {
		out = append(out, threads[key])
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Unread != b.Unread {
			return a.Unread > b.Unread
		}
		at, bt := latestID(a), latestID(b)
		if at != bt {
			return at > bt
		}
		return a.Name < b.Name
	})
	return out
}

func latestID(t *Thread) int64 {
	if t.Latest == nil {
		return 0
	}
	return t.Latest.ID
}

// classify returns the thread key for one message, or "" when the
// message belongs to no known bucket.
func classify(m *models.Message, guards map[uuid.UUID]string) string {
	target, err := ParseTarget(m.RecipientTarget)
	if err != nil {
		return ""
	}
	if target.IsBroadcast() && (target.Scope() == ScopeGuards || target.Scope() == ScopeAll) {
		return ThreadGeneral
	}
	if (target.IsBroadcast() && target.Scope() == ScopeAdmin) || m.SenderRole == models.RoleAdmin {
		return ThreadAdmin
	}
	if m.SenderID != nil {
		if _, ok := guards[*m.SenderID]; ok && m.SenderRole == models.RoleGuard {
			return m.SenderID.String()
		}
	}
	if !target.IsBroadcast() {
		if _, ok := guards[target.UnitID()]; ok {
			return target.UnitID().String()
		}
	}
	return ""
}

// FindThread recomputes the partition and returns the named thread, or
// nil when the key matches no bucket.
func FindThread(key string, msgs []*models.Message, guards []*models.Identity) *Thread {
	for _, t := range PartitionThreads(msgs, guards) {
		if t.Key == key {
			return t
		}
	}
	return nil
}

// OpenThread marks every unread message in the named thread as read,
// except those authored by control, and returns the thread. Opening
// the general thread never marks anything; broadcasts are acknowledged
// individually by their recipients.
func (c *Channel) OpenThread(key string, guards []*models.Identity) (*Thread, error) {
	msgs, err := c.All()
	if err != nil {
		return nil, err
	}
	th := FindThread(key, msgs, guards)
	if th == nil {
		return nil, nil
	}
	if key == ThreadGeneral {
		return th, nil
	}
	for _, m := range th.Messages {
		if m.IsRead || m.SenderRole == models.RoleControl {
			continue
		}
		if err := c.MarkRead(m.ID); err != nil {
			return nil, err
		}
		m.IsRead = true
	}
	th.Unread = 0
	return th, nil
}
