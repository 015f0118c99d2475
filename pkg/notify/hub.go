package notify

import "sync"

// Table names used as notification topics.
const (
	TablePositions = "positions"
	TableMessages  = "messages"
)

// Hub delivers change signals for named tables to live subscribers.
// A signal carries no payload; subscribers are expected to re-query the
// store rather than trust anything about the change itself.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[chan struct{}]struct{}
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{
		topics: make(map[string]map[chan struct{}]struct{}),
	}
}

// Subscribe adds a subscriber for changes to the named table.
func (h *Hub) Subscribe(table string) chan struct{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan struct{}, 1)
	if h.topics[table] == nil {
		h.topics[table] = make(map[chan struct{}]struct{})
	}
	h.topics[table][ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *Hub) Unsubscribe(table string, ch chan struct{}) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[table]; ok {
		if _, ok := subs[ch]; ok {
			delete(subs, ch)
			close(ch)
		}
	}
}

// Notify signals every subscriber of the named table.
func (h *Hub) Notify(table string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch := range h.topics[table] {
		select {
		case ch <- struct{}{}:
		default:
			// Channel already has a pending notification, skip
		}
	}
}
