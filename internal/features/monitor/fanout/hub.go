package fanout

import (
	"log/slog"
	"sync"
	"time"

	"apimon/internal/features/monitor/models"
	"apimon/internal/metrics"
)

// SnapshotFunc builds the current full state for a new subscriber. It must
// not publish to the hub.
type SnapshotFunc func() models.Snapshot

// Hub broadcasts events to any number of subscribers. Each subscriber has a
// bounded queue; one that falls behind is dropped rather than blocking the
// publisher.
type Hub struct {
	mu       sync.Mutex
	subs     map[uint64]*Subscription
	nextID   uint64
	buffer   int
	snapshot SnapshotFunc
	logger   *slog.Logger
	closed   bool
}

// Subscription is one listener's handle
type Subscription struct {
	id     uint64
	hub    *Hub
	events chan models.Event
}

// NewHub creates a hub whose subscribers queue up to buffer events
func NewHub(buffer int, snapshot SnapshotFunc, logger *slog.Logger) *Hub {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub{
		subs:     make(map[uint64]*Subscription),
		buffer:   buffer,
		snapshot: snapshot,
		logger:   logger,
	}
}

// Subscribe registers a listener. The first event it receives is a snapshot
// of the current state; every event published after Subscribe returns
// follows it in order.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	sub := &Subscription{
		id:     h.nextID,
		hub:    h,
		events: make(chan models.Event, h.buffer+1),
	}
	if h.closed {
		close(sub.events)
		return sub
	}

	if h.snapshot != nil {
		sub.events <- models.Event{
			Type:      models.EventSnapshot,
			Payload:   h.snapshot(),
			Timestamp: time.Now(),
		}
	}
	h.subs[sub.id] = sub
	metrics.Subscribers.Set(float64(len(h.subs)))
	h.logger.Debug("Subscriber added", "subscriber_id", sub.id, "subscribers", len(h.subs))
	return sub
}

// Publish delivers the event to every subscriber without blocking
func (h *Hub) Publish(event models.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, sub := range h.subs {
		select {
		case sub.events <- event:
		default:
			delete(h.subs, id)
			close(sub.events)
			metrics.DroppedSubscribers.Inc()
			h.logger.Warn("Dropped slow subscriber", "subscriber_id", id)
		}
	}
	metrics.Subscribers.Set(float64(len(h.subs)))
}

// Unsubscribe removes a listener. It is safe to call more than once and on
// a subscription the hub already dropped.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.subs[sub.id]; !ok {
		return
	}
	delete(h.subs, sub.id)
	close(sub.events)
	metrics.Subscribers.Set(float64(len(h.subs)))
	h.logger.Debug("Subscriber removed", "subscriber_id", sub.id, "subscribers", len(h.subs))
}

// Len returns the number of live subscribers
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close drops every subscriber and rejects new ones
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for id, sub := range h.subs {
		delete(h.subs, id)
		close(sub.events)
	}
	metrics.Subscribers.Set(0)
}

// Events returns the subscriber's queue. It is closed when the subscriber is
// removed.
func (s *Subscription) Events() <-chan models.Event {
	return s.events
}

// Close unsubscribes
func (s *Subscription) Close() {
	s.hub.Unsubscribe(s)
}
