// Package stream fans pipeline progress events out to live subscribers.
package stream

import (
	"context"
	"sync"
	"time"

	"bess-trader/internal/models"
)

// HubConfig holds configuration for the event hub.
type HubConfig struct {
	// BufferSize is the size of the internal event channel buffer.
	BufferSize int
	// SubscriberBufferSize is the size of each subscriber's channel buffer.
	SubscriberBufferSize int
}

// DefaultHubConfig returns the default hub configuration. A pipeline run
// emits around ten events, so the buffers stay small.
func DefaultHubConfig() HubConfig {
	return HubConfig{
		BufferSize:           256,
		SubscriberBufferSize: 32,
	}
}

// Hub distributes progress events to multiple consumers. It implements a
// fan-out pattern where events from the pipeline are routed to subscribers
// of the matching session via channels.
type Hub struct {
	config      HubConfig
	mu          sync.RWMutex
	subscribers map[string][]*Subscriber
	eventChan   chan models.ProgressEvent
	done        chan struct{}
	started     bool
	consumers   []Consumer
	consumersMu sync.RWMutex

	// Metrics
	eventsReceived  uint64
	eventsBroadcast uint64
	eventsDropped   uint64
	metricsMu       sync.RWMutex
}

// Subscriber represents a channel subscriber with metadata.
type Subscriber struct {
	Channel      chan models.ProgressEvent
	DroppedCount int
	CreatedAt    time.Time
}

// NewHub creates a new event hub with default configuration.
func NewHub() *Hub {
	return NewHubWithConfig(DefaultHubConfig())
}

// NewHubWithConfig creates a new event hub with custom configuration.
func NewHubWithConfig(config HubConfig) *Hub {
	return &Hub{
		config:      config,
		subscribers: make(map[string][]*Subscriber),
		eventChan:   make(chan models.ProgressEvent, config.BufferSize),
		done:        make(chan struct{}),
		consumers:   make([]Consumer, 0),
	}
}

// Start begins the hub's distribution loop. It starts a goroutine that
// listens for events and broadcasts them to subscribers.
func (h *Hub) Start(ctx context.Context) {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return
	}
	h.started = true
	h.mu.Unlock()

	go h.broadcastLoop(ctx)
}

// broadcastLoop is the main loop that distributes events to subscribers.
func (h *Hub) broadcastLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case ev := <-h.eventChan:
			h.metricsMu.Lock()
			h.eventsReceived++
			h.metricsMu.Unlock()

			h.broadcast(ev)
			h.notifyConsumers(ev)
		}
	}
}

// Stop stops the hub and closes all subscriber channels.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return
	}

	close(h.done)
	h.started = false

	for sessionID, subs := range h.subscribers {
		for _, sub := range subs {
			close(sub.Channel)
		}
		delete(h.subscribers, sessionID)
	}
}

// Subscribe adds a subscriber for a session and returns a channel that
// receives every event of that session.
func (h *Hub) Subscribe(sessionID string) <-chan models.ProgressEvent {
	ch := make(chan models.ProgressEvent, h.config.SubscriberBufferSize)
	sub := &Subscriber{
		Channel:   ch,
		CreatedAt: time.Now(),
	}

	h.mu.Lock()
	h.subscribers[sessionID] = append(h.subscribers[sessionID], sub)
	h.mu.Unlock()

	return ch
}

// Unsubscribe removes a subscriber channel for a session and closes it.
func (h *Hub) Unsubscribe(sessionID string, ch <-chan models.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subscribers[sessionID]
	for i, sub := range subs {
		if sub.Channel == ch {
			close(sub.Channel)
			h.subscribers[sessionID] = append(subs[:i], subs[i+1:]...)
			break
		}
	}

	if len(h.subscribers[sessionID]) == 0 {
		delete(h.subscribers, sessionID)
	}
}

// UnsubscribeAll removes all subscribers for a session.
func (h *Hub) UnsubscribeAll(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, sub := range h.subscribers[sessionID] {
		close(sub.Channel)
	}
	delete(h.subscribers, sessionID)
}

// Publish sends an event to the hub for distribution. This is
// non-blocking: if the internal buffer is full, the event is dropped.
func (h *Hub) Publish(ev models.ProgressEvent) {
	select {
	case h.eventChan <- ev:
	default:
		h.metricsMu.Lock()
		h.eventsDropped++
		h.metricsMu.Unlock()
	}
}

// broadcast sends an event to all subscribers of its session. Sends are
// non-blocking so a slow consumer cannot stall the others.
func (h *Hub) broadcast(ev models.ProgressEvent) {
	h.mu.RLock()
	subs := h.subscribers[ev.SessionID]
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.Channel <- ev:
			h.metricsMu.Lock()
			h.eventsBroadcast++
			h.metricsMu.Unlock()
		default:
			sub.DroppedCount++
			h.metricsMu.Lock()
			h.eventsDropped++
			h.metricsMu.Unlock()
		}
	}
}

// SubscriberCount returns the number of subscribers for a session.
func (h *Hub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[sessionID])
}

// TotalSubscriberCount returns the total number of subscribers across all
// sessions.
func (h *Hub) TotalSubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	count := 0
	for _, subs := range h.subscribers {
		count += len(subs)
	}
	return count
}

// Metrics returns hub counters.
func (h *Hub) Metrics() HubMetrics {
	h.metricsMu.RLock()
	defer h.metricsMu.RUnlock()

	return HubMetrics{
		EventsReceived:  h.eventsReceived,
		EventsBroadcast: h.eventsBroadcast,
		EventsDropped:   h.eventsDropped,
		Subscribers:     h.TotalSubscriberCount(),
	}
}

// HubMetrics contains hub performance counters.
type HubMetrics struct {
	EventsReceived  uint64 `json:"events_received"`
	EventsBroadcast uint64 `json:"events_broadcast"`
	EventsDropped   uint64 `json:"events_dropped"`
	Subscribers     int    `json:"subscribers"`
}

// IsStarted returns whether the hub is running.
func (h *Hub) IsStarted() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.started
}

// Consumer receives every event passing through the hub, regardless of
// session. Useful for cross-cutting observers like debug logging.
type Consumer interface {
	// OnEvent is called when a new event is broadcast.
	OnEvent(ev models.ProgressEvent)
}

// RegisterConsumer adds a consumer to receive all events.
func (h *Hub) RegisterConsumer(consumer Consumer) {
	h.consumersMu.Lock()
	h.consumers = append(h.consumers, consumer)
	h.consumersMu.Unlock()
}

// UnregisterConsumer removes a consumer.
func (h *Hub) UnregisterConsumer(consumer Consumer) {
	h.consumersMu.Lock()
	defer h.consumersMu.Unlock()

	for i, c := range h.consumers {
		if c == consumer {
			h.consumers = append(h.consumers[:i], h.consumers[i+1:]...)
			break
		}
	}
}

// notifyConsumers sends an event to all registered consumers. Each
// consumer is notified in its own goroutine so none can block the loop.
func (h *Hub) notifyConsumers(ev models.ProgressEvent) {
	h.consumersMu.RLock()
	consumers := make([]Consumer, len(h.consumers))
	copy(consumers, h.consumers)
	h.consumersMu.RUnlock()

	for _, consumer := range consumers {
		go consumer.OnEvent(ev)
	}
}

// ConsumerFunc is a function adapter for the Consumer interface.
type ConsumerFunc struct {
	fn func(models.ProgressEvent)
}

// NewConsumerFunc creates a new ConsumerFunc.
func NewConsumerFunc(fn func(models.ProgressEvent)) *ConsumerFunc {
	return &ConsumerFunc{fn: fn}
}

// OnEvent implements Consumer.
func (c *ConsumerFunc) OnEvent(ev models.ProgressEvent) {
	if c.fn != nil {
		c.fn(ev)
	}
}
