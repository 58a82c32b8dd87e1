package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/NomadCrew/ap-workbench/logger"
	"github.com/NomadCrew/ap-workbench/types"
	"go.uber.org/zap"
)

// MemoryHub is the single-instance Publisher. Slow subscribers drop events
// rather than block the publisher.
type MemoryHub struct {
	mu         sync.RWMutex
	subs       map[string]map[string]*memorySub // sessionID -> subscriberID
	bufferSize int
	closed     bool
	log        *zap.SugaredLogger
	metrics    *metrics
}

type memorySub struct {
	ch      chan types.Event
	filters []types.EventType
}

// NewMemoryHub creates an in-process hub.
func NewMemoryHub(cfg ...Config) *MemoryHub {
	config := DefaultConfig()
	if len(cfg) > 0 {
		config = cfg[0]
	}
	return &MemoryHub{
		subs:       make(map[string]map[string]*memorySub),
		bufferSize: config.EventBufferSize,
		log:        logger.GetLogger().Named("events"),
		metrics:    newMetrics(),
	}
}

// Publish delivers event to every current subscriber of sessionID.
func (h *MemoryHub) Publish(ctx context.Context, sessionID string, event types.Event) error {
	if err := event.Validate(); err != nil {
		h.metrics.errorCount.WithLabelValues("publish", "validation").Inc()
		return fmt.Errorf("invalid event: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return fmt.Errorf("publisher is closed")
	}

	for subID, sub := range h.subs[sessionID] {
		if !matchesFilters(event, sub.filters) {
			continue
		}
		select {
		case sub.ch <- event:
			h.metrics.eventCount.WithLabelValues("receive", string(event.Type)).Inc()
		default:
			h.metrics.errorCount.WithLabelValues("process", "channel_full").Inc()
			h.log.Warnw("Dropped event due to full channel", "sessionID", sessionID, "subscriberID", subID, "eventType", event.Type)
		}
	}
	h.metrics.eventCount.WithLabelValues("publish", string(event.Type)).Inc()
	return nil
}

// Subscribe registers a subscriber. The channel is closed on Unsubscribe or Shutdown.
func (h *MemoryHub) Subscribe(ctx context.Context, sessionID, subscriberID string, filters ...types.EventType) (<-chan types.Event, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, fmt.Errorf("publisher is closed")
	}
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[string]*memorySub)
	}
	if _, exists := h.subs[sessionID][subscriberID]; exists {
		h.metrics.errorCount.WithLabelValues("subscribe", "duplicate").Inc()
		return nil, fmt.Errorf("subscription already exists for session %s and subscriber %s", sessionID, subscriberID)
	}

	sub := &memorySub{ch: make(chan types.Event, h.bufferSize), filters: filters}
	h.subs[sessionID][subscriberID] = sub
	h.metrics.activeSubscribers.Inc()
	return sub.ch, nil
}

// Unsubscribe removes a subscriber and closes its channel.
func (h *MemoryHub) Unsubscribe(ctx context.Context, sessionID, subscriberID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	sub, ok := h.subs[sessionID][subscriberID]
	if !ok {
		return fmt.Errorf("no subscription found for session %s and subscriber %s", sessionID, subscriberID)
	}
	close(sub.ch)
	delete(h.subs[sessionID], subscriberID)
	if len(h.subs[sessionID]) == 0 {
		delete(h.subs, sessionID)
	}
	h.metrics.activeSubscribers.Dec()
	return nil
}

// Shutdown closes every subscription.
func (h *MemoryHub) Shutdown(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, subs := range h.subs {
		for _, sub := range subs {
			close(sub.ch)
			h.metrics.activeSubscribers.Dec()
		}
	}
	h.subs = make(map[string]map[string]*memorySub)
	h.closed = true
	h.log.Info("Memory event hub shut down")
	return nil
}

// SubscriberCount reports the live subscribers of a session.
func (h *MemoryHub) SubscriberCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}
