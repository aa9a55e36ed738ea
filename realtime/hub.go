package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"scoreboard/core"
)

// Subscription is one listener on the hub. C closes on Unsubscribe.
type Subscription struct {
	C <-chan core.Event

	id    uint64
	ch    chan core.Event
	types map[core.EventType]bool
}

func (s *Subscription) wants(t core.EventType) bool {
	return len(s.types) == 0 || s.types[t]
}

// Hub fans score events out to subscribers. Slow subscribers miss events
// rather than block the publisher.
type Hub struct {
	mu      sync.RWMutex
	subs    map[uint64]*Subscription
	seq     uint64
	dropped atomic.Uint64
}

func NewHub() *Hub { return &Hub{subs: make(map[uint64]*Subscription)} }

// Subscribe registers a listener. With no types every event is delivered.
func (h *Hub) Subscribe(buffer int, types ...core.EventType) *Subscription {
	ch := make(chan core.Event, buffer)
	sub := &Subscription{C: ch, ch: ch}
	if len(types) > 0 {
		sub.types = make(map[core.EventType]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}
	h.mu.Lock()
	h.seq++
	sub.id = h.seq
	h.subs[sub.id] = sub
	h.mu.Unlock()
	return sub
}

func (h *Hub) Unsubscribe(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[sub.id]; ok {
		delete(h.subs, sub.id)
		close(sub.ch)
	}
}

// Broadcast delivers ev to every interested subscriber. The read lock is held
// while sending so Unsubscribe cannot close a channel mid-send.
func (h *Hub) Broadcast(_ context.Context, ev core.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if !sub.wants(ev.Type) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Len reports the number of active subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped counts events skipped because a subscriber buffer was full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// Frame encodes an event as a WebSocket text frame payload.
func Frame(ev core.Event) ([]byte, error) { return json.Marshal(ev) }

var knownTypes = map[core.EventType]bool{
	core.EventScoreSubmitted:    true,
	core.EventHighScoreBeaten:   true,
	core.EventPastScoreAppended: true,
}

// ParseTypes reads a comma separated event type filter such as
// "score_submitted,high_score_beaten". An empty string means all types.
func ParseTypes(raw string) ([]core.EventType, error) {
	var out []core.EventType
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		t := core.EventType(part)
		if !knownTypes[t] {
			return nil, fmt.Errorf("unknown event type %q", part)
		}
		out = append(out, t)
	}
	return out, nil
}
