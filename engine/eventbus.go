package engine

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"scoreboard/core"
)

type DispatchMode int

const (
	DispatchSync DispatchMode = iota
	DispatchAsync
)

type subscription struct {
	id int64
	fn func(context.Context, core.Event)
}

// EventBus provides thread-safe pub/sub with sync and async dispatch.
// Handlers for one event run in subscription order.
type EventBus struct {
	mode    DispatchMode
	mu      sync.RWMutex
	subs    map[core.EventType]map[int64]subscription
	nextID  int64
	queue   chan core.Event
	workers int
	logger  *slog.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	dropped atomic.Int64
}

// BusOption configures an EventBus.
type BusOption func(*EventBus)

// WithBusLogger sets the logger used for dropped events and handler panics.
func WithBusLogger(l *slog.Logger) BusOption {
	return func(e *EventBus) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithQueue sizes the async queue and worker pool.
func WithQueue(size, workers int) BusOption {
	return func(e *EventBus) {
		if size > 0 {
			e.queue = make(chan core.Event, size)
		}
		if workers > 0 {
			e.workers = workers
		}
	}
}

const closeGrace = 100 * time.Millisecond

func NewEventBus(mode DispatchMode, opts ...BusOption) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())
	eb := &EventBus{
		mode:    mode,
		subs:    make(map[core.EventType]map[int64]subscription),
		queue:   make(chan core.Event, 2048),
		workers: 4,
		logger:  slog.Default(),
		ctx:     ctx,
		cancel:  cancel,
	}
	for _, o := range opts {
		o(eb)
	}
	if mode == DispatchAsync {
		eb.startWorkers()
	}
	return eb
}

func (e *EventBus) startWorkers() {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			for {
				select {
				case ev := <-e.queue:
					e.dispatch(context.Background(), ev)
				case <-e.ctx.Done():
					return
				}
			}
		}()
	}
}

// Close stops async workers after they drain queued events or the grace
// period expires. Handlers already running are waited for.
func (e *EventBus) Close() {
	if e.mode == DispatchAsync {
		deadline := time.Now().Add(closeGrace)
		for len(e.queue) > 0 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
	}
	e.cancel()
	e.wg.Wait()
}

// Dropped returns how many async events were discarded because the queue was full.
func (e *EventBus) Dropped() int64 { return e.dropped.Load() }

// Subscribe registers a handler for an event type. Returns unsubscribe func.
func (e *EventBus) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	if e.subs[typ] == nil {
		e.subs[typ] = make(map[int64]subscription)
	}
	e.subs[typ][id] = subscription{id: id, fn: handler}
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subs[typ], id)
	}
}

// Publish sends an event to subscribers. In async mode a full queue drops the
// event instead of blocking the caller.
func (e *EventBus) Publish(ctx context.Context, ev core.Event) {
	if e.mode == DispatchAsync {
		select {
		case e.queue <- ev:
		default:
			if n := e.dropped.Add(1); n == 1 || n%1000 == 0 {
				e.logger.Warn("event queue full, dropping events", "type", ev.Type, "dropped_total", n)
			}
		}
		return
	}
	e.dispatch(ctx, ev)
}

func (e *EventBus) dispatch(ctx context.Context, ev core.Event) {
	e.mu.RLock()
	subs := make([]subscription, 0, len(e.subs[ev.Type]))
	for _, s := range e.subs[ev.Type] {
		subs = append(subs, s)
	}
	e.mu.RUnlock()
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	for _, s := range subs {
		e.invoke(ctx, s, ev)
	}
}

// invoke isolates handler panics so one faulty subscriber cannot stop a worker.
func (e *EventBus) invoke(ctx context.Context, s subscription, ev core.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("event handler panicked", "type", ev.Type, "subscription", s.id, "panic", r)
		}
	}()
	s.fn(ctx, ev)
}
