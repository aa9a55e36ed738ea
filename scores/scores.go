package scores

import (
	"context"
	"log/slog"

	"scoreboard/adapters/memory"
	"scoreboard/analytics"
	"scoreboard/core"
	"scoreboard/engine"
	"scoreboard/realtime"
)

// Option configures the score service builder.
type Option func(*config)

type config struct {
	storage engine.Storage
	mode    engine.DispatchMode
	hub     *realtime.Hub
	hooks   []analytics.Hook
	logger  *slog.Logger
}

// WithStorage sets the persistence adapter.
func WithStorage(s engine.Storage) Option { return func(c *config) { c.storage = s } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option { return func(c *config) { c.mode = m } }

// WithRealtime wires a realtime hub to receive all engine events.
func WithRealtime(h *realtime.Hub) Option { return func(c *config) { c.hub = h } }

// WithHooks registers event consumers such as analytics counters or webhook sinks.
func WithHooks(hooks ...analytics.Hook) Option {
	return func(c *config) { c.hooks = append(c.hooks, hooks...) }
}

// WithLogger sets the logger the event bus reports drops and handler panics to.
func WithLogger(l *slog.Logger) Option { return func(c *config) { c.logger = l } }

// eventTypes lists every event the service publishes.
var eventTypes = []core.EventType{
	core.EventScoreSubmitted,
	core.EventHighScoreBeaten,
	core.EventPastScoreAppended,
}

// New builds a configured ScoreService. If not provided, defaults are used:
//   - storage: in-memory
//   - dispatch: async
func New(opts ...Option) *engine.ScoreService {
	cfg := &config{mode: engine.DispatchAsync}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.storage == nil {
		cfg.storage = memory.New()
	}
	bus := engine.NewEventBus(cfg.mode, engine.WithBusLogger(cfg.logger))
	svc := engine.NewScoreService(cfg.storage, bus, engine.DefaultRuleEngine())

	var sinks []func(context.Context, core.Event)
	if cfg.hub != nil {
		sinks = append(sinks, cfg.hub.Broadcast)
	}
	if len(cfg.hooks) > 0 {
		sinks = append(sinks, analytics.Handler(analytics.Fanout(cfg.hooks...)))
	}
	for _, sink := range sinks {
		for _, typ := range eventTypes {
			bus.Subscribe(typ, sink)
		}
	}
	return svc
}
