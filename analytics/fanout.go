package analytics

import (
	"context"

	"scoreboard/core"
)

// HookFunc adapts a plain function to Hook.
type HookFunc func(core.Event)

func (f HookFunc) OnEvent(e core.Event) { f(e) }

type fanout []Hook

func (f fanout) OnEvent(e core.Event) {
	for _, h := range f {
		h.OnEvent(e)
	}
}

// Fanout combines hooks into one, skipping nils.
func Fanout(hooks ...Hook) Hook {
	out := make(fanout, 0, len(hooks))
	for _, h := range hooks {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// Handler turns a hook into an event bus subscriber.
func Handler(h Hook) func(context.Context, core.Event) {
	return func(_ context.Context, e core.Event) { h.OnEvent(e) }
}
