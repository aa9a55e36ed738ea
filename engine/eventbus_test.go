package engine

import (
	"context"
	"testing"
	"time"

	"scoreboard/core"
)

func TestEventBusSync(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	bus.Subscribe(core.EventScoreSubmitted, func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewScoreSubmitted("u", 1, 1, 0))
	if count != 1 {
		t.Fatalf("want 1 got %d", count)
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	unsub := bus.Subscribe(core.EventScoreSubmitted, func(ctx context.Context, e core.Event) { count++ })
	unsub()
	bus.Publish(context.Background(), core.NewScoreSubmitted("u", 1, 1, 0))
	if count != 0 {
		t.Fatalf("want 0 got %d", count)
	}
}

func TestEventBusOrderAndPanicIsolation(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		bus.Subscribe(core.EventScoreSubmitted, func(ctx context.Context, e core.Event) {
			if i == 2 {
				panic("boom")
			}
			order = append(order, i)
		})
	}
	bus.Publish(context.Background(), core.NewScoreSubmitted("u", 1, 1, 0))
	want := []int{0, 1, 3, 4}
	if len(order) != len(want) {
		t.Fatalf("want %v got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("want %v got %v", want, order)
		}
	}
}

func TestEventBusAsync(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	defer bus.Close()
	ch := make(chan struct{})
	bus.Subscribe(core.EventPastScoreAppended, func(ctx context.Context, e core.Event) { close(ch) })
	bus.Publish(context.Background(), core.NewPastScoreAppended("u", 1, 1))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestEventBusAsyncDropsWhenFull(t *testing.T) {
	bus := NewEventBus(DispatchAsync, WithQueue(1, 1))
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	bus.Subscribe(core.EventScoreSubmitted, func(ctx context.Context, e core.Event) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})

	bus.Publish(context.Background(), core.NewScoreSubmitted("u", 1, 1, 0))
	<-started
	bus.Publish(context.Background(), core.NewScoreSubmitted("u", 2, 2, 1))
	bus.Publish(context.Background(), core.NewScoreSubmitted("u", 3, 3, 2))

	if got := bus.Dropped(); got != 1 {
		t.Fatalf("want 1 dropped got %d", got)
	}
	close(release)
	bus.Close()
}
