package realtime

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreboard/core"
)

func TestHubSubscribeBroadcastUnsubscribe(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe(1)
	require.Equal(t, 1, h.Len())

	h.Broadcast(context.Background(), core.NewScoreSubmitted("bob", 10, 10, 0))
	received := <-sub.C
	assert.Equal(t, core.UserID("bob"), received.UserID)
	assert.Equal(t, core.EventScoreSubmitted, received.Type)

	h.Unsubscribe(sub)
	_, ok := <-sub.C
	assert.False(t, ok, "channel should close after unsubscribe")
	assert.Equal(t, 0, h.Len())

	h.Unsubscribe(sub)
}

func TestHubDropsWhenFull(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe(1)
	h.Broadcast(context.Background(), core.NewScoreSubmitted("a", 1, 1, 0))
	h.Broadcast(context.Background(), core.NewScoreSubmitted("b", 2, 2, 0))

	got := <-sub.C
	assert.Equal(t, core.UserID("a"), got.UserID)
	select {
	case ev := <-sub.C:
		t.Fatalf("expected dropped event, got %+v", ev)
	default:
	}
	assert.Equal(t, uint64(1), h.Dropped())
}

func TestHubTypeFilter(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe(4, core.EventHighScoreBeaten)
	h.Broadcast(context.Background(), core.NewScoreSubmitted("a", 5, 5, 0))
	h.Broadcast(context.Background(), core.NewHighScoreBeaten("a", 5, 0))
	h.Broadcast(context.Background(), core.NewPastScoreAppended("a", 3, 2))

	require.Len(t, sub.C, 1)
	assert.Equal(t, core.EventHighScoreBeaten, (<-sub.C).Type)
	assert.Zero(t, h.Dropped())
}

func TestParseTypes(t *testing.T) {
	types, err := ParseTypes("")
	require.NoError(t, err)
	assert.Empty(t, types)

	types, err = ParseTypes(" score_submitted , past_score_appended")
	require.NoError(t, err)
	assert.Equal(t, []core.EventType{core.EventScoreSubmitted, core.EventPastScoreAppended}, types)

	_, err = ParseTypes("score_submitted,badge_awarded")
	assert.ErrorContains(t, err, "badge_awarded")
}

func TestFrame(t *testing.T) {
	b, err := Frame(core.NewHighScoreBeaten("alice", 42, 10))
	require.NoError(t, err)
	var out core.Event
	require.NoError(t, json.Unmarshal(b, &out))
	assert.Equal(t, 42.0, out.Score)
	assert.Equal(t, 10.0, out.Previous)
}
