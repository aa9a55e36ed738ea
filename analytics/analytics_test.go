package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"scoreboard/core"
)

func TestCounters_OnEvent(t *testing.T) {
	c := NewCounters()

	c.OnEvent(core.NewScoreSubmitted("alice", 42, 42, 0))
	c.OnEvent(core.NewHighScoreBeaten("alice", 42, 0))
	c.OnEvent(core.NewScoreSubmitted("bob", 5, 10, 10))
	c.OnEvent(core.NewPastScoreAppended("bob", 7, 2))

	s := c.Snapshot()
	assert.Equal(t, int64(2), s.Submissions)
	assert.Equal(t, int64(1), s.HighScoresBeaten)
	assert.Equal(t, int64(1), s.PastScoresAppended)
	assert.Equal(t, 2, s.ActiveToday)
}

func TestCounters_ActiveTodayIgnoresOtherDays(t *testing.T) {
	c := NewCounters()
	old := core.NewScoreSubmitted("carol", 1, 1, 0)
	old.Time = time.Now().Add(-72 * time.Hour)
	c.OnEvent(old)

	s := c.Snapshot()
	assert.Equal(t, int64(1), s.Submissions)
	assert.Equal(t, 0, s.ActiveToday)
}

func TestDAU_CountsDistinctUsers(t *testing.T) {
	d := NewDAU()
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, u := range []core.UserID{"a", "b", "a"} {
		ev := core.NewScoreSubmitted(u, 1, 1, 0)
		ev.Time = now
		d.OnEvent(ev)
	}
	assert.Equal(t, 2, d.Count("2024-03-01"))
	assert.Equal(t, 0, d.Count("2024-03-02"))
}

func TestDAU_PrunesPreviousDays(t *testing.T) {
	d := NewDAU()
	first := time.Date(2024, 3, 1, 23, 0, 0, 0, time.UTC)
	for i := 0; i < 30; i++ {
		ev := core.NewScoreSubmitted("a", 1, 1, 0)
		ev.Time = first.AddDate(0, 0, i)
		d.OnEvent(ev)
	}
	assert.Equal(t, 1, d.Days())
	assert.Equal(t, 0, d.Count("2024-03-01"))
	assert.Equal(t, 1, d.Count("2024-03-30"))

	late := core.NewScoreSubmitted("b", 1, 1, 0)
	late.Time = first
	d.OnEvent(late)
	assert.Equal(t, 1, d.Days())
	assert.Equal(t, 0, d.Count("2024-03-01"))
}

type recordingHook struct{ events []core.Event }

func (r *recordingHook) OnEvent(e core.Event) { r.events = append(r.events, e) }

func TestFanout_SkipsNilHooks(t *testing.T) {
	a, b := &recordingHook{}, &recordingHook{}
	var calls int
	hook := Fanout(a, nil, b, HookFunc(func(core.Event) { calls++ }))

	Handler(hook)(context.Background(), core.NewScoreSubmitted("x", 1, 1, 0))

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Equal(t, 1, calls)
}
