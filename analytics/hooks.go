package analytics

import (
	"sync"
	"time"

	"scoreboard/core"
)

// Hook receives domain events for KPI aggregation.
type Hook interface {
	OnEvent(e core.Event)
}

const dayLayout = "2006-01-02"

// DAU tracks daily active users for the most recent day it has seen.
// Days before that are pruned and events dated before it are ignored.
type DAU struct {
	mu     sync.Mutex
	latest string
	days   map[string]map[core.UserID]struct{}
}

func NewDAU() *DAU { return &DAU{days: map[string]map[core.UserID]struct{}{}} }

func (d *DAU) OnEvent(e core.Event) {
	day := e.Time.UTC().Format(dayLayout)
	d.mu.Lock()
	defer d.mu.Unlock()
	if day < d.latest {
		return
	}
	if day > d.latest {
		for old := range d.days {
			if old < day {
				delete(d.days, old)
			}
		}
		d.latest = day
	}
	m := d.days[day]
	if m == nil {
		m = map[core.UserID]struct{}{}
		d.days[day] = m
	}
	m[e.UserID] = struct{}{}
}

// Days reports how many days are retained.
func (d *DAU) Days() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.days)
}

func (d *DAU) Count(day string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.days[day])
}

// Stats is the body served by GET /stats.
type Stats struct {
	Submissions        int64 `json:"submissions"`
	HighScoresBeaten   int64 `json:"highScoresBeaten"`
	PastScoresAppended int64 `json:"pastScoresAppended"`
	ActiveToday        int   `json:"activeToday"`
}

// Counters aggregates score events in process. Counts reset with the process.
type Counters struct {
	mu       sync.RWMutex
	dau      *DAU
	now      func() time.Time
	submits  int64
	beaten   int64
	appended int64
}

// NewCounters returns empty counters that report active users against the wall clock.
func NewCounters() *Counters {
	return &Counters{dau: NewDAU(), now: time.Now}
}

func (c *Counters) OnEvent(e core.Event) {
	c.dau.OnEvent(e)
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Type {
	case core.EventScoreSubmitted:
		c.submits++
	case core.EventHighScoreBeaten:
		c.beaten++
	case core.EventPastScoreAppended:
		c.appended++
	}
}

// Snapshot returns the current totals.
func (c *Counters) Snapshot() Stats {
	c.mu.RLock()
	s := Stats{
		Submissions:        c.submits,
		HighScoresBeaten:   c.beaten,
		PastScoresAppended: c.appended,
	}
	c.mu.RUnlock()
	s.ActiveToday = c.dau.Count(c.now().UTC().Format(dayLayout))
	return s
}
