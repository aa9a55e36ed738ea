package leaderboard

import (
	"math/rand"
	"sync"

	"scoreboard/core"
)

const (
	levels    = 12
	promotion = 4 // one in four nodes climbs a level
)

type node struct {
	entry   Entry
	forward []*node
}

// SkipList is a Board ordered by high score descending, then user id ascending.
type SkipList struct {
	mu     sync.RWMutex
	head   *node
	height int
	index  map[core.UserID]*node
}

func NewSkipList() *SkipList {
	return &SkipList{
		head:   &node{forward: make([]*node, levels)},
		height: 1,
		index:  make(map[core.UserID]*node),
	}
}

func ranksBefore(a, b Entry) bool {
	if a.HighScore != b.HighScore {
		return a.HighScore > b.HighScore
	}
	return a.User < b.User
}

func pickHeight() int {
	h := 1
	for h < levels && rand.Intn(promotion) == 0 {
		h++
	}
	return h
}

// trail collects, for each level, the rightmost node ranked before e.
func (s *SkipList) trail(e Entry) []*node {
	path := make([]*node, levels)
	x := s.head
	for lvl := s.height - 1; lvl >= 0; lvl-- {
		for next := x.forward[lvl]; next != nil && ranksBefore(next.entry, e); next = x.forward[lvl] {
			x = next
		}
		path[lvl] = x
	}
	for lvl := s.height; lvl < levels; lvl++ {
		path[lvl] = s.head
	}
	return path
}

// Set inserts a user or repositions it. A username change alone is applied in place.
func (s *SkipList) Set(e Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.index[e.User]; ok {
		if cur.entry.HighScore == e.HighScore {
			cur.entry.Username = e.Username
			return
		}
		s.unlink(cur)
	}
	path := s.trail(e)
	n := &node{entry: e, forward: make([]*node, pickHeight())}
	for lvl := range n.forward {
		n.forward[lvl] = path[lvl].forward[lvl]
		path[lvl].forward[lvl] = n
	}
	if len(n.forward) > s.height {
		s.height = len(n.forward)
	}
	s.index[e.User] = n
}

func (s *SkipList) unlink(n *node) {
	path := s.trail(n.entry)
	for lvl := 0; lvl < len(n.forward); lvl++ {
		if path[lvl].forward[lvl] == n {
			path[lvl].forward[lvl] = n.forward[lvl]
		}
	}
	delete(s.index, n.entry.User)
	for s.height > 1 && s.head.forward[s.height-1] == nil {
		s.height--
	}
}

// Top returns up to n entries, best first.
func (s *SkipList) Top(n int) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	out := make([]Entry, 0, min(n, len(s.index)))
	for x := s.head.forward[0]; x != nil && len(out) < n; x = x.forward[0] {
		out = append(out, x.entry)
	}
	return out
}

func (s *SkipList) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.index)
}

var _ Board = (*SkipList)(nil)
