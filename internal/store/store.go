package store

import (
	"sort"
	"sync"

	"github.com/aqdev-tech/Crypto-trading-bot/internal/model"
)

// Store owns all mutable in-memory bot state: the bounded signal history,
// the pending-watch registry and the proactive-alert subscriber set. All
// access goes through the mutex so concurrent pipeline runs, the monitor
// tick and user commands never race. Nothing survives a restart.
type Store struct {
	mu sync.Mutex

	maxHistory int
	history    []*model.Signal

	nextWatchID int64
	watches     map[int64]model.PendingWatch

	subscribers map[int64]struct{}
}

// New creates a Store retaining at most maxHistory signals.
func New(maxHistory int) *Store {
	if maxHistory <= 0 {
		maxHistory = 50
	}
	return &Store{
		maxHistory:  maxHistory,
		watches:     make(map[int64]model.PendingWatch),
		subscribers: make(map[int64]struct{}),
	}
}

// AppendHistory records a signal, evicting the oldest entries beyond the
// history bound.
func (s *Store) AppendHistory(sig *model.Signal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, sig)
	if len(s.history) > s.maxHistory {
		s.history = s.history[len(s.history)-s.maxHistory:]
	}
}

// RecentHistory returns up to n of the most recent signals, oldest first.
func (s *Store) RecentHistory(n int) []*model.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n > len(s.history) {
		n = len(s.history)
	}
	out := make([]*model.Signal, n)
	copy(out, s.history[len(s.history)-n:])
	return out
}

// AddWatch registers a pending watch and returns its unique id.
func (s *Store) AddWatch(w model.PendingWatch) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextWatchID++
	w.ID = s.nextWatchID
	s.watches[w.ID] = w
	return w.ID
}

// RemoveWatch deletes a watch. It reports whether the watch was still
// registered, so a triggered watch is processed exactly once even under
// concurrent ticks.
func (s *Store) RemoveWatch(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.watches[id]; !ok {
		return false
	}
	delete(s.watches, id)
	return true
}

// Watches returns a snapshot of the registry ordered by id.
func (s *Store) Watches() []model.PendingWatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PendingWatch, 0, len(s.watches))
	for _, w := range s.watches {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Subscribe records a chat for proactive alerts.
func (s *Store) Subscribe(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[chatID] = struct{}{}
}

// Subscribers returns all subscribed chat ids.
func (s *Store) Subscribers() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]int64, 0, len(s.subscribers))
	for id := range s.subscribers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
