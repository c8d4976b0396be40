package session

import (
	"errors"
	"time"

	"finform/internal/cache"
)

// ErrExpired is returned when a lifecycle event targets a session that has
// expired or been evicted since its submission began.
var ErrExpired = errors.New("session expired")

// Store holds session states in a bounded LRU with a sliding TTL.
type Store struct {
	states *cache.LRUCache[State]
}

func NewStore(maxEntries int, ttl time.Duration) *Store {
	return &Store{states: cache.NewLRUCache[State](maxEntries, ttl)}
}

// Get returns the state of id, or the zero state for an unknown session.
func (s *Store) Get(id string) State {
	st, _ := s.states.Get(id)
	return st
}

// Dispatch applies ev to the session atomically and returns the new state.
// Only a submit may start a session; any other event for an unknown session
// fails with ErrExpired.
func (s *Store) Dispatch(id string, ev Event) (State, error) {
	return s.states.Update(id, func(cur State, found bool) (State, error) {
		if !found && ev.Kind != EventSubmit {
			return cur, ErrExpired
		}
		return Reduce(cur, ev)
	})
}

func (s *Store) Delete(id string) {
	s.states.Delete(id)
}

// CleanExpired drops expired sessions. It satisfies cache.Cleaner.
func (s *Store) CleanExpired() int {
	return s.states.CleanExpired()
}

func (s *Store) Size() int {
	return s.states.Size()
}
