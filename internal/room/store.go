// Package room holds live games by room code.
package room

import "sync"

// Repository maps room codes to live games of one type.
type Repository[G any] interface {
	Get(code string) (G, bool)
	Set(code string, g G)
	Delete(code string) bool
	Range(fn func(code string, g G) bool)
	Len() int
}

// Store is an in-memory Repository. The lock guards the map only; each game
// carries its own lock for state.
type Store[G any] struct {
	mu    sync.Mutex
	games map[string]G
}

func NewStore[G any]() *Store[G] {
	return &Store[G]{games: make(map[string]G)}
}

func (s *Store[G]) Get(code string) (G, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[code]
	return g, ok
}

func (s *Store[G]) Set(code string, g G) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[code] = g
}

// Delete removes a room and reports whether it existed.
func (s *Store[G]) Delete(code string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.games[code]
	delete(s.games, code)
	return ok
}

// Range calls fn on a snapshot of the rooms so fn may lock games or mutate
// the store. Returning false stops the walk.
func (s *Store[G]) Range(fn func(code string, g G) bool) {
	s.mu.Lock()
	codes := make([]string, 0, len(s.games))
	games := make([]G, 0, len(s.games))
	for c, g := range s.games {
		codes = append(codes, c)
		games = append(games, g)
	}
	s.mu.Unlock()

	for i := range codes {
		if !fn(codes[i], games[i]) {
			return
		}
	}
}

func (s *Store[G]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games)
}

// Exists adapts a repository for NewCode.
func Exists[G any](r Repository[G]) func(string) bool {
	return func(code string) bool {
		_, ok := r.Get(code)
		return ok
	}
}
