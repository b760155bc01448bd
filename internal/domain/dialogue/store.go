package dialogue

import (
	"sync"
)

// Store keeps each student's dialogue state in memory and hands out a per-student
// lock so events for the same student are handled one at a time, in arrival
// order. Events for different students do not contend beyond the map lock.
type Store struct {
	mu     sync.Mutex
	states map[int64]State
	locks  map[int64]*sync.Mutex
}

func NewStore() *Store {
	return &Store{
		states: make(map[int64]State),
		locks:  make(map[int64]*sync.Mutex),
	}
}

// Acquire blocks until no other event for the student is in flight, then
// returns the release function. Callers must release before returning.
func (s *Store) Acquire(studentID int64) (release func()) {
	s.mu.Lock()
	l, ok := s.locks[studentID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[studentID] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// Get returns the student's current state, Start when none is recorded.
func (s *Store) Get(studentID int64) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.states[studentID]; ok {
		return st
	}
	return Start{}
}

func (s *Store) Set(studentID int64, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[studentID] = st
}

// Reset drops the student back to Start.
func (s *Store) Reset(studentID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, studentID)
}
