// internal/room/room_store.go
package room

import (
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Store manages live rooms in memory only.
type Store struct {
	mu    sync.Mutex
	rooms map[uuid.UUID]*Room
}

// NewStore returns an in-memory store for Rooms.
func NewStore() *Store {
	return &Store{rooms: make(map[uuid.UUID]*Room)}
}

// AddRoom stores the room and wires it to remove itself once empty.
func (s *Store) AddRoom(r *Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.OnEmpty = func(id uuid.UUID) {
		s.DeleteRoom(id)
	}
	s.rooms[r.ID] = r
}

// DeleteRoom drops the room and cancels its pending timers.
func (s *Store) DeleteRoom(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.rooms[id]; ok {
		r.sched.CancelAll()
		delete(s.rooms, id)
	}
}

// GetRoom retrieves a room if it exists.
func (s *Store) GetRoom(id uuid.UUID) (*Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	return r, ok
}

// FindByCode matches a short join code against the live rooms. Codes
// are the last six hex digits of the room id, so collisions are
// possible; first match wins and duplicates are logged.
func (s *Store) FindByCode(code string) (*Room, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	s.mu.Lock()
	defer s.mu.Unlock()

	var found *Room
	matches := 0
	for _, r := range s.rooms {
		if r.Code == normalized {
			if found == nil {
				found = r
			}
			matches++
		}
	}
	if matches > 1 {
		log.Printf("room code %s matches %d rooms, returning first", normalized, matches)
	}
	return found, found != nil
}
