package missionserver

import "sync"

// RoomStore tracks allocated room codes. Rooms live for the process lifetime
// only; there is deliberately no persistence.
type RoomStore interface {
	Add(code string)
	Exists(code string) bool
}

type memoryRoomStore struct {
	mu    sync.RWMutex
	rooms map[string]struct{}
}

func newMemoryRoomStore() *memoryRoomStore {
	return &memoryRoomStore{rooms: make(map[string]struct{})}
}

func (s *memoryRoomStore) Add(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[code] = struct{}{}
}

func (s *memoryRoomStore) Exists(code string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[code]
	return ok
}
