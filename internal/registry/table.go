package registry

import "sync"

// roomTable is the only cross-room shared state: the map of active rooms by
// code. Codes are unique among active rooms; once a room is destroyed its
// code may be handed out again.
type roomTable struct {
	mu    sync.RWMutex
	rooms map[string]*room
}

// insert assigns the room a code no active room holds and makes it reachable.
func (t *roomTable) insert(rm *room, nextCode func() string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	code := nextCode()
	for {
		if _, taken := t.rooms[code]; !taken {
			break
		}
		code = nextCode()
	}

	rm.code = code
	t.rooms[code] = rm
}

func (t *roomTable) get(code string) (*room, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rm, ok := t.rooms[code]
	return rm, ok
}

// remove is called with rm.mu held; marking destroyed under that lock keeps
// callers that fetched the pointer before removal from mutating a dead room.
func (t *roomTable) remove(rm *room) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rm.destroyed = true
	delete(t.rooms, rm.code)
}
