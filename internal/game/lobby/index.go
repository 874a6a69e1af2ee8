// Package lobby provides the lobby-facing view over combat sessions: the
// per-lobby index of live session ids and the aggregation used by lobby UI.
package lobby

import "sync"

// Index maintains, per lobby, the ordered list of live session ids.
// Entries are pruned eagerly when a session ends; the index never retains
// an id after the session left the registry.
// All methods are safe for concurrent use.
type Index struct {
	mu       sync.RWMutex
	byLobby  map[string][]string
	sessions map[string]string // session id -> lobby id
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{
		byLobby:  make(map[string][]string),
		sessions: make(map[string]string),
	}
}

// Add records sessionID under lobbyID, preserving creation order.
//
// Precondition: lobbyID and sessionID must be non-empty; sessionID not yet recorded.
func (i *Index) Add(lobbyID, sessionID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.byLobby[lobbyID] = append(i.byLobby[lobbyID], sessionID)
	i.sessions[sessionID] = lobbyID
}

// Remove prunes sessionID from its lobby's list. Removing an unknown id is a no-op.
func (i *Index) Remove(sessionID string) {
	i.mu.Lock()
	defer i.mu.Unlock()

	lobbyID, ok := i.sessions[sessionID]
	if !ok {
		return
	}
	delete(i.sessions, sessionID)

	ids := i.byLobby[lobbyID]
	for n, id := range ids {
		if id == sessionID {
			i.byLobby[lobbyID] = append(ids[:n], ids[n+1:]...)
			break
		}
	}
	if len(i.byLobby[lobbyID]) == 0 {
		delete(i.byLobby, lobbyID)
	}
}

// List returns a copy of the ordered session ids for lobbyID.
//
// Postcondition: Returns a slice the caller may keep (may be empty).
func (i *Index) List(lobbyID string) []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	ids := i.byLobby[lobbyID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
