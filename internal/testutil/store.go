// Package testutil provides shared test doubles for the game server.
package testutil

import (
	"context"
	"sync"

	"github.com/ravenfell/gametable/internal/game/battlefield"
	"github.com/ravenfell/gametable/internal/storage/mongostore"
)

// MemoryStore is an in-memory document store used in place of the MongoDB
// store in tests. Lookups follow the store contract: (nil, nil) for absence.
// All methods are safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	lobbies  map[string]mongostore.Lobby
	users    map[string]mongostore.User
	entities map[string]battlefield.EntityDefinition
	presets  map[string]battlefield.PresetDocument
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lobbies:  make(map[string]mongostore.Lobby),
		users:    make(map[string]mongostore.User),
		entities: make(map[string]battlefield.EntityDefinition),
		presets:  make(map[string]battlefield.PresetDocument),
	}
}

// PutLobby stores a lobby document.
func (m *MemoryStore) PutLobby(lobby mongostore.Lobby) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lobbies[lobby.ID] = lobby
}

// PutUser stores a user document.
func (m *MemoryStore) PutUser(user mongostore.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
}

// PutEntity stores an entity definition.
func (m *MemoryStore) PutEntity(def battlefield.EntityDefinition) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entities[def.Name] = def
}

// PutPreset stores a combat preset document.
func (m *MemoryStore) PutPreset(doc battlefield.PresetDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.presets[doc.ID] = doc
}

// DeleteUser removes a user document, for vanishing-mid-aggregation tests.
func (m *MemoryStore) DeleteUser(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

// GetLobby implements the lobby store lookup.
func (m *MemoryStore) GetLobby(_ context.Context, id string) (*mongostore.Lobby, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lobby, ok := m.lobbies[id]
	if !ok {
		return nil, nil
	}
	return &lobby, nil
}

// GetUser implements the user store lookup.
func (m *MemoryStore) GetUser(_ context.Context, id string) (*mongostore.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// GetUserByHandle implements the handle-indexed user lookup.
func (m *MemoryStore) GetUserByHandle(_ context.Context, handle string) (*mongostore.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, user := range m.users {
		if user.Handle == handle {
			u := user
			return &u, nil
		}
	}
	return nil, nil
}

// GetEntity implements the entity definition lookup.
func (m *MemoryStore) GetEntity(_ context.Context, name string) (*battlefield.EntityDefinition, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	def, ok := m.entities[name]
	if !ok {
		return nil, nil
	}
	return &def, nil
}

// GetCombatPreset implements the combat preset lookup.
func (m *MemoryStore) GetCombatPreset(_ context.Context, id string) (*battlefield.PresetDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.presets[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}
