// Package registry creates, indexes, and retires combat sessions.
package registry

import (
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/ravenfell/gametable/internal/game/battlefield"
	"github.com/ravenfell/gametable/internal/game/combat"
)

// Registry owns the session index. It is an injectable component: embedding
// layers hold their own instance, never a package-level singleton.
// All methods are safe for concurrent use.
type Registry struct {
	logger     *zap.Logger
	sendBuffer int

	mu       sync.RWMutex
	nextID   uint64
	sessions map[string]*combat.Session
	hooks    []func(combat.SessionEnded)
}

// New creates an empty Registry. sendBuffer is the per-player outbound
// buffer used for sessions it constructs.
//
// Precondition: logger must be non-nil.
func New(logger *zap.Logger, sendBuffer int) *Registry {
	return &Registry{
		logger:     logger,
		sendBuffer: sendBuffer,
		sessions:   make(map[string]*combat.Session),
	}
}

// OnSessionEnded registers a cleanup hook invoked after a finished session
// has been dropped from the index. Hooks run in registration order.
//
// Precondition: hook must be non-nil. Register hooks before creating sessions.
func (r *Registry) OnSessionEnded(hook func(combat.SessionEnded)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hooks = append(r.hooks, hook)
}

// Create allocates the next session identifier and constructs a Pending
// session bound to the registry's removal handling. Construction is
// synchronous and performs no network or storage I/O.
//
// Precondition: seed must be non-nil; gmID must be non-empty.
// Postcondition: Get(id) resolves the returned session until it finishes.
func (r *Registry) Create(nickname string, seed *battlefield.Seed, gmID string, players []string) *combat.Session {
	r.mu.Lock()
	r.nextID++
	id := strconv.FormatUint(r.nextID, 10)

	sess := combat.NewSession(id, nickname, seed, gmID, players, r.sendBuffer, r.logger, r.handleEnded)
	r.sessions[id] = sess
	r.mu.Unlock()

	r.logger.Info("combat session created",
		zap.String("session_id", id),
		zap.String("gm_id", gmID),
		zap.Int("players", len(players)),
	)
	return sess
}

// Get returns the session for id. Pure lookup, no side effects.
//
// Postcondition: Returns (session, true) only for sessions whose removal has
// not begun; once a session finishes, its id is immediately unresolvable.
func (r *Registry) Get(id string) (*combat.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	return sess, ok
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// handleEnded consumes a session's terminal event: the index entry is
// deleted first, so concurrent lookups stop resolving the id before any
// downstream hook observes the removal.
func (r *Registry) handleEnded(ev combat.SessionEnded) {
	r.mu.Lock()
	delete(r.sessions, ev.ID)
	hooks := make([]func(combat.SessionEnded), len(r.hooks))
	copy(hooks, r.hooks)
	r.mu.Unlock()

	r.logger.Info("combat session removed", zap.String("session_id", ev.ID))

	for _, hook := range hooks {
		hook(ev)
	}
}
