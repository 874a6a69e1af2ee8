package combat

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ravenfell/gametable/internal/game/battlefield"
)

// Status is the session lifecycle state.
type Status int

const (
	// StatusPending means the session is created but the encounter has not started.
	StatusPending Status = iota
	// StatusActive means the encounter is running.
	StatusActive
	// StatusFinished is terminal and triggers removal from the registry.
	StatusFinished
)

// String returns a human-readable status label.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusActive:
		return "active"
	case StatusFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// SessionEnded is emitted exactly once when a session reaches StatusFinished.
// The registry consumes it to drop the session from its index, then forwards
// it to downstream cleanup hooks (the lobby combat index).
type SessionEnded struct {
	ID string
}

// ErrNotGameMaster is returned when a lifecycle action comes from anyone but the gm.
var ErrNotGameMaster = fmt.Errorf("only the game master may perform this action")

// Session owns one encounter's runtime state. All methods are safe for
// concurrent use; sessions are mutually independent.
type Session struct {
	id         string
	nickname   string
	gmID       string
	seed       *battlefield.Seed
	roster     map[string]bool // participants allowed to attach: players + gm
	sendBuffer int
	logger     *zap.Logger

	mu         sync.RWMutex
	status     Status
	round      int
	links      map[string]*Link
	onEnded    func(SessionEnded)
	endedFired bool
}

// NewSession creates a Pending session with no attached connections.
//
// Precondition: id, gmID must be non-empty; seed and logger must be non-nil.
// onEnded may be nil (no removal notification).
// Postcondition: Returns a session with RoundCount() == 0 and IsActive() == false.
func NewSession(id, nickname string, seed *battlefield.Seed, gmID string, players []string, sendBuffer int, logger *zap.Logger, onEnded func(SessionEnded)) *Session {
	roster := make(map[string]bool, len(players)+1)
	for _, p := range players {
		roster[p] = true
	}
	roster[gmID] = true

	return &Session{
		id:         id,
		nickname:   nickname,
		gmID:       gmID,
		seed:       seed,
		roster:     roster,
		sendBuffer: sendBuffer,
		logger:     logger,
		links:      make(map[string]*Link),
		onEnded:    onEnded,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Nickname returns the display name given by the organizer.
func (s *Session) Nickname() string { return s.nickname }

// GMID returns the organizing game master's player id.
func (s *Session) GMID() string { return s.gmID }

// Seed returns the battlefield seed the session was created from.
func (s *Session) Seed() *battlefield.Seed { return s.seed }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// IsActive reports whether the encounter is running.
func (s *Session) IsActive() bool {
	return s.Status() == StatusActive
}

// RoundCount returns the number of completed rounds, starting at 0.
func (s *Session) RoundCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.round
}

// IsPlayerInCombat reports whether playerID currently has a live attached
// connection. A roster member who has not connected is not in combat.
func (s *Session) IsPlayerInCombat(playerID string) bool {
	s.mu.RLock()
	link, ok := s.links[playerID]
	s.mu.RUnlock()
	return ok && !link.IsClosed()
}

// ConnectedPlayers returns the sorted ids of players with live connections.
func (s *Session) ConnectedPlayers() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.links))
	for id, link := range s.links {
		if !link.IsClosed() {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// HandlePlayer attaches a live connection slot for playerID and returns the
// link the transport must drain. The caller has already authenticated and
// deduplicated; a lingering closed link from a previous connection is
// replaced, so reconnect is a supported flow.
//
// Precondition: playerID must be on the session roster.
// Postcondition: Returns the new Link, or an error if the session is
// finished, the player is unknown, or a live link is already attached.
func (s *Session) HandlePlayer(playerID string) (*Link, error) {
	s.mu.Lock()
	if s.status == StatusFinished {
		s.mu.Unlock()
		return nil, fmt.Errorf("session %s is finished", s.id)
	}
	if !s.roster[playerID] {
		s.mu.Unlock()
		return nil, fmt.Errorf("player %q is not a participant of session %s", playerID, s.id)
	}
	if old, ok := s.links[playerID]; ok && !old.IsClosed() {
		s.mu.Unlock()
		return nil, fmt.Errorf("player %q already connected to session %s", playerID, s.id)
	}

	link := NewLink(playerID, s.sendBuffer)
	s.links[playerID] = link
	snapshot := s.stateEventLocked()
	s.mu.Unlock()

	// Deliver the current state to the newcomer, then announce them.
	if err := link.Push(encode(snapshot)); err != nil {
		s.logger.Warn("pushing state snapshot", zap.String("player_id", playerID), zap.Error(err))
	}
	s.broadcast(Event{Event: EventPlayerJoined, Session: s.id, PlayerID: playerID})

	s.logger.Info("player attached",
		zap.String("session_id", s.id),
		zap.String("player_id", playerID),
	)
	return link, nil
}

// DetachPlayer releases the connection slot for playerID if link is still
// the attached one, so a future admission for the same player succeeds.
// Detaching never moves the session toward StatusFinished.
func (s *Session) DetachPlayer(playerID string, link *Link) {
	s.mu.Lock()
	current, ok := s.links[playerID]
	if !ok || current != link {
		// A reconnect already replaced this link; nothing to release.
		s.mu.Unlock()
		_ = link.Close()
		return
	}
	delete(s.links, playerID)
	s.mu.Unlock()

	_ = link.Close()
	s.broadcast(Event{Event: EventPlayerLeft, Session: s.id, PlayerID: playerID})

	s.logger.Info("player detached",
		zap.String("session_id", s.id),
		zap.String("player_id", playerID),
	)
}

// Start transitions Pending -> Active. Only the gm may start the encounter.
//
// Postcondition: IsActive() is true, or an error if actor is not the gm or
// the session is not Pending.
func (s *Session) Start(actorID string) error {
	s.mu.Lock()
	if actorID != s.gmID {
		s.mu.Unlock()
		return ErrNotGameMaster
	}
	if s.status != StatusPending {
		s.mu.Unlock()
		return fmt.Errorf("session %s is %s, cannot start", s.id, s.status)
	}
	s.status = StatusActive
	s.mu.Unlock()

	s.broadcast(Event{Event: EventStarted, Session: s.id, Active: true})
	s.logger.Info("session started", zap.String("session_id", s.id))
	return nil
}

// AdvanceRound records the completion of one round of turns. Only the gm
// may advance the round, and only while the session is Active.
//
// Postcondition: RoundCount() is incremented by 1.
func (s *Session) AdvanceRound(actorID string) error {
	s.mu.Lock()
	if actorID != s.gmID {
		s.mu.Unlock()
		return ErrNotGameMaster
	}
	if s.status != StatusActive {
		s.mu.Unlock()
		return fmt.Errorf("session %s is %s, cannot advance round", s.id, s.status)
	}
	s.round++
	round := s.round
	s.mu.Unlock()

	s.broadcast(Event{Event: EventRound, Session: s.id, Round: round, Active: true})
	s.logger.Debug("round advanced", zap.String("session_id", s.id), zap.Int("round", round))
	return nil
}

// End transitions the session to StatusFinished, closes all links, and
// emits SessionEnded exactly once. The gm may end a Pending session too
// (organizer cancel).
func (s *Session) End(actorID string) error {
	s.mu.Lock()
	if actorID != s.gmID {
		s.mu.Unlock()
		return ErrNotGameMaster
	}
	if s.status == StatusFinished {
		s.mu.Unlock()
		return fmt.Errorf("session %s already finished", s.id)
	}
	s.status = StatusFinished
	fire := !s.endedFired
	s.endedFired = true
	links := make([]*Link, 0, len(s.links))
	for _, l := range s.links {
		links = append(links, l)
	}
	s.links = make(map[string]*Link)
	s.mu.Unlock()

	// Best-effort farewell; closing the link ends the write pump.
	ended := encode(Event{Event: EventEnded, Session: s.id})
	for _, l := range links {
		_ = l.Push(ended)
		_ = l.Close()
	}

	s.logger.Info("session ended", zap.String("session_id", s.id))

	if fire && s.onEnded != nil {
		s.onEnded(SessionEnded{ID: s.id})
	}
	return nil
}

// HandleAction applies one inbound message from playerID's connection.
// Actions are applied in arrival order; a rejected action is reported back
// to the offending connection only and never halts the session.
//
// Postcondition: Returns the rejection error, if any, after reporting it to
// the sender.
func (s *Session) HandleAction(playerID string, data []byte) error {
	var act Action
	if err := json.Unmarshal(data, &act); err != nil {
		return s.reject(playerID, fmt.Errorf("malformed action: %w", err))
	}

	switch act.Type {
	case ActionStart:
		if err := s.Start(playerID); err != nil {
			return s.reject(playerID, err)
		}
	case ActionAdvanceRound:
		if err := s.AdvanceRound(playerID); err != nil {
			return s.reject(playerID, err)
		}
	case ActionEnd:
		if err := s.End(playerID); err != nil {
			return s.reject(playerID, err)
		}
	case ActionPawn:
		if err := s.pawnAction(playerID, act); err != nil {
			return s.reject(playerID, err)
		}
	default:
		return s.reject(playerID, fmt.Errorf("unknown action type %q", act.Type))
	}
	return nil
}

// pawnAction validates authorization for one pawn action and broadcasts it.
// Player-controlled pawns require the matching player; ai and game_logic
// pawns may only be driven by the gm.
func (s *Session) pawnAction(playerID string, act Action) error {
	s.mu.RLock()
	status := s.status
	pawn, ok := s.seed.FieldPawns[battlefield.Square(act.Square)]
	s.mu.RUnlock()

	if status != StatusActive {
		return fmt.Errorf("session %s is %s, actions not accepted", s.id, status)
	}
	if !ok {
		return fmt.Errorf("no pawn on square %q", act.Square)
	}

	authorized := pawn.Owner.AllowsPlayer(playerID)
	if !authorized && playerID == s.gmID && pawn.Owner.Kind != battlefield.ControlPlayer {
		authorized = true
	}
	if !authorized {
		return fmt.Errorf("player %q does not control the pawn on %q", playerID, act.Square)
	}

	s.broadcast(Event{
		Event:    EventPawnAction,
		Session:  s.id,
		PlayerID: playerID,
		Square:   act.Square,
		Payload:  act.Payload,
	})
	return nil
}

// reject reports err to playerID's connection and returns it.
func (s *Session) reject(playerID string, err error) error {
	s.mu.RLock()
	link, ok := s.links[playerID]
	s.mu.RUnlock()

	if ok {
		if pushErr := link.Push(encode(Event{Event: EventError, Session: s.id, Message: err.Error()})); pushErr != nil {
			s.logger.Warn("reporting rejection",
				zap.String("session_id", s.id),
				zap.String("player_id", playerID),
				zap.Error(pushErr),
			)
		}
	}
	return err
}

// broadcast pushes ev to every live link, skipping full or closed ones.
func (s *Session) broadcast(ev Event) {
	data := encode(ev)

	s.mu.RLock()
	links := make([]*Link, 0, len(s.links))
	for _, l := range s.links {
		links = append(links, l)
	}
	s.mu.RUnlock()

	for _, l := range links {
		if err := l.Push(data); err != nil {
			s.logger.Warn("broadcast push failed",
				zap.String("session_id", s.id),
				zap.String("player_id", l.PlayerID()),
				zap.Error(err),
			)
		}
	}
}

// stateEventLocked builds the state snapshot event. Caller holds s.mu.
func (s *Session) stateEventLocked() Event {
	payload, _ := json.Marshal(s.seed)
	return Event{
		Event:   EventState,
		Session: s.id,
		Round:   s.round,
		Active:  s.status == StatusActive,
		Payload: payload,
	}
}
