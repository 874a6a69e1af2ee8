package lobby

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ravenfell/gametable/internal/game/battlefield"
	"github.com/ravenfell/gametable/internal/game/combat"
	"github.com/ravenfell/gametable/internal/game/registry"
	"github.com/ravenfell/gametable/internal/observability"
	"github.com/ravenfell/gametable/internal/storage/mongostore"
)

// ErrLobbyNotFound is returned when the named lobby does not exist.
var ErrLobbyNotFound = errors.New("lobby not found")

// ErrNotOrganizer is returned when someone other than the lobby's gm
// requests a new combat.
var ErrNotOrganizer = errors.New("only the lobby organizer may create combats")

// Store defines the document lookups the lobby service needs.
type Store interface {
	GetLobby(ctx context.Context, id string) (*mongostore.Lobby, error)
	GetUser(ctx context.Context, id string) (*mongostore.User, error)
}

// CombatSummary is the lobby UI view of one live session.
type CombatSummary struct {
	SessionID string   `json:"session_id"`
	Nickname  string   `json:"nickname"`
	Active    bool     `json:"active"`
	Round     int      `json:"round"`
	Players   []string `json:"players"`
}

// Service is the lobby-facing layer over the combat registry: it creates
// encounters for a lobby, tracks them in the per-lobby index, and aggregates
// their state for display.
type Service struct {
	store    Store
	cooker   *battlefield.Cooker
	registry *registry.Registry
	index    *Index
	logger   *zap.Logger
}

// NewService creates a Service and subscribes its index to the registry's
// session-ended event, so the index is pruned the moment a session is
// dropped from the registry.
//
// Precondition: all arguments must be non-nil.
func NewService(store Store, cooker *battlefield.Cooker, reg *registry.Registry, logger *zap.Logger) *Service {
	s := &Service{
		store:    store,
		cooker:   cooker,
		registry: reg,
		index:    NewIndex(),
		logger:   logger,
	}
	reg.OnSessionEnded(func(ev combat.SessionEnded) {
		s.index.Remove(ev.ID)
	})
	return s
}

// CreateCombat cooks the preset input and spins up a new combat session for
// the lobby.
//
// Precondition: gmID must be the lobby's organizer.
// Postcondition: Returns the new session id; the id appears in
// ActiveCombats(lobbyID) until the session ends.
func (s *Service) CreateCombat(ctx context.Context, lobbyID, nickname string, input battlefield.Input, gmID string, playerIDs []string) (string, error) {
	lobby, err := s.store.GetLobby(ctx, lobbyID)
	if err != nil {
		return "", fmt.Errorf("loading lobby %q: %w", lobbyID, err)
	}
	if lobby == nil {
		return "", fmt.Errorf("%w: %q", ErrLobbyNotFound, lobbyID)
	}
	if lobby.GMID != gmID {
		return "", fmt.Errorf("%w: %q", ErrNotOrganizer, gmID)
	}

	seed, err := s.cooker.Cook(ctx, input)
	if err != nil {
		return "", fmt.Errorf("cooking preset: %w", err)
	}

	sess := s.registry.Create(nickname, seed, gmID, playerIDs)
	s.index.Add(lobbyID, sess.ID())

	s.logger.Info("combat created for lobby",
		zap.String("lobby_id", lobbyID),
		zap.String("session_id", sess.ID()),
		zap.String("nickname", nickname),
	)
	return sess.ID(), nil
}

// ActiveCombats returns the ordered session ids currently belonging to lobbyID.
func (s *Service) ActiveCombats(lobbyID string) []string {
	return s.index.List(lobbyID)
}

// Summaries aggregates the lobby UI view of every live session for lobbyID:
// nickname, active flag, round count, and the connected players' display
// names. A session or user vanishing mid-aggregation is omitted, never an
// error.
func (s *Service) Summaries(ctx context.Context, lobbyID string) []CombatSummary {
	ids := s.index.List(lobbyID)
	summaries := make([]CombatSummary, 0, len(ids))

	for _, id := range ids {
		sess, ok := s.registry.Get(id)
		if !ok {
			// Ended between enumeration and lookup.
			continue
		}

		summary := CombatSummary{
			SessionID: id,
			Nickname:  sess.Nickname(),
			Active:    sess.IsActive(),
			Players:   []string{},
		}
		if summary.Active {
			summary.Round = sess.RoundCount()
		}

		slog := observability.SessionLogger(s.logger, id)
		for _, playerID := range sess.ConnectedPlayers() {
			user, err := s.store.GetUser(ctx, playerID)
			if err != nil {
				slog.Warn("resolving connected player",
					zap.String("player_id", playerID),
					zap.Error(err),
				)
				continue
			}
			if user == nil {
				continue
			}
			name := user.Nickname
			if name == "" {
				name = user.Handle
			}
			summary.Players = append(summary.Players, name)
		}

		summaries = append(summaries, summary)
	}
	return summaries
}
