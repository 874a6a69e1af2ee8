// Package gateway is the socket boundary of the game server: it admits raw
// client connections into combat sessions and pumps messages between the
// websocket and the session's link.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ravenfell/gametable/internal/auth"
	"github.com/ravenfell/gametable/internal/game/combat"
)

// ErrSessionNotFound is returned when the requested session id is not live.
var ErrSessionNotFound = errors.New("combat session not found")

// ErrAlreadyInCombat is returned when the authenticated player already holds
// a live connection to the session.
var ErrAlreadyInCombat = errors.New("player already connected to this combat")

// EventInvalidToken is the named signal written to a connection whose token
// failed verification, just before the connection is dropped.
const EventInvalidToken = "invalid_token"

// Socket is the raw client connection surface the admission path needs.
// *wsSocket adapts a websocket connection to it; tests supply fakes.
type Socket interface {
	WriteMessage(data []byte) error
	Close() error
}

// Verifier checks access tokens and extracts the authenticated identity.
type Verifier interface {
	VerifyAccessToken(token string) (auth.Claims, error)
}

// SessionIndex resolves live sessions by id.
type SessionIndex interface {
	Get(id string) (*combat.Session, bool)
}

// Admission is the single entry point deciding whether a connection may
// attach to a session. Checks run in a fixed order: session lookup, token
// verification, duplicate-connection check, attach. Every rejection closes
// the connection; a rejected connection is never attached.
type Admission struct {
	sessions SessionIndex
	verifier Verifier
	logger   *zap.Logger
}

// NewAdmission creates an Admission over the given session index and verifier.
//
// Precondition: all arguments must be non-nil.
func NewAdmission(sessions SessionIndex, verifier Verifier, logger *zap.Logger) *Admission {
	return &Admission{sessions: sessions, verifier: verifier, logger: logger}
}

// Admit runs the admission checks for sock against sessionID.
//
// Postcondition: On success, returns the session and the attached link; the
// caller owns pumping sock against the link. On failure, sock has been
// closed and the returned error names the rejection. An invalid token is
// additionally signalled to the client before the close.
func (a *Admission) Admit(sock Socket, sessionID, token string) (*combat.Session, *combat.Link, error) {
	sess, ok := a.sessions.Get(sessionID)
	if !ok {
		_ = sock.Close()
		return nil, nil, fmt.Errorf("%w: %q", ErrSessionNotFound, sessionID)
	}

	claims, err := a.verifier.VerifyAccessToken(token)
	if err != nil {
		signal, _ := json.Marshal(combat.Event{Event: EventInvalidToken, Session: sessionID})
		if writeErr := sock.WriteMessage(signal); writeErr != nil {
			a.logger.Debug("writing invalid-token signal", zap.Error(writeErr))
		}
		_ = sock.Close()
		return nil, nil, fmt.Errorf("admitting to session %s: %w", sessionID, err)
	}
	playerID := claims.SubjectID

	if sess.IsPlayerInCombat(playerID) {
		_ = sock.Close()
		return nil, nil, fmt.Errorf("%w: player %q, session %s", ErrAlreadyInCombat, playerID, sessionID)
	}

	// HandlePlayer re-checks the duplicate under the session lock, so two
	// racing admissions for the same player cannot both attach.
	link, err := sess.HandlePlayer(playerID)
	if err != nil {
		_ = sock.Close()
		return nil, nil, fmt.Errorf("attaching player %q to session %s: %w", playerID, sessionID, err)
	}

	a.logger.Info("connection admitted",
		zap.String("session_id", sessionID),
		zap.String("player_id", playerID),
	)
	return sess, link, nil
}
