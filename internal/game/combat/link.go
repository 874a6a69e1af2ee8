// Package combat implements the per-encounter session state machine:
// participant roster, round progression, and the live connection attached
// to each admitted player.
package combat

import (
	"fmt"
	"sync"
)

// Link routes outbound session messages to a Go channel, bridging the
// session to the transport layer. The transport's write pump drains
// Outbound; the session pushes into it without ever blocking.
type Link struct {
	playerID string
	outbound chan []byte
	mu       sync.Mutex
	closed   bool
}

// NewLink creates a Link for the given player.
//
// Precondition: playerID must be non-empty.
// Postcondition: Returns a Link with an open outbound channel.
func NewLink(playerID string, bufferSize int) *Link {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Link{
		playerID: playerID,
		outbound: make(chan []byte, bufferSize),
	}
}

// PlayerID returns the player this link belongs to.
func (l *Link) PlayerID() string {
	return l.playerID
}

// Push enqueues data for delivery to the player.
//
// Postcondition: Data is enqueued, or an error if the link is closed or full.
func (l *Link) Push(data []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return fmt.Errorf("link for player %s is closed", l.playerID)
	}
	select {
	case l.outbound <- data:
		return nil
	default:
		return fmt.Errorf("link for player %s buffer full", l.playerID)
	}
}

// Outbound returns the read-only outbound channel. The transport write pump
// reads from it until it is closed.
func (l *Link) Outbound() <-chan []byte {
	return l.outbound
}

// Close marks the link as closed and closes the outbound channel.
// Close is idempotent.
//
// Postcondition: Further Push calls return an error.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.closed {
		l.closed = true
		close(l.outbound)
	}
	return nil
}

// IsClosed reports whether the link has been closed.
func (l *Link) IsClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}
