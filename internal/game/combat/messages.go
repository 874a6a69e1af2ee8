package combat

import "encoding/json"

// ActionType identifies an inbound client action.
type ActionType string

const (
	// ActionStart begins the encounter (gm only).
	ActionStart ActionType = "start"
	// ActionAdvanceRound completes the current round of turns (gm only).
	ActionAdvanceRound ActionType = "advance_round"
	// ActionEnd finishes the encounter (gm only).
	ActionEnd ActionType = "end"
	// ActionPawn is a move or ability use attributed to one pawn.
	ActionPawn ActionType = "pawn_action"
)

// Action is one inbound message from an admitted connection.
type Action struct {
	Type    ActionType      `json:"type"`
	Square  string          `json:"square,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Event names for outbound session messages.
const (
	EventState        = "session_state"
	EventPlayerJoined = "player_joined"
	EventPlayerLeft   = "player_left"
	EventRound        = "round"
	EventStarted      = "session_started"
	EventEnded        = "session_ended"
	EventError        = "error"
	EventPawnAction   = "pawn_action"
)

// Event is one outbound message delivered over a player link.
type Event struct {
	Event    string          `json:"event"`
	Session  string          `json:"session,omitempty"`
	PlayerID string          `json:"player_id,omitempty"`
	Round    int             `json:"round,omitempty"`
	Active   bool            `json:"active,omitempty"`
	Square   string          `json:"square,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Message  string          `json:"message,omitempty"`
}

// encode marshals an event for transport. Marshalling an Event cannot fail;
// a nil return only happens if the type is changed incompatibly.
func encode(ev Event) []byte {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil
	}
	return data
}
