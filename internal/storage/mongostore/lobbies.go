package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Lobby represents a lobby document: the organizer and the player roster
// from which combat encounters are spun up.
type Lobby struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	GMID      string    `bson:"gm_id"`
	Players   []string  `bson:"players"`
	CreatedAt time.Time `bson:"created_at"`
}

// CreateLobby inserts a new lobby organized by gmID.
//
// Precondition: name and gmID must be non-empty.
func (s *Store) CreateLobby(ctx context.Context, name, gmID string) (*Lobby, error) {
	lobby := &Lobby{
		ID:        uuid.NewString(),
		Name:      name,
		GMID:      gmID,
		Players:   []string{},
		CreatedAt: time.Now().UTC(),
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	if _, err := s.db.Collection(lobbiesCollection).InsertOne(ctx, lobby); err != nil {
		return nil, fmt.Errorf("inserting lobby: %w", err)
	}
	return lobby, nil
}

// GetLobby retrieves a lobby by id.
//
// Postcondition: Returns (nil, nil) when no lobby matches.
func (s *Store) GetLobby(ctx context.Context, id string) (*Lobby, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var lobby Lobby
	err := s.db.Collection(lobbiesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&lobby)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying lobby %q: %w", id, err)
	}
	return &lobby, nil
}

// UpdateLobbyPlayers replaces the players list of one lobby document.
//
// Postcondition: Returns an error if the lobby does not exist.
func (s *Store) UpdateLobbyPlayers(ctx context.Context, id string, players []string) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.db.Collection(lobbiesCollection).UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"players": players}},
	)
	if err != nil {
		return fmt.Errorf("updating lobby %q players: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("lobby %q not found", id)
	}
	return nil
}
