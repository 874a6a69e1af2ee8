package mongostore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ravenfell/gametable/internal/game/battlefield"
)

// SaveCombatPreset stores a combat preset document, minting an id if the
// document carries none.
//
// Postcondition: Returns the stored preset's id.
func (s *Store) SaveCombatPreset(ctx context.Context, doc battlefield.PresetDocument) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.db.Collection(presetsCollection).ReplaceOne(ctx,
		bson.M{"_id": doc.ID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return "", fmt.Errorf("saving combat preset %q: %w", doc.ID, err)
	}
	return doc.ID, nil
}

// GetCombatPreset retrieves a combat preset by id.
//
// Postcondition: Returns (nil, nil) when no preset matches.
func (s *Store) GetCombatPreset(ctx context.Context, id string) (*battlefield.PresetDocument, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var doc battlefield.PresetDocument
	err := s.db.Collection(presetsCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying combat preset %q: %w", id, err)
	}
	return &doc, nil
}
