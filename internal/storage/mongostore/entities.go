package mongostore

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ravenfell/gametable/internal/game/battlefield"
)

// entityDoc wraps an entity definition with its name as document id.
type entityDoc struct {
	ID         string                       `bson:"_id"`
	Definition battlefield.EntityDefinition `bson:"definition"`
}

// UpsertEntity stores an entity definition under its name, replacing any
// previous version.
//
// Precondition: def.Name must be non-empty.
func (s *Store) UpsertEntity(ctx context.Context, def battlefield.EntityDefinition) error {
	if def.Name == "" {
		return errors.New("entity name must not be empty")
	}

	ctx, cancel := s.opContext(ctx)
	defer cancel()

	_, err := s.db.Collection(entitiesCollection).ReplaceOne(ctx,
		bson.M{"_id": def.Name},
		entityDoc{ID: def.Name, Definition: def},
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upserting entity %q: %w", def.Name, err)
	}
	return nil
}

// GetEntity retrieves an entity definition by name.
//
// Postcondition: Returns (nil, nil) when no entity matches.
func (s *Store) GetEntity(ctx context.Context, name string) (*battlefield.EntityDefinition, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var doc entityDoc
	err := s.db.Collection(entitiesCollection).FindOne(ctx, bson.M{"_id": name}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying entity %q: %w", name, err)
	}
	return &doc.Definition, nil
}

// UpdateEntityField sets one sub-field of a stored entity definition, e.g.
// "max_hp" or "armor_class".
//
// Postcondition: Returns an error if the entity does not exist.
func (s *Store) UpdateEntityField(ctx context.Context, name, field string, value any) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	res, err := s.db.Collection(entitiesCollection).UpdateOne(ctx,
		bson.M{"_id": name},
		bson.M{"$set": bson.M{"definition." + field: value}},
	)
	if err != nil {
		return fmt.Errorf("updating entity %q field %q: %w", name, field, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("entity %q not found", name)
	}
	return nil
}
