package battlefield

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// ErrDuplicateSquare is returned when two pawns in one preset claim the same square.
var ErrDuplicateSquare = errors.New("duplicate battlefield square")

// ErrInvalidInput is returned when a cook input selects neither or both modes.
var ErrInvalidInput = errors.New("invalid cook input")

// ErrUnknownSource is returned when a placement carries an unrecognised entity source.
var ErrUnknownSource = errors.New("unknown entity source")

// ErrEntityNotFound is returned when an embedded pawn references an entity
// definition absent from the entity store.
var ErrEntityNotFound = errors.New("entity definition not found")

// ErrPresetNotFound is returned when an importable preset id resolves to nothing.
var ErrPresetNotFound = errors.New("combat preset not found")

// EntityStore provides the entity definition lookups the cooker needs.
type EntityStore interface {
	GetEntity(ctx context.Context, name string) (*EntityDefinition, error)
}

// PresetStore provides the combat preset lookups the cooker needs.
type PresetStore interface {
	GetCombatPreset(ctx context.Context, id string) (*PresetDocument, error)
}

// Importable selects a preset already persisted under an identifier.
type Importable struct {
	PresetID string
}

// Requested selects a preset supplied inline by the client.
type Requested struct {
	Placements []Placement
}

// Input is the tagged cook input: exactly one of Importable or Requested
// must be set. Both modes produce the same Seed shape.
type Input struct {
	Importable *Importable
	Requested  *Requested
}

// Cooker turns raw presets into validated battlefield seeds.
// It is read-only against storage and safe for concurrent use.
type Cooker struct {
	entities EntityStore
	presets  PresetStore
	logger   *zap.Logger
}

// NewCooker creates a Cooker backed by the given stores.
//
// Precondition: entities, presets, and logger must be non-nil.
func NewCooker(entities EntityStore, presets PresetStore, logger *zap.Logger) *Cooker {
	return &Cooker{entities: entities, presets: presets, logger: logger}
}

// Cook validates and resolves the given input into a Seed.
//
// Precondition: exactly one of in.Importable / in.Requested must be set.
// Postcondition: Returns a fully resolved Seed, or an error and no partial
// state. Duplicate squares fail with ErrDuplicateSquare; unresolvable
// embedded entities fail with ErrEntityNotFound.
func (c *Cooker) Cook(ctx context.Context, in Input) (*Seed, error) {
	switch {
	case in.Importable != nil && in.Requested != nil:
		return nil, fmt.Errorf("%w: both importable and requested set", ErrInvalidInput)
	case in.Importable != nil:
		return c.cookImportable(ctx, in.Importable.PresetID)
	case in.Requested != nil:
		return c.cookRequested(ctx, in.Requested.Placements)
	default:
		return nil, fmt.Errorf("%w: neither importable nor requested set", ErrInvalidInput)
	}
}

// cookRequested validates the whole placement set up front, then resolves
// embedded entities. No storage lookup happens before validation passes.
func (c *Cooker) cookRequested(ctx context.Context, placements []Placement) (*Seed, error) {
	seen := make(map[Square]bool, len(placements))
	for _, p := range placements {
		if seen[p.Square] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSquare, p.Square)
		}
		seen[p.Square] = true
		if !ValidSource(p.Source) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownSource, p.Source)
		}
	}
	return c.resolve(ctx, placements)
}

// cookImportable reads the stored preset and cooks it. The duplicate-square
// check is folded into the resolution loop; a failure discards all partial
// state, so the caller never observes a half-built seed.
func (c *Cooker) cookImportable(ctx context.Context, presetID string) (*Seed, error) {
	doc, err := c.presets.GetCombatPreset(ctx, presetID)
	if err != nil {
		return nil, fmt.Errorf("loading preset %q: %w", presetID, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: %q", ErrPresetNotFound, presetID)
	}

	seed := &Seed{
		FieldPawns:     make(map[Square]Pawn, len(doc.Placements)),
		CustomEntities: make(map[string]EntityDefinition),
	}
	for _, p := range doc.Placements {
		if _, taken := seed.FieldPawns[p.Square]; taken {
			return nil, fmt.Errorf("%w: %q in preset %q", ErrDuplicateSquare, p.Square, presetID)
		}
		if !ValidSource(p.Source) {
			return nil, fmt.Errorf("%w: %q in preset %q", ErrUnknownSource, p.Source, presetID)
		}
		if err := c.place(ctx, seed, p); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("cooked importable preset",
		zap.String("preset_id", presetID),
		zap.Int("pawns", len(seed.FieldPawns)),
	)
	return seed, nil
}

// resolve builds a seed from pre-validated placements.
func (c *Cooker) resolve(ctx context.Context, placements []Placement) (*Seed, error) {
	seed := &Seed{
		FieldPawns:     make(map[Square]Pawn, len(placements)),
		CustomEntities: make(map[string]EntityDefinition),
	}
	for _, p := range placements {
		if err := c.place(ctx, seed, p); err != nil {
			return nil, err
		}
	}

	c.logger.Debug("cooked requested preset", zap.Int("pawns", len(seed.FieldPawns)))
	return seed, nil
}

// place adds one placement to the seed, resolving embedded entity
// definitions from the entity store.
func (c *Cooker) place(ctx context.Context, seed *Seed, p Placement) error {
	if p.Source == SourceEmbedded {
		if _, resolved := seed.CustomEntities[p.Path]; !resolved {
			def, err := c.entities.GetEntity(ctx, p.Path)
			if err != nil {
				return fmt.Errorf("resolving entity %q: %w", p.Path, err)
			}
			if def == nil {
				return fmt.Errorf("%w: %q", ErrEntityNotFound, p.Path)
			}
			seed.CustomEntities[p.Path] = *def
		}
	}
	seed.FieldPawns[p.Square] = Pawn{
		EntityPreset: EntityRef{Source: p.Source, Name: p.Path},
		Owner:        p.ControlledBy,
	}
	return nil
}
