package battlefield

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

type fakeEntityStore struct {
	entities map[string]EntityDefinition
	calls    int
}

func (f *fakeEntityStore) GetEntity(_ context.Context, name string) (*EntityDefinition, error) {
	f.calls++
	def, ok := f.entities[name]
	if !ok {
		return nil, nil
	}
	return &def, nil
}

type fakePresetStore struct {
	presets map[string]PresetDocument
}

func (f *fakePresetStore) GetCombatPreset(_ context.Context, id string) (*PresetDocument, error) {
	doc, ok := f.presets[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func newTestCooker(entities map[string]EntityDefinition, presets map[string]PresetDocument) (*Cooker, *fakeEntityStore) {
	es := &fakeEntityStore{entities: entities}
	ps := &fakePresetStore{presets: presets}
	return NewCooker(es, ps, zap.NewNop()), es
}

func TestCookRequestedResolvesEmbeddedEntity(t *testing.T) {
	goblin := EntityDefinition{Name: "goblin", MaxHP: 7, ArmorClass: 15, Speed: 30}
	cooker, _ := newTestCooker(map[string]EntityDefinition{"goblin": goblin}, nil)

	seed, err := cooker.Cook(context.Background(), Input{Requested: &Requested{
		Placements: []Placement{{
			Square:       "A1",
			Path:         "goblin",
			Source:       SourceEmbedded,
			ControlledBy: Control{Kind: ControlAI, ID: "g1"},
		}},
	}})
	require.NoError(t, err)

	pawn, ok := seed.FieldPawns["A1"]
	require.True(t, ok)
	assert.Equal(t, EntityRef{Source: SourceEmbedded, Name: "goblin"}, pawn.EntityPreset)
	assert.Equal(t, Control{Kind: ControlAI, ID: "g1"}, pawn.Owner)
	assert.Equal(t, goblin, seed.CustomEntities["goblin"])
}

func TestCookRequestedDuplicateSquare(t *testing.T) {
	cooker, es := newTestCooker(map[string]EntityDefinition{"goblin": {Name: "goblin"}}, nil)

	seed, err := cooker.Cook(context.Background(), Input{Requested: &Requested{
		Placements: []Placement{
			{Square: "B2", Path: "goblin", Source: SourceEmbedded},
			{Square: "B2", Path: "goblin", Source: SourceEmbedded},
		},
	}})
	assert.ErrorIs(t, err, ErrDuplicateSquare)
	assert.Nil(t, seed)
	// Validation precedes any storage lookup on the requested path.
	assert.Equal(t, 0, es.calls)
}

func TestCookRequestedMissingEntity(t *testing.T) {
	cooker, _ := newTestCooker(nil, nil)

	seed, err := cooker.Cook(context.Background(), Input{Requested: &Requested{
		Placements: []Placement{{Square: "A1", Path: "ghost", Source: SourceEmbedded}},
	}})
	assert.ErrorIs(t, err, ErrEntityNotFound)
	assert.Nil(t, seed)
}

func TestCookRequestedDLCSkipsResolution(t *testing.T) {
	cooker, es := newTestCooker(nil, nil)

	seed, err := cooker.Cook(context.Background(), Input{Requested: &Requested{
		Placements: []Placement{{
			Square:       "C3",
			Path:         "dragons/red_wyrmling",
			Source:       SourceDLC,
			ControlledBy: Control{Kind: ControlGameLogic},
		}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 0, es.calls)
	assert.Empty(t, seed.CustomEntities)
	assert.Equal(t, "dragons/red_wyrmling", seed.FieldPawns["C3"].EntityPreset.Name)
}

func TestCookRequestedUnknownSource(t *testing.T) {
	cooker, _ := newTestCooker(nil, nil)

	_, err := cooker.Cook(context.Background(), Input{Requested: &Requested{
		Placements: []Placement{{Square: "A1", Path: "goblin", Source: "homebrew"}},
	}})
	assert.ErrorIs(t, err, ErrUnknownSource)
	assert.Contains(t, err.Error(), "homebrew")
}

func TestCookImportable(t *testing.T) {
	goblin := EntityDefinition{Name: "goblin", MaxHP: 7}
	cooker, _ := newTestCooker(
		map[string]EntityDefinition{"goblin": goblin},
		map[string]PresetDocument{"ambush": {
			ID:   "ambush",
			Name: "Goblin Ambush",
			Placements: []Placement{
				{Square: "A1", Path: "goblin", Source: SourceEmbedded, ControlledBy: Control{Kind: ControlAI, ID: "g1"}},
				{Square: "D4", Path: "goblin", Source: SourceEmbedded, ControlledBy: Control{Kind: ControlAI, ID: "g1"}},
			},
		}},
	)

	seed, err := cooker.Cook(context.Background(), Input{Importable: &Importable{PresetID: "ambush"}})
	require.NoError(t, err)
	assert.Len(t, seed.FieldPawns, 2)
	assert.Equal(t, goblin, seed.CustomEntities["goblin"])
}

func TestCookImportableNotFound(t *testing.T) {
	cooker, _ := newTestCooker(nil, nil)

	_, err := cooker.Cook(context.Background(), Input{Importable: &Importable{PresetID: "missing"}})
	assert.ErrorIs(t, err, ErrPresetNotFound)
}

func TestCookImportableDuplicateSquare(t *testing.T) {
	cooker, _ := newTestCooker(
		map[string]EntityDefinition{"goblin": {Name: "goblin"}},
		map[string]PresetDocument{"bad": {
			ID: "bad",
			Placements: []Placement{
				{Square: "A1", Path: "goblin", Source: SourceEmbedded},
				{Square: "A1", Path: "goblin", Source: SourceEmbedded},
			},
		}},
	)

	seed, err := cooker.Cook(context.Background(), Input{Importable: &Importable{PresetID: "bad"}})
	assert.ErrorIs(t, err, ErrDuplicateSquare)
	assert.Nil(t, seed)
}

func TestCookInputNeitherMode(t *testing.T) {
	cooker, _ := newTestCooker(nil, nil)
	_, err := cooker.Cook(context.Background(), Input{})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCookInputBothModes(t *testing.T) {
	cooker, _ := newTestCooker(nil, nil)
	_, err := cooker.Cook(context.Background(), Input{
		Importable: &Importable{PresetID: "x"},
		Requested:  &Requested{},
	})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestControlAllowsPlayer(t *testing.T) {
	assert.True(t, Control{Kind: ControlPlayer, ID: "p1"}.AllowsPlayer("p1"))
	assert.False(t, Control{Kind: ControlPlayer, ID: "p1"}.AllowsPlayer("p2"))
	// Unassigned seat authorizes nobody, even a player with an empty id.
	assert.False(t, Control{Kind: ControlPlayer}.AllowsPlayer(""))
	assert.False(t, Control{Kind: ControlAI, ID: "p1"}.AllowsPlayer("p1"))
	assert.False(t, Control{Kind: ControlGameLogic}.AllowsPlayer("p1"))
}

// Property-based tests

func TestPropertyUniqueSquaresAlwaysCook(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		squares := rapid.SliceOfNDistinct(
			rapid.StringMatching(`[A-H][1-8]`), 1, 20,
			func(s string) string { return s },
		).Draw(t, "squares")

		placements := make([]Placement, len(squares))
		for i, sq := range squares {
			placements[i] = Placement{Square: Square(sq), Path: "goblin", Source: SourceDLC}
		}

		cooker, _ := newTestCooker(nil, nil)
		seed, err := cooker.Cook(context.Background(), Input{Requested: &Requested{Placements: placements}})
		if err != nil {
			t.Fatalf("unique squares rejected: %v", err)
		}
		if len(seed.FieldPawns) != len(squares) {
			t.Fatalf("expected %d pawns, got %d", len(squares), len(seed.FieldPawns))
		}
	})
}

func TestPropertyDuplicateSquareAlwaysFails(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		squares := rapid.SliceOfN(rapid.StringMatching(`[A-H][1-8]`), 2, 20).Draw(t, "squares")
		dup := rapid.SampledFrom(squares).Draw(t, "dup")
		squares = append(squares, dup)

		placements := make([]Placement, len(squares))
		for i, sq := range squares {
			placements[i] = Placement{Square: Square(sq), Path: "goblin", Source: SourceDLC}
		}

		cooker, _ := newTestCooker(nil, nil)
		_, err := cooker.Cook(context.Background(), Input{Requested: &Requested{Placements: placements}})
		if err == nil {
			t.Fatalf("duplicated square %q accepted", dup)
		}
	})
}
