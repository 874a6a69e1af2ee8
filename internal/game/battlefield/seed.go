// Package battlefield defines the battlefield seed model and the preset
// cooking pipeline that turns stored or client-submitted presets into
// validated, ready-to-run session seeds.
package battlefield

// Square is a battlefield grid coordinate such as "A1".
type Square string

// Source identifies where a pawn's entity definition comes from.
type Source string

const (
	// SourceEmbedded means the entity definition lives in the entity store
	// and must be resolved at cook time.
	SourceEmbedded Source = "embedded"
	// SourceDLC means the entity ships with content packs and is resolved
	// by the client from its own data files.
	SourceDLC Source = "dlc"
)

// ValidSource reports whether s is a recognised entity source.
func ValidSource(s Source) bool {
	switch s {
	case SourceEmbedded, SourceDLC:
		return true
	}
	return false
}

// ControlKind distinguishes who may issue actions for a pawn.
type ControlKind string

const (
	ControlPlayer    ControlKind = "player"
	ControlAI        ControlKind = "ai"
	ControlGameLogic ControlKind = "game_logic"
)

// Control is the tagged union describing a pawn's controller.
// For ControlPlayer, ID is the controlling player's id (empty = unassigned
// seat). For ControlAI, ID is the AI profile id. ControlGameLogic carries
// no payload.
type Control struct {
	Kind ControlKind `json:"type" bson:"type" yaml:"type"`
	ID   string      `json:"id,omitempty" bson:"id,omitempty" yaml:"id,omitempty"`
}

// ValidControlKind reports whether k is a recognised control kind.
func ValidControlKind(k ControlKind) bool {
	switch k {
	case ControlPlayer, ControlAI, ControlGameLogic:
		return true
	}
	return false
}

// AllowsPlayer reports whether the given player is authorized to act for a
// pawn under this control entry. An unassigned player seat authorizes nobody.
//
// Postcondition: Returns true iff Kind is ControlPlayer and ID equals playerID.
func (c Control) AllowsPlayer(playerID string) bool {
	return c.Kind == ControlPlayer && c.ID != "" && c.ID == playerID
}

// EntityRef identifies the entity definition behind a pawn.
type EntityRef struct {
	Source Source `json:"source" bson:"source"`
	Name   string `json:"name" bson:"name"`
}

// Pawn is a placed entity occupying one battlefield square.
type Pawn struct {
	EntityPreset EntityRef `json:"entity_preset" bson:"entity_preset"`
	Owner        Control   `json:"owner" bson:"owner"`
}

// EntityDefinition is a full combat entity definition as stored in the
// entity collection.
type EntityDefinition struct {
	Name       string   `json:"name" bson:"name" yaml:"name"`
	MaxHP      int      `json:"max_hp" bson:"max_hp" yaml:"max_hp"`
	ArmorClass int      `json:"armor_class" bson:"armor_class" yaml:"armor_class"`
	Speed      int      `json:"speed" bson:"speed" yaml:"speed"`
	Traits     []string `json:"traits,omitempty" bson:"traits,omitempty" yaml:"traits,omitempty"`
}

// Seed is the validated initial battlefield state used to start a session.
// Invariants: every square key is unique; every embedded pawn's entity name
// has a matching CustomEntities entry.
type Seed struct {
	FieldPawns     map[Square]Pawn             `json:"field_pawns" bson:"field_pawns"`
	CustomEntities map[string]EntityDefinition `json:"custom_entities" bson:"custom_entities"`
}

// Placement is one raw pawn placement as submitted by a client or stored in
// a combat preset document, before cooking.
type Placement struct {
	Square       Square  `json:"square" bson:"square" yaml:"square"`
	Path         string  `json:"path" bson:"path" yaml:"path"`
	Source       Source  `json:"source" bson:"source" yaml:"source"`
	ControlledBy Control `json:"controlledBy" bson:"controlled_by" yaml:"controlled_by"`
}

// PresetDocument is a combat preset as persisted in the preset collection.
type PresetDocument struct {
	ID         string      `json:"id" bson:"_id" yaml:"id"`
	Name       string      `json:"name" bson:"name" yaml:"name"`
	Placements []Placement `json:"placements" bson:"placements" yaml:"placements"`
}
