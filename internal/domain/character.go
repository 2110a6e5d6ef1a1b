package domain

import (
	"fmt"

	"github.com/goccy/go-json"
)

// CharacterSnapshot is one point-in-time ladder observation of a character.
// The full raw payload is kept as JSONB for forward-compatibility; queryable
// fields are extracted opportunistically, not exhaustively. Append-only and
// subject to the rolling-window retention sweep.
// Corresponds to character_snapshots table in PostgreSQL.
type CharacterSnapshot struct {
	ID         string `validate:"required"` // deterministic hash, see idhash
	Game       Game   `validate:"required"`
	League     string `validate:"required"`
	Account    string `validate:"required"`
	Character  string `validate:"required"`
	Level      *int   // nil when source omits it
	ClassName  *string
	RawPayload []byte `validate:"required"` // original source record, JSONB
	CapturedAt int64  `validate:"required"` // Unix ms
}

// RawCharacter is the typed view over RawPayload. Core logic reads the raw
// record through this accessor instead of traversing untyped maps.
type RawCharacter struct {
	Account    string          `json:"account"`
	Name       string          `json:"name"`
	Level      int             `json:"level"`
	Class      string          `json:"class"`
	Ascendancy string          `json:"ascendancy"`
	Life       int             `json:"life"`
	Skills     []string        `json:"skills"`
	Items      json.RawMessage `json:"items"`
}

// DecodeRaw decodes the stored raw payload into its typed view.
func (s *CharacterSnapshot) DecodeRaw() (*RawCharacter, error) {
	var raw RawCharacter
	if err := json.Unmarshal(s.RawPayload, &raw); err != nil {
		return nil, fmt.Errorf("decode character raw payload: %w", err)
	}
	return &raw, nil
}
