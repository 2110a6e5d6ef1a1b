package domain

// Item rarity values as reported by upstream sources.
const (
	RarityNormal = "Normal"
	RarityMagic  = "Magic"
	RarityRare   = "Rare"
	RarityUnique = "Unique"
)

// CanonicalItem is the game-agnostic representation of an item.
// Identity key is (game, slug); the slug embeds the game prefix
// (e.g. "poe1:headhunter") and is stable across sources.
// Created on first sighting, upserted by slug on every cycle; only display
// metadata may change after creation.
// Corresponds to canonical_items table in PostgreSQL.
type CanonicalItem struct {
	Game      Game   `validate:"required"`
	Slug      string `validate:"required"` // "poe1:headhunter"
	Name      string `validate:"required"` // "Headhunter"
	BaseType  string // "Leather Belt"
	ItemClass string // "Belts" (empty when source omits it)
	Rarity    string // Normal | Magic | Rare | Unique
	Icon      string // icon URL reference
}
