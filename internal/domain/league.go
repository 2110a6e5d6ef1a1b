package domain

// League represents one game economy partition (temp league or permanent).
// One row per (game, name); upserted whenever a source reports league metadata.
// Corresponds to leagues table in PostgreSQL.
type League struct {
	Game        Game   `validate:"required"` // poe1 | poe2
	Name        string `validate:"required"` // "Settlers"
	DisplayName string // "Settlers of Kalguur" (UI display)
	Hardcore    bool   // hardcore variant flag
	Active      bool   // currently running
	StartAt     int64  // league start, Unix ms (0 when unknown)
	EndAt       *int64 // league end, Unix ms (nil while active)
}
