// Package idhash computes deterministic snapshot identifiers.
// IDs are content-derived so normalization stays a pure function and
// re-ingesting the same source observation produces the same row key.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"pathofmirrors/internal/domain"
)

// PriceSnapshotID computes a deterministic ID for a price observation.
// Formula: SHA256(game|league|item_ref|currency|captured_at)
// Returns hex-encoded hash (64 characters).
func PriceSnapshotID(game domain.Game, league, itemRef, currency string, capturedAt int64) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d",
		string(game),
		league,
		itemRef,
		currency,
		capturedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// CharacterSnapshotID computes a deterministic ID for a ladder observation.
// Formula: SHA256(game|league|account|character|captured_at)
// Returns hex-encoded hash (64 characters).
func CharacterSnapshotID(game domain.Game, league, account, character string, capturedAt int64) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d",
		string(game),
		league,
		account,
		character,
		capturedAt,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
