package domain

import (
	"strings"
	"unicode"
)

// MakeSlug builds the stable identity key for a named entity:
// game prefix + normalized name, e.g. MakeSlug(GamePoE1, "Chaos Orb")
// returns "poe1:chaos-orb". Normalization lowercases, maps runs of
// non-alphanumeric characters to a single '-', and trims edge dashes.
func MakeSlug(game Game, name string) string {
	return string(game) + ":" + NormalizeName(name)
}

// NormalizeName returns the slug body for a display name without the game
// prefix.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	dash := false
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			dash = false
			b.WriteRune(r)
			continue
		}
		dash = true
	}

	return b.String()
}

// SplitSlug splits a full slug into its game prefix and name body.
// Returns ok=false when the slug has no game prefix.
func SplitSlug(slug string) (Game, string, bool) {
	game, body, found := strings.Cut(slug, ":")
	if !found || body == "" {
		return "", "", false
	}
	g := Game(game)
	if !g.IsValid() {
		return "", "", false
	}
	return g, body, true
}
