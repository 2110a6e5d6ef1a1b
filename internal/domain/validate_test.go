package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_PriceSnapshot(t *testing.T) {
	snap := &PriceSnapshot{
		ID:         "abc",
		Game:       GamePoE1,
		League:     "Settlers",
		ItemRef:    "poe1:chaos-orb",
		Currency:   CurrencyChaos,
		Value:      1.0,
		CapturedAt: 1700000000000,
	}
	require.NoError(t, Validate(snap))

	// Missing league must fail: every snapshot row carries a non-null league.
	snap.League = ""
	assert.Error(t, Validate(snap))
}

func TestValidate_ItemRequiresIdentity(t *testing.T) {
	item := &CanonicalItem{
		Game: GamePoE1,
		Slug: "poe1:headhunter",
		Name: "Headhunter",
	}
	require.NoError(t, Validate(item))

	item.Slug = ""
	assert.Error(t, Validate(item))
}

func TestValidate_CharacterSnapshot(t *testing.T) {
	snap := &CharacterSnapshot{
		ID:         "def",
		Game:       GamePoE2,
		League:     "Dawn of the Hunt",
		Account:    "exile#1234",
		Character:  "StormWitch",
		RawPayload: []byte(`{"account":"exile#1234","name":"StormWitch","level":92,"class":"Witch"}`),
		CapturedAt: 1700000000000,
	}
	require.NoError(t, Validate(snap))

	raw, err := snap.DecodeRaw()
	require.NoError(t, err)
	assert.Equal(t, "StormWitch", raw.Name)
	assert.Equal(t, 92, raw.Level)

	// Optional fields may be nil; required raw payload may not.
	snap.RawPayload = nil
	assert.Error(t, Validate(snap))
}
