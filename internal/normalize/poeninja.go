package normalize

import (
	"fmt"

	"github.com/goccy/go-json"

	"pathofmirrors/internal/domain"
	"pathofmirrors/internal/idhash"
	"pathofmirrors/internal/source/poeninja"
)

// LeaguesFromIndexState maps a poe.ninja index-state payload to canonical
// leagues. Leagues no longer indexed are reported inactive so the store can
// flip their active flag.
func LeaguesFromIndexState(raw []byte, game domain.Game) (*Result, error) {
	var state poeninja.IndexState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode index-state payload: %w", err)
	}

	result := &Result{}
	seen := make(map[string]bool)

	for _, l := range state.EconomyLeagues {
		if l.Name == "" {
			result.skip(poeninja.SourceName, "index-state league", "name", nil)
			continue
		}
		if seen[l.Name] {
			continue
		}
		seen[l.Name] = true

		displayName := l.DisplayName
		if displayName == "" {
			displayName = l.Name
		}

		league := &domain.League{
			Game:        game,
			Name:        l.Name,
			DisplayName: displayName,
			Hardcore:    l.Hardcore,
			Active:      l.Indexed,
		}
		if err := domain.Validate(league); err != nil {
			result.skip(poeninja.SourceName, l.Name, "league", err)
			continue
		}
		result.Leagues = append(result.Leagues, league)
	}

	return result, nil
}

// EconomyFromOverview maps one economy overview payload (currencyoverview or
// itemoverview, selected by category) into canonical items, modifiers and
// price snapshots. Records missing structurally required fields are skipped
// and counted; the batch continues.
func EconomyFromOverview(raw []byte, game domain.Game, league, category string, capturedAt int64) (*Result, error) {
	if poeninja.IsCurrencyCategory(category) {
		return economyFromCurrencies(raw, game, league, capturedAt)
	}
	return economyFromItems(raw, game, league, category, capturedAt)
}

func economyFromCurrencies(raw []byte, game domain.Game, league string, capturedAt int64) (*Result, error) {
	var overview poeninja.CurrencyOverview
	if err := json.Unmarshal(raw, &overview); err != nil {
		return nil, fmt.Errorf("decode currencyoverview payload: %w", err)
	}

	icons := make(map[string]string, len(overview.CurrencyDetails))
	for _, d := range overview.CurrencyDetails {
		icons[d.Name] = d.Icon
	}

	result := &Result{}
	b := newBatch(result)

	for i, line := range overview.Lines {
		ref := fmt.Sprintf("currency line %d", i)
		if line.CurrencyTypeName == "" {
			result.skip(poeninja.SourceName, ref, "currencyTypeName", nil)
			continue
		}
		ref = line.CurrencyTypeName

		value, currency, ok := currencyValue(game, line)
		if !ok {
			result.skip(poeninja.SourceName, ref, "value", nil)
			continue
		}

		slug := domain.MakeSlug(game, line.CurrencyTypeName)
		item := &domain.CanonicalItem{
			Game:      game,
			Slug:      slug,
			Name:      line.CurrencyTypeName,
			BaseType:  line.CurrencyTypeName,
			ItemClass: "Currency",
			Rarity:    domain.RarityNormal,
			Icon:      icons[line.CurrencyTypeName],
		}
		price := &domain.PriceSnapshot{
			ID:         idhash.PriceSnapshotID(game, league, slug, currency, capturedAt),
			Game:       game,
			League:     league,
			ItemRef:    slug,
			Currency:   currency,
			Value:      value,
			CapturedAt: capturedAt,
		}
		if !b.addItem(ref, item) {
			continue
		}
		b.addPrice(ref, price)
	}

	return result, nil
}

// currencyValue picks the game's native denomination from a currency line.
// PoE1 prices are chaos-denominated, PoE2 exalted-denominated.
func currencyValue(game domain.Game, line poeninja.CurrencyLine) (float64, string, bool) {
	if game == domain.GamePoE2 {
		if line.ExaltedEquivalent == nil {
			return 0, "", false
		}
		return *line.ExaltedEquivalent, domain.CurrencyExalted, true
	}
	if line.ChaosEquivalent == nil {
		return 0, "", false
	}
	return *line.ChaosEquivalent, domain.CurrencyChaos, true
}

func economyFromItems(raw []byte, game domain.Game, league, category string, capturedAt int64) (*Result, error) {
	var overview poeninja.ItemOverview
	if err := json.Unmarshal(raw, &overview); err != nil {
		return nil, fmt.Errorf("decode itemoverview payload: %w", err)
	}

	result := &Result{}
	b := newBatch(result)

	for i, line := range overview.Lines {
		ref := fmt.Sprintf("item line %d", i)
		if line.Name == "" {
			result.skip(poeninja.SourceName, ref, "name", nil)
			continue
		}
		ref = line.Name

		value, currency, ok := itemValue(game, line)
		if !ok {
			result.skip(poeninja.SourceName, ref, "value", nil)
			continue
		}

		itemClass := line.ItemClass
		if itemClass == "" {
			itemClass = category
		}
		rarity := line.Rarity
		if rarity == "" {
			rarity = domain.RarityUnique
		}

		slug := domain.MakeSlug(game, line.Name)
		item := &domain.CanonicalItem{
			Game:      game,
			Slug:      slug,
			Name:      line.Name,
			BaseType:  line.BaseType,
			ItemClass: itemClass,
			Rarity:    rarity,
			Icon:      line.Icon,
		}
		if !b.addItem(ref, item) {
			continue
		}

		b.addPrice(ref, &domain.PriceSnapshot{
			ID:         idhash.PriceSnapshotID(game, league, slug, currency, capturedAt),
			Game:       game,
			League:     league,
			ItemRef:    slug,
			Currency:   currency,
			Value:      value,
			CapturedAt: capturedAt,
		})
		// Secondary denomination only when the source reports it natively.
		if line.DivineValue != nil {
			b.addPrice(ref, &domain.PriceSnapshot{
				ID:         idhash.PriceSnapshotID(game, league, slug, domain.CurrencyDivine, capturedAt),
				Game:       game,
				League:     league,
				ItemRef:    slug,
				Currency:   domain.CurrencyDivine,
				Value:      *line.DivineValue,
				CapturedAt: capturedAt,
			})
		}

		b.addModifiers(ref, game, domain.ModImplicit, line.ImplicitModifiers)
		b.addModifiers(ref, game, domain.ModExplicit, line.ExplicitModifiers)
	}

	return result, nil
}

// itemValue picks the game's native denomination from an item line.
func itemValue(game domain.Game, line poeninja.ItemLine) (float64, string, bool) {
	if game == domain.GamePoE2 {
		if line.ExaltedValue == nil {
			return 0, "", false
		}
		return *line.ExaltedValue, domain.CurrencyExalted, true
	}
	if line.ChaosValue == nil {
		return 0, "", false
	}
	return *line.ChaosValue, domain.CurrencyChaos, true
}

// CharactersFromLadder maps a build ladder payload into character snapshots.
// The full raw record is preserved on each snapshot; indexed fields are
// extracted opportunistically.
func CharactersFromLadder(raw []byte, game domain.Game, league string, capturedAt int64) (*Result, error) {
	var ladder poeninja.Ladder
	if err := json.Unmarshal(raw, &ladder); err != nil {
		return nil, fmt.Errorf("decode ladder payload: %w", err)
	}

	result := &Result{}
	seen := make(map[string]bool)

	for i, rawChar := range ladder.Characters {
		ref := fmt.Sprintf("ladder entry %d", i)

		var c poeninja.LadderCharacter
		if err := json.Unmarshal(rawChar, &c); err != nil {
			result.skip(poeninja.SourceName, ref, "payload", err)
			continue
		}
		if c.Account == "" {
			result.skip(poeninja.SourceName, ref, "account", nil)
			continue
		}
		if c.Name == "" {
			result.skip(poeninja.SourceName, ref, "name", nil)
			continue
		}
		ref = c.Account + "/" + c.Name

		var className *string
		if c.Class != "" {
			cls := c.Class
			className = &cls
		}

		snap := &domain.CharacterSnapshot{
			ID:         idhash.CharacterSnapshotID(game, league, c.Account, c.Name, capturedAt),
			Game:       game,
			League:     league,
			Account:    c.Account,
			Character:  c.Name,
			Level:      c.Level,
			ClassName:  className,
			RawPayload: rawChar,
			CapturedAt: capturedAt,
		}
		if err := domain.Validate(snap); err != nil {
			result.skip(poeninja.SourceName, ref, "snapshot", err)
			continue
		}
		if seen[snap.ID] {
			continue
		}
		seen[snap.ID] = true
		result.Characters = append(result.Characters, snap)
	}

	return result, nil
}

// batch deduplicates entities within one payload so a single commit never
// touches the same row twice.
type batch struct {
	result    *Result
	itemSeen  map[string]bool
	modSeen   map[string]bool
	priceSeen map[string]bool
}

func newBatch(result *Result) *batch {
	return &batch{
		result:    result,
		itemSeen:  make(map[string]bool),
		modSeen:   make(map[string]bool),
		priceSeen: make(map[string]bool),
	}
}

// addItem validates and appends an item, deduplicating by slug.
// Returns false when the item failed validation and was skipped.
func (b *batch) addItem(ref string, item *domain.CanonicalItem) bool {
	if err := domain.Validate(item); err != nil {
		b.result.skip(poeninja.SourceName, ref, "item", err)
		return false
	}
	if !b.itemSeen[item.Slug] {
		b.itemSeen[item.Slug] = true
		b.result.Items = append(b.result.Items, item)
	}
	return true
}

func (b *batch) addPrice(ref string, price *domain.PriceSnapshot) {
	if err := domain.Validate(price); err != nil {
		b.result.skip(poeninja.SourceName, ref, "price", err)
		return
	}
	if b.priceSeen[price.ID] {
		return
	}
	b.priceSeen[price.ID] = true
	b.result.Prices = append(b.result.Prices, price)
}

// addModifiers parses and appends modifier lines, deduplicating by slug.
// Unparseable text is kept with Parsed=false, never dropped; only an empty
// text line is a schema mismatch.
func (b *batch) addModifiers(ref string, game domain.Game, modDomain domain.ModDomain, mods []poeninja.Modifier) {
	for _, m := range mods {
		if m.Text == "" {
			b.result.skip(poeninja.SourceName, ref, "modifier text", nil)
			continue
		}

		template, values, parsed := ParseModifierText(m.Text)
		mod := &domain.Modifier{
			Game:   game,
			Slug:   domain.MakeSlug(game, template),
			Text:   template,
			Domain: modDomain,
			Values: values,
			Parsed: parsed,
			Tags:   CategorizeModifier(template),
		}
		if err := domain.Validate(mod); err != nil {
			b.result.skip(poeninja.SourceName, ref, "modifier", err)
			continue
		}
		if b.modSeen[mod.Slug] {
			continue
		}
		b.modSeen[mod.Slug] = true
		b.result.Modifiers = append(b.result.Modifiers, mod)
	}
}
