package poeninja

import "github.com/goccy/go-json"

// Raw payload shapes of the poe.ninja endpoints. Both games share these
// shapes; which value fields are populated differs per game (PoE1 economy is
// chaos-denominated, PoE2 is exalted-denominated).

// IndexState is the /index-state response carrying league metadata.
type IndexState struct {
	EconomyLeagues []IndexLeague `json:"economyLeagues"`
	BuildLeagues   []IndexLeague `json:"buildLeagues"`
}

// IndexLeague is one league entry of the index-state payload.
type IndexLeague struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Hardcore    bool   `json:"hardcore"`
	Indexed     bool   `json:"indexed"`
}

// CurrencyOverview is the /currencyoverview response for one league+type.
type CurrencyOverview struct {
	Lines           []CurrencyLine   `json:"lines"`
	CurrencyDetails []CurrencyDetail `json:"currencyDetails"`
}

// CurrencyLine is one priced currency of a currency overview.
type CurrencyLine struct {
	CurrencyTypeName  string   `json:"currencyTypeName"`
	ChaosEquivalent   *float64 `json:"chaosEquivalent,omitempty"`
	ExaltedEquivalent *float64 `json:"exaltedEquivalent,omitempty"`
}

// CurrencyDetail carries display metadata for a currency referenced by a line.
type CurrencyDetail struct {
	Name    string `json:"name"`
	Icon    string `json:"icon"`
	TradeID string `json:"tradeId"`
}

// ItemOverview is the /itemoverview response for one league+type.
type ItemOverview struct {
	Lines []ItemLine `json:"lines"`
}

// ItemLine is one priced item of an item overview.
type ItemLine struct {
	Name              string     `json:"name"`
	BaseType          string     `json:"baseType"`
	ItemClass         string     `json:"itemClass"`
	Rarity            string     `json:"rarity"`
	Icon              string     `json:"icon"`
	ChaosValue        *float64   `json:"chaosValue,omitempty"`
	DivineValue       *float64   `json:"divineValue,omitempty"`
	ExaltedValue      *float64   `json:"exaltedValue,omitempty"`
	ImplicitModifiers []Modifier `json:"implicitModifiers,omitempty"`
	ExplicitModifiers []Modifier `json:"explicitModifiers,omitempty"`
}

// Modifier is one modifier entry on an item line.
type Modifier struct {
	Text     string `json:"text"`
	Optional bool   `json:"optional"`
}

// Ladder is the build ladder response for one league.
type Ladder struct {
	League     string            `json:"league"`
	Characters []json.RawMessage `json:"characters"`
}

// LadderCharacter is the decoded shape of one ladder entry. The raw message
// is also persisted verbatim for forward-compatibility.
type LadderCharacter struct {
	Account    string `json:"account"`
	Name       string `json:"name"`
	Level      *int   `json:"level,omitempty"`
	Class      string `json:"class,omitempty"`
	Ascendancy string `json:"ascendancy,omitempty"`
}
