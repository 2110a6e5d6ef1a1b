package domain

// ModDomain categorizes where a modifier appears on an item.
type ModDomain string

const (
	ModExplicit ModDomain = "explicit"
	ModImplicit ModDomain = "implicit"
	ModEnchant  ModDomain = "enchant"
	ModCrafted  ModDomain = "crafted"
)

// IsValid checks if the modifier domain is a known value.
func (d ModDomain) IsValid() bool {
	switch d {
	case ModExplicit, ModImplicit, ModEnchant, ModCrafted:
		return true
	default:
		return false
	}
}

// Modifier is a canonical item modifier keyed by (game, slug).
// Text holds the template with numbers replaced by '#'
// (e.g. "+#% to Fire Resistance"). When the text cannot be parsed the
// modifier is still stored with Parsed=false, never dropped.
// Corresponds to modifiers table in PostgreSQL.
type Modifier struct {
	Game   Game      `validate:"required"`
	Slug   string    `validate:"required"` // "poe1:to-maximum-life"
	Text   string    `validate:"required"` // raw text template
	Domain ModDomain `validate:"required"` // explicit | implicit | enchant | crafted
	Values []float64 // parsed numeric range(s), nil when Parsed=false
	Parsed bool      // numeric extraction succeeded
	Tags   []string  // categorized tags ("life", "resistance", ...)
}
