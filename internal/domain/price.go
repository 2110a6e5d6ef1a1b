package domain

// Currency denominations used for price values.
const (
	CurrencyChaos   = "chaos"
	CurrencyDivine  = "divine"
	CurrencyExalted = "exalted"
)

// PriceSnapshot is one point-in-time price observation from an external
// source. Append-only: one row per observation, never mutated after insert;
// superseded values coexist to support trend queries. Rows expire under the
// rolling-window retention sweep.
// Corresponds to price_snapshots table in PostgreSQL.
type PriceSnapshot struct {
	ID         string  `validate:"required"` // deterministic hash, see idhash
	Game       Game    `validate:"required"`
	League     string  `validate:"required"` // "Settlers"
	ItemRef    string  `validate:"required"` // CanonicalItem slug, "poe1:chaos-orb"
	Currency   string  `validate:"required"` // chaos | divine | exalted
	Value      float64 `validate:"gte=0"`
	CapturedAt int64   `validate:"required"` // Unix ms
}
