package domain

// TrendPoint is a per-item daily price aggregate. It is a derived,
// rebuildable projection over retained PriceSnapshot rows: losing it is a
// cache miss, not data loss. Rebuilt by full recomputation, never patched
// incrementally.
// Corresponds to price_trends table (PostgreSQL or ClickHouse backend).
type TrendPoint struct {
	Game        Game
	League      string
	ItemRef     string // CanonicalItem slug
	Currency    string
	Day         int64 // UTC midnight, Unix ms
	MinValue    float64
	MedianValue float64
	MaxValue    float64
	SampleCount int
}
