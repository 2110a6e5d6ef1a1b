package domain

// DeadLetter records a terminally failed ingestion job for operator
// visibility. Queryable, not just logged.
// Corresponds to dead_letters table in PostgreSQL.
type DeadLetter struct {
	ID       string // uuid
	Game     Game
	League   string
	Category string
	Source   string // source identifier, e.g. "poeninja"
	Attempts int
	LastErr  string
	FailedAt int64 // Unix ms
}
