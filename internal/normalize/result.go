// Package normalize maps raw source payloads into canonical entities.
// Mappers are pure functions: identical inputs produce identical outputs,
// no I/O, no global state. One malformed record never aborts a batch; it is
// recorded as a Skip and the rest of the payload is processed.
package normalize

import "pathofmirrors/internal/domain"

// Skip records one raw record dropped during normalization, with enough
// context to reproduce the failure.
type Skip struct {
	RecordRef string // raw-record identifier within the payload
	Err       error  // the SchemaMismatchError
}

// Result is the canonical output of normalizing one raw payload.
type Result struct {
	Leagues    []*domain.League
	Items      []*domain.CanonicalItem
	Modifiers  []*domain.Modifier
	Prices     []*domain.PriceSnapshot
	Characters []*domain.CharacterSnapshot
	Skipped    []Skip
}

// skip appends a schema-mismatch record to the result.
func (r *Result) skip(source, recordRef, field string, err error) {
	r.Skipped = append(r.Skipped, Skip{
		RecordRef: recordRef,
		Err:       &SchemaMismatchError{Source: source, RecordRef: recordRef, Field: field, Err: err},
	})
}
