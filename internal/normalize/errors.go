package normalize

import (
	"errors"
	"fmt"
)

// SchemaMismatchError reports a raw record missing a structurally required
// field. The offending record is skipped and counted; the batch continues.
type SchemaMismatchError struct {
	Source    string // e.g. "poeninja"
	RecordRef string // raw-record identifier for reproduction
	Field     string // missing or invalid field
	Err       error  // underlying validation error, may be nil
}

func (e *SchemaMismatchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema mismatch in %s record %q: field %s: %v", e.Source, e.RecordRef, e.Field, e.Err)
	}
	return fmt.Sprintf("schema mismatch in %s record %q: field %s missing", e.Source, e.RecordRef, e.Field)
}

func (e *SchemaMismatchError) Unwrap() error { return e.Err }

// IsSchemaMismatch reports whether err is (or wraps) a SchemaMismatchError.
func IsSchemaMismatch(err error) bool {
	var s *SchemaMismatchError
	return errors.As(err, &s)
}
