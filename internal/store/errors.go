package store

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the store. Callers match with errors.Is.
var (
	ErrNotFound  = errors.New("issue not found")
	ErrAmbiguous = errors.New("ambiguous issue ID")
)

// CorruptFileError reports an issue file that exists but cannot be parsed.
// Exact-ID lookups surface it as a hard error; prefix scans and bulk listings
// skip the file and continue, so one bad record doesn't take down
// whole-repository queries.
type CorruptFileError struct {
	Path string
	Err  error
}

func (e *CorruptFileError) Error() string {
	return fmt.Sprintf("corrupted issue file %s: %v", e.Path, e.Err)
}

func (e *CorruptFileError) Unwrap() error {
	return e.Err
}
