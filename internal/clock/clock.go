// Package clock provides an injectable time source so that timestamp-dependent
// behavior (issue creation, compaction age checks) is testable.
package clock

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// System is the real clock. Times are UTC, truncated to second precision to
// match the canonical timestamp format stored in issue files.
type System struct{}

// Now returns the current UTC time at second precision.
func (System) Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// Fixed is a clock frozen at a specific instant, for tests.
type Fixed struct {
	T time.Time
}

// Now returns the frozen instant.
func (f Fixed) Now() time.Time {
	return f.T.UTC().Truncate(time.Second)
}
