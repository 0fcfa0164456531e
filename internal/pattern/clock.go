package pattern

import "time"

// Clock supplies the current time for date operands.
//
// Compilation reads it to fill in missing parts of absolute dates; the
// evaluator reads it to resolve dynamic (relative) date ranges. Tests
// substitute a fixed clock.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time {
	return time.Now()
}
