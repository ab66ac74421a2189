// Package system provides the wall clock used to stamp ledger records.
package system

import "time"

// Resolution is the precision of stamped times. The Redis ledger scores its
// index in milliseconds and Postgres keeps microseconds, so millisecond times
// survive every backend unchanged.
const Resolution = time.Millisecond

// Clock implements scraper.Clock with UTC times truncated to Resolution.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current UTC time at Resolution.
func (Clock) Now() time.Time {
	return time.Now().UTC().Truncate(Resolution)
}
