/*
errors.go - Sentinel errors for the primitives in this package

PURPOSE:
  Parsing failures for days, clock times and periods are reported with
  sentinels so callers can classify them with errors.Is(). The billing
  package wraps them into its own structured errors with entry context.

SEE ALSO:
  - billing/errors.go: ConfigurationError, AmbiguousEntryError, InvalidTimeRangeError
  - store/store.go: Storage sentinels
*/
package generic

import "errors"

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidDay is returned when a day key is not a valid YYYY-MM-DD date.
	ErrInvalidDay = errors.New("invalid day")

	// ErrInvalidClock is returned when a time-in/time-out is not HH:MM[:SS].
	ErrInvalidClock = errors.New("invalid clock time")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrNotANumber is returned when a float input is NaN or infinite.
	ErrNotANumber = errors.New("value is not a finite number")
)

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidDay) ||
		errors.Is(err, ErrInvalidClock) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrNotANumber)
}
