/*
errors.go - Error taxonomy of the billing engine

PURPOSE:
  A billing engine must never guess. Anything it cannot resolve exactly is
  raised to the caller, who decides how to handle partial failure (skip an
  asset, abort a report) at a coarser grain.

ERROR CATEGORIES:
  1. ConfigurationError    - BillingConfig is missing or inconsistent
  2. AmbiguousEntryError   - A (date, subject) group has no unique winner
  3. InvalidTimeRangeError - Hours cannot be derived from an entry

USAGE:
  var cfgErr *billing.ConfigurationError
  if errors.As(err, &cfgErr) {
      // cfgErr.DayType, cfgErr.Field
  }
  if errors.Is(err, billing.ErrAmbiguousEntry) { ... }

SEE ALSO:
  - generic/errors.go: Parsing sentinels wrapped by InvalidTimeRangeError
*/
package billing

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrConfiguration is returned when the billing config cannot serve a day type.
	ErrConfiguration = errors.New("billing configuration error")

	// ErrAmbiguousEntry is returned when no single submission wins a key.
	ErrAmbiguousEntry = errors.New("ambiguous timesheet entry")

	// ErrInvalidTimeRange is returned when worked hours cannot be derived.
	ErrInvalidTimeRange = errors.New("invalid time range")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ConfigurationError names the config section and field that failed.
type ConfigurationError struct {
	DayType DayType // empty for run-level settings such as the rate
	Field   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	section := string(e.DayType)
	if section == "" {
		section = "run"
	}
	if e.Field == "" {
		return fmt.Sprintf("billing config %s: %s", section, e.Reason)
	}
	return fmt.Sprintf("billing config %s.%s: %s", section, e.Field, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// AmbiguousEntryError lists the submissions that tied for a key.
type AmbiguousEntryError struct {
	Key      EntryKey
	EntryIDs []string
	Reason   string
}

func (e *AmbiguousEntryError) Error() string {
	if len(e.EntryIDs) == 0 {
		return fmt.Sprintf("ambiguous entry %s: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("ambiguous entry %s: %s (entries: %s)",
		e.Key, e.Reason, strings.Join(e.EntryIDs, ", "))
}

func (e *AmbiguousEntryError) Unwrap() error { return ErrAmbiguousEntry }

// InvalidTimeRangeError points at the field of the entry that could not be used.
type InvalidTimeRangeError struct {
	Key     EntryKey
	EntryID string
	Field   string
	Value   string
	Reason  string
	Err     error // underlying parse error, if any
}

func (e *InvalidTimeRangeError) Error() string {
	msg := fmt.Sprintf("invalid time range for %s", e.Key)
	if e.EntryID != "" {
		msg += " (entry " + e.EntryID + ")"
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": %s=%q", e.Field, e.Value)
	}
	return msg + ": " + e.Reason
}

func (e *InvalidTimeRangeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrInvalidTimeRange, e.Err}
	}
	return []error{ErrInvalidTimeRange}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error comes from the records or the
// config supplied to the engine rather than from the engine itself.
func IsClientError(err error) bool {
	return errors.Is(err, ErrConfiguration) ||
		errors.Is(err, ErrAmbiguousEntry) ||
		errors.Is(err, ErrInvalidTimeRange)
}
