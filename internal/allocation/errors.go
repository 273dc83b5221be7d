package allocation

import "fmt"

// DataLoadError marks a missing or malformed backing source (roster,
// directory or ledger file). Fatal to the run; the operator should check
// file paths, not pool configuration.
type DataLoadError struct {
	Source string
	Err    error
}

func (e *DataLoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Source, e.Err)
}

func (e *DataLoadError) Unwrap() error { return e.Err }

// DivisionNotFoundError marks a referential lookup failure, usually stale
// configuration naming a division that no longer exists. Either Name or ID
// is set depending on how the reference was keyed.
type DivisionNotFoundError struct {
	Name string
	ID   int64
}

func (e *DivisionNotFoundError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("division %q not found in roster", e.Name)
	}
	return fmt.Sprintf("division id %d not found in roster", e.ID)
}

// DivisionByZeroError marks a degenerate weight sum for one allocation rule.
// Distinct from DataLoadError: the files loaded fine, the selected period or
// pool configuration is the problem.
type DivisionByZeroError struct {
	Rule string
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("allocation rule %q: weight sum is zero", e.Rule)
}

// FormatError marks one unparseable token (duration, number, date, amount).
// Normalization drops the offending record and reports it; the run continues.
type FormatError struct {
	Field string
	Value string
	Err   error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("bad %s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("bad %s %q", e.Field, e.Value)
}

func (e *FormatError) Unwrap() error { return e.Err }

// TransientFetchError marks a remote history call that failed or timed out.
// Eligible for a bounded retry with backoff.
type TransientFetchError struct {
	Attempts int
	Err      error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("history fetch failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }
