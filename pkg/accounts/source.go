// Package accounts defines the read-only view the bridge has over upstream
// accounts and the optional outcome recording some backends support.
package accounts

import (
	"context"
	"time"
)

// Account is one upstream account and its opaque bearer token.
type Account struct {
	ID     string
	Name   string
	Active bool
	Token  string
}

// Eligible reports whether the account may be used for upstream calls.
func (a Account) Eligible() bool {
	return a.Active && a.Token != ""
}

// Source supplies the current set of accounts. The bridge never creates,
// updates or deletes accounts through a Source.
type Source interface {
	// Accounts returns every known account, eligible or not.
	Accounts(ctx context.Context) ([]Account, error)

	// Close releases any resources held by the source.
	Close() error
}

// Recorder is implemented by sources that keep per-account call statistics.
type Recorder interface {
	// RecordCall counts one upstream call for the account. Unknown ids
	// return ErrNotFound.
	RecordCall(ctx context.Context, id string, success bool, at time.Time) error

	// Stats returns the statistics for the account.
	Stats(ctx context.Context, id string) (Stats, error)
}

// Stats are the per-account call counters.
type Stats struct {
	TotalCalls   int64
	SuccessCalls int64
	FailedCalls  int64
	LastSuccess  *time.Time
	LastFailure  *time.Time
}

// Apply returns a copy of s with one call recorded.
func (s Stats) Apply(success bool, at time.Time) Stats {
	s.TotalCalls++
	if success {
		s.SuccessCalls++
		s.LastSuccess = &at
	} else {
		s.FailedCalls++
		s.LastFailure = &at
	}
	return s
}

// ErrNotFound is returned when an account doesn't exist in the source.
type ErrNotFound struct {
	ID string
}

func (e ErrNotFound) Error() string {
	if e.ID == "" {
		return "account not found"
	}

	return "account not found: " + e.ID
}

// Eligible filters accounts down to the ones usable for upstream calls.
func Eligible(all []Account) []Account {
	out := make([]Account, 0, len(all))
	for _, a := range all {
		if a.Eligible() {
			out = append(out, a)
		}
	}
	return out
}
