// Package activity defines the contract with the external
// activity-tracking collaborator that counts solved problems on judge
// sites. The engine only consumes its output; the scraping itself lives
// outside this module.
package activity

import (
	"context"
)

// Known judge sources. The fetcher may report any subset of these plus
// sources the engine has never heard of; counts are summed regardless.
const (
	SourceCodeforces = "codeforces"
	SourceAtCoder    = "atcoder"
	SourceNowcoder   = "nowcoder"
	SourceLuogu      = "luogu"
)

// Snapshot is the aggregated activity of one member across all linked
// judge handles at one point in time.
type Snapshot struct {
	// TotalSolved is the absolute cumulative solved count.
	TotalSolved int

	// PerSource breaks the total down by judge source.
	PerSource map[string]int

	// Errors lists per-source fetch failures. A snapshot with errors is
	// still usable; the failed sources simply contribute zero.
	Errors []string
}

// Partial reports whether some sources failed while others succeeded.
func (s Snapshot) Partial() bool {
	return len(s.Errors) > 0
}

// Fetcher retrieves the current activity snapshot for a member's judge
// handles. Implementations must honor ctx for cancellation and return a
// fault.External error when no source could be reached at all.
type Fetcher interface {
	Fetch(ctx context.Context, handles map[string]string) (Snapshot, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, handles map[string]string) (Snapshot, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, handles map[string]string) (Snapshot, error) {
	return f(ctx, handles)
}
