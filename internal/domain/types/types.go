// Package types contains common types used across the application
package types

// SnapshotRow pairs a monthly snapshot with member identity fields for
// administrative review.
type SnapshotRow struct {
	MemberID    string `json:"member_id"`
	Name        string `json:"name"`
	StudentID   string `json:"student_id"`
	Season      string `json:"season"`
	Year        int    `json:"year"`
	Month       int    `json:"month"`
	TotalSolved int    `json:"total_solved"`
}

// Member settlement outcomes reported by a batch run.
const (
	MemberSettled = "settled"
	MemberSkipped = "skipped"
	MemberFailed  = "failed"
)

// MemberResult is the per-member outcome of a batch settlement run.
type MemberResult struct {
	MemberID string   `json:"member_id"`
	Name     string   `json:"name"`
	Status   string   `json:"status"`
	Delta    int      `json:"delta"`
	Total    int      `json:"total"`
	Warnings []string `json:"warnings,omitempty"`
	Err      string   `json:"error,omitempty"`
}

// BatchSummary aggregates a whole settlement run.
type BatchSummary struct {
	Total     int            `json:"total"`
	Processed int            `json:"processed"`
	Skipped   int            `json:"skipped"`
	Failed    int            `json:"failed"`
	Results   []MemberResult `json:"results"`
}
