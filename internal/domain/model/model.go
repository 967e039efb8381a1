// Package model contains domain models passed between layers.
package model

import (
	"time"

	"ratingd/internal/domain/season"
)

// Member roles. Teachers are administrative accounts and are excluded
// from settlement and archival.
const (
	RoleTeacher      = "Teacher"
	RoleCaptain      = "Captain"
	RoleViceCaptain  = "Vice-Captain"
	RoleStudentCoach = "Student-Coach"
	RoleMember       = "Member"
)

// Member statuses.
const (
	StatusActive  = "Active"
	StatusRetired = "Retired"
)

// Breakdown is the persisted decomposition of a member's rating. It is
// overwritten wholesale on every recomposition, never merged.
type Breakdown struct {
	Contest           float64
	Practice          float64
	Legacy            float64
	ActiveCoefficient float64
}

// Member is the roster profile as seen by the rating engine.
type Member struct {
	ID        string
	Name      string
	StudentID string
	Role      string
	Status    string
	// Handles maps an external judge source (e.g. "codeforces") to the
	// member's handle on that site.
	Handles     map[string]string
	SolvedCount int
	Rating      float64
	Breakdown   Breakdown
}

// Administrative reports whether the member is excluded from batch
// settlement and archival.
func (m Member) Administrative() bool { return m.Role == RoleTeacher }

// Settleable reports whether the monthly batch should process the member.
func (m Member) Settleable() bool {
	return m.Status == StatusActive && !m.Administrative()
}

// ContestRecord is one contest participation or award entry.
type ContestRecord struct {
	ID       string
	MemberID string
	Name     string
	Season   season.Season
	// Type is the contest or award family, e.g. "XCPC_REGIONAL",
	// "LANQIAO". AwardLevel is empty for ranked contests and holds the
	// level key ("NAT_1", "PROV_2", "TOP") for awards.
	Type       string
	AwardLevel string

	TotalParticipants int
	Rank              int

	// RawScore is cached at write time for display. Aggregation always
	// recomputes and never trusts this value.
	RawScore float64

	Date time.Time
}

// PracticeMonthStat is the settled practice result for one member and
// one calendar month. Unique per (member, year, month).
type PracticeMonthStat struct {
	MemberID string
	Season   season.Season
	Year     int
	Month    int

	ProblemCount      int
	ActiveCoefficient float64
	MonthScore        float64
	Settled           bool
}

// Period returns the settlement period this stat belongs to.
func (s PracticeMonthStat) Period() season.Period {
	return season.Period{Year: s.Year, Month: s.Month}
}

// MonthlySnapshot is the absolute solved count captured at the start of
// a period; the baseline for the following period's delta. Unique per
// (member, year, month), append-only.
type MonthlySnapshot struct {
	MemberID    string
	Season      season.Season
	Year        int
	Month       int
	TotalSolved int
	CreatedAt   time.Time
}

// SeasonArchive is the immutable season-end record of a member's final
// rating breakdown. Unique per (member, season).
type SeasonArchive struct {
	MemberID      string
	Season        season.Season
	FinalRating   float64
	ContestScore  float64
	PracticeScore float64
	Rank          int
}
