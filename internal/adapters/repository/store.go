// Package repository defines the persistence interface for the rating
// engine and its SQLite implementation.
package repository

import (
	"context"

	"ratingd/internal/domain/model"
	"ratingd/internal/domain/season"
	"ratingd/internal/domain/types"
)

// Store provides read/write access to the engine's persisted state.
// Missing entities are reported as fault.NotFound.
type Store interface {
	// Member returns one roster profile by id.
	Member(ctx context.Context, id string) (model.Member, error)

	// SettleableMembers returns active, non-administrative members
	// ordered by rating descending; the order doubles as the season
	// ranking for the archiver.
	SettleableMembers(ctx context.Context) ([]model.Member, error)

	// SaveMember inserts or replaces a whole profile. Settlement code
	// uses the narrower update methods below.
	SaveMember(ctx context.Context, m model.Member) error

	// UpdateRating overwrites the rating breakdown wholesale.
	UpdateRating(ctx context.Context, id string, total float64, b model.Breakdown) error

	// UpdateSolvedCount refreshes the cached cumulative solved count.
	UpdateSolvedCount(ctx context.Context, id string, solved int) error

	// ContestRecords returns every contest record for a member.
	ContestRecords(ctx context.Context, memberID string) ([]model.ContestRecord, error)

	// AddContestRecord stores a record; the caller is responsible for
	// recomposing the member's rating afterwards.
	AddContestRecord(ctx context.Context, rec model.ContestRecord) error

	// DeleteContestRecord removes a record, e.g. on data correction.
	// The same recomposition duty applies.
	DeleteContestRecord(ctx context.Context, id string) error

	// PracticeStat returns the stat for one settlement period.
	PracticeStat(ctx context.Context, memberID string, p season.Period) (model.PracticeMonthStat, error)

	// UpsertPracticeStat writes a stat keyed (member, year, month).
	UpsertPracticeStat(ctx context.Context, stat model.PracticeMonthStat) error

	// SeasonPracticeStats returns a member's stats for one season.
	SeasonPracticeStats(ctx context.Context, memberID string, s season.Season) ([]model.PracticeMonthStat, error)

	// Snapshot returns the solved-count baseline for one period.
	Snapshot(ctx context.Context, memberID string, p season.Period) (model.MonthlySnapshot, error)

	// PutSnapshot writes a snapshot keyed (member, year, month).
	PutSnapshot(ctx context.Context, snap model.MonthlySnapshot) error

	// SnapshotReport joins a period's snapshots with member identity
	// fields for administrative review.
	SnapshotReport(ctx context.Context, p season.Period) ([]types.SnapshotRow, error)

	// UpsertArchive writes a season archive keyed (member, season).
	UpsertArchive(ctx context.Context, a model.SeasonArchive) error

	// ArchivesByMember returns a member's archived seasons.
	ArchivesByMember(ctx context.Context, memberID string) ([]model.SeasonArchive, error)

	// SeasonArchives returns every archive row of one season.
	SeasonArchives(ctx context.Context, s season.Season) ([]model.SeasonArchive, error)

	// CurrentSeason returns the persisted season pointer.
	CurrentSeason(ctx context.Context) (season.Season, error)

	// SetCurrentSeason overwrites the persisted season pointer.
	SetCurrentSeason(ctx context.Context, s season.Season) error

	// Close releases the underlying database.
	Close() error
}
