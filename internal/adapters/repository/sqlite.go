package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ratingd/internal/domain/model"
	"ratingd/internal/domain/season"
	"ratingd/internal/domain/types"
	"ratingd/pkg/logger"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// settingKeySeason is the settings row holding the current season.
const settingKeySeason = "CURRENT_SEASON"

// SQLiteStore implements Store on an embedded SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	logger logger.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path,
// configures WAL mode, and runs the schema migration.
func NewSQLiteStore(path string, opts ...Option) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite allows a single writer; keep the pool small.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	s := &SQLiteStore{db: db}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if s.logger != nil {
		s.logger.Debug(context.Background(), "sqlite store opened", logger.String("path", path))
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const memberColumns = `id, name, student_id, role, status, handles,
	solved_count, rating, contest_score, practice_score, legacy_score, active_coefficient`

func scanMember(row interface{ Scan(...any) error }) (model.Member, error) {
	var m model.Member
	var handles string
	err := row.Scan(&m.ID, &m.Name, &m.StudentID, &m.Role, &m.Status, &handles,
		&m.SolvedCount, &m.Rating, &m.Breakdown.Contest, &m.Breakdown.Practice,
		&m.Breakdown.Legacy, &m.Breakdown.ActiveCoefficient)
	if err != nil {
		return model.Member{}, err
	}
	if handles != "" {
		if err := json.Unmarshal([]byte(handles), &m.Handles); err != nil {
			return model.Member{}, fmt.Errorf("decode handles for member %s: %w", m.ID, err)
		}
	}
	return m, nil
}

// Member returns one roster profile by id.
func (s *SQLiteStore) Member(ctx context.Context, id string) (model.Member, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Member{}, errMemberNotFound(id)
	}
	if err != nil {
		return model.Member{}, fmt.Errorf("query member: %w", err)
	}
	return m, nil
}

// SettleableMembers returns active non-administrative members ordered by
// rating descending.
func (s *SQLiteStore) SettleableMembers(ctx context.Context) ([]model.Member, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+memberColumns+`
		FROM members
		WHERE status = ? AND role != ?
		ORDER BY rating DESC, student_id ASC`, model.StatusActive, model.RoleTeacher)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	var members []model.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// SaveMember inserts or replaces a whole profile.
func (s *SQLiteStore) SaveMember(ctx context.Context, m model.Member) error {
	handles, err := json.Marshal(m.Handles)
	if err != nil {
		return fmt.Errorf("encode handles: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO members
		(id, name, student_id, role, status, handles, solved_count,
		 rating, contest_score, practice_score, legacy_score, active_coefficient)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			student_id = excluded.student_id,
			role = excluded.role,
			status = excluded.status,
			handles = excluded.handles,
			solved_count = excluded.solved_count,
			rating = excluded.rating,
			contest_score = excluded.contest_score,
			practice_score = excluded.practice_score,
			legacy_score = excluded.legacy_score,
			active_coefficient = excluded.active_coefficient`,
		m.ID, m.Name, m.StudentID, m.Role, m.Status, string(handles), m.SolvedCount,
		m.Rating, m.Breakdown.Contest, m.Breakdown.Practice, m.Breakdown.Legacy,
		m.Breakdown.ActiveCoefficient)
	if err != nil {
		return fmt.Errorf("save member: %w", err)
	}
	return nil
}

// UpdateRating overwrites the rating breakdown wholesale.
func (s *SQLiteStore) UpdateRating(ctx context.Context, id string, total float64, b model.Breakdown) error {
	res, err := s.db.ExecContext(ctx, `UPDATE members SET
			rating = ?, contest_score = ?, practice_score = ?, legacy_score = ?, active_coefficient = ?
		WHERE id = ?`,
		total, b.Contest, b.Practice, b.Legacy, b.ActiveCoefficient, id)
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	return requireRow(res, errMemberNotFound(id))
}

// UpdateSolvedCount refreshes the cached cumulative solved count.
func (s *SQLiteStore) UpdateSolvedCount(ctx context.Context, id string, solved int) error {
	res, err := s.db.ExecContext(ctx, `UPDATE members SET solved_count = ? WHERE id = ?`, solved, id)
	if err != nil {
		return fmt.Errorf("update solved count: %w", err)
	}
	return requireRow(res, errMemberNotFound(id))
}

// ContestRecords returns every contest record for a member.
func (s *SQLiteStore) ContestRecords(ctx context.Context, memberID string) ([]model.ContestRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
			id, member_id, name, season, type, award_level,
			total_participants, rank, raw_score, contest_date
		FROM contest_records WHERE member_id = ?`, memberID)
	if err != nil {
		return nil, fmt.Errorf("query contest records: %w", err)
	}
	defer rows.Close()

	var recs []model.ContestRecord
	for rows.Next() {
		var rec model.ContestRecord
		var seasonRaw, dateRaw string
		if err := rows.Scan(&rec.ID, &rec.MemberID, &rec.Name, &seasonRaw, &rec.Type,
			&rec.AwardLevel, &rec.TotalParticipants, &rec.Rank, &rec.RawScore, &dateRaw); err != nil {
			return nil, fmt.Errorf("scan contest record: %w", err)
		}
		rec.Season = season.Season(seasonRaw)
		if dateRaw != "" {
			rec.Date, _ = time.Parse(time.RFC3339, dateRaw)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// AddContestRecord stores a record.
func (s *SQLiteStore) AddContestRecord(ctx context.Context, rec model.ContestRecord) error {
	var dateRaw string
	if !rec.Date.IsZero() {
		dateRaw = rec.Date.Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO contest_records
		(id, member_id, name, season, type, award_level, total_participants, rank, raw_score, contest_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.MemberID, rec.Name, rec.Season.String(), rec.Type, rec.AwardLevel,
		rec.TotalParticipants, rec.Rank, rec.RawScore, dateRaw)
	if err != nil {
		return fmt.Errorf("insert contest record: %w", err)
	}
	return nil
}

// DeleteContestRecord removes a record.
func (s *SQLiteStore) DeleteContestRecord(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contest_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete contest record: %w", err)
	}
	return requireRow(res, errRecordNotFound(id))
}

// PracticeStat returns the stat for one settlement period.
func (s *SQLiteStore) PracticeStat(ctx context.Context, memberID string, p season.Period) (model.PracticeMonthStat, error) {
	row := s.db.QueryRowContext(ctx, `SELECT
			member_id, season, year, month, problem_count, active_coefficient, month_score, settled
		FROM practice_month_stats WHERE member_id = ? AND year = ? AND month = ?`,
		memberID, p.Year, p.Month)

	stat, err := scanPracticeStat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PracticeMonthStat{}, errStatNotFound(memberID, p)
	}
	if err != nil {
		return model.PracticeMonthStat{}, fmt.Errorf("query practice stat: %w", err)
	}
	return stat, nil
}

func scanPracticeStat(row interface{ Scan(...any) error }) (model.PracticeMonthStat, error) {
	var stat model.PracticeMonthStat
	var seasonRaw string
	var settled int
	err := row.Scan(&stat.MemberID, &seasonRaw, &stat.Year, &stat.Month,
		&stat.ProblemCount, &stat.ActiveCoefficient, &stat.MonthScore, &settled)
	if err != nil {
		return model.PracticeMonthStat{}, err
	}
	stat.Season = season.Season(seasonRaw)
	stat.Settled = settled != 0
	return stat, nil
}

// UpsertPracticeStat writes a stat keyed (member, year, month).
func (s *SQLiteStore) UpsertPracticeStat(ctx context.Context, stat model.PracticeMonthStat) error {
	settled := 0
	if stat.Settled {
		settled = 1
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO practice_month_stats
		(member_id, season, year, month, problem_count, active_coefficient, month_score, settled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(member_id, year, month) DO UPDATE SET
			season = excluded.season,
			problem_count = excluded.problem_count,
			active_coefficient = excluded.active_coefficient,
			month_score = excluded.month_score,
			settled = excluded.settled`,
		stat.MemberID, stat.Season.String(), stat.Year, stat.Month,
		stat.ProblemCount, stat.ActiveCoefficient, stat.MonthScore, settled)
	if err != nil {
		return fmt.Errorf("upsert practice stat: %w", err)
	}
	return nil
}

// SeasonPracticeStats returns a member's stats for one season.
func (s *SQLiteStore) SeasonPracticeStats(ctx context.Context, memberID string, sn season.Season) ([]model.PracticeMonthStat, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
			member_id, season, year, month, problem_count, active_coefficient, month_score, settled
		FROM practice_month_stats
		WHERE member_id = ? AND season = ?
		ORDER BY year ASC, month ASC`, memberID, sn.String())
	if err != nil {
		return nil, fmt.Errorf("query practice stats: %w", err)
	}
	defer rows.Close()

	var stats []model.PracticeMonthStat
	for rows.Next() {
		stat, err := scanPracticeStat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan practice stat: %w", err)
		}
		stats = append(stats, stat)
	}
	return stats, rows.Err()
}

// Snapshot returns the solved-count baseline for one period.
func (s *SQLiteStore) Snapshot(ctx context.Context, memberID string, p season.Period) (model.MonthlySnapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT member_id, season, year, month, total_solved, created_at
		FROM monthly_snapshots WHERE member_id = ? AND year = ? AND month = ?`,
		memberID, p.Year, p.Month)

	var snap model.MonthlySnapshot
	var seasonRaw, createdRaw string
	err := row.Scan(&snap.MemberID, &seasonRaw, &snap.Year, &snap.Month, &snap.TotalSolved, &createdRaw)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MonthlySnapshot{}, errSnapshotNotFound(memberID, p)
	}
	if err != nil {
		return model.MonthlySnapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	snap.Season = season.Season(seasonRaw)
	if createdRaw != "" {
		snap.CreatedAt, _ = time.Parse(time.RFC3339, createdRaw)
	}
	return snap, nil
}

// PutSnapshot writes a snapshot keyed (member, year, month).
func (s *SQLiteStore) PutSnapshot(ctx context.Context, snap model.MonthlySnapshot) error {
	created := snap.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO monthly_snapshots
		(member_id, season, year, month, total_solved, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(member_id, year, month) DO UPDATE SET
			season = excluded.season,
			total_solved = excluded.total_solved`,
		snap.MemberID, snap.Season.String(), snap.Year, snap.Month,
		snap.TotalSolved, created.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// SnapshotReport joins a period's snapshots with member identity fields.
func (s *SQLiteStore) SnapshotReport(ctx context.Context, p season.Period) ([]types.SnapshotRow, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT
			sn.member_id, m.name, m.student_id, sn.season, sn.year, sn.month, sn.total_solved
		FROM monthly_snapshots sn
		JOIN members m ON m.id = sn.member_id
		WHERE sn.year = ? AND sn.month = ?
		ORDER BY sn.total_solved DESC, m.student_id ASC`, p.Year, p.Month)
	if err != nil {
		return nil, fmt.Errorf("query snapshot report: %w", err)
	}
	defer rows.Close()

	var report []types.SnapshotRow
	for rows.Next() {
		var r types.SnapshotRow
		if err := rows.Scan(&r.MemberID, &r.Name, &r.StudentID, &r.Season, &r.Year, &r.Month, &r.TotalSolved); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		report = append(report, r)
	}
	return report, rows.Err()
}

// UpsertArchive writes a season archive keyed (member, season).
func (s *SQLiteStore) UpsertArchive(ctx context.Context, a model.SeasonArchive) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO season_archives
		(member_id, season, final_rating, contest_score, practice_score, rank)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(member_id, season) DO UPDATE SET
			final_rating = excluded.final_rating,
			contest_score = excluded.contest_score,
			practice_score = excluded.practice_score,
			rank = excluded.rank`,
		a.MemberID, a.Season.String(), a.FinalRating, a.ContestScore, a.PracticeScore, a.Rank)
	if err != nil {
		return fmt.Errorf("upsert archive: %w", err)
	}
	return nil
}

// ArchivesByMember returns a member's archived seasons.
func (s *SQLiteStore) ArchivesByMember(ctx context.Context, memberID string) ([]model.SeasonArchive, error) {
	return s.queryArchives(ctx, `SELECT member_id, season, final_rating, contest_score, practice_score, rank
		FROM season_archives WHERE member_id = ? ORDER BY season DESC`, memberID)
}

// SeasonArchives returns every archive row of one season.
func (s *SQLiteStore) SeasonArchives(ctx context.Context, sn season.Season) ([]model.SeasonArchive, error) {
	return s.queryArchives(ctx, `SELECT member_id, season, final_rating, contest_score, practice_score, rank
		FROM season_archives WHERE season = ? ORDER BY rank ASC`, sn.String())
}

func (s *SQLiteStore) queryArchives(ctx context.Context, query string, arg any) ([]model.SeasonArchive, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query archives: %w", err)
	}
	defer rows.Close()

	var archives []model.SeasonArchive
	for rows.Next() {
		var a model.SeasonArchive
		var seasonRaw string
		if err := rows.Scan(&a.MemberID, &seasonRaw, &a.FinalRating, &a.ContestScore, &a.PracticeScore, &a.Rank); err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		a.Season = season.Season(seasonRaw)
		archives = append(archives, a)
	}
	return archives, rows.Err()
}

// CurrentSeason returns the persisted season pointer.
func (s *SQLiteStore) CurrentSeason(ctx context.Context) (season.Season, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, settingKeySeason)
	var value string
	err := row.Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", errSeasonUnset()
	}
	if err != nil {
		return "", fmt.Errorf("query season setting: %w", err)
	}
	return season.Season(value), nil
}

// SetCurrentSeason overwrites the persisted season pointer.
func (s *SQLiteStore) SetCurrentSeason(ctx context.Context, sn season.Season) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		settingKeySeason, sn.String())
	if err != nil {
		return fmt.Errorf("set season setting: %w", err)
	}
	return nil
}

// requireRow converts a zero-row update into the given not-found error.
func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
