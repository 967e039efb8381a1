// Package service provides the core rating engine: score composition,
// monthly practice settlement, and season archival over the repository.
package service

import (
	"context"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ratingd/internal/adapters/activity"
	"ratingd/internal/adapters/repository"
	"ratingd/internal/domain/legacy"
	"ratingd/internal/domain/model"
	"ratingd/internal/domain/practice"
	"ratingd/internal/domain/scoring"
	"ratingd/internal/domain/season"
	"ratingd/internal/domain/transition"
	"ratingd/internal/domain/types"
	"ratingd/pkg/fault"
	"ratingd/pkg/logger"
	"ratingd/pkg/metrics"
	"ratingd/pkg/ratelimit"
)

// Service implements the rating engine over a Store and an activity
// Fetcher.
type Service struct {
	mu sync.RWMutex

	// Core components
	store   repository.Store
	fetcher activity.Fetcher
	locks   transition.Locker
	calc    *scoring.Calculator
	limiter *ratelimit.KeyedLimiter

	// Configuration
	scoringCfg  scoring.Config
	practiceCfg practice.Config
	legacyCfg   legacy.Config
	workerCount int
	queueSize   int
	fetchRPS    float64
	fetchBurst  int

	// State
	started       bool
	currentSeason season.Season

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the persistence backend. Required.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.store = store
	}
}

// WithFetcher sets the activity fetcher. Required for settlement.
func WithFetcher(f activity.Fetcher) Option {
	return func(s *Service) {
		s.fetcher = f
	}
}

// WithLocker replaces the transition lock registry.
func WithLocker(l transition.Locker) Option {
	return func(s *Service) {
		if l != nil {
			s.locks = l
		}
	}
}

// WithScoringConfig replaces the default contest score tables.
func WithScoringConfig(cfg scoring.Config) Option {
	return func(s *Service) {
		s.scoringCfg = cfg
	}
}

// WithPracticeConfig replaces the default practice settlement parameters.
func WithPracticeConfig(cfg practice.Config) Option {
	return func(s *Service) {
		s.practiceCfg = cfg
	}
}

// WithLegacyConfig replaces the default decay parameters.
func WithLegacyConfig(cfg legacy.Config) Option {
	return func(s *Service) {
		s.legacyCfg = cfg
	}
}

// WithWorkerCount sets the number of settlement workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the settlement queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithFetchLimits bounds per-source calls to external judge sites.
func WithFetchLimits(rps float64, burst int) Option {
	return func(s *Service) {
		if rps > 0 {
			s.fetchRPS = rps
		}
		if burst > 0 {
			s.fetchBurst = burst
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		scoringCfg:  scoring.DefaultConfig(),
		practiceCfg: practice.DefaultConfig(),
		legacyCfg:   legacy.DefaultConfig(),
		workerCount: 4,
		queueSize:   1024,
		fetchRPS:    0.5,
		fetchBurst:  1,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components and loads the season pointer.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}
	if s.store == nil {
		return fault.New(fault.Validation, "service requires a store")
	}

	if s.locks == nil {
		s.locks = transition.NewRegistry()
	}
	s.calc = scoring.NewCalculator(
		scoring.WithConfig(s.scoringCfg),
		scoring.WithLogger(s.logger),
	)
	s.limiter = ratelimit.New(s.fetchRPS, s.fetchBurst)

	// The season pointer may legitimately be unset on a fresh database;
	// season-dependent operations will refuse until it is configured.
	current, err := s.store.CurrentSeason(ctx)
	switch {
	case err == nil:
		s.currentSeason = current
	case fault.IsKind(err, fault.NotFound):
		s.logger.Warn(ctx, "current season is unset, configure it before settlement")
	default:
		return err
	}

	s.started = true
	s.logger.Info(ctx, "rating service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("season", s.currentSeason.String()),
	)

	return nil
}

// Stop releases the service's resources.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "rating service stopped")
}

// CurrentSeason returns the active season, or fault.NotFound when the
// pointer has never been configured.
func (s *Service) CurrentSeason(_ context.Context) (season.Season, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.currentSeason == "" {
		return "", fault.New(fault.NotFound, "current season is not configured")
	}
	return s.currentSeason, nil
}

// SetCurrentSeason validates, persists, and atomically swaps the active
// season.
func (s *Service) SetCurrentSeason(ctx context.Context, raw string) error {
	parsed, err := season.Parse(raw)
	if err != nil {
		return err
	}

	if err := s.store.SetCurrentSeason(ctx, parsed); err != nil {
		return err
	}

	s.mu.Lock()
	s.currentSeason = parsed
	s.mu.Unlock()

	s.logger.Info(ctx, "current season updated", logger.String("season", parsed.String()))
	return nil
}

// RawScore computes the display score of a single record against the
// active season.
func (s *Service) RawScore(ctx context.Context, rec model.ContestRecord) (float64, error) {
	current, err := s.CurrentSeason(ctx)
	if err != nil {
		return 0, err
	}
	return s.calc.RawScore(current, rec), nil
}

// AddContestRecord stores a record with its display score and
// recomposes the member's rating.
func (s *Service) AddContestRecord(ctx context.Context, rec model.ContestRecord) (model.ContestRecord, error) {
	current, err := s.CurrentSeason(ctx)
	if err != nil {
		return model.ContestRecord{}, err
	}

	rec.RawScore = s.calc.RawScore(current, rec)
	if err := s.store.AddContestRecord(ctx, rec); err != nil {
		return model.ContestRecord{}, err
	}

	if _, err := s.UpdateTotalRating(ctx, rec.MemberID); err != nil {
		return model.ContestRecord{}, err
	}
	return rec, nil
}

// DeleteContestRecord removes a record and recomposes the member's
// rating.
func (s *Service) DeleteContestRecord(ctx context.Context, id, memberID string) error {
	if err := s.store.DeleteContestRecord(ctx, id); err != nil {
		return err
	}
	_, err := s.UpdateTotalRating(ctx, memberID)
	return err
}

// ContestRating recomputes the member's contest component from all of
// their records against the active season.
func (s *Service) ContestRating(ctx context.Context, memberID string) (float64, error) {
	current, err := s.CurrentSeason(ctx)
	if err != nil {
		return 0, err
	}

	recs, err := s.store.ContestRecords(ctx, memberID)
	if err != nil {
		return 0, err
	}
	return s.calc.ContestRating(current, recs), nil
}

// PracticeRating sums the member's settled month scores for the season,
// capped at the season maximum.
func (s *Service) PracticeRating(ctx context.Context, memberID string, sn season.Season) (float64, error) {
	stats, err := s.store.SeasonPracticeStats(ctx, memberID, sn)
	if err != nil {
		return 0, err
	}

	scores := make([]float64, 0, len(stats))
	for _, st := range stats {
		if st.Settled {
			scores = append(scores, st.MonthScore)
		}
	}
	return practice.SeasonTotal(s.practiceCfg, scores), nil
}

// LegacyRating decays the member's archived season ratings into a
// baseline relative to base.
func (s *Service) LegacyRating(ctx context.Context, memberID string, base season.Season) (float64, error) {
	archives, err := s.store.ArchivesByMember(ctx, memberID)
	if err != nil {
		return 0, err
	}
	return legacy.Rating(s.legacyCfg, base, archives), nil
}

// UpdateTotalRating recomposes and persists the member's full rating
// breakdown. It refuses with fault.Conflict while the member is mid
// season-transition: composing then would run against the outgoing
// season and clobber the archiver's reset.
func (s *Service) UpdateTotalRating(ctx context.Context, memberID string) (model.Member, error) {
	if s.locks.Locked(memberID) {
		return model.Member{}, fault.New(fault.Conflict, "member %s is mid season-transition", memberID)
	}

	current, err := s.CurrentSeason(ctx)
	if err != nil {
		return model.Member{}, err
	}

	m, err := s.store.Member(ctx, memberID)
	if err != nil {
		return model.Member{}, err
	}

	var contest, practiceScore, legacyScore float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		contest, err = s.ContestRating(gctx, memberID)
		return err
	})
	g.Go(func() error {
		var err error
		practiceScore, err = s.PracticeRating(gctx, memberID, current)
		return err
	})
	g.Go(func() error {
		var err error
		legacyScore, err = s.LegacyRating(gctx, memberID, current)
		return err
	})
	if err := g.Wait(); err != nil {
		metrics.RecordCompositionError()
		return model.Member{}, err
	}

	m.Breakdown = model.Breakdown{
		Contest:           contest,
		Practice:          practiceScore,
		Legacy:            legacyScore,
		ActiveCoefficient: m.Breakdown.ActiveCoefficient,
	}
	m.Rating = round2(contest + practiceScore + legacyScore)

	if err := s.store.UpdateRating(ctx, memberID, m.Rating, m.Breakdown); err != nil {
		metrics.RecordCompositionError()
		return model.Member{}, err
	}

	metrics.RecordRatingRecomposed()
	s.logger.Debug(ctx, "rating recomposed",
		logger.String("member", memberID),
		logger.Float64("total", m.Rating),
	)
	return m, nil
}

// MonthSnapshot returns the period's snapshot report joined with member
// identity fields.
func (s *Service) MonthSnapshot(ctx context.Context, p season.Period) ([]types.SnapshotRow, error) {
	if !p.Valid() {
		return nil, fault.New(fault.Validation, "invalid period %d-%d", p.Year, p.Month)
	}
	return s.store.SnapshotReport(ctx, p)
}

// RefreshMemberActivity fetches the member's current activity snapshot,
// refreshes the cached solved count, and updates the running problem
// count of the current period's unsettled stat so progress is visible
// between settlements.
func (s *Service) RefreshMemberActivity(ctx context.Context, memberID string) (activity.Snapshot, error) {
	m, err := s.store.Member(ctx, memberID)
	if err != nil {
		return activity.Snapshot{}, err
	}

	snap, err := s.fetchActivity(ctx, m)
	if err != nil {
		return activity.Snapshot{}, err
	}

	if err := s.store.UpdateSolvedCount(ctx, memberID, snap.TotalSolved); err != nil {
		return activity.Snapshot{}, err
	}

	if err := s.refreshPeriodProgress(ctx, memberID, snap.TotalSolved); err != nil {
		return activity.Snapshot{}, err
	}
	return snap, nil
}

// refreshPeriodProgress writes the current period's in-progress problem
// count. Without a baseline snapshot (no batch has run yet for this
// period) or a configured season there is nothing meaningful to write.
func (s *Service) refreshPeriodProgress(ctx context.Context, memberID string, totalSolved int) error {
	current, err := s.CurrentSeason(ctx)
	if err != nil {
		if fault.IsKind(err, fault.NotFound) {
			return nil
		}
		return err
	}

	now := time.Now()
	p := season.Period{Year: now.Year(), Month: int(now.Month())}

	base, err := s.store.Snapshot(ctx, memberID, p)
	if err != nil {
		if fault.IsKind(err, fault.NotFound) {
			return nil
		}
		return err
	}

	delta := totalSolved - base.TotalSolved
	if delta < 0 {
		delta = 0
	}

	stat, err := s.store.PracticeStat(ctx, memberID, p)
	switch {
	case err == nil && stat.Settled:
		// Settlement already closed this period; leave it alone.
		return nil
	case err != nil && !fault.IsKind(err, fault.NotFound):
		return err
	}

	stat.MemberID = memberID
	stat.Season = current
	stat.Year = p.Year
	stat.Month = p.Month
	stat.ProblemCount = delta
	return s.store.UpsertPracticeStat(ctx, stat)
}

// fetchActivity rate-limits per judge source, fetches, and records
// per-source failures.
func (s *Service) fetchActivity(ctx context.Context, m model.Member) (activity.Snapshot, error) {
	for source := range m.Handles {
		if err := s.limiter.Wait(ctx, source); err != nil {
			return activity.Snapshot{}, fault.Wrap(fault.External, err, "rate limit wait for %s", source)
		}
	}

	start := time.Now()
	snap, err := s.fetcher.Fetch(ctx, m.Handles)
	metrics.RecordFetchDuration(time.Since(start).Seconds())
	if err != nil {
		metrics.RecordFetchError("all")
		return activity.Snapshot{}, fault.Wrap(fault.External, err, "fetch activity for member %s", m.ID)
	}

	for _, msg := range snap.Errors {
		source, _, found := strings.Cut(msg, ":")
		if !found {
			source = "unknown"
		}
		metrics.RecordFetchError(strings.TrimSpace(source))
	}
	return snap, nil
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
