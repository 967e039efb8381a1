package service

import (
	"context"
	"sort"
	"time"

	"ratingd/internal/batch"
	"ratingd/internal/domain/model"
	"ratingd/internal/domain/practice"
	"ratingd/internal/domain/season"
	"ratingd/internal/domain/types"
	"ratingd/pkg/fault"
	"ratingd/pkg/logger"
	"ratingd/pkg/metrics"
)

// SettleMonth runs one member's coefficient transition for the period
// and persists the result. Repeats are no-ops: once the period's stat
// carries the settled flag, the stored stat is returned unchanged.
func (s *Service) SettleMonth(ctx context.Context, memberID string, p season.Period, problemCount int) (model.PracticeMonthStat, error) {
	if !p.Valid() {
		return model.PracticeMonthStat{}, fault.New(fault.Validation, "invalid period %d-%d", p.Year, p.Month)
	}
	if problemCount < 0 {
		return model.PracticeMonthStat{}, fault.New(fault.Validation, "negative problem count %d", problemCount)
	}

	current, err := s.CurrentSeason(ctx)
	if err != nil {
		return model.PracticeMonthStat{}, err
	}

	existing, err := s.store.PracticeStat(ctx, memberID, p)
	switch {
	case err == nil && existing.Settled:
		return existing, nil
	case err != nil && !fault.IsKind(err, fault.NotFound):
		return model.PracticeMonthStat{}, err
	}

	prevK := s.practiceCfg.KInitial
	prev, err := s.store.PracticeStat(ctx, memberID, p.Previous())
	switch {
	case err == nil:
		prevK = prev.ActiveCoefficient
	case !fault.IsKind(err, fault.NotFound):
		return model.PracticeMonthStat{}, err
	}

	res := practice.Apply(s.practiceCfg, prevK, problemCount)

	stat := model.PracticeMonthStat{
		MemberID:          memberID,
		Season:            current,
		Year:              p.Year,
		Month:             p.Month,
		ProblemCount:      problemCount,
		ActiveCoefficient: res.K,
		MonthScore:        res.MonthScore,
		Settled:           true,
	}
	if err := s.store.UpsertPracticeStat(ctx, stat); err != nil {
		return model.PracticeMonthStat{}, err
	}

	// The profile caches the latest settled coefficient; keep the cache
	// in step with the stat that owns it.
	m, err := s.store.Member(ctx, memberID)
	switch {
	case err == nil:
		m.Breakdown.ActiveCoefficient = res.K
		if err := s.store.UpdateRating(ctx, memberID, m.Rating, m.Breakdown); err != nil {
			return model.PracticeMonthStat{}, err
		}
	case !fault.IsKind(err, fault.NotFound):
		return model.PracticeMonthStat{}, err
	}

	s.logger.Debug(ctx, "month settled",
		logger.String("member", memberID),
		logger.String("period", p.String()),
		logger.Int("problems", problemCount),
		logger.Float64("k", res.K),
		logger.Float64("score", res.MonthScore),
	)
	return stat, nil
}

// BatchSettleLastMonth settles every settleable member for the previous
// calendar month through the worker pool. Members whose snapshot for
// the current period already exists were finished by an earlier run and
// are skipped, so an interrupted batch can simply be rerun.
func (s *Service) BatchSettleLastMonth(ctx context.Context) (types.BatchSummary, error) {
	now := time.Now()
	settlePeriod := season.Period{Year: now.Year(), Month: int(now.Month())}.Previous()
	markPeriod := season.Period{Year: now.Year(), Month: int(now.Month())}

	if _, err := s.CurrentSeason(ctx); err != nil {
		return types.BatchSummary{}, err
	}

	members, err := s.store.SettleableMembers(ctx)
	if err != nil {
		return types.BatchSummary{}, err
	}
	metrics.UpdateMembersTracked(len(members))

	queue := batch.NewQueue(s.queueSize)
	for _, m := range members {
		if !queue.Enqueue(ctx, batch.Job{Member: m}) {
			queue.Close()
			return types.BatchSummary{}, fault.New(fault.Validation,
				"queue size %d too small for %d members", s.queueSize, len(members))
		}
	}
	queue.Close()

	s.logger.Info(ctx, "batch settlement starting",
		logger.String("period", settlePeriod.String()),
		logger.Int("members", len(members)),
		logger.Int("workers", s.workerCount),
	)

	pool := batch.NewPool(s.workerCount, queue, batch.HandlerFunc(
		func(ctx context.Context, m model.Member) types.MemberResult {
			return s.settleMember(ctx, m, settlePeriod, markPeriod)
		},
	), batch.WithLogger(s.logger))

	results := pool.Run(ctx)

	summary := types.BatchSummary{Total: len(members), Results: results}
	for _, r := range results {
		switch r.Status {
		case types.MemberSettled:
			summary.Processed++
		case types.MemberSkipped:
			summary.Skipped++
		case types.MemberFailed:
			summary.Failed++
		}
	}

	s.logger.Info(ctx, "batch settlement finished",
		logger.String("period", settlePeriod.String()),
		logger.Int("processed", summary.Processed),
		logger.Int("skipped", summary.Skipped),
		logger.Int("failed", summary.Failed),
	)
	return summary, nil
}

// settleMember runs the full per-member settlement sequence. The
// markPeriod snapshot is written last, so its presence proves the whole
// sequence completed; that is the resume cursor the batch checks first.
func (s *Service) settleMember(ctx context.Context, m model.Member, settlePeriod, markPeriod season.Period) types.MemberResult {
	result := types.MemberResult{MemberID: m.ID, Name: m.Name}

	if _, err := s.store.Snapshot(ctx, m.ID, markPeriod); err == nil {
		result.Status = types.MemberSkipped
		return result
	} else if !fault.IsKind(err, fault.NotFound) {
		result.Status = types.MemberFailed
		result.Err = err.Error()
		return result
	}

	snap, err := s.fetchActivity(ctx, m)
	if err != nil {
		result.Status = types.MemberFailed
		result.Err = err.Error()
		return result
	}
	result.Warnings = snap.Errors
	result.Total = snap.TotalSolved

	// Baseline for the settled month. A missing snapshot means the
	// member joined mid-season; their whole history counts once.
	baseline := 0
	if base, err := s.store.Snapshot(ctx, m.ID, settlePeriod); err == nil {
		baseline = base.TotalSolved
	} else if !fault.IsKind(err, fault.NotFound) {
		result.Status = types.MemberFailed
		result.Err = err.Error()
		return result
	}

	delta := snap.TotalSolved - baseline
	if delta < 0 {
		// Judge-side recounts can shrink totals; never settle a
		// negative month.
		result.Warnings = append(result.Warnings, "solved count decreased since baseline")
		delta = 0
	}
	result.Delta = delta

	if _, err := s.SettleMonth(ctx, m.ID, settlePeriod, delta); err != nil {
		result.Status = types.MemberFailed
		result.Err = err.Error()
		return result
	}

	if err := s.store.UpdateSolvedCount(ctx, m.ID, snap.TotalSolved); err != nil {
		result.Status = types.MemberFailed
		result.Err = err.Error()
		return result
	}

	if _, err := s.UpdateTotalRating(ctx, m.ID); err != nil {
		result.Status = types.MemberFailed
		result.Err = err.Error()
		return result
	}

	current, err := s.CurrentSeason(ctx)
	if err != nil {
		result.Status = types.MemberFailed
		result.Err = err.Error()
		return result
	}
	err = s.store.PutSnapshot(ctx, model.MonthlySnapshot{
		MemberID:    m.ID,
		Season:      current,
		Year:        markPeriod.Year,
		Month:       markPeriod.Month,
		TotalSolved: snap.TotalSolved,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		result.Status = types.MemberFailed
		result.Err = err.Error()
		return result
	}

	result.Status = types.MemberSettled
	return result
}

// ArchiveAndResetSeason closes the active season and opens next: every
// settleable member's final breakdown is archived with their rank, the
// profile is reset to the decayed legacy baseline, and the season
// pointer flips to next only after every member is through.
func (s *Service) ArchiveAndResetSeason(ctx context.Context, next season.Season) (types.BatchSummary, error) {
	current, err := s.CurrentSeason(ctx)
	if err != nil {
		return types.BatchSummary{}, err
	}
	if next == current {
		return types.BatchSummary{}, fault.New(fault.Validation, "next season %s equals the current season", next)
	}

	members, err := s.store.SettleableMembers(ctx)
	if err != nil {
		return types.BatchSummary{}, err
	}

	// Ranks come from season-end ratings, not the live roster order: a
	// member archived by an earlier run already carries their reset
	// legacy baseline, which would push everyone still waiting up the
	// listing and hand out a rank belonging to someone else.
	archived, ranks, err := s.seasonRanking(ctx, current, members)
	if err != nil {
		return types.BatchSummary{}, err
	}

	summary := types.BatchSummary{Total: len(members)}
	locked := make([]string, 0, len(members))
	defer func() {
		for _, id := range locked {
			s.locks.Unlock(id)
		}
	}()

	for _, m := range members {
		res := types.MemberResult{MemberID: m.ID, Name: m.Name}

		// An existing archive row means a previous run already closed
		// this member out; rewriting it would capture the reset rating
		// instead of the real season-end one.
		if archived[m.ID] {
			res.Status = types.MemberSkipped
			summary.Skipped++
			summary.Results = append(summary.Results, res)
			continue
		}

		if !s.locks.Lock(m.ID) {
			metrics.RecordArchiveFailure()
			res.Status = types.MemberFailed
			res.Err = "member already mid season-transition"
			summary.Failed++
			summary.Results = append(summary.Results, res)
			continue
		}
		locked = append(locked, m.ID)

		if err := s.archiveMember(ctx, m, current, next, ranks[m.ID]); err != nil {
			metrics.RecordArchiveFailure()
			res.Status = types.MemberFailed
			res.Err = err.Error()
			summary.Failed++
			summary.Results = append(summary.Results, res)
			continue
		}

		metrics.RecordMemberArchived()
		res.Status = types.MemberSettled
		summary.Processed++
		summary.Results = append(summary.Results, res)
	}

	if summary.Failed > 0 {
		// Leave the season pointer alone so the run can be repeated
		// once the failures are resolved; archives are upserts.
		return summary, fault.New(fault.External, "%d of %d members failed to archive, season pointer unchanged",
			summary.Failed, summary.Total)
	}

	if err := s.store.SetCurrentSeason(ctx, next); err != nil {
		return summary, err
	}
	s.mu.Lock()
	s.currentSeason = next
	s.mu.Unlock()

	s.logger.Info(ctx, "season archived",
		logger.String("closed", current.String()),
		logger.String("opened", next.String()),
		logger.Int("members", summary.Processed),
	)
	return summary, nil
}

// seasonRanking builds the closing season's final ranking. Members
// already archived contribute the final rating recorded in their
// archive row, everyone else their current one, so ranks stay stable
// across retries even after early members were reset.
func (s *Service) seasonRanking(ctx context.Context, sn season.Season, members []model.Member) (archived map[string]bool, ranks map[string]int, err error) {
	rows, err := s.store.SeasonArchives(ctx, sn)
	if err != nil {
		return nil, nil, err
	}

	type standing struct {
		memberID string
		rating   float64
	}
	archived = make(map[string]bool, len(rows))
	board := make([]standing, 0, len(members)+len(rows))
	for _, a := range rows {
		archived[a.MemberID] = true
		board = append(board, standing{a.MemberID, a.FinalRating})
	}
	for _, m := range members {
		if archived[m.ID] {
			continue
		}
		board = append(board, standing{m.ID, m.Rating})
	}

	sort.Slice(board, func(i, j int) bool {
		if board[i].rating != board[j].rating {
			return board[i].rating > board[j].rating
		}
		return board[i].memberID < board[j].memberID
	})

	ranks = make(map[string]int, len(board))
	for i, st := range board {
		ranks[st.memberID] = i + 1
	}
	return archived, ranks, nil
}

// archiveMember writes one member's archive row and resets their
// profile to the next season's legacy baseline.
func (s *Service) archiveMember(ctx context.Context, m model.Member, current, next season.Season, rank int) error {
	err := s.store.UpsertArchive(ctx, model.SeasonArchive{
		MemberID:      m.ID,
		Season:        current,
		FinalRating:   m.Rating,
		ContestScore:  m.Breakdown.Contest,
		PracticeScore: m.Breakdown.Practice,
		Rank:          rank,
	})
	if err != nil {
		return err
	}

	legacyScore, err := s.LegacyRating(ctx, m.ID, next)
	if err != nil {
		return err
	}

	return s.store.UpdateRating(ctx, m.ID, legacyScore, model.Breakdown{
		Legacy:            legacyScore,
		ActiveCoefficient: s.practiceCfg.KInitial,
	})
}
