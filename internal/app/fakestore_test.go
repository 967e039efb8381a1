package service_test

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ratingd/internal/domain/model"
	"ratingd/internal/domain/season"
	"ratingd/internal/domain/types"
	"ratingd/pkg/fault"
)

// fakeStore is an in-memory repository.Store for service tests.
type fakeStore struct {
	mu sync.Mutex

	members   map[string]model.Member
	records   map[string]model.ContestRecord
	stats     map[string]model.PracticeMonthStat
	snapshots map[string]model.MonthlySnapshot
	archives  map[string]model.SeasonArchive
	season    season.Season

	// failFor makes every write for the member fail, for isolation tests.
	failFor map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		members:   make(map[string]model.Member),
		records:   make(map[string]model.ContestRecord),
		stats:     make(map[string]model.PracticeMonthStat),
		snapshots: make(map[string]model.MonthlySnapshot),
		archives:  make(map[string]model.SeasonArchive),
		failFor:   make(map[string]bool),
	}
}

func statKey(memberID string, p season.Period) string {
	return fmt.Sprintf("%s/%s", memberID, p)
}

func (f *fakeStore) Member(_ context.Context, id string) (model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return model.Member{}, fault.New(fault.NotFound, "member %s not found", id)
	}
	return m, nil
}

func (f *fakeStore) SettleableMembers(_ context.Context) ([]model.Member, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Member, 0, len(f.members))
	for _, m := range f.members {
		if m.Settleable() {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Rating != out[j].Rating {
			return out[i].Rating > out[j].Rating
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeStore) SaveMember(_ context.Context, m model.Member) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[m.ID] = m
	return nil
}

func (f *fakeStore) UpdateRating(_ context.Context, id string, total float64, b model.Breakdown) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[id] {
		return fault.New(fault.External, "injected failure for %s", id)
	}
	m, ok := f.members[id]
	if !ok {
		return fault.New(fault.NotFound, "member %s not found", id)
	}
	m.Rating = total
	m.Breakdown = b
	f.members[id] = m
	return nil
}

func (f *fakeStore) UpdateSolvedCount(_ context.Context, id string, solved int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.members[id]
	if !ok {
		return fault.New(fault.NotFound, "member %s not found", id)
	}
	m.SolvedCount = solved
	f.members[id] = m
	return nil
}

func (f *fakeStore) ContestRecords(_ context.Context, memberID string) ([]model.ContestRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.ContestRecord
	for _, r := range f.records {
		if r.MemberID == memberID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) AddContestRecord(_ context.Context, rec model.ContestRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.ID] = rec
	return nil
}

func (f *fakeStore) DeleteContestRecord(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return fault.New(fault.NotFound, "record %s not found", id)
	}
	delete(f.records, id)
	return nil
}

func (f *fakeStore) PracticeStat(_ context.Context, memberID string, p season.Period) (model.PracticeMonthStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.stats[statKey(memberID, p)]
	if !ok {
		return model.PracticeMonthStat{}, fault.New(fault.NotFound, "stat %s %s not found", memberID, p)
	}
	return st, nil
}

func (f *fakeStore) UpsertPracticeStat(_ context.Context, stat model.PracticeMonthStat) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[stat.MemberID] {
		return fault.New(fault.External, "injected failure for %s", stat.MemberID)
	}
	f.stats[statKey(stat.MemberID, stat.Period())] = stat
	return nil
}

func (f *fakeStore) SeasonPracticeStats(_ context.Context, memberID string, s season.Season) ([]model.PracticeMonthStat, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.PracticeMonthStat
	for _, st := range f.stats {
		if st.MemberID == memberID && st.Season == s {
			out = append(out, st)
		}
	}
	return out, nil
}

func (f *fakeStore) Snapshot(_ context.Context, memberID string, p season.Period) (model.MonthlySnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snapshots[statKey(memberID, p)]
	if !ok {
		return model.MonthlySnapshot{}, fault.New(fault.NotFound, "snapshot %s %s not found", memberID, p)
	}
	return snap, nil
}

func (f *fakeStore) PutSnapshot(_ context.Context, snap model.MonthlySnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := season.Period{Year: snap.Year, Month: snap.Month}
	f.snapshots[statKey(snap.MemberID, p)] = snap
	return nil
}

func (f *fakeStore) SnapshotReport(_ context.Context, p season.Period) ([]types.SnapshotRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.SnapshotRow
	for _, snap := range f.snapshots {
		if snap.Year != p.Year || snap.Month != p.Month {
			continue
		}
		m := f.members[snap.MemberID]
		out = append(out, types.SnapshotRow{
			MemberID:    snap.MemberID,
			Name:        m.Name,
			StudentID:   m.StudentID,
			Season:      snap.Season.String(),
			Year:        snap.Year,
			Month:       snap.Month,
			TotalSolved: snap.TotalSolved,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalSolved > out[j].TotalSolved })
	return out, nil
}

func (f *fakeStore) UpsertArchive(_ context.Context, a model.SeasonArchive) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failFor[a.MemberID] {
		return fault.New(fault.External, "injected failure for %s", a.MemberID)
	}
	f.archives[a.MemberID+"/"+a.Season.String()] = a
	return nil
}

func (f *fakeStore) ArchivesByMember(_ context.Context, memberID string) ([]model.SeasonArchive, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SeasonArchive
	for _, a := range f.archives {
		if a.MemberID == memberID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) SeasonArchives(_ context.Context, s season.Season) ([]model.SeasonArchive, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.SeasonArchive
	for _, a := range f.archives {
		if a.Season == s {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out, nil
}

func (f *fakeStore) CurrentSeason(_ context.Context) (season.Season, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.season == "" {
		return "", fault.New(fault.NotFound, "current season is not set")
	}
	return f.season, nil
}

func (f *fakeStore) SetCurrentSeason(_ context.Context, s season.Season) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.season = s
	return nil
}

func (f *fakeStore) Close() error { return nil }
