package service_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"ratingd/internal/adapters/activity"
	service "ratingd/internal/app"
	"ratingd/internal/domain/model"
	"ratingd/internal/domain/season"
	"ratingd/internal/domain/transition"
	"ratingd/internal/domain/types"
	"ratingd/pkg/fault"
	"ratingd/pkg/logger"
)

const currentSeason = season.Season("2025-2026")

// startService wires a test service over the fake store with fetch
// limits wide open so tests never block on the limiter.
func startService(t *testing.T, store *fakeStore, opts ...service.Option) *service.Service {
	t.Helper()

	if err := logger.Init(); err != nil {
		t.Fatalf("init logger: %v", err)
	}

	base := []service.Option{
		service.WithStore(store),
		service.WithFetchLimits(1000, 100),
		service.WithWorkerCount(2),
	}
	svc := service.New(append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	return svc
}

func activeMember(id string, rating float64) model.Member {
	return model.Member{
		ID:     id,
		Name:   "member " + id,
		Role:   model.RoleMember,
		Status: model.StatusActive,
		Rating: rating,
		Breakdown: model.Breakdown{
			ActiveCoefficient: 1.0,
		},
	}
}

func TestSeasonOps(t *testing.T) {
	Convey("Given a service on a fresh store", t, func() {
		store := newFakeStore()
		svc := startService(t, store)
		ctx := context.Background()

		Convey("When no season was ever configured", func() {
			_, err := svc.CurrentSeason(ctx)

			Convey("Then reading it reports not found", func() {
				So(fault.KindOf(err), ShouldEqual, fault.NotFound)
			})
		})

		Convey("When setting a malformed season", func() {
			err := svc.SetCurrentSeason(ctx, "season one")

			Convey("Then it is rejected as validation", func() {
				So(fault.KindOf(err), ShouldEqual, fault.Validation)
			})
		})

		Convey("When setting a well-formed season", func() {
			So(svc.SetCurrentSeason(ctx, "2025-2026"), ShouldBeNil)

			Convey("Then it is persisted and readable", func() {
				got, err := svc.CurrentSeason(ctx)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, currentSeason)

				persisted, err := store.CurrentSeason(ctx)
				So(err, ShouldBeNil)
				So(persisted, ShouldEqual, currentSeason)
			})
		})
	})
}

func TestRatingComposition(t *testing.T) {
	Convey("Given a member with contest, practice, and legacy history", t, func() {
		store := newFakeStore()
		store.season = currentSeason
		ctx := context.Background()

		m := activeMember("alice", 0)
		So(store.SaveMember(ctx, m), ShouldBeNil)
		So(store.AddContestRecord(ctx, model.ContestRecord{
			ID:                "r1",
			MemberID:          "alice",
			Season:            currentSeason,
			Type:              "XCPC_REGIONAL",
			TotalParticipants: 50,
			Rank:              5,
			RawScore:          9999, // stale display cache, must be ignored
		}), ShouldBeNil)
		So(store.UpsertPracticeStat(ctx, model.PracticeMonthStat{
			MemberID:          "alice",
			Season:            currentSeason,
			Year:              2025,
			Month:             10,
			MonthScore:        30,
			ActiveCoefficient: 1.0,
			Settled:           true,
		}), ShouldBeNil)
		So(store.UpsertArchive(ctx, model.SeasonArchive{
			MemberID:    "alice",
			Season:      "2024-2025",
			FinalRating: 100,
		}), ShouldBeNil)

		svc := startService(t, store)

		Convey("When the total rating is recomposed", func() {
			got, err := svc.UpdateTotalRating(ctx, "alice")

			Convey("Then the breakdown is recomputed and persisted wholesale", func() {
				So(err, ShouldBeNil)
				So(got.Breakdown.Contest, ShouldEqual, 920.00)
				So(got.Breakdown.Practice, ShouldEqual, 30.00)
				So(got.Breakdown.Legacy, ShouldEqual, 60.00)
				So(got.Rating, ShouldEqual, 1010.00)

				stored, err := store.Member(ctx, "alice")
				So(err, ShouldBeNil)
				So(stored.Rating, ShouldEqual, 1010.00)
				So(stored.Breakdown.ActiveCoefficient, ShouldEqual, 1.0)
			})
		})

		Convey("When an unsettled practice stat exists", func() {
			So(store.UpsertPracticeStat(ctx, model.PracticeMonthStat{
				MemberID:   "alice",
				Season:     currentSeason,
				Year:       2025,
				Month:      11,
				MonthScore: 25,
				Settled:    false,
			}), ShouldBeNil)

			got, err := svc.UpdateTotalRating(ctx, "alice")

			Convey("Then only settled months count", func() {
				So(err, ShouldBeNil)
				So(got.Breakdown.Practice, ShouldEqual, 30.00)
			})
		})

		Convey("When the member is mid season-transition", func() {
			locks := transition.NewRegistry()
			So(locks.Lock("alice"), ShouldBeTrue)
			locked := startService(t, store, service.WithLocker(locks))

			_, err := locked.UpdateTotalRating(ctx, "alice")

			Convey("Then recomposition is refused with a conflict", func() {
				So(fault.KindOf(err), ShouldEqual, fault.Conflict)
			})
		})

		Convey("When the member does not exist", func() {
			_, err := svc.UpdateTotalRating(ctx, "ghost")

			Convey("Then the lookup error propagates", func() {
				So(fault.KindOf(err), ShouldEqual, fault.NotFound)
			})
		})
	})
}

func TestContestRecordOps(t *testing.T) {
	Convey("Given a service with a configured season", t, func() {
		store := newFakeStore()
		store.season = currentSeason
		ctx := context.Background()
		So(store.SaveMember(ctx, activeMember("alice", 0)), ShouldBeNil)
		svc := startService(t, store)

		Convey("When a contest record is added", func() {
			rec, err := svc.AddContestRecord(ctx, model.ContestRecord{
				ID:                "r1",
				MemberID:          "alice",
				Season:            currentSeason,
				Type:              "XCPC_REGIONAL",
				TotalParticipants: 50,
				Rank:              5,
			})

			Convey("Then the display score is cached and the rating recomposed", func() {
				So(err, ShouldBeNil)
				So(rec.RawScore, ShouldEqual, 920.00)

				m, err := store.Member(ctx, "alice")
				So(err, ShouldBeNil)
				So(m.Rating, ShouldEqual, 920.00)
			})

			Convey("And deleting it recomposes back to zero", func() {
				So(err, ShouldBeNil)
				So(svc.DeleteContestRecord(ctx, "r1", "alice"), ShouldBeNil)

				m, err := store.Member(ctx, "alice")
				So(err, ShouldBeNil)
				So(m.Rating, ShouldEqual, 0.00)
			})
		})
	})
}

func TestSettleMonth(t *testing.T) {
	Convey("Given a service with a configured season", t, func() {
		store := newFakeStore()
		store.season = currentSeason
		ctx := context.Background()
		So(store.SaveMember(ctx, activeMember("alice", 0)), ShouldBeNil)
		svc := startService(t, store)

		Convey("When settling a first month above the threshold", func() {
			stat, err := svc.SettleMonth(ctx, "alice", season.Period{Year: 2026, Month: 2}, 80)

			Convey("Then the initial coefficient applies and the score is capped at the threshold", func() {
				So(err, ShouldBeNil)
				So(stat.ActiveCoefficient, ShouldEqual, 1.0)
				So(stat.MonthScore, ShouldEqual, 30.00)
				So(stat.Settled, ShouldBeTrue)
				So(stat.Season, ShouldEqual, currentSeason)
			})

			Convey("And settling the same period again is a no-op", func() {
				So(err, ShouldBeNil)
				again, err := svc.SettleMonth(ctx, "alice", season.Period{Year: 2026, Month: 2}, 0)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, stat)
			})
		})

		Convey("When settling January", func() {
			So(store.UpsertPracticeStat(ctx, model.PracticeMonthStat{
				MemberID:          "alice",
				Season:            currentSeason,
				Year:              2025,
				Month:             12,
				ActiveCoefficient: 0.8,
				Settled:           true,
			}), ShouldBeNil)

			stat, err := svc.SettleMonth(ctx, "alice", season.Period{Year: 2026, Month: 1}, 10)

			Convey("Then the coefficient chains from December of the previous year", func() {
				So(err, ShouldBeNil)
				So(stat.ActiveCoefficient, ShouldEqual, 0.6)
				So(stat.MonthScore, ShouldEqual, 3.00)
			})

			Convey("Then the profile's cached coefficient follows the settled stat", func() {
				So(err, ShouldBeNil)

				m, err := store.Member(ctx, "alice")
				So(err, ShouldBeNil)
				So(m.Breakdown.ActiveCoefficient, ShouldEqual, 0.6)
			})
		})

		Convey("When the input is invalid", func() {
			_, badPeriod := svc.SettleMonth(ctx, "alice", season.Period{Year: 2026, Month: 13}, 10)
			_, badCount := svc.SettleMonth(ctx, "alice", season.Period{Year: 2026, Month: 3}, -1)

			Convey("Then both are rejected as validation", func() {
				So(fault.KindOf(badPeriod), ShouldEqual, fault.Validation)
				So(fault.KindOf(badCount), ShouldEqual, fault.Validation)
			})
		})
	})
}

func TestBatchSettleLastMonth(t *testing.T) {
	Convey("Given a roster with mixed settlement outcomes", t, func() {
		store := newFakeStore()
		store.season = currentSeason
		ctx := context.Background()

		now := time.Now()
		markPeriod := season.Period{Year: now.Year(), Month: int(now.Month())}
		settlePeriod := markPeriod.Previous()

		alice := activeMember("alice", 0)
		alice.Handles = map[string]string{activity.SourceCodeforces: "alice_cf"}
		bob := activeMember("bob", 0)
		bob.Handles = map[string]string{activity.SourceAtCoder: "bob_ac"}
		carol := activeMember("carol", 0)
		carol.Handles = map[string]string{activity.SourceLuogu: "carol_lg"}
		teacher := activeMember("coach", 0)
		teacher.Role = model.RoleTeacher

		for _, m := range []model.Member{alice, bob, carol, teacher} {
			So(store.SaveMember(ctx, m), ShouldBeNil)
		}

		// Alice has a baseline from last month; carol already finished
		// this run earlier.
		So(store.PutSnapshot(ctx, model.MonthlySnapshot{
			MemberID: "alice", Season: currentSeason,
			Year: settlePeriod.Year, Month: settlePeriod.Month, TotalSolved: 40,
		}), ShouldBeNil)
		So(store.PutSnapshot(ctx, model.MonthlySnapshot{
			MemberID: "carol", Season: currentSeason,
			Year: markPeriod.Year, Month: markPeriod.Month, TotalSolved: 70,
		}), ShouldBeNil)

		fetcher := activity.FetcherFunc(func(_ context.Context, handles map[string]string) (activity.Snapshot, error) {
			if _, ok := handles[activity.SourceAtCoder]; ok {
				return activity.Snapshot{}, fault.New(fault.External, "atcoder unreachable")
			}
			return activity.Snapshot{
				TotalSolved: 100,
				PerSource:   map[string]int{activity.SourceCodeforces: 100},
			}, nil
		})

		svc := startService(t, store, service.WithFetcher(fetcher))

		Convey("When the batch runs", func() {
			summary, err := svc.BatchSettleLastMonth(ctx)

			Convey("Then outcomes are isolated per member", func() {
				So(err, ShouldBeNil)
				So(summary.Total, ShouldEqual, 3) // teacher excluded
				So(summary.Processed, ShouldEqual, 1)
				So(summary.Skipped, ShouldEqual, 1)
				So(summary.Failed, ShouldEqual, 1)

				byID := make(map[string]types.MemberResult)
				for _, r := range summary.Results {
					byID[r.MemberID] = r
				}
				So(byID["alice"].Status, ShouldEqual, types.MemberSettled)
				So(byID["alice"].Delta, ShouldEqual, 60)
				So(byID["bob"].Status, ShouldEqual, types.MemberFailed)
				So(byID["bob"].Err, ShouldContainSubstring, "atcoder")
				So(byID["carol"].Status, ShouldEqual, types.MemberSkipped)
			})

			Convey("Then the settled member's whole sequence completed", func() {
				So(err, ShouldBeNil)

				stat, err := store.PracticeStat(ctx, "alice", settlePeriod)
				So(err, ShouldBeNil)
				So(stat.ProblemCount, ShouldEqual, 60)
				So(stat.MonthScore, ShouldEqual, 30.00)
				So(stat.Settled, ShouldBeTrue)

				m, err := store.Member(ctx, "alice")
				So(err, ShouldBeNil)
				So(m.SolvedCount, ShouldEqual, 100)
				So(m.Rating, ShouldEqual, 30.00)

				snap, err := store.Snapshot(ctx, "alice", markPeriod)
				So(err, ShouldBeNil)
				So(snap.TotalSolved, ShouldEqual, 100)
			})

			Convey("Then the failed member left no partial state behind", func() {
				So(err, ShouldBeNil)

				_, statErr := store.PracticeStat(ctx, "bob", settlePeriod)
				So(fault.KindOf(statErr), ShouldEqual, fault.NotFound)
				_, snapErr := store.Snapshot(ctx, "bob", markPeriod)
				So(fault.KindOf(snapErr), ShouldEqual, fault.NotFound)
			})

			Convey("And rerunning resumes past the finished members", func() {
				So(err, ShouldBeNil)
				again, err := svc.BatchSettleLastMonth(ctx)
				So(err, ShouldBeNil)
				So(again.Skipped, ShouldEqual, 2) // alice and carol
				So(again.Failed, ShouldEqual, 1)  // bob still unreachable
				So(again.Processed, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a member whose solved count shrank", t, func() {
		store := newFakeStore()
		store.season = currentSeason
		ctx := context.Background()

		now := time.Now()
		markPeriod := season.Period{Year: now.Year(), Month: int(now.Month())}
		settlePeriod := markPeriod.Previous()

		dave := activeMember("dave", 0)
		dave.Handles = map[string]string{activity.SourceCodeforces: "dave_cf"}
		So(store.SaveMember(ctx, dave), ShouldBeNil)
		So(store.PutSnapshot(ctx, model.MonthlySnapshot{
			MemberID: "dave", Season: currentSeason,
			Year: settlePeriod.Year, Month: settlePeriod.Month, TotalSolved: 120,
		}), ShouldBeNil)

		fetcher := activity.FetcherFunc(func(_ context.Context, _ map[string]string) (activity.Snapshot, error) {
			return activity.Snapshot{TotalSolved: 90}, nil
		})
		svc := startService(t, store, service.WithFetcher(fetcher))

		Convey("When the batch runs", func() {
			summary, err := svc.BatchSettleLastMonth(ctx)

			Convey("Then the month settles with a zero delta and a warning", func() {
				So(err, ShouldBeNil)
				So(summary.Processed, ShouldEqual, 1)
				So(summary.Results[0].Delta, ShouldEqual, 0)
				So(summary.Results[0].Warnings, ShouldContain, "solved count decreased since baseline")

				stat, err := store.PracticeStat(ctx, "dave", settlePeriod)
				So(err, ShouldBeNil)
				So(stat.MonthScore, ShouldEqual, 0.00)
				So(stat.ActiveCoefficient, ShouldEqual, 0.8)
			})
		})
	})
}

func TestArchiveAndResetSeason(t *testing.T) {
	Convey("Given a roster at season end", t, func() {
		store := newFakeStore()
		store.season = currentSeason
		ctx := context.Background()

		alice := activeMember("alice", 1010)
		alice.Breakdown = model.Breakdown{Contest: 920, Practice: 30, Legacy: 60, ActiveCoefficient: 0.9}
		bob := activeMember("bob", 500)
		bob.Breakdown = model.Breakdown{Contest: 500, ActiveCoefficient: 0.8}
		teacher := activeMember("coach", 9000)
		teacher.Role = model.RoleTeacher

		for _, m := range []model.Member{alice, bob, teacher} {
			So(store.SaveMember(ctx, m), ShouldBeNil)
		}
		So(store.UpsertArchive(ctx, model.SeasonArchive{
			MemberID:    "alice",
			Season:      "2024-2025",
			FinalRating: 100,
		}), ShouldBeNil)

		svc := startService(t, store)
		next := season.Season("2026-2027")

		Convey("When the season is archived and reset", func() {
			summary, err := svc.ArchiveAndResetSeason(ctx, next)

			Convey("Then every member is archived with their final rank", func() {
				So(err, ShouldBeNil)
				So(summary.Processed, ShouldEqual, 2)

				rows, err := store.SeasonArchives(ctx, currentSeason)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				So(rows[0].MemberID, ShouldEqual, "alice")
				So(rows[0].Rank, ShouldEqual, 1)
				So(rows[0].FinalRating, ShouldEqual, 1010.00)
				So(rows[0].ContestScore, ShouldEqual, 920.00)
				So(rows[0].PracticeScore, ShouldEqual, 30.00)
				So(rows[1].MemberID, ShouldEqual, "bob")
				So(rows[1].Rank, ShouldEqual, 2)
			})

			Convey("Then profiles reset to the decayed legacy baseline", func() {
				So(err, ShouldBeNil)

				m, err := store.Member(ctx, "alice")
				So(err, ShouldBeNil)
				// 1010 one season back plus 100 two seasons back.
				So(m.Rating, ShouldEqual, 642.00)
				So(m.Breakdown.Contest, ShouldEqual, 0.00)
				So(m.Breakdown.Practice, ShouldEqual, 0.00)
				So(m.Breakdown.Legacy, ShouldEqual, 642.00)
				So(m.Breakdown.ActiveCoefficient, ShouldEqual, 1.0)
			})

			Convey("Then the season pointer flips and composition works again", func() {
				So(err, ShouldBeNil)

				got, err := svc.CurrentSeason(ctx)
				So(err, ShouldBeNil)
				So(got, ShouldEqual, next)

				_, err = svc.UpdateTotalRating(ctx, "alice")
				So(err, ShouldBeNil)
			})
		})

		Convey("When one member's archive write fails", func() {
			store.failFor["bob"] = true
			summary, err := svc.ArchiveAndResetSeason(ctx, next)

			Convey("Then the season pointer stays on the old season", func() {
				So(err, ShouldNotBeNil)
				So(fault.KindOf(err), ShouldEqual, fault.External)
				So(summary.Failed, ShouldEqual, 1)

				got, seasonErr := svc.CurrentSeason(ctx)
				So(seasonErr, ShouldBeNil)
				So(got, ShouldEqual, currentSeason)
			})

			Convey("And repeating the run after the fix yields one archive row per member", func() {
				So(err, ShouldNotBeNil)
				store.failFor["bob"] = false

				retry, retryErr := svc.ArchiveAndResetSeason(ctx, next)
				So(retryErr, ShouldBeNil)
				So(retry.Processed, ShouldEqual, 1) // bob
				So(retry.Skipped, ShouldEqual, 1)   // alice, archived in the first run

				rows, err := store.SeasonArchives(ctx, currentSeason)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				for _, row := range rows {
					if row.MemberID == "alice" {
						// First-run value, not the reset rating.
						So(row.FinalRating, ShouldEqual, 1010.00)
					}
				}

				got, seasonErr := svc.CurrentSeason(ctx)
				So(seasonErr, ShouldBeNil)
				So(got, ShouldEqual, next)
			})
		})

		Convey("When the next season equals the current one", func() {
			_, err := svc.ArchiveAndResetSeason(ctx, currentSeason)

			Convey("Then the request is rejected", func() {
				So(fault.KindOf(err), ShouldEqual, fault.Validation)
			})
		})
	})

	Convey("Given a retried run where the reset reordered the roster", t, func() {
		store := newFakeStore()
		store.season = currentSeason
		ctx := context.Background()

		alpha := activeMember("alpha", 1000)
		alpha.Breakdown = model.Breakdown{Contest: 1000, ActiveCoefficient: 1.0}
		beta := activeMember("beta", 900)
		beta.Breakdown = model.Breakdown{Contest: 900, ActiveCoefficient: 1.0}
		for _, m := range []model.Member{alpha, beta} {
			So(store.SaveMember(ctx, m), ShouldBeNil)
		}

		svc := startService(t, store)
		next := season.Season("2026-2027")

		// First run archives alpha, fails beta, and resets alpha to the
		// 600.00 legacy baseline. The live roster now lists beta first.
		store.failFor["beta"] = true
		_, firstErr := svc.ArchiveAndResetSeason(ctx, next)
		So(firstErr, ShouldNotBeNil)
		store.failFor["beta"] = false

		reset, err := store.Member(ctx, "alpha")
		So(err, ShouldBeNil)
		So(reset.Rating, ShouldEqual, 600.00)

		Convey("When the run is repeated", func() {
			retry, err := svc.ArchiveAndResetSeason(ctx, next)

			Convey("Then ranks follow season-end ratings and stay unique", func() {
				So(err, ShouldBeNil)
				So(retry.Processed, ShouldEqual, 1)
				So(retry.Skipped, ShouldEqual, 1)

				rows, err := store.SeasonArchives(ctx, currentSeason)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				byID := make(map[string]model.SeasonArchive)
				for _, row := range rows {
					byID[row.MemberID] = row
				}
				So(byID["alpha"].Rank, ShouldEqual, 1)
				So(byID["beta"].Rank, ShouldEqual, 2)
			})
		})
	})
}

func TestMonthSnapshotReport(t *testing.T) {
	Convey("Given stored snapshots for a period", t, func() {
		store := newFakeStore()
		store.season = currentSeason
		ctx := context.Background()

		alice := activeMember("alice", 0)
		alice.Name = "Alice"
		alice.StudentID = "2023001"
		So(store.SaveMember(ctx, alice), ShouldBeNil)
		So(store.PutSnapshot(ctx, model.MonthlySnapshot{
			MemberID: "alice", Season: currentSeason, Year: 2026, Month: 3, TotalSolved: 70,
		}), ShouldBeNil)

		svc := startService(t, store)

		Convey("When the report is requested", func() {
			rows, err := svc.MonthSnapshot(ctx, season.Period{Year: 2026, Month: 3})

			Convey("Then member identity fields are joined in", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 1)
				So(rows[0].Name, ShouldEqual, "Alice")
				So(rows[0].StudentID, ShouldEqual, "2023001")
				So(rows[0].TotalSolved, ShouldEqual, 70)
			})
		})

		Convey("When the period is invalid", func() {
			_, err := svc.MonthSnapshot(ctx, season.Period{Year: 2026, Month: 0})

			Convey("Then it is rejected as validation", func() {
				So(fault.KindOf(err), ShouldEqual, fault.Validation)
			})
		})
	})
}

func TestRefreshMemberActivity(t *testing.T) {
	Convey("Given a member with linked handles", t, func() {
		store := newFakeStore()
		store.season = currentSeason
		ctx := context.Background()

		alice := activeMember("alice", 0)
		alice.Handles = map[string]string{
			activity.SourceCodeforces: "alice_cf",
			activity.SourceLuogu:      "alice_lg",
		}
		So(store.SaveMember(ctx, alice), ShouldBeNil)

		fetcher := activity.FetcherFunc(func(_ context.Context, _ map[string]string) (activity.Snapshot, error) {
			return activity.Snapshot{
				TotalSolved: 55,
				PerSource:   map[string]int{activity.SourceCodeforces: 55},
				Errors:      []string{"luogu: request timed out"},
			}, nil
		})
		svc := startService(t, store, service.WithFetcher(fetcher))

		Convey("When activity is refreshed", func() {
			snap, err := svc.RefreshMemberActivity(ctx, "alice")

			Convey("Then the cached solved count follows the snapshot", func() {
				So(err, ShouldBeNil)
				So(snap.TotalSolved, ShouldEqual, 55)
				So(snap.Partial(), ShouldBeTrue)

				m, err := store.Member(ctx, "alice")
				So(err, ShouldBeNil)
				So(m.SolvedCount, ShouldEqual, 55)
			})
		})

		Convey("When a period baseline exists", func() {
			now := time.Now()
			p := season.Period{Year: now.Year(), Month: int(now.Month())}
			So(store.PutSnapshot(ctx, model.MonthlySnapshot{
				MemberID: "alice", Season: currentSeason,
				Year: p.Year, Month: p.Month, TotalSolved: 40,
			}), ShouldBeNil)

			_, err := svc.RefreshMemberActivity(ctx, "alice")

			Convey("Then the period's in-progress problem count is updated", func() {
				So(err, ShouldBeNil)

				stat, err := store.PracticeStat(ctx, "alice", p)
				So(err, ShouldBeNil)
				So(stat.ProblemCount, ShouldEqual, 15)
				So(stat.Settled, ShouldBeFalse)
			})
		})
	})
}
