// Command seed populates a development database with a demo roster so
// the settlement commands have something to chew on.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"ratingd/internal/adapters/activity"
	"ratingd/internal/adapters/repository"
	"ratingd/internal/domain/model"
	"ratingd/internal/domain/season"
)

const (
	defaultMembers = 12
	defaultSeason  = "2025-2026"
)

var roles = []string{
	model.RoleCaptain,
	model.RoleViceCaptain,
	model.RoleStudentCoach,
	model.RoleMember,
	model.RoleMember,
	model.RoleMember,
}

var contestTypes = []string{"XCPC_REGIONAL", "XCPC_PROVINCIAL", "NOWCODER_CAMP", "CODEFORCES_DIV2"}

func main() {
	var (
		dbPath    = flag.String("db", "ratingd.db", "SQLite database path")
		members   = flag.Int("members", defaultMembers, "Number of demo members to create")
		seasonArg = flag.String("season", defaultSeason, "Season to seed, e.g. 2025-2026")
	)
	flag.Parse()

	if err := run(*dbPath, *members, *seasonArg); err != nil {
		os.Stderr.WriteString("seed: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(dbPath string, count int, seasonArg string) error {
	ctx := context.Background()

	sn, err := season.Parse(seasonArg)
	if err != nil {
		return err
	}

	store, err := repository.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.SetCurrentSeason(ctx, sn); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for i := 0; i < count; i++ {
		id := uuid.New().String()
		m := model.Member{
			ID:        id,
			Name:      fmt.Sprintf("Demo Member %02d", i+1),
			StudentID: fmt.Sprintf("2023%04d", i+1),
			Role:      roles[i%len(roles)],
			Status:    model.StatusActive,
			Handles: map[string]string{
				activity.SourceCodeforces: fmt.Sprintf("demo_cf_%02d", i+1),
				activity.SourceLuogu:      fmt.Sprintf("demo_lg_%02d", i+1),
			},
			SolvedCount: rng.Intn(400),
			Breakdown:   model.Breakdown{ActiveCoefficient: 1.0},
		}
		if err := store.SaveMember(ctx, m); err != nil {
			return err
		}

		for r := 0; r < 1+rng.Intn(3); r++ {
			participants := 30 + rng.Intn(270)
			rec := model.ContestRecord{
				ID:                uuid.New().String(),
				MemberID:          id,
				Name:              fmt.Sprintf("Demo Contest %d", r+1),
				Season:            sn,
				Type:              contestTypes[rng.Intn(len(contestTypes))],
				TotalParticipants: participants,
				Rank:              1 + rng.Intn(participants),
				Date:              time.Now().AddDate(0, -rng.Intn(6), 0),
			}
			if err := store.AddContestRecord(ctx, rec); err != nil {
				return err
			}
		}
	}

	fmt.Printf("seeded %d members into %s for season %s\n", count, dbPath, sn)
	return nil
}
