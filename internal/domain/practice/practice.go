// Package practice implements the monthly practice-score state machine.
//
// Each member carries a single activity coefficient K from month to
// month. Meeting the monthly problem threshold nudges K up, missing it
// pulls K down, and the month score is the capped problem count times
// the per-problem score times K.
package practice

import (
	"math"
)

// Default settlement constants.
const (
	defaultMonthThreshold  = 60
	defaultScorePerProblem = 0.5
	defaultKInitial        = 1.0
	defaultKIncrement      = 0.1
	defaultKDecrement      = 0.2
	defaultKMax            = 1.0
	defaultKMin            = 0.0
	defaultSeasonMax       = 500
)

// Config holds the practice settlement parameters.
type Config struct {
	// MonthThreshold is the problem count that keeps K from decaying;
	// problems beyond it do not score.
	MonthThreshold int `koanf:"month_threshold"`

	// ScorePerProblem is the score value of one solved problem.
	ScorePerProblem float64 `koanf:"score_per_problem"`

	// KInitial seeds the coefficient for a member with no prior month.
	KInitial float64 `koanf:"k_initial"`

	// KIncrement / KDecrement adjust the coefficient on hit / miss.
	KIncrement float64 `koanf:"k_increment"`
	KDecrement float64 `koanf:"k_decrement"`

	// KMax / KMin bound the coefficient.
	KMax float64 `koanf:"k_max"`
	KMin float64 `koanf:"k_min"`

	// SeasonMax caps the summed month scores for one season.
	SeasonMax float64 `koanf:"season_max"`
}

// DefaultConfig returns the standard settlement parameters.
func DefaultConfig() Config {
	return Config{
		MonthThreshold:  defaultMonthThreshold,
		ScorePerProblem: defaultScorePerProblem,
		KInitial:        defaultKInitial,
		KIncrement:      defaultKIncrement,
		KDecrement:      defaultKDecrement,
		KMax:            defaultKMax,
		KMin:            defaultKMin,
		SeasonMax:       defaultSeasonMax,
	}
}

// Settlement is the outcome of applying one period's problem count.
type Settlement struct {
	K          float64
	MonthScore float64
}

// Apply runs one coefficient transition. It is pure and deliberately
// NOT idempotent: applying the same period twice moves K twice. The
// effectively-once guarantee lives with the caller, which gates on the
// persisted settled flag.
func Apply(cfg Config, prevK float64, problemCount int) Settlement {
	k := prevK
	if problemCount >= cfg.MonthThreshold {
		k = math.Min(cfg.KMax, k+cfg.KIncrement)
	} else {
		k = math.Max(cfg.KMin, k-cfg.KDecrement)
	}

	// Two decimals, so 0.8-0.2 does not become 0.60000000000000001.
	k = round2(k)

	effective := problemCount
	if effective > cfg.MonthThreshold {
		effective = cfg.MonthThreshold
	}

	return Settlement{
		K:          k,
		MonthScore: round2(float64(effective) * cfg.ScorePerProblem * k),
	}
}

// SeasonTotal sums month scores and caps the result at the season
// maximum.
func SeasonTotal(cfg Config, monthScores []float64) float64 {
	var total float64
	for _, s := range monthScores {
		total += s
	}
	total = round2(total)
	return math.Min(cfg.SeasonMax, total)
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
