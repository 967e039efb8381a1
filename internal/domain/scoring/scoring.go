// Package scoring computes contest and award scores from roster records.
//
// All functions are pure and replayable: the stored raw score on a
// record is a display cache, aggregation always recomputes from the
// record fields and the current season.
package scoring

import (
	"context"
	"math"
	"sort"
	"strings"

	"ratingd/internal/domain/model"
	"ratingd/internal/domain/season"
	"ratingd/pkg/logger"
)

// Option applies a configuration option to the Calculator.
type Option func(*Calculator)

// WithConfig replaces the default score tables.
func WithConfig(cfg Config) Option {
	return func(c *Calculator) {
		c.cfg = cfg.normalized()
	}
}

// WithLogger sets a logger for data-integrity warnings.
func WithLogger(log logger.Logger) Option {
	return func(c *Calculator) {
		if log != nil {
			c.logger = log
		}
	}
}

// Calculator computes raw scores and per-member contest ratings.
type Calculator struct {
	cfg    Config
	logger logger.Logger
}

// NewCalculator creates a calculator with the default tables.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		cfg: DefaultConfig(),
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Config returns the active score tables.
func (c *Calculator) Config() Config { return c.cfg }

// RawScore computes the score of a single record relative to current.
//
// Award records (type+"_"+level present in the award table) score
// base × weight × decay(seasonDistance) and survive across seasons
// until the decay table runs out. Ranked contests only count in the
// season they were played; the score is base × (N−rank+1)/N × weight,
// rounded to two decimals and floored at zero.
func (c *Calculator) RawScore(current season.Season, rec model.ContestRecord) float64 {
	// Award path: key like "LANQIAO_NAT_1".
	if rec.AwardLevel != "" {
		if weight, ok := c.cfg.AwardWeights[rec.Type+"_"+rec.AwardLevel]; ok {
			dist := season.Distance(current, rec.Season)
			if dist >= len(c.cfg.AwardDecay) {
				return 0
			}
			return round2(c.cfg.AwardBase * weight * c.cfg.AwardDecay[dist])
		}
	}

	// Ranked contests are only recognized in the season they were played.
	if rec.Season != current {
		return 0
	}

	base := c.cfg.ContestBase
	if strings.Contains(rec.Type, "CAMP") {
		base = c.cfg.CampBase
	}

	weight := c.cfg.ContestWeights[rec.Type]

	if rec.TotalParticipants == 0 {
		return 0
	}

	// Rank beyond the participant count means broken data; never let it
	// produce a negative score.
	if rec.Rank > rec.TotalParticipants {
		if c.logger != nil {
			c.logger.Warn(context.Background(), "rank exceeds participant count, scoring zero",
				logger.String("record", rec.ID),
				logger.Int("rank", rec.Rank),
				logger.Int("participants", rec.TotalParticipants),
			)
		}
		return 0
	}

	n := float64(rec.TotalParticipants)
	score := base * (n - float64(rec.Rank) + 1) / n * weight

	return math.Max(0, round2(score))
}

// ContestRating recomputes every record, keeps the positive scores,
// and sums the top N of them.
func (c *Calculator) ContestRating(current season.Season, recs []model.ContestRecord) float64 {
	scores := make([]float64, 0, len(recs))
	for _, rec := range recs {
		if s := c.RawScore(current, rec); s > 0 {
			scores = append(scores, s)
		}
	}

	sort.Sort(sort.Reverse(sort.Float64Slice(scores)))

	if len(scores) > c.cfg.TopN {
		scores = scores[:c.cfg.TopN]
	}

	var total float64
	for _, s := range scores {
		total += s
	}
	return round2(total)
}

// round2 rounds half away from zero to two decimals.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
