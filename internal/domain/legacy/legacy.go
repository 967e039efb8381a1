// Package legacy decays archived season ratings into the current
// season's baseline.
package legacy

import (
	"math"

	"ratingd/internal/domain/model"
	"ratingd/internal/domain/season"
)

// DefaultFactor is the per-season exponential decay factor.
const DefaultFactor = 0.6

// Config holds the decay parameter.
type Config struct {
	// Factor is the per-season decay multiplier in (0, 1].
	Factor float64 `koanf:"factor"`
}

// DefaultConfig returns the standard decay configuration.
func DefaultConfig() Config {
	return Config{Factor: DefaultFactor}
}

// Rating sums the decayed archived ratings relative to base. Archives
// from the base season itself are excluded: a season contributes
// history only once it is distinct from the reference season.
func Rating(cfg Config, base season.Season, archives []model.SeasonArchive) float64 {
	factor := cfg.Factor
	if factor <= 0 || factor > 1 {
		factor = DefaultFactor
	}

	var total float64
	for _, a := range archives {
		if a.Season == base {
			continue
		}
		dist := season.Distance(base, a.Season)
		total += a.FinalRating * math.Pow(factor, float64(dist))
	}

	return math.Round(total*100) / 100
}
