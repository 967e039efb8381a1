package scoring

// Default scoring configuration constants.
const (
	defaultTopN        = 10
	defaultContestBase = 1000
	defaultCampBase    = 1000
	defaultAwardBase   = 100
)

// Config holds the static score tables. It is loaded once and treated
// as immutable for the process lifetime.
type Config struct {
	// TopN is how many best contest scores count toward the rating.
	TopN int `koanf:"top_n"`

	// Base scores for ranked contests, training camps, and awards.
	ContestBase float64 `koanf:"contest_base"`
	CampBase    float64 `koanf:"camp_base"`
	AwardBase   float64 `koanf:"award_base"`

	// ContestWeights maps a contest type to its weight; unknown types
	// weigh 0.
	ContestWeights map[string]float64 `koanf:"contest_weights"`

	// AwardWeights is keyed by "TYPE_LEVEL", e.g. "LANQIAO_NAT_1".
	AwardWeights map[string]float64 `koanf:"award_weights"`

	// AwardDecay is indexed by season distance; entries beyond the table
	// decay to zero.
	AwardDecay []float64 `koanf:"award_decay"`
}

// DefaultConfig returns the standard rating tables.
func DefaultConfig() Config {
	return Config{
		TopN:        defaultTopN,
		ContestBase: defaultContestBase,
		CampBase:    defaultCampBase,
		AwardBase:   defaultAwardBase,
		ContestWeights: map[string]float64{
			// XCPC series
			"XCPC_FINAL":        2.0,
			"XCPC_REGIONAL":     1.0,
			"XCPC_NET":          0.8,
			"XCPC_INVITATIONAL": 0.5,
			"XCPC_PROVINCIAL":   0.1,
			"XCPC_CAMPUS":       0.05,
			"XCPC_TRAINING":     0.01,
			// Training camps
			"CAMP_NOWCODER_WINTER": 0.5,
			"CAMP_NOWCODER_SUMMER": 1.0,
			"CAMP_HDU_SPRING":      0.8,
			"CAMP_HDU_SUMMER":      1.3,
		},
		AwardWeights: map[string]float64{
			// GPLT team ladder
			"GPLT_NAT_1":  0.5,
			"GPLT_NAT_2":  0.3,
			"GPLT_NAT_3":  0.1,
			"GPLT_PROV_1": 0,
			"GPLT_PROV_2": 0,
			"GPLT_PROV_3": 0,
			// Lanqiao cup
			"LANQIAO_NAT_1":  0.5,
			"LANQIAO_NAT_2":  0.3,
			"LANQIAO_NAT_3":  0.1,
			"LANQIAO_PROV_1": 0.05,
			"LANQIAO_PROV_2": 0.03,
			"LANQIAO_PROV_3": 0.01,
			// Baidu Astar
			"ASTAR_NAT_1":  2.0,
			"ASTAR_NAT_2":  1.5,
			"ASTAR_NAT_3":  1.0,
			"ASTAR_PROV_1": 0.8,
			"ASTAR_PROV_2": 0.5,
			"ASTAR_PROV_3": 0.2,
			// PAT certification
			"PAT_TOP": 1.0,
			"PAT_ADV": 0.5,
			"PAT_BAS": 0.3,
			// NCCCU challenge
			"NCCCU_NAT_1":  0.1,
			"NCCCU_NAT_2":  0.05,
			"NCCCU_NAT_3":  0.01,
			"NCCCU_PROV_1": 0,
			"NCCCU_PROV_2": 0,
			"NCCCU_PROV_3": 0,
		},
		AwardDecay: []float64{1.0, 0.8, 0.4, 0.2, 0},
	}
}

// normalized fills zero-valued fields from the defaults so a partial
// config override cannot zero out a whole table.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.TopN <= 0 {
		c.TopN = def.TopN
	}
	if c.ContestBase <= 0 {
		c.ContestBase = def.ContestBase
	}
	if c.CampBase <= 0 {
		c.CampBase = def.CampBase
	}
	if c.AwardBase <= 0 {
		c.AwardBase = def.AwardBase
	}
	if len(c.ContestWeights) == 0 {
		c.ContestWeights = def.ContestWeights
	}
	if len(c.AwardWeights) == 0 {
		c.AwardWeights = def.AwardWeights
	}
	if len(c.AwardDecay) == 0 {
		c.AwardDecay = def.AwardDecay
	}
	return c
}
