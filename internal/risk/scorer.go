package risk

import "strings"

// Default scoring parameters. Operators tune these through configuration;
// the defaults keep amounts in integer minor units.
const (
	DefaultBaseScore       = 20
	DefaultLowThreshold    = 10_000
	DefaultHighThreshold   = 100_000
	DefaultSlopeDivisor    = 1_000
	DefaultHighBonus       = 20
	DefaultDenylistBonus   = 30
	DefaultDailyLimitBonus = 10
	DefaultStepUpThreshold = 75
)

// DefaultDenylist is the heuristic recipient substring denylist.
var DefaultDenylist = []string{"unknown", "suspicious"}

// Config holds the scorer's tunable thresholds.
type Config struct {
	BaseScore int
	// Amounts above LowThreshold add (amount-LowThreshold)/SlopeDivisor.
	LowThreshold int64
	SlopeDivisor int64
	// Amounts above HighThreshold add a further flat HighBonus.
	HighThreshold int64
	HighBonus     int
	// Recipients containing a denylist substring add DenylistBonus.
	Denylist      []string
	DenylistBonus int
	// Transfers pushing past the advisory daily limit add DailyLimitBonus.
	DailyLimitBonus int
	// Scores strictly above StepUpThreshold require OTP step-up.
	StepUpThreshold int
}

// DefaultConfig returns the default scoring parameters.
func DefaultConfig() Config {
	return Config{
		BaseScore:       DefaultBaseScore,
		LowThreshold:    DefaultLowThreshold,
		SlopeDivisor:    DefaultSlopeDivisor,
		HighThreshold:   DefaultHighThreshold,
		HighBonus:       DefaultHighBonus,
		Denylist:        DefaultDenylist,
		DenylistBonus:   DefaultDenylistBonus,
		DailyLimitBonus: DefaultDailyLimitBonus,
		StepUpThreshold: DefaultStepUpThreshold,
	}
}

// Scorer computes risk assessments. It holds no mutable state and is safe
// for concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer builds a scorer. Zero-valued fields in cfg fall back to the
// package defaults so operators only override what they tune.
func NewScorer(cfg Config) *Scorer {
	d := DefaultConfig()
	if cfg.BaseScore == 0 {
		cfg.BaseScore = d.BaseScore
	}
	if cfg.LowThreshold == 0 {
		cfg.LowThreshold = d.LowThreshold
	}
	if cfg.SlopeDivisor == 0 {
		cfg.SlopeDivisor = d.SlopeDivisor
	}
	if cfg.HighThreshold == 0 {
		cfg.HighThreshold = d.HighThreshold
	}
	if cfg.HighBonus == 0 {
		cfg.HighBonus = d.HighBonus
	}
	if len(cfg.Denylist) == 0 {
		cfg.Denylist = d.Denylist
	}
	if cfg.DenylistBonus == 0 {
		cfg.DenylistBonus = d.DenylistBonus
	}
	if cfg.DailyLimitBonus == 0 {
		cfg.DailyLimitBonus = d.DailyLimitBonus
	}
	if cfg.StepUpThreshold == 0 {
		cfg.StepUpThreshold = d.StepUpThreshold
	}
	return &Scorer{cfg: cfg}
}

// Score evaluates a transfer. Pure function of its input: no clock, no I/O,
// no account mutation.
func (s *Scorer) Score(in Input) Assessment {
	score := s.cfg.BaseScore

	if in.Amount > s.cfg.LowThreshold {
		score += int((in.Amount - s.cfg.LowThreshold) / s.cfg.SlopeDivisor)
	}
	if in.Amount > s.cfg.HighThreshold {
		score += s.cfg.HighBonus
	}

	recipient := strings.ToLower(in.Recipient)
	for _, marker := range s.cfg.Denylist {
		if strings.Contains(recipient, marker) {
			score += s.cfg.DenylistBonus
			break
		}
	}

	if in.OverDailyLimit {
		score += s.cfg.DailyLimitBonus
	}

	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return Assessment{
		Score:          score,
		Level:          LevelFor(score),
		StepUpRequired: score > s.cfg.StepUpThreshold,
	}
}
