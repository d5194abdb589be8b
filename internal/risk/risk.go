// Package risk scores outbound transfers on a 0-100 integer scale from the
// transfer amount and recipient heuristics. Scoring is pure and
// deterministic; transfers in the very_high band require step-up (OTP)
// authentication before the ledger will execute them.
package risk

// Level buckets a score by fixed thresholds.
type Level string

const (
	LevelLow      Level = "low"       // <= 25
	LevelMedium   Level = "medium"    // 26-50
	LevelHigh     Level = "high"      // 51-75
	LevelVeryHigh Level = "very_high" // > 75
)

// Assessment is the result of scoring one transfer request. It is embedded
// in the resulting transaction record, never persisted on its own.
type Assessment struct {
	Score          int
	Level          Level
	StepUpRequired bool
}

// Input carries the transfer attributes the scorer evaluates.
type Input struct {
	Amount    int64
	Recipient string
	// OverDailyLimit is true when the transfer would push the account past
	// its advisory daily limit. It raises the score, never hard-blocks.
	OverDailyLimit bool
}

// LevelFor buckets a clamped score.
func LevelFor(score int) Level {
	switch {
	case score <= 25:
		return LevelLow
	case score <= 50:
		return LevelMedium
	case score <= 75:
		return LevelHigh
	default:
		return LevelVeryHigh
	}
}
