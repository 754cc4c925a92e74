package score

import "github.com/coal/siterisk/internal/model"

// Structural penalties.
const (
	PenaltyNoVersionFile = 15
	PenaltyNoLangDir     = 5
	PenaltyNoReadme      = 3
	PenaltyNoTests       = 5
	PenaltyNoMaturity    = 5
	PenaltyLegacyCron    = 10
	PenaltyRiskyCall     = 8

	maxRiskyCallPenalty = 40
)

// Structural scores plugin hygiene. Deprecated and unsafe call occurrences
// share one bucket capped at 40.
func Structural(f model.StructuralFindings) int {
	score := 0
	if f.NoVersionFile {
		score += PenaltyNoVersionFile
	}
	if f.NoLangDir {
		score += PenaltyNoLangDir
	}
	if f.NoReadme {
		score += PenaltyNoReadme
	}
	if f.NoTests {
		score += PenaltyNoTests
	}
	if f.NoMaturity {
		score += PenaltyNoMaturity
	}
	if f.LegacyCron {
		score += PenaltyLegacyCron
	}
	calls := len(f.DeprecatedCalls) + len(f.UnsafeCalls)
	score += capAt(PenaltyRiskyCall*calls, maxRiskyCallPenalty)
	return capAt(score, LayerCap)
}
