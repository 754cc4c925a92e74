package score

import "github.com/coal/siterisk/internal/model"

// Dependency penalties.
const (
	PenaltyCoreMismatch      = 25
	PenaltyMissingDependency = 20
	PenaltyOutdated          = 15
	PenaltyDeprecatedAPI     = 10
	PenaltyNoRecentUpdate    = 10

	maxDeprecatedAPIs = 3
)

// Dependency scores a plugin's requirement and freshness findings.
func Dependency(f model.DependencyFindings) int {
	score := 0
	if f.CoreMismatch {
		score += PenaltyCoreMismatch
	}
	score += PenaltyMissingDependency * len(f.MissingDependencies)
	if f.Outdated {
		score += PenaltyOutdated
	}
	score += PenaltyDeprecatedAPI * countAtMost(len(f.DeprecatedAPIs), maxDeprecatedAPIs)
	if f.NoRecentUpdate {
		score += PenaltyNoRecentUpdate
	}
	return capAt(score, LayerCap)
}
