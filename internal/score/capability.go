package score

import "github.com/coal/siterisk/internal/model"

// Capability penalties.
const (
	PenaltyCriticalNonAdmin   = 25
	PenaltySuspiciousOverride = 10

	maxCapabilityFindings = 3
)

// Capability scores privilege exposure. Each list counts at most three
// entries.
func Capability(f model.CapabilityFindings) int {
	score := PenaltyCriticalNonAdmin*countAtMost(len(f.CriticalCapsNonAdmin), maxCapabilityFindings) +
		PenaltySuspiciousOverride*countAtMost(len(f.SuspiciousOverrides), maxCapabilityFindings)
	return capAt(score, LayerCap)
}
