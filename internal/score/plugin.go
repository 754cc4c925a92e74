package score

import "github.com/coal/siterisk/internal/model"

// Level thresholds over a plugin total.
const (
	CriticalThreshold = 81
	HighThreshold     = 61
	MediumThreshold   = 31
)

// RiskLevel maps a plugin total onto its qualitative level.
func RiskLevel(total int) model.Level {
	switch {
	case total >= CriticalThreshold:
		return model.LevelCritical
	case total >= HighThreshold:
		return model.LevelHigh
	case total >= MediumThreshold:
		return model.LevelMedium
	default:
		return model.LevelLow
	}
}

// Plugin scores every layer of a bundle. The total is the uncapped sum.
func Plugin(b model.PluginBundle) model.PluginRiskProfile {
	p := model.PluginRiskProfile{
		Component:  b.Component,
		Privacy:    Privacy(b.HasPrivacyProvider, b.Privacy),
		Dependency: Dependency(b.Dependency),
		Capability: Capability(b.Capability),
		Structural: Structural(b.Structural),
		Signals: model.Signals{
			HasPrivacyProvider: b.HasPrivacyProvider,
			DeprecatedCalls:    len(b.Structural.DeprecatedCalls),
			Outdated:           b.Dependency.Outdated,
			NoRecentUpdate:     b.Dependency.NoRecentUpdate,
			DependencyCount:    b.Dependency.DependencyCount,
			VersionGap:         b.Dependency.VersionGap,
		},
	}
	p.Total = p.Privacy + p.Dependency + p.Capability + p.Structural
	p.Level = RiskLevel(p.Total)
	return p
}
