// Package site normalizes plugin and role scores into a single site index.
package site

import (
	"math"

	"github.com/coal/siterisk/internal/model"
	"github.com/coal/siterisk/internal/score"
)

// Per-entity maxima used to size the index denominator.
const (
	MaxPluginPoints = 100
	MaxRolePoints   = score.LayerCap
)

// Classification band upper bounds (inclusive).
const (
	HealthyMax  = 20
	LowMax      = 40
	ModerateMax = 60
	HighMax     = 80
)

// correlationMultiplier scales paired risk once both sides pass the threshold.
const correlationMultiplier = 1.5

// Summarize builds the site summary from the profiles of one scan.
func Summarize(plugins []model.PluginRiskProfile, roles []model.RoleRiskProfile) model.SiteRiskSummary {
	total := 0
	for _, p := range plugins {
		total += p.Total
	}
	for _, r := range roles {
		total += r.RiskScore
	}
	idx := Index(total, len(plugins), len(roles))
	return model.SiteRiskSummary{
		TotalRiskPoints: total,
		PluginsScanned:  len(plugins),
		RolesScanned:    len(roles),
		Index:           idx,
		Classification:  Classify(idx),
	}
}

// Index maps total risk points onto [0, 100], rounded to two decimals.
func Index(total, plugins, roles int) float64 {
	maxPossible := plugins*MaxPluginPoints + roles*MaxRolePoints
	if maxPossible < 1 {
		maxPossible = 1
	}
	idx := round(float64(total)/float64(maxPossible)*100, 2)
	return clamp(idx, 0, 100)
}

// Classify maps an index onto its qualitative band.
func Classify(index float64) model.Classification {
	switch {
	case index <= HealthyMax:
		return model.ClassHealthy
	case index <= LowMax:
		return model.ClassLow
	case index <= ModerateMax:
		return model.ClassModerate
	case index <= HighMax:
		return model.ClassHigh
	default:
		return model.ClassCritical
	}
}

// DefaultCorrelationThreshold is the usual threshold for ApplyCorrelation.
const DefaultCorrelationThreshold = 40

// ApplyCorrelation combines a plugin and a role risk value. When both
// strictly exceed threshold the sum is scaled by 1.5.
func ApplyCorrelation(pluginRisk, roleRisk float64, threshold int) float64 {
	sum := pluginRisk + roleRisk
	if pluginRisk > float64(threshold) && roleRisk > float64(threshold) {
		return sum * correlationMultiplier
	}
	return sum
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
