package correlation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coal/siterisk/internal/model"
	"github.com/coal/siterisk/internal/policy"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newEngine() *Engine {
	return New(Options{Now: func() time.Time { return fixedNow }})
}

func ruleNames(alerts []model.Alert) []string {
	out := make([]string, len(alerts))
	for i, a := range alerts {
		out[i] = a.Rule
	}
	return out
}

func TestEvaluate_NoInputNoAlerts(t *testing.T) {
	assert.Empty(t, newEngine().Evaluate("scan-1", nil, nil))
}

func TestPrivacyCapability(t *testing.T) {
	plugins := []model.PluginRiskProfile{{Component: "mod_x", Privacy: 30, Capability: 25}}

	alerts := newEngine().Evaluate("scan-1", plugins, nil)
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, RulePrivacyCapability, a.Rule)
	assert.Equal(t, model.AlertCorrelation, a.Type)
	assert.Equal(t, model.SeverityCritical, a.Severity)
	assert.Equal(t, "mod_x", a.Component)
	assert.Equal(t, "scan-1", a.ScanID)
	assert.Equal(t, fixedNow, a.CreatedAt)
}

func TestPrivacyCapability_ProviderSuppresses(t *testing.T) {
	plugins := []model.PluginRiskProfile{{
		Component: "mod_x", Privacy: 30, Capability: 25,
		Signals: model.Signals{HasPrivacyProvider: true},
	}}
	assert.Empty(t, newEngine().Evaluate("scan-1", plugins, nil))
}

func TestUnstableExposure(t *testing.T) {
	plugins := []model.PluginRiskProfile{{
		Component: "mod_x", Privacy: 20, Dependency: 20, Capability: 20,
		Signals: model.Signals{HasPrivacyProvider: true},
	}}
	alerts := newEngine().Evaluate("s", plugins, nil)
	require.Len(t, alerts, 1)
	assert.Equal(t, RuleUnstableExposure, alerts[0].Rule)
	assert.Equal(t, model.SeverityHigh, alerts[0].Severity)

	plugins[0].Dependency = 15
	plugins[0].Capability = 25
	assert.Empty(t, newEngine().Evaluate("s", plugins, nil))
}

func TestSystemicRisk_FirstPluginInComponentOrder(t *testing.T) {
	plugins := []model.PluginRiskProfile{
		{Component: "mod_c", Dependency: 60, Signals: model.Signals{HasPrivacyProvider: true}},
		{Component: "mod_a", Dependency: 30, Signals: model.Signals{HasPrivacyProvider: true}},
		{Component: "mod_b", Dependency: 45, Signals: model.Signals{HasPrivacyProvider: true}},
	}
	roles := []model.RoleRiskProfile{
		{RoleID: "5", Shortname: "student", RiskScore: 45},
		{RoleID: "6", Shortname: "guest", RiskScore: 35},
	}

	var systemic []model.Alert
	for _, a := range newEngine().Evaluate("s", plugins, roles) {
		if a.Rule == RuleSystemicRisk {
			systemic = append(systemic, a)
		}
	}
	require.Len(t, systemic, 1)
	assert.Equal(t, "mod_b", systemic[0].Component)
	assert.Equal(t, "5", systemic[0].RoleID)
	assert.Equal(t, model.SeverityCritical, systemic[0].Severity)
}

func TestSystemicRisk_CustomThreshold(t *testing.T) {
	plugins := []model.PluginRiskProfile{{Component: "mod_a", Dependency: 30, Signals: model.Signals{HasPrivacyProvider: true}}}
	roles := []model.RoleRiskProfile{{RoleID: "6", Shortname: "guest", RiskScore: 35}}

	e := New(Options{Threshold: 30, Now: func() time.Time { return fixedNow }})
	assert.Contains(t, ruleNames(e.Evaluate("s", plugins, roles)), RuleSystemicRisk)
	assert.NotContains(t, ruleNames(newEngine().Evaluate("s", plugins, roles)), RuleSystemicRisk)
}

func TestOutdatedPII(t *testing.T) {
	for _, sig := range []model.Signals{
		{HasPrivacyProvider: true, Outdated: true},
		{HasPrivacyProvider: true, NoRecentUpdate: true},
	} {
		plugins := []model.PluginRiskProfile{{Component: "mod_x", Privacy: 20, Signals: sig}}
		alerts := newEngine().Evaluate("s", plugins, nil)
		assert.Equal(t, []string{RuleOutdatedPII}, ruleNames(alerts))
	}

	plugins := []model.PluginRiskProfile{{Component: "mod_x", Privacy: 19,
		Signals: model.Signals{HasPrivacyProvider: true, Outdated: true}}}
	assert.Empty(t, newEngine().Evaluate("s", plugins, nil))
}

func TestStructuralPrivacy(t *testing.T) {
	plugins := []model.PluginRiskProfile{{Component: "mod_x", Privacy: 25, Structural: 15}}
	assert.Equal(t, []string{RuleStructuralPrivacy}, ruleNames(newEngine().Evaluate("s", plugins, nil)))

	plugins[0].Structural = 14
	assert.Empty(t, newEngine().Evaluate("s", plugins, nil))
}

func TestDeprecatedExposure(t *testing.T) {
	plugins := []model.PluginRiskProfile{{Component: "mod_x", Privacy: 20,
		Signals: model.Signals{DeprecatedCalls: 1}}}
	assert.Equal(t, []string{RuleDeprecatedExposure}, ruleNames(newEngine().Evaluate("s", plugins, nil)))

	plugins[0].Signals.HasPrivacyProvider = true
	assert.Empty(t, newEngine().Evaluate("s", plugins, nil))
}

func TestMultiRoleEscalation(t *testing.T) {
	roles := []model.RoleRiskProfile{
		{RoleID: "3", Shortname: "editingteacher", CriticalCapCount: 3},
		{RoleID: "4", Shortname: "teacher", CriticalCapCount: 4},
		{RoleID: "5", Shortname: "student", CriticalCapCount: 3},
	}

	alerts := newEngine().Evaluate("s", nil, roles)
	require.Len(t, alerts, 1)
	a := alerts[0]
	assert.Equal(t, RuleMultiRoleEscalate, a.Rule)
	assert.Equal(t, model.AlertCapability, a.Type)
	assert.Equal(t, model.SeverityCritical, a.Severity)
	assert.Empty(t, a.Component)
}

func TestMultiRoleEscalation_AdminRolesExcluded(t *testing.T) {
	roles := []model.RoleRiskProfile{
		{RoleID: "1", Shortname: "manager", CriticalCapCount: 12},
		{RoleID: "3", Shortname: "editingteacher", CriticalCapCount: 3},
		{RoleID: "5", Shortname: "student", CriticalCapCount: 3},
	}
	assert.Empty(t, newEngine().Evaluate("s", nil, roles))

	custom := New(Options{AdminRoles: []string{"editingteacher"}})
	roles[0].Shortname = "coursecreator"
	assert.Empty(t, custom.Evaluate("s", nil, roles))
}

func TestEvaluate_RuleOrder(t *testing.T) {
	plugins := []model.PluginRiskProfile{{
		Component: "mod_x", Privacy: 80, Dependency: 25, Capability: 25, Structural: 19,
		Signals: model.Signals{Outdated: true, DeprecatedCalls: 2},
	}}
	roles := []model.RoleRiskProfile{{RoleID: "5", Shortname: "student", RiskScore: 65}}

	got := ruleNames(newEngine().Evaluate("s", plugins, roles))
	assert.Equal(t, []string{
		RulePrivacyCapability,
		RuleUnstableExposure,
		RuleSystemicRisk,
		RuleOutdatedPII,
		RuleStructuralPrivacy,
		RuleDeprecatedExposure,
	}, got)
}

func TestEvaluate_PolicyRules(t *testing.T) {
	table := policy.NewAlertTable([]policy.AlertRule{{
		Name:     "big_total",
		Severity: "medium",
		Message:  "{component} is big",
		Conditions: []policy.MatchCondition{
			{Field: "total_score", MatchType: policy.MatchThreshold, Value: 10},
		},
	}})
	e := New(Options{AlertTable: table, Now: func() time.Time { return fixedNow }})

	plugins := []model.PluginRiskProfile{
		{Component: "mod_b", Total: 12, Signals: model.Signals{HasPrivacyProvider: true}},
		{Component: "mod_a", Total: 5, Signals: model.Signals{HasPrivacyProvider: true}},
	}
	alerts := e.Evaluate("s", plugins, nil)
	require.Len(t, alerts, 1)
	assert.Equal(t, model.AlertPolicy, alerts[0].Type)
	assert.Equal(t, model.SeverityMedium, alerts[0].Severity)
	assert.Equal(t, "mod_b is big", alerts[0].Description)
}
