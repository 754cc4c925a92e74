package score

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coal/siterisk/internal/model"
)

func boolPtr(b bool) *bool { return &b }

func TestPrivacy_NoProviderWithFields(t *testing.T) {
	got := Privacy(false, []model.PrivacyFinding{
		{Table: "user", Field: "user_password"},
		{Table: "user", Field: "city"},
	})
	assert.Equal(t, 80, got)
}

func TestPrivacy_NoProviderNoFields(t *testing.T) {
	assert.Equal(t, NoPrivacyProviderPenalty, Privacy(false, nil))
	assert.Equal(t, 0, Privacy(true, nil))
}

func TestPrivacy_FieldSumCappedBeforePenalty(t *testing.T) {
	var fields []model.PrivacyFinding
	for _, name := range []string{"password", "secret", "token", "api_token", "pw_secret"} {
		fields = append(fields, model.PrivacyFinding{Field: name})
	}
	assert.Equal(t, LayerCap+NoPrivacyProviderPenalty, Privacy(false, fields))
	assert.Equal(t, LayerCap, Privacy(true, fields))
}

func TestFieldWeight_Encrypted(t *testing.T) {
	tests := []struct {
		name string
		want int
	}{
		{"password", 7},
		{"email", 5},
		{"city", 3},
		{"firstname", 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FieldWeight(tt.name, true), tt.name)
	}

	got := Privacy(true, []model.PrivacyFinding{{Field: "password", IsEncrypted: boolPtr(true)}})
	assert.Equal(t, 7, got)
}

func TestDependency_Capped(t *testing.T) {
	got := Dependency(model.DependencyFindings{
		CoreMismatch:        true,
		MissingDependencies: []string{"a", "b", "c"},
		Outdated:            true,
		DeprecatedAPIs:      []model.DeprecatedAPI{{API: "w"}, {API: "x"}, {API: "y"}, {API: "z"}},
		NoRecentUpdate:      true,
	})
	raw := PenaltyCoreMismatch + 3*PenaltyMissingDependency + PenaltyOutdated +
		3*PenaltyDeprecatedAPI + PenaltyNoRecentUpdate
	assert.Equal(t, 140, raw)
	assert.Equal(t, 65, got)
}

func TestDependency_DeprecatedAPIsCountAtMostThree(t *testing.T) {
	apis := make([]model.DeprecatedAPI, 5)
	assert.Equal(t, 30, Dependency(model.DependencyFindings{DeprecatedAPIs: apis}))
	assert.Equal(t, 15, Dependency(model.DependencyFindings{Outdated: true}))
	assert.Equal(t, 0, Dependency(model.DependencyFindings{}))
}

func TestCapability(t *testing.T) {
	four := make([]model.CapabilityFinding, 4)
	one := make([]model.CapabilityFinding, 1)

	assert.Equal(t, LayerCap, Capability(model.CapabilityFindings{CriticalCapsNonAdmin: four, SuspiciousOverrides: one}))
	assert.Equal(t, 25, Capability(model.CapabilityFindings{CriticalCapsNonAdmin: one}))
	assert.Equal(t, 30, Capability(model.CapabilityFindings{SuspiciousOverrides: four}))
	assert.Equal(t, 0, Capability(model.CapabilityFindings{}))
}

func TestStructural(t *testing.T) {
	calls := make([]model.CallFinding, 6)
	assert.Equal(t, 40, Structural(model.StructuralFindings{DeprecatedCalls: calls}))

	mixed := Structural(model.StructuralFindings{
		DeprecatedCalls: make([]model.CallFinding, 1),
		UnsafeCalls:     make([]model.CallFinding, 1),
	})
	assert.Equal(t, 16, mixed)

	all := Structural(model.StructuralFindings{
		NoVersionFile: true, NoLangDir: true, NoReadme: true, NoTests: true,
		NoMaturity: true, LegacyCron: true, DeprecatedCalls: calls,
	})
	assert.Equal(t, LayerCap, all)

	assert.Equal(t, 28, Structural(model.StructuralFindings{NoVersionFile: true, NoLangDir: true, NoReadme: true, NoTests: true}))
	assert.Equal(t, 0, Structural(model.StructuralFindings{}))
}

func TestRiskLevel_Boundaries(t *testing.T) {
	tests := []struct {
		total int
		want  model.Level
	}{
		{0, model.LevelLow},
		{30, model.LevelLow},
		{31, model.LevelMedium},
		{60, model.LevelMedium},
		{61, model.LevelHigh},
		{80, model.LevelHigh},
		{81, model.LevelCritical},
		{255, model.LevelCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskLevel(tt.total), "total %d", tt.total)
	}
}

func TestPlugin_TotalIsUncappedSum(t *testing.T) {
	p := Plugin(model.PluginBundle{
		Component: "mod_forum",
		Privacy:   []model.PrivacyFinding{{Field: "user_password"}, {Field: "city"}},
		Dependency: model.DependencyFindings{
			Outdated:        true,
			NoRecentUpdate:  true,
			DependencyCount: 3,
			VersionGap:      2,
		},
		Capability: model.CapabilityFindings{CriticalCapsNonAdmin: make([]model.CapabilityFinding, 1)},
		Structural: model.StructuralFindings{NoReadme: true, DeprecatedCalls: make([]model.CallFinding, 2)},
	})

	assert.Equal(t, "mod_forum", p.Component)
	assert.Equal(t, 80, p.Privacy)
	assert.Equal(t, 25, p.Dependency)
	assert.Equal(t, 25, p.Capability)
	assert.Equal(t, 19, p.Structural)
	assert.Equal(t, 149, p.Total)
	assert.Equal(t, model.LevelCritical, p.Level)
	assert.Equal(t, 130, p.Exposure())
	assert.False(t, p.Signals.HasPrivacyProvider)
	assert.Equal(t, 2, p.Signals.DeprecatedCalls)
	assert.True(t, p.Signals.Outdated)
	assert.True(t, p.Signals.NoRecentUpdate)
	assert.Equal(t, 3, p.Signals.DependencyCount)
	assert.Equal(t, 2, p.Signals.VersionGap)
}

func TestPlugin_EmptyBundle(t *testing.T) {
	p := Plugin(model.PluginBundle{Component: "block_empty", HasPrivacyProvider: true})
	assert.Equal(t, 0, p.Total)
	assert.Equal(t, model.LevelLow, p.Level)
}

func grants(caps ...string) []model.Grant {
	out := make([]model.Grant, len(caps))
	for i, c := range caps {
		out[i] = model.Grant{Capability: c, Permission: model.PermissionAllow}
	}
	return out
}

func TestRole_NonAdminWithCriticalCaps(t *testing.T) {
	s := NewRoleScorer(nil, nil)
	p := s.Role(model.RoleBundle{
		ID:        "5",
		Shortname: "student",
		Archetype: "student",
		Grants: grants(
			"moodle/site:config",
			"moodle/user:delete",
			"moodle/role:assign",
			"moodle/course:update",
			"mod/forum:viewdiscussion",
		),
	})

	assert.Equal(t, 4, p.CriticalCapCount)
	assert.Len(t, p.Overrides, 4)
	assert.Equal(t, LayerCap, p.RiskScore)
	assert.Equal(t, model.TierWarning, p.Tier)
}

func TestRole_SingleOverride(t *testing.T) {
	p := NewRoleScorer(nil, nil).Role(model.RoleBundle{
		ID: "3", Shortname: "editingteacher", Archetype: "editingteacher",
		Grants: grants("moodle/course:manageactivities"),
	})
	assert.Equal(t, 35, p.RiskScore)
	assert.Equal(t, model.TierInfo, p.Tier)
}

func TestRole_AdminArchetypeHasNoOverrides(t *testing.T) {
	p := NewRoleScorer(nil, nil).Role(model.RoleBundle{
		ID: "1", Shortname: "manager", Archetype: "manager",
		Grants: grants(DefaultCriticalCapabilities[:9]...),
	})
	assert.Equal(t, 9, p.CriticalCapCount)
	assert.Empty(t, p.Overrides)
	assert.Equal(t, 0, p.RiskScore)
	assert.Equal(t, model.TierDanger, p.Tier)
}

func TestRole_IgnoresNonAllowPermissions(t *testing.T) {
	p := NewRoleScorer(nil, nil).Role(model.RoleBundle{
		ID: "7", Shortname: "guest", Archetype: "guest",
		Grants: []model.Grant{
			{Capability: "moodle/site:config", Permission: "prohibit"},
			{Capability: "moodle/user:delete", Permission: "prevent"},
		},
	})
	assert.Equal(t, 0, p.CriticalCapCount)
	assert.Equal(t, model.TierNone, p.Tier)
}

func TestRole_CustomCriticalList(t *testing.T) {
	s := NewRoleScorer([]string{"local/custom:nuke"}, []string{"auditor"})
	p := s.Role(model.RoleBundle{
		ID: "9", Shortname: "auditor", Archetype: "auditor",
		Grants: grants("local/custom:nuke", "moodle/site:config"),
	})
	assert.Equal(t, 1, p.CriticalCapCount)
	assert.Equal(t, 35, p.RiskScore)
}

func TestHeatTier(t *testing.T) {
	assert.Equal(t, model.TierNone, HeatTier(0))
	assert.Equal(t, model.TierInfo, HeatTier(1))
	assert.Equal(t, model.TierInfo, HeatTier(2))
	assert.Equal(t, model.TierWarning, HeatTier(3))
	assert.Equal(t, model.TierWarning, HeatTier(7))
	assert.Equal(t, model.TierDanger, HeatTier(8))
}

func TestHeatmap_SortedByRiskDescending(t *testing.T) {
	rows := Heatmap([]model.RoleRiskProfile{
		{RoleID: "1", RiskScore: 0},
		{RoleID: "2", RiskScore: 65},
		{RoleID: "4", RiskScore: 35},
		{RoleID: "3", RiskScore: 35},
	})
	require.Len(t, rows, 4)
	got := []string{rows[0].RoleID, rows[1].RoleID, rows[2].RoleID, rows[3].RoleID}
	assert.Equal(t, []string{"2", "3", "4", "1"}, got)
}
