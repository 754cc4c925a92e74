// Package model holds the data exchanged between findings providers, the
// scoring core and result sinks.
package model

import "time"

// PrivacyFinding is a personal-data field discovered in a plugin's schema.
type PrivacyFinding struct {
	Table       string   `yaml:"table" json:"table"`
	Field       string   `yaml:"field" json:"field"`
	Component   string   `yaml:"component,omitempty" json:"component,omitempty"`
	Reason      string   `yaml:"reason,omitempty" json:"reason,omitempty"`
	IsEncrypted *bool    `yaml:"is_encrypted,omitempty" json:"is_encrypted,omitempty"`
	Samples     []string `yaml:"samples,omitempty" json:"samples,omitempty"`
}

// Encrypted reports whether the field was marked encrypted. Unknown is false.
func (f PrivacyFinding) Encrypted() bool {
	return f.IsEncrypted != nil && *f.IsEncrypted
}

// DeprecatedAPI is a single use of a deprecated host API.
type DeprecatedAPI struct {
	API         string `yaml:"api" json:"api"`
	File        string `yaml:"file,omitempty" json:"file,omitempty"`
	Line        int    `yaml:"line,omitempty" json:"line,omitempty"`
	Replacement string `yaml:"replacement,omitempty" json:"replacement,omitempty"`
}

// DependencyFindings describes a plugin's declared requirements and freshness.
type DependencyFindings struct {
	CoreMismatch        bool            `yaml:"core_mismatch" json:"core_mismatch"`
	MissingDependencies []string        `yaml:"missing_dependencies,omitempty" json:"missing_dependencies,omitempty"`
	Outdated            bool            `yaml:"outdated" json:"outdated"`
	DeprecatedAPIs      []DeprecatedAPI `yaml:"deprecated_apis,omitempty" json:"deprecated_apis,omitempty"`
	NoRecentUpdate      bool            `yaml:"no_recent_update" json:"no_recent_update"`
	DependencyCount     int             `yaml:"dependency_count,omitempty" json:"dependency_count,omitempty"`
	VersionGap          int             `yaml:"version_gap,omitempty" json:"version_gap,omitempty"`
}

// CapabilityFinding is one capability that contributes to capability risk.
type CapabilityFinding struct {
	Capability  string `yaml:"capability" json:"capability"`
	RiskBitmask int    `yaml:"riskbitmask,omitempty" json:"riskbitmask,omitempty"`
	Reason      string `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// CapabilityFindings groups critical and suspicious capability findings.
type CapabilityFindings struct {
	CriticalCapsNonAdmin []CapabilityFinding `yaml:"critical_caps_non_admin,omitempty" json:"critical_caps_non_admin,omitempty"`
	SuspiciousOverrides  []CapabilityFinding `yaml:"suspicious_overrides,omitempty" json:"suspicious_overrides,omitempty"`
}

// Empty reports whether no capability findings are present.
func (c CapabilityFindings) Empty() bool {
	return len(c.CriticalCapsNonAdmin) == 0 && len(c.SuspiciousOverrides) == 0
}

// CallFinding is one occurrence of a deprecated or unsafe function call.
type CallFinding struct {
	File     string `yaml:"file,omitempty" json:"file,omitempty"`
	Function string `yaml:"function" json:"function"`
	Reason   string `yaml:"reason,omitempty" json:"reason,omitempty"`
}

// StructuralFindings flags missing plugin hygiene. A false flag carries no
// penalty, so an absent structural section scores zero.
type StructuralFindings struct {
	NoVersionFile   bool          `yaml:"no_version_file" json:"no_version_file"`
	NoLangDir       bool          `yaml:"no_lang_dir" json:"no_lang_dir"`
	NoReadme        bool          `yaml:"no_readme" json:"no_readme"`
	NoTests         bool          `yaml:"no_tests" json:"no_tests"`
	NoMaturity      bool          `yaml:"no_maturity" json:"no_maturity"`
	LegacyCron      bool          `yaml:"legacy_cron" json:"legacy_cron"`
	DeprecatedCalls []CallFinding `yaml:"deprecated_calls,omitempty" json:"deprecated_calls,omitempty"`
	UnsafeCalls     []CallFinding `yaml:"unsafe_calls,omitempty" json:"unsafe_calls,omitempty"`
}

// PluginBundle is the full set of findings gathered for one plugin.
type PluginBundle struct {
	Component          string             `yaml:"component" json:"component"`
	HasPrivacyProvider bool               `yaml:"has_privacy_provider" json:"has_privacy_provider"`
	Privacy            []PrivacyFinding   `yaml:"privacy,omitempty" json:"privacy,omitempty"`
	Dependency         DependencyFindings `yaml:"dependency" json:"dependency"`
	Capability         CapabilityFindings `yaml:"capability" json:"capability"`
	Structural         StructuralFindings `yaml:"structural" json:"structural"`
	// Descriptor is the raw text of the plugin's capability declaration file.
	Descriptor string `yaml:"descriptor,omitempty" json:"descriptor,omitempty"`
}

// Grant is a capability permission assigned to a role.
type Grant struct {
	Capability string `yaml:"capability" json:"capability"`
	Permission string `yaml:"permission" json:"permission"`
}

// PermissionAllow is the only permission value that counts as a grant.
const PermissionAllow = "allow"

// RoleBundle is the capability grant set gathered for one role.
type RoleBundle struct {
	ID        string  `yaml:"id" json:"id"`
	Shortname string  `yaml:"shortname" json:"shortname"`
	Archetype string  `yaml:"archetype" json:"archetype"`
	Grants    []Grant `yaml:"grants,omitempty" json:"grants,omitempty"`
}

// Level is the qualitative risk level of a plugin total.
type Level string

const (
	LevelLow      Level = "low"
	LevelMedium   Level = "medium"
	LevelHigh     Level = "high"
	LevelCritical Level = "critical"
)

// Signals carries the raw facts the correlation rules need beyond scores.
type Signals struct {
	HasPrivacyProvider bool `json:"has_privacy_provider"`
	DeprecatedCalls    int  `json:"deprecated_calls"`
	Outdated           bool `json:"outdated"`
	NoRecentUpdate     bool `json:"no_recent_update"`
	DependencyCount    int  `json:"dependency_count"`
	VersionGap         int  `json:"version_gap"`
}

// PluginRiskProfile is the scored view of one plugin.
type PluginRiskProfile struct {
	Component  string  `json:"component"`
	Privacy    int     `json:"privacy"`
	Dependency int     `json:"dependency"`
	Capability int     `json:"capability"`
	Structural int     `json:"structural"`
	Total      int     `json:"total"`
	Level      Level   `json:"level"`
	Signals    Signals `json:"signals"`
}

// Exposure is the combined privacy, dependency and capability score.
func (p PluginRiskProfile) Exposure() int {
	return p.Privacy + p.Dependency + p.Capability
}

// HeatTier is the heat-map bucket of a role.
type HeatTier string

const (
	TierNone    HeatTier = "none"
	TierInfo    HeatTier = "info"
	TierWarning HeatTier = "warning"
	TierDanger  HeatTier = "danger"
)

// RoleRiskProfile is the scored view of one role.
type RoleRiskProfile struct {
	RoleID           string   `json:"role_id"`
	Shortname        string   `json:"shortname"`
	Archetype        string   `json:"archetype"`
	CriticalCapCount int      `json:"critical_cap_count"`
	CriticalCaps     []string `json:"critical_caps,omitempty"`
	Overrides        []string `json:"suspicious_overrides,omitempty"`
	RiskScore        int      `json:"risk_score"`
	Tier             HeatTier `json:"tier"`
}

// Severity of an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Alert types.
const (
	AlertCorrelation = "correlation"
	AlertCapability  = "capability"
	AlertPolicy      = "policy"
)

// Alert is a correlated risk raised during a scan.
type Alert struct {
	ScanID      string    `json:"scan_id"`
	Type        string    `json:"type"`
	Rule        string    `json:"rule"`
	Severity    Severity  `json:"severity"`
	Component   string    `json:"component"`
	RoleID      string    `json:"role_id,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Classification is the qualitative band of the site risk index.
type Classification string

const (
	ClassHealthy  Classification = "healthy"
	ClassLow      Classification = "low"
	ClassModerate Classification = "moderate"
	ClassHigh     Classification = "high"
	ClassCritical Classification = "critical"
)

// SiteRiskSummary is the normalized site-level result.
type SiteRiskSummary struct {
	TotalRiskPoints int            `json:"total_risk_points"`
	PluginsScanned  int            `json:"plugins_scanned"`
	RolesScanned    int            `json:"roles_scanned"`
	Index           float64        `json:"index"`
	Classification  Classification `json:"classification"`
}

// HeatmapRow is a role entry in the capability heat map.
type HeatmapRow struct {
	RoleID           string   `json:"role_id"`
	Shortname        string   `json:"shortname"`
	CriticalCapCount int      `json:"critical_cap_count"`
	RiskScore        int      `json:"risk_score"`
	Tier             HeatTier `json:"tier"`
}

// Skip records an entity left out of a scan.
type Skip struct {
	Entity string `json:"entity"`
	Reason string `json:"reason"`
}

// Mismatch records a disagreement between what a collector declared and
// what the scan detected.
type Mismatch struct {
	Component string `json:"component"`
	Field     string `json:"field"`
	Declared  any    `json:"declared"`
	Detected  any    `json:"detected"`
	Severity  string `json:"severity"` // "critical", "warning", "info"
}

// ScanResult is everything one scan produced.
type ScanResult struct {
	ScanID     string              `json:"scan_id"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	Plugins    []PluginRiskProfile `json:"plugins"`
	Roles      []RoleRiskProfile   `json:"roles"`
	Alerts     []Alert             `json:"alerts"`
	Summary    SiteRiskSummary     `json:"summary"`
	Heatmap    []HeatmapRow        `json:"heatmap"`
	Skipped    []Skip              `json:"skipped,omitempty"`
	Mismatches []Mismatch          `json:"mismatches,omitempty"`
}

// CriticalAlerts counts alerts with critical severity.
func (r *ScanResult) CriticalAlerts() int {
	n := 0
	for _, a := range r.Alerts {
		if a.Severity == SeverityCritical {
			n++
		}
	}
	return n
}
