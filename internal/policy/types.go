package policy

import "time"

// MatchType represents the type of match operation for a condition.
type MatchType string

const (
	MatchExact     MatchType = "exact"
	MatchPrefix    MatchType = "prefix"
	MatchGlob      MatchType = "glob"
	MatchRegex     MatchType = "regex"
	MatchRange     MatchType = "range"
	MatchContains  MatchType = "contains"
	MatchBoolean   MatchType = "boolean"
	MatchThreshold MatchType = "threshold"
)

// MatchCondition is a single match predicate in a rule.
type MatchCondition struct {
	Field     string    `yaml:"field" json:"field"`
	MatchType MatchType `yaml:"match_type" json:"match_type"`
	Value     any       `yaml:"value" json:"value"`
	Negate    bool      `yaml:"negate,omitempty" json:"negate,omitempty"`
}

// AlertRule raises an alert for every plugin profile matching all of its
// conditions.
type AlertRule struct {
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description" json:"description"`
	Priority    int              `yaml:"priority" json:"priority"`
	Severity    string           `yaml:"severity" json:"severity"`
	Message     string           `yaml:"message,omitempty" json:"message,omitempty"`
	Conditions  []MatchCondition `yaml:"conditions" json:"conditions"`
}

// ScanOptions controls which plugins are scanned and how.
type ScanOptions struct {
	ScanCorePlugins bool     `yaml:"scan_core_plugins" json:"scan_core_plugins"`
	CorePlugins     []string `yaml:"core_plugins" json:"core_plugins"`
	Workers         int      `yaml:"workers" json:"workers"`
	SampleSize      int      `yaml:"sample_size" json:"sample_size"`
}

// WhitelistEntry suppresses a privacy finding. An empty table or field
// matches any value.
type WhitelistEntry struct {
	Component string `yaml:"component" json:"component"`
	Table     string `yaml:"table" json:"table"`
	Field     string `yaml:"field" json:"field"`
	Note      string `yaml:"note,omitempty" json:"note,omitempty"`
}

// RoleOptions configures role scoring and multi-role escalation.
type RoleOptions struct {
	CriticalCapabilities []string `yaml:"critical_capabilities" json:"critical_capabilities"`
	NonAdminArchetypes   []string `yaml:"non_admin_archetypes" json:"non_admin_archetypes"`
	AdminRoles           []string `yaml:"admin_roles" json:"admin_roles"`
}

// Thresholds tunes event and correlation limits.
type Thresholds struct {
	HighRisk    int `yaml:"high_risk" json:"high_risk"`
	Correlation int `yaml:"correlation" json:"correlation"`
}

// Dispatch trigger and payload values.
const (
	MethodNone    = "none"
	MethodWebhook = "webhook"

	TriggerAlways       = "always"
	TriggerCriticalOnly = "critical_only"

	PayloadSummary = "summary"
	PayloadFull    = "full"
)

// Dispatch configures where scan reports are sent.
type Dispatch struct {
	Method   string        `yaml:"method" json:"method"`
	URL      string        `yaml:"url" json:"url"`
	TokenEnv string        `yaml:"token_env" json:"token_env"`
	Trigger  string        `yaml:"trigger" json:"trigger"`
	Payload  string        `yaml:"payload" json:"payload"`
	Timeout  time.Duration `yaml:"timeout" json:"timeout"`
}

// Policy is the top-level scan configuration loaded from YAML.
type Policy struct {
	Version    string           `yaml:"version" json:"version"`
	PolicyName string           `yaml:"policy_name" json:"policy_name"`
	Scan       ScanOptions      `yaml:"scan" json:"scan"`
	Whitelist  []WhitelistEntry `yaml:"whitelist" json:"whitelist"`
	Roles      RoleOptions      `yaml:"roles" json:"roles"`
	Thresholds Thresholds       `yaml:"thresholds" json:"thresholds"`
	Dispatch   Dispatch         `yaml:"dispatch" json:"dispatch"`
	AlertRules []AlertRule      `yaml:"alert_rules" json:"alert_rules"`
}

// AlertTable holds alert rules sorted by priority.
type AlertTable struct {
	Rules []AlertRule
}

// RuleResult captures a matched alert rule.
type RuleResult struct {
	RuleName string `json:"rule_name"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
}
