package policy

import (
	"testing"
	"time"

	"github.com/coal/siterisk/internal/model"
)

func TestLoadDefaultPolicy(t *testing.T) {
	pol, err := LoadFromFile("../../configs/default_policy.yaml")
	if err != nil {
		t.Fatalf("failed to load default policy: %v", err)
	}
	if pol.PolicyName != "default_site_policy" {
		t.Errorf("expected policy name default_site_policy, got %s", pol.PolicyName)
	}
	if len(pol.AlertRules) == 0 {
		t.Error("expected alert rules")
	}
	if pol.Dispatch.Trigger != TriggerCriticalOnly {
		t.Errorf("expected critical_only trigger, got %s", pol.Dispatch.Trigger)
	}
	if pol.Dispatch.Timeout != 10*time.Second {
		t.Errorf("expected 10s timeout, got %s", pol.Dispatch.Timeout)
	}
	if len(pol.Roles.CriticalCapabilities) != 12 {
		t.Errorf("expected 12 default critical capabilities, got %d", len(pol.Roles.CriticalCapabilities))
	}
}

func TestDefault(t *testing.T) {
	pol := Default()
	if pol.Scan.Workers != DefaultWorkers {
		t.Errorf("expected %d workers, got %d", DefaultWorkers, pol.Scan.Workers)
	}
	if pol.Thresholds.HighRisk != 61 {
		t.Errorf("expected high risk threshold 61, got %d", pol.Thresholds.HighRisk)
	}
	if pol.Thresholds.Correlation != 40 {
		t.Errorf("expected correlation threshold 40, got %d", pol.Thresholds.Correlation)
	}
	if pol.Dispatch.Method != MethodNone {
		t.Errorf("expected dispatch method none, got %s", pol.Dispatch.Method)
	}
	if pol.Dispatch.Payload != PayloadFull {
		t.Errorf("expected full payload, got %s", pol.Dispatch.Payload)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing_version", `policy_name: x`},
		{"missing_name", `version: "1"`},
		{"negative_workers", "version: \"1\"\npolicy_name: x\nscan:\n  workers: -1\n"},
		{"bad_dispatch_method", "version: \"1\"\npolicy_name: x\ndispatch:\n  method: email\n"},
		{"webhook_without_url", "version: \"1\"\npolicy_name: x\ndispatch:\n  method: webhook\n"},
		{"bad_trigger", "version: \"1\"\npolicy_name: x\ndispatch:\n  trigger: sometimes\n"},
		{"bad_payload", "version: \"1\"\npolicy_name: x\ndispatch:\n  payload: partial\n"},
		{"whitelist_without_component", "version: \"1\"\npolicy_name: x\nwhitelist:\n  - table: t\n"},
		{"rule_bad_severity", `
version: "1"
policy_name: x
alert_rules:
  - name: r
    severity: urgent
    conditions:
      - {field: total_score, match_type: threshold, value: 10}
`},
		{"rule_unknown_field", `
version: "1"
policy_name: x
alert_rules:
  - name: r
    severity: high
    conditions:
      - {field: token_count, match_type: threshold, value: 10}
`},
		{"rule_no_conditions", `
version: "1"
policy_name: x
alert_rules:
  - name: r
    severity: high
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestWhitelisted(t *testing.T) {
	pol := &Policy{Whitelist: []WhitelistEntry{
		{Component: "local_sso", Table: "local_sso_tokens", Field: "token"},
		{Component: "mod_survey", Table: "survey_*"},
	}}

	if !pol.Whitelisted("local_sso", "local_sso_tokens", "token") {
		t.Error("expected exact entry to match")
	}
	if pol.Whitelisted("local_sso", "local_sso_tokens", "email") {
		t.Error("expected different field not to match")
	}
	if !pol.Whitelisted("mod_survey", "survey_answers", "answer") {
		t.Error("expected glob table with empty field to match")
	}
	if pol.Whitelisted("mod_other", "local_sso_tokens", "token") {
		t.Error("expected other component not to match")
	}
}

func TestShouldSkip(t *testing.T) {
	pol := &Policy{Scan: ScanOptions{CorePlugins: []string{"mod_forum"}}}
	if !pol.ShouldSkip("mod_forum") {
		t.Error("expected core plugin to be skipped")
	}
	if !pol.ShouldSkip("core_course") {
		t.Error("expected core subsystem to be skipped")
	}
	if pol.ShouldSkip("local_custom") {
		t.Error("expected non-core plugin to be scanned")
	}

	pol.Scan.ScanCorePlugins = true
	if pol.ShouldSkip("mod_forum") {
		t.Error("expected core plugin to be scanned when enabled")
	}
}

func TestMatchBoolean(t *testing.T) {
	table := NewAlertTable([]AlertRule{
		{
			Name:     "no_provider",
			Priority: 100,
			Severity: "high",
			Conditions: []MatchCondition{
				{Field: "has_privacy_provider", MatchType: MatchBoolean, Value: false},
			},
		},
	})

	results := table.MatchAll(&model.PluginRiskProfile{Component: "mod_a"})
	if len(results) != 1 {
		t.Fatalf("expected 1 match, got %d", len(results))
	}
	if results[0].RuleName != "no_provider" {
		t.Errorf("expected rule no_provider, got %s", results[0].RuleName)
	}

	p := &model.PluginRiskProfile{Signals: model.Signals{HasPrivacyProvider: true}}
	if got := table.MatchAll(p); len(got) != 0 {
		t.Errorf("expected no match, got %v", got)
	}
}

func TestMatchThresholdAndRange(t *testing.T) {
	table := NewAlertTable([]AlertRule{
		{
			Name:     "exposed",
			Priority: 10,
			Severity: "medium",
			Conditions: []MatchCondition{
				{Field: "exposure_score", MatchType: MatchThreshold, Value: 50},
				{Field: "structural_score", MatchType: MatchRange, Value: "10-20"},
			},
		},
	})

	hit := &model.PluginRiskProfile{Privacy: 30, Dependency: 20, Structural: 15}
	if len(table.MatchAll(hit)) != 1 {
		t.Error("expected exposure 50 and structural 15 to match")
	}
	miss := &model.PluginRiskProfile{Privacy: 30, Dependency: 10, Structural: 15}
	if len(table.MatchAll(miss)) != 0 {
		t.Error("expected exposure 40 not to match")
	}
}

func TestMatchStringTypes(t *testing.T) {
	p := &model.PluginRiskProfile{Component: "local_reports", Level: model.LevelHigh}

	tests := []struct {
		name string
		cond MatchCondition
		want bool
	}{
		{"exact", MatchCondition{Field: "risk_level", MatchType: MatchExact, Value: "high"}, true},
		{"prefix", MatchCondition{Field: "component", MatchType: MatchPrefix, Value: "local_"}, true},
		{"contains", MatchCondition{Field: "component", MatchType: MatchContains, Value: "report"}, true},
		{"glob", MatchCondition{Field: "component", MatchType: MatchGlob, Value: "local_*"}, true},
		{"regex", MatchCondition{Field: "component", MatchType: MatchRegex, Value: `^mod_`}, false},
		{"negate", MatchCondition{Field: "component", MatchType: MatchPrefix, Value: "mod_", Negate: true}, true},
		{"bad_regex", MatchCondition{Field: "component", MatchType: MatchRegex, Value: `(`}, false},
	}
	for _, tt := range tests {
		if got := matchCondition(tt.cond, p); got != tt.want {
			t.Errorf("%s: expected %v, got %v", tt.name, tt.want, got)
		}
	}
}

func TestMatchAll_PriorityOrderAndMessage(t *testing.T) {
	table := NewAlertTable([]AlertRule{
		{Name: "low", Priority: 1, Severity: "low",
			Conditions: []MatchCondition{{Field: "total_score", MatchType: MatchThreshold, Value: 0}}},
		{Name: "high", Priority: 90, Severity: "high", Message: "check {component}",
			Conditions: []MatchCondition{{Field: "total_score", MatchType: MatchThreshold, Value: 0}}},
	})

	results := table.MatchAll(&model.PluginRiskProfile{Component: "mod_x"})
	if len(results) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(results))
	}
	if results[0].RuleName != "high" {
		t.Errorf("expected highest priority first, got %s", results[0].RuleName)
	}
	if results[0].Message != "check mod_x" {
		t.Errorf("expected expanded message, got %q", results[0].Message)
	}
	if results[1].Message != "Plugin mod_x matched alert rule low" {
		t.Errorf("unexpected default message %q", results[1].Message)
	}
}
