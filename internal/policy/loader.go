package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/coal/siterisk/internal/score"
)

// Defaults applied by validate.
const (
	DefaultWorkers              = 4
	DefaultSampleSize           = 5
	DefaultHighRiskThreshold    = score.HighThreshold
	DefaultCorrelationThreshold = 40
	DefaultDispatchTimeout      = 10 * time.Second
)

// DefaultAdminRoles are role shortnames excluded from multi-role escalation.
var DefaultAdminRoles = []string{"manager", "admin"}

// LoadFromFile loads a policy from a YAML file.
func LoadFromFile(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML bytes into a Policy.
func Parse(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing policy YAML: %w", err)
	}
	if err := validate(&p); err != nil {
		return nil, fmt.Errorf("validating policy: %w", err)
	}
	return &p, nil
}

// Default returns the built-in policy used when no file is given.
func Default() *Policy {
	p := &Policy{Version: "1.0", PolicyName: "default"}
	if err := validate(p); err != nil {
		panic(err)
	}
	return p
}

var validSeverities = map[string]bool{
	"low": true, "medium": true, "high": true, "critical": true,
}

var validMatchTypes = map[MatchType]bool{
	MatchExact: true, MatchPrefix: true, MatchGlob: true, MatchRegex: true,
	MatchRange: true, MatchContains: true, MatchBoolean: true, MatchThreshold: true,
}

// validate checks policy integrity and fills defaults.
func validate(p *Policy) error {
	if p.Version == "" {
		return fmt.Errorf("policy version is required")
	}
	if p.PolicyName == "" {
		return fmt.Errorf("policy_name is required")
	}

	if p.Scan.Workers < 0 {
		return fmt.Errorf("scan.workers must not be negative")
	}
	if p.Scan.Workers == 0 {
		p.Scan.Workers = DefaultWorkers
	}
	if p.Scan.SampleSize <= 0 {
		p.Scan.SampleSize = DefaultSampleSize
	}
	if p.Thresholds.HighRisk <= 0 {
		p.Thresholds.HighRisk = DefaultHighRiskThreshold
	}
	if p.Thresholds.Correlation <= 0 {
		p.Thresholds.Correlation = DefaultCorrelationThreshold
	}
	if p.Roles.CriticalCapabilities == nil {
		p.Roles.CriticalCapabilities = score.DefaultCriticalCapabilities
	}
	if p.Roles.NonAdminArchetypes == nil {
		p.Roles.NonAdminArchetypes = score.DefaultNonAdminArchetypes
	}
	if p.Roles.AdminRoles == nil {
		p.Roles.AdminRoles = DefaultAdminRoles
	}

	for i, w := range p.Whitelist {
		if w.Component == "" {
			return fmt.Errorf("whitelist entry %d: component is required", i)
		}
	}

	if err := validateDispatch(&p.Dispatch); err != nil {
		return err
	}

	for i, rule := range p.AlertRules {
		if rule.Name == "" {
			return fmt.Errorf("alert rule %d: name is required", i)
		}
		if !validSeverities[rule.Severity] {
			return fmt.Errorf("alert rule %q: invalid severity %q", rule.Name, rule.Severity)
		}
		if len(rule.Conditions) == 0 {
			return fmt.Errorf("alert rule %q: at least one condition is required", rule.Name)
		}
		for _, c := range rule.Conditions {
			if !validMatchTypes[c.MatchType] {
				return fmt.Errorf("alert rule %q: invalid match_type %q", rule.Name, c.MatchType)
			}
			if _, ok := fieldNames[c.Field]; !ok {
				return fmt.Errorf("alert rule %q: unknown field %q", rule.Name, c.Field)
			}
		}
	}

	return nil
}

func validateDispatch(d *Dispatch) error {
	if d.Method == "" {
		d.Method = MethodNone
	}
	if d.Trigger == "" {
		d.Trigger = TriggerAlways
	}
	if d.Payload == "" {
		d.Payload = PayloadFull
	}
	if d.Timeout <= 0 {
		d.Timeout = DefaultDispatchTimeout
	}

	switch d.Method {
	case MethodNone:
	case MethodWebhook:
		if d.URL == "" {
			return fmt.Errorf("dispatch: url is required for webhook method")
		}
	default:
		return fmt.Errorf("dispatch: invalid method %q", d.Method)
	}
	if d.Trigger != TriggerAlways && d.Trigger != TriggerCriticalOnly {
		return fmt.Errorf("dispatch: invalid trigger %q", d.Trigger)
	}
	if d.Payload != PayloadSummary && d.Payload != PayloadFull {
		return fmt.Errorf("dispatch: invalid payload %q", d.Payload)
	}
	return nil
}

// Whitelisted reports whether a privacy finding is suppressed. Table and
// field entries accept glob patterns.
func (p *Policy) Whitelisted(component, table, field string) bool {
	for _, w := range p.Whitelist {
		if w.Component != component {
			continue
		}
		if globOrEmpty(w.Table, table) && globOrEmpty(w.Field, field) {
			return true
		}
	}
	return false
}

func globOrEmpty(pattern, value string) bool {
	if pattern == "" {
		return true
	}
	ok, err := filepath.Match(pattern, value)
	return err == nil && ok
}

// IsCorePlugin reports whether component ships with the host. Core
// subsystems ("core", "core_*") always count.
func (p *Policy) IsCorePlugin(component string) bool {
	if strings.HasPrefix(component, "core") {
		return true
	}
	for _, c := range p.Scan.CorePlugins {
		if strings.EqualFold(c, component) {
			return true
		}
	}
	return false
}

// ShouldSkip reports whether component is left out of scans.
func (p *Policy) ShouldSkip(component string) bool {
	return !p.Scan.ScanCorePlugins && p.IsCorePlugin(component)
}

// BuildAlertTable creates the alert rule table from the policy.
func BuildAlertTable(p *Policy) *AlertTable {
	return NewAlertTable(p.AlertRules)
}
