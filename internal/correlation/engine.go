// Package correlation raises alerts for risk combinations that no single
// layer score captures on its own.
package correlation

import (
	"fmt"
	"sort"
	"time"

	"github.com/coal/siterisk/internal/model"
	"github.com/coal/siterisk/internal/policy"
)

// Threshold is the combined-score level used by the role/plugin rule.
const Threshold = 40

// Rule names.
const (
	RulePrivacyCapability  = "privacy_capability"
	RuleUnstableExposure   = "unstable_dependency_exposure"
	RuleSystemicRisk       = "systemic_role_plugin_risk"
	RuleOutdatedPII        = "outdated_with_pii"
	RuleStructuralPrivacy  = "structural_privacy_gap"
	RuleMultiRoleEscalate  = "multi_role_escalation"
	RuleDeprecatedExposure = "deprecated_with_exposure"
)

// Options configures an Engine.
type Options struct {
	// AdminRoles are role shortnames that never count towards multi-role
	// escalation. Nil selects manager and admin.
	AdminRoles []string
	// AlertTable holds additional policy-defined rules. May be nil.
	AlertTable *policy.AlertTable
	// Threshold is the role and exposure level of the systemic rule. Zero
	// selects Threshold.
	Threshold int
	// Now stamps alerts. Nil selects time.Now.
	Now func() time.Time
}

// Engine evaluates the fixed correlation rules, then any policy rules.
type Engine struct {
	adminRoles map[string]struct{}
	table      *policy.AlertTable
	threshold  int
	now        func() time.Time
}

// New creates an Engine.
func New(opts Options) *Engine {
	admin := opts.AdminRoles
	if admin == nil {
		admin = policy.DefaultAdminRoles
	}
	e := &Engine{
		adminRoles: make(map[string]struct{}, len(admin)),
		table:      opts.AlertTable,
		threshold:  opts.Threshold,
		now:        opts.Now,
	}
	if e.threshold <= 0 {
		e.threshold = Threshold
	}
	for _, r := range admin {
		e.adminRoles[r] = struct{}{}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// input is the sorted view every rule evaluates.
type input struct {
	plugins []model.PluginRiskProfile
	roles   []model.RoleRiskProfile
}

// finding is a rule hit before it is stamped into an Alert.
type finding struct {
	component   string
	roleID      string
	description string
}

type rule struct {
	name     string
	kind     string
	severity model.Severity
	eval     func(e *Engine, in *input) []finding
}

// Evaluated in order; each rule reports independently.
var rules = []rule{
	{RulePrivacyCapability, model.AlertCorrelation, model.SeverityCritical, (*Engine).privacyCapability},
	{RuleUnstableExposure, model.AlertCorrelation, model.SeverityHigh, (*Engine).unstableExposure},
	{RuleSystemicRisk, model.AlertCorrelation, model.SeverityCritical, (*Engine).systemicRisk},
	{RuleOutdatedPII, model.AlertCorrelation, model.SeverityHigh, (*Engine).outdatedPII},
	{RuleStructuralPrivacy, model.AlertCorrelation, model.SeverityHigh, (*Engine).structuralPrivacy},
	{RuleMultiRoleEscalate, model.AlertCapability, model.SeverityCritical, (*Engine).multiRoleEscalation},
	{RuleDeprecatedExposure, model.AlertCorrelation, model.SeverityHigh, (*Engine).deprecatedExposure},
}

// Evaluate returns all alerts for one scan. Plugins are visited in component
// order and roles in role id order, so the result is deterministic.
func (e *Engine) Evaluate(scanID string, plugins []model.PluginRiskProfile, roles []model.RoleRiskProfile) []model.Alert {
	in := &input{
		plugins: append([]model.PluginRiskProfile(nil), plugins...),
		roles:   append([]model.RoleRiskProfile(nil), roles...),
	}
	sort.Slice(in.plugins, func(i, j int) bool { return in.plugins[i].Component < in.plugins[j].Component })
	sort.Slice(in.roles, func(i, j int) bool { return in.roles[i].RoleID < in.roles[j].RoleID })

	created := e.now().UTC()
	var alerts []model.Alert
	for _, r := range rules {
		for _, f := range r.eval(e, in) {
			alerts = append(alerts, model.Alert{
				ScanID:      scanID,
				Type:        r.kind,
				Rule:        r.name,
				Severity:    r.severity,
				Component:   f.component,
				RoleID:      f.roleID,
				Description: f.description,
				CreatedAt:   created,
			})
		}
	}

	if e.table != nil {
		for i := range in.plugins {
			p := &in.plugins[i]
			for _, m := range e.table.MatchAll(p) {
				alerts = append(alerts, model.Alert{
					ScanID:      scanID,
					Type:        model.AlertPolicy,
					Rule:        m.RuleName,
					Severity:    model.Severity(m.Severity),
					Component:   p.Component,
					Description: m.Message,
					CreatedAt:   created,
				})
			}
		}
	}
	return alerts
}

func (e *Engine) privacyCapability(in *input) []finding {
	var out []finding
	for _, p := range in.plugins {
		if p.Privacy >= 30 && !p.Signals.HasPrivacyProvider && p.Capability > 0 {
			out = append(out, finding{
				component:   p.Component,
				description: fmt.Sprintf("Plugin %s stores personal data without a privacy provider and grants risky capabilities", p.Component),
			})
		}
	}
	return out
}

func (e *Engine) unstableExposure(in *input) []finding {
	var out []finding
	for _, p := range in.plugins {
		if p.Exposure() >= 60 && p.Dependency >= 20 {
			out = append(out, finding{
				component:   p.Component,
				description: fmt.Sprintf("Plugin %s combines high exposure with unstable dependencies", p.Component),
			})
		}
	}
	return out
}

// systemicRisk pairs every risky role with the first risky plugin only.
func (e *Engine) systemicRisk(in *input) []finding {
	var out []finding
	for _, r := range in.roles {
		if r.RiskScore < e.threshold {
			continue
		}
		for _, p := range in.plugins {
			if p.Exposure() >= e.threshold {
				out = append(out, finding{
					component:   p.Component,
					roleID:      r.RoleID,
					description: fmt.Sprintf("Role %s holds risky capabilities while plugin %s is highly exposed", r.RoleID, p.Component),
				})
				break
			}
		}
	}
	return out
}

func (e *Engine) outdatedPII(in *input) []finding {
	var out []finding
	for _, p := range in.plugins {
		stale := p.Signals.Outdated || p.Signals.NoRecentUpdate
		if stale && p.Privacy >= 20 {
			out = append(out, finding{
				component:   p.Component,
				description: fmt.Sprintf("Plugin %s is outdated and handles personal data", p.Component),
			})
		}
	}
	return out
}

func (e *Engine) structuralPrivacy(in *input) []finding {
	var out []finding
	for _, p := range in.plugins {
		if p.Structural >= 15 && p.Privacy >= 25 && !p.Signals.HasPrivacyProvider {
			out = append(out, finding{
				component:   p.Component,
				description: fmt.Sprintf("Plugin %s has structural gaps and no privacy provider for the personal data it stores", p.Component),
			})
		}
	}
	return out
}

// multiRoleEscalation reports once for the whole site, not per role.
func (e *Engine) multiRoleEscalation(in *input) []finding {
	dangerous := 0
	for _, r := range in.roles {
		if _, admin := e.adminRoles[r.Shortname]; admin {
			continue
		}
		if r.CriticalCapCount >= 3 {
			dangerous++
		}
	}
	if dangerous < 3 {
		return nil
	}
	return []finding{{
		description: fmt.Sprintf("%d non-admin roles hold three or more critical capabilities", dangerous),
	}}
}

func (e *Engine) deprecatedExposure(in *input) []finding {
	var out []finding
	for _, p := range in.plugins {
		if p.Signals.DeprecatedCalls > 0 && p.Privacy >= 20 && !p.Signals.HasPrivacyProvider {
			out = append(out, finding{
				component:   p.Component,
				description: fmt.Sprintf("Plugin %s uses deprecated calls while exposing personal data", p.Component),
			})
		}
	}
	return out
}
