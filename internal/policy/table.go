package policy

import (
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/coal/siterisk/internal/model"
)

// NewAlertTable creates a table from rules, sorted by priority (highest first).
func NewAlertTable(rules []AlertRule) *AlertTable {
	sorted := make([]AlertRule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return &AlertTable{Rules: sorted}
}

// MatchAll returns every rule the profile satisfies, in priority order.
func (t *AlertTable) MatchAll(p *model.PluginRiskProfile) []RuleResult {
	var out []RuleResult
	for _, rule := range t.Rules {
		if matchRule(rule, p) {
			out = append(out, RuleResult{
				RuleName: rule.Name,
				Severity: rule.Severity,
				Message:  expandMessage(rule, p),
			})
		}
	}
	return out
}

func expandMessage(rule AlertRule, p *model.PluginRiskProfile) string {
	msg := rule.Message
	if msg == "" {
		msg = rule.Description
	}
	if msg == "" {
		msg = fmt.Sprintf("Plugin {component} matched alert rule %s", rule.Name)
	}
	return strings.ReplaceAll(msg, "{component}", p.Component)
}

// matchRule returns true if ALL conditions in the rule match (AND logic).
func matchRule(rule AlertRule, p *model.PluginRiskProfile) bool {
	for _, cond := range rule.Conditions {
		if !matchCondition(cond, p) {
			return false
		}
	}
	return len(rule.Conditions) > 0
}

// matchCondition evaluates a single condition against the profile.
func matchCondition(cond MatchCondition, p *model.PluginRiskProfile) bool {
	result := evaluateCondition(cond, p)
	if cond.Negate {
		return !result
	}
	return result
}

func evaluateCondition(cond MatchCondition, p *model.PluginRiskProfile) bool {
	fieldVal := getFieldValue(cond.Field, p)

	switch cond.MatchType {
	case MatchBoolean:
		return matchBoolean(fieldVal, cond.Value)
	case MatchExact:
		return matchExact(fieldVal, cond.Value)
	case MatchPrefix:
		return matchPrefix(fieldVal, cond.Value)
	case MatchContains:
		return matchContains(fieldVal, cond.Value)
	case MatchGlob:
		return matchGlob(fieldVal, cond.Value)
	case MatchRegex:
		return matchRegex(fieldVal, cond.Value)
	case MatchThreshold:
		return matchThreshold(fieldVal, cond.Value)
	case MatchRange:
		return matchRange(fieldVal, cond.Value)
	default:
		return false
	}
}

// fieldNames lists the profile fields a condition may reference.
var fieldNames = map[string]struct{}{
	"component": {}, "privacy_score": {}, "dependency_score": {},
	"capability_score": {}, "structural_score": {}, "total_score": {},
	"exposure_score": {}, "risk_level": {}, "has_privacy_provider": {},
	"deprecated_calls": {}, "outdated": {}, "no_recent_update": {},
}

// getFieldValue extracts a field value from the profile by name.
func getFieldValue(field string, p *model.PluginRiskProfile) any {
	switch field {
	case "component":
		return p.Component
	case "privacy_score":
		return p.Privacy
	case "dependency_score":
		return p.Dependency
	case "capability_score":
		return p.Capability
	case "structural_score":
		return p.Structural
	case "total_score":
		return p.Total
	case "exposure_score":
		return p.Exposure()
	case "risk_level":
		return string(p.Level)
	case "has_privacy_provider":
		return p.Signals.HasPrivacyProvider
	case "deprecated_calls":
		return p.Signals.DeprecatedCalls
	case "outdated":
		return p.Signals.Outdated
	case "no_recent_update":
		return p.Signals.NoRecentUpdate
	default:
		return nil
	}
}

func matchBoolean(fieldVal any, condVal any) bool {
	return toBool(fieldVal) == toBool(condVal)
}

func matchExact(fieldVal any, condVal any) bool {
	return fmt.Sprintf("%v", fieldVal) == fmt.Sprintf("%v", condVal)
}

func matchPrefix(fieldVal any, condVal any) bool {
	return strings.HasPrefix(fmt.Sprintf("%v", fieldVal), fmt.Sprintf("%v", condVal))
}

func matchContains(fieldVal any, condVal any) bool {
	return strings.Contains(fmt.Sprintf("%v", fieldVal), fmt.Sprintf("%v", condVal))
}

func matchGlob(fieldVal any, condVal any) bool {
	matched, err := filepath.Match(fmt.Sprintf("%v", condVal), fmt.Sprintf("%v", fieldVal))
	return err == nil && matched
}

func matchRegex(fieldVal any, condVal any) bool {
	re, err := regexp.Compile(fmt.Sprintf("%v", condVal))
	if err != nil {
		return false
	}
	return re.MatchString(fmt.Sprintf("%v", fieldVal))
}

func matchThreshold(fieldVal any, condVal any) bool {
	return toFloat64(fieldVal) >= toFloat64(condVal)
}

func matchRange(fieldVal any, condVal any) bool {
	fv := toFloat64(fieldVal)
	// Range expects "min-max" string
	parts := strings.SplitN(fmt.Sprintf("%v", condVal), "-", 2)
	if len(parts) != 2 {
		return false
	}
	min, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	max, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err1 != nil || err2 != nil {
		return false
	}
	return fv >= min && fv <= max
}

func toBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	case int:
		return b != 0
	case float64:
		return b != 0
	default:
		return false
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	default:
		return 0
	}
}
