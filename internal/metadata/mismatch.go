// Package metadata compares what an upstream collector declared about a
// plugin with what the scan detected for itself.
package metadata

import (
	"github.com/coal/siterisk/internal/inspector"
	"github.com/coal/siterisk/internal/model"
)

// Severities of a mismatch.
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// sensitiveTiers are field tiers where a false encryption claim is critical.
var sensitiveTiers = map[inspector.Sensitivity]bool{
	inspector.SensitivityCritical: true,
	inspector.SensitivityHigh:     true,
}

// CompareEncryption checks a declared encryption flag against the sampled
// verdict. It returns nil when nothing was declared, nothing was verified,
// or both agree.
func CompareEncryption(component string, f model.PrivacyFinding, v inspector.FieldVerdict) *model.Mismatch {
	if f.IsEncrypted == nil || !v.Verified {
		return nil
	}
	declared := *f.IsEncrypted
	if declared == v.IsEncrypted {
		return nil
	}

	severity := SeverityInfo
	if declared {
		// Claimed encrypted but stored readable.
		severity = SeverityWarning
		if sensitiveTiers[inspector.ClassifyField(f.Field)] {
			severity = SeverityCritical
		}
	}
	return &model.Mismatch{
		Component: component,
		Field:     f.Table + "." + f.Field,
		Declared:  declared,
		Detected:  v.IsEncrypted,
		Severity:  severity,
	}
}

// CompareCapabilities reports capabilities the descriptor declares that the
// collector's findings left out. An empty declaration yields nothing, since
// the extracted findings are then used as-is.
func CompareCapabilities(component string, declared, extracted model.CapabilityFindings) []model.Mismatch {
	if declared.Empty() {
		return nil
	}

	var mismatches []model.Mismatch

	if undeclared := findUndeclared(names(declared.CriticalCapsNonAdmin), names(extracted.CriticalCapsNonAdmin)); len(undeclared) > 0 {
		mismatches = append(mismatches, model.Mismatch{
			Component: component,
			Field:     "critical_caps",
			Declared:  names(declared.CriticalCapsNonAdmin),
			Detected:  undeclared,
			Severity:  SeverityWarning,
		})
	}

	if undeclared := findUndeclared(names(declared.SuspiciousOverrides), names(extracted.SuspiciousOverrides)); len(undeclared) > 0 {
		mismatches = append(mismatches, model.Mismatch{
			Component: component,
			Field:     "suspicious_overrides",
			Declared:  names(declared.SuspiciousOverrides),
			Detected:  undeclared,
			Severity:  SeverityInfo,
		})
	}

	return mismatches
}

func names(findings []model.CapabilityFinding) []string {
	out := make([]string, 0, len(findings))
	for _, f := range findings {
		out = append(out, f.Capability)
	}
	return out
}

// findUndeclared returns items in detected that are not in declared.
func findUndeclared(declared, detected []string) []string {
	set := make(map[string]struct{}, len(declared))
	for _, d := range declared {
		set[d] = struct{}{}
	}
	var undeclared []string
	for _, d := range detected {
		if _, ok := set[d]; !ok {
			undeclared = append(undeclared, d)
		}
	}
	return undeclared
}
