package inspector

// Sensitivity is the personal-data tier of a field, derived from its name.
type Sensitivity string

const (
	SensitivityCritical Sensitivity = "critical"
	SensitivityHigh     Sensitivity = "high"
	SensitivityMedium   Sensitivity = "medium"
	SensitivityStandard Sensitivity = "standard"
)

// fieldRule maps a keyword pattern set to a sensitivity tier.
type fieldRule struct {
	patterns *PatternSet
	tier     Sensitivity
}

// Evaluated in order; the first matching tier wins.
var fieldRules = []fieldRule{
	{&CriticalFieldPatterns, SensitivityCritical},
	{&HighFieldPatterns, SensitivityHigh},
	{&MediumFieldPatterns, SensitivityMedium},
}

// ClassifyField returns the sensitivity tier for a field name. Matching is a
// case-insensitive substring test, so "user_password" is critical and
// "zipcode" is medium.
func ClassifyField(name string) Sensitivity {
	for _, rule := range fieldRules {
		if rule.patterns.MatchAny(name) {
			return rule.tier
		}
	}
	return SensitivityStandard
}
