package inspector

import "regexp"

// PatternSet holds compiled regex patterns for a specific category.
type PatternSet struct {
	Name     string
	Patterns []*regexp.Regexp
}

// compile is a helper that compiles a list of regex strings into a PatternSet.
// Panics on invalid patterns (they are compile-time constants).
func compile(name string, patterns []string) PatternSet {
	ps := PatternSet{Name: name, Patterns: make([]*regexp.Regexp, len(patterns))}
	for i, p := range patterns {
		ps.Patterns[i] = regexp.MustCompile(p)
	}
	return ps
}

// MatchAny returns true if any pattern in the set matches the text.
func (ps *PatternSet) MatchAny(text string) bool {
	for _, p := range ps.Patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// FindAll returns all unique matches across all patterns.
func (ps *PatternSet) FindAll(text string) []string {
	seen := make(map[string]struct{})
	var results []string
	for _, p := range ps.Patterns {
		for _, m := range p.FindAllString(text, -1) {
			if _, ok := seen[m]; !ok {
				seen[m] = struct{}{}
				results = append(results, m)
			}
		}
	}
	return results
}

// --- Stored value shapes ---

// DigestPatterns match MD5, SHA-1 and SHA-256 hex digests.
var DigestPatterns = compile("digest", []string{
	`(?i)^[a-f0-9]{32}$`,
	`(?i)^[a-f0-9]{40}$`,
	`(?i)^[a-f0-9]{64}$`,
})

// BcryptPatterns match bcrypt password hashes.
var BcryptPatterns = compile("bcrypt", []string{
	`^\$2[ayb]\$.{56}$`,
})

// PrivateKeyPatterns match PEM private key armour anywhere in a value.
var PrivateKeyPatterns = compile("private_key", []string{
	`BEGIN PRIVATE KEY`,
	`BEGIN RSA PRIVATE KEY`,
})

// TokenPatterns match alphanumeric strings long enough to be generated keys.
var TokenPatterns = compile("token", []string{
	`^[a-zA-Z0-9]{32,64}$`,
})

// --- Field name keywords ---

// CriticalFieldPatterns match credential-like column names.
var CriticalFieldPatterns = compile("critical_field", []string{
	`(?i)password`,
	`(?i)secret`,
	`(?i)token`,
})

// HighFieldPatterns match direct personal identifiers.
var HighFieldPatterns = compile("high_field", []string{
	`(?i)email`,
	`(?i)phone`,
	`(?i)mobile`,
	`(?i)dni`,
	`(?i)ssn`,
})

// MediumFieldPatterns match location and network identifiers.
var MediumFieldPatterns = compile("medium_field", []string{
	`(?i)ip`,
	`(?i)address`,
	`(?i)city`,
})
