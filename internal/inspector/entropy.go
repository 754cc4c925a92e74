package inspector

import "math"

const (
	// tokenEntropyThreshold applies to 32-64 char alphanumeric values.
	tokenEntropyThreshold = 4.5
	// highEntropyThreshold applies to any other value.
	highEntropyThreshold = 5.5
)

// Reason explains an encryption verdict.
type Reason string

const (
	ReasonEmpty       Reason = "empty"
	ReasonDigest      Reason = "hex_digest"
	ReasonBcrypt      Reason = "bcrypt"
	ReasonPrivateKey  Reason = "private_key"
	ReasonToken       Reason = "high_entropy_token"
	ReasonHighEntropy Reason = "high_entropy"
	ReasonPlaintext   Reason = "plaintext"
)

// Classification is the verdict for a single stored value.
type Classification struct {
	Encrypted bool    `json:"encrypted"`
	Entropy   float64 `json:"entropy"`
	Reason    Reason  `json:"reason"`
}

// Entropy returns the Shannon entropy of s in bits per byte.
func Entropy(s string) float64 {
	n := len(s)
	if n == 0 {
		return 0
	}
	var freq [256]int
	for i := 0; i < n; i++ {
		freq[s[i]]++
	}
	var h float64
	for _, c := range freq {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(n)
		h -= p * math.Log2(p)
	}
	return h
}

// Classify decides whether a stored value looks hashed or encrypted.
// The first matching check wins.
func Classify(value string) Classification {
	if value == "" {
		return Classification{Reason: ReasonEmpty}
	}
	h := Entropy(value)
	c := Classification{Entropy: h, Encrypted: true}
	switch {
	case DigestPatterns.MatchAny(value):
		c.Reason = ReasonDigest
	case BcryptPatterns.MatchAny(value):
		c.Reason = ReasonBcrypt
	case PrivateKeyPatterns.MatchAny(value):
		c.Reason = ReasonPrivateKey
	case TokenPatterns.MatchAny(value) && h > tokenEntropyThreshold:
		c.Reason = ReasonToken
	case h > highEntropyThreshold:
		c.Reason = ReasonHighEntropy
	default:
		c.Encrypted = false
		c.Reason = ReasonPlaintext
	}
	return c
}

// IsEncrypted reports whether value appears to be hashed or encrypted.
func IsEncrypted(value string) bool {
	return Classify(value).Encrypted
}
