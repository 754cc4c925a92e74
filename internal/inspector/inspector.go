// Package inspector classifies stored values and field names without
// looking at anything beyond the strings it is given.
package inspector

// DefaultSampleSize is how many column values are considered per field.
const DefaultSampleSize = 5

// encryptedRatio is the share of sampled values that must look encrypted.
const encryptedRatio = 0.6

// FieldVerdict is the result of inspecting sampled values of one field.
type FieldVerdict struct {
	Sampled   int  `json:"sampled"`
	Encrypted int  `json:"encrypted"`
	Verified  bool `json:"verified"`
	// IsEncrypted holds when more than 60% of sampled values look encrypted.
	IsEncrypted bool `json:"is_encrypted"`
}

// Inspector applies the value classifier to column samples.
type Inspector struct {
	sampleSize int
}

// New creates an Inspector that considers at most sampleSize values per
// field. A non-positive size selects DefaultSampleSize.
func New(sampleSize int) *Inspector {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}
	return &Inspector{sampleSize: sampleSize}
}

// SampleField inspects up to the sample size of non-empty values. With no
// non-empty values the field is unverified and treated as plaintext.
func (ins *Inspector) SampleField(values []string) FieldVerdict {
	var v FieldVerdict
	for _, val := range values {
		if v.Sampled == ins.sampleSize {
			break
		}
		if val == "" {
			continue
		}
		v.Sampled++
		if IsEncrypted(val) {
			v.Encrypted++
		}
	}
	if v.Sampled == 0 {
		return v
	}
	v.Verified = true
	v.IsEncrypted = float64(v.Encrypted)/float64(v.Sampled) > encryptedRatio
	return v
}
