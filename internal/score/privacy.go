package score

import (
	"github.com/coal/siterisk/internal/inspector"
	"github.com/coal/siterisk/internal/model"
)

// NoPrivacyProviderPenalty is added when a plugin stores personal data
// without declaring a privacy provider. It sits outside the field cap.
const NoPrivacyProviderPenalty = 30

// FieldWeights maps field sensitivity to its privacy weight.
var FieldWeights = map[inspector.Sensitivity]int{
	inspector.SensitivityCritical: 35,
	inspector.SensitivityHigh:     25,
	inspector.SensitivityMedium:   15,
	inspector.SensitivityStandard: 20,
}

// FieldWeight returns the privacy weight of one field. Encrypted fields keep
// a fifth of their weight, truncated.
func FieldWeight(name string, encrypted bool) int {
	w := FieldWeights[inspector.ClassifyField(name)]
	if encrypted {
		w = w * 2 / 10
	}
	return w
}

// Privacy scores personal-data exposure. Field weights are capped at
// LayerCap; the provider penalty is added after the cap, so the result can
// reach 95.
func Privacy(hasProvider bool, findings []model.PrivacyFinding) int {
	score := 0
	if !hasProvider {
		score = NoPrivacyProviderPenalty
	}

	pii := 0
	for _, f := range findings {
		pii += FieldWeight(f.Field, f.Encrypted())
	}
	return score + capAt(pii, LayerCap)
}
