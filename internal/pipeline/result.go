package pipeline

import (
	"time"

	"github.com/coal/siterisk/internal/model"
)

// EventKind names a pipeline event.
type EventKind string

const (
	EventScanStarted   EventKind = "scan_started"
	EventHighRisk      EventKind = "high_risk_detected"
	EventScanCompleted EventKind = "scan_completed"
)

// PipelineEvent represents a single pipeline event for observers.
type PipelineEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Kind      EventKind         `json:"kind"`
	ScanID    string            `json:"scan_id"`
	Component string            `json:"component,omitempty"`
	Score     int               `json:"score,omitempty"`
	Level     model.Level       `json:"level,omitempty"`
	Result    *model.ScanResult `json:"result,omitempty"`
}

// FailsOn reports whether res has an alert at or above severity. An empty
// severity never fails.
func FailsOn(res *model.ScanResult, severity model.Severity) bool {
	want, ok := severityRank[severity]
	if !ok || res == nil {
		return false
	}
	for _, a := range res.Alerts {
		if severityRank[a.Severity] >= want {
			return true
		}
	}
	return false
}

var severityRank = map[model.Severity]int{
	model.SeverityLow:      1,
	model.SeverityMedium:   2,
	model.SeverityHigh:     3,
	model.SeverityCritical: 4,
}
