package dashboard

import (
	"time"

	"github.com/coal/siterisk/internal/model"
	"github.com/coal/siterisk/internal/pipeline"
	"github.com/coal/siterisk/internal/policy"
)

// DashboardEvent wraps a PipelineEvent with a unique dashboard ID.
type DashboardEvent struct {
	ID string `json:"id"`
	pipeline.PipelineEvent
}

// ScanRecord is a finished scan as kept by the dashboard.
type ScanRecord struct {
	ID     string            `json:"id"`
	Result *model.ScanResult `json:"result"`
}

// WSMessage is the envelope for all WebSocket messages.
type WSMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// StatsSnapshot is a point-in-time snapshot of accumulated statistics.
type StatsSnapshot struct {
	TotalScans           uint64            `json:"total_scans"`
	HighRiskEvents       uint64            `json:"high_risk_events"`
	TotalAlerts          uint64            `json:"total_alerts"`
	AvgIndex             float64           `json:"avg_index"`
	LastIndex            float64           `json:"last_index"`
	SeverityCounts       map[string]uint64 `json:"severity_counts"`
	RuleCounts           map[string]uint64 `json:"rule_counts"`
	ClassificationCounts map[string]uint64 `json:"classification_counts"`
	IndexTrend           []IndexPoint      `json:"index_trend"`
	TimeSeries           []TimeSeriesPoint `json:"time_series"`
}

// IndexPoint is the site risk index of one scan.
type IndexPoint struct {
	ScanID    string    `json:"scan_id"`
	Timestamp time.Time `json:"timestamp"`
	Index     float64   `json:"index"`
}

// TimeSeriesPoint is a single point in the 60-minute time series.
type TimeSeriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Scans     uint64    `json:"scans"`
	Alerts    uint64    `json:"alerts"`
}

// LatestView is the most recent scan with its top entries pre-ranked.
type LatestView struct {
	Result     *model.ScanResult         `json:"result"`
	TopPlugins []model.PluginRiskProfile `json:"top_plugins"`
	TopRoles   []model.RoleRiskProfile   `json:"top_roles"`
}

// InitialState is sent to clients on WebSocket connect.
type InitialState struct {
	Scans  []*ScanRecord     `json:"scans"`
	Events []*DashboardEvent `json:"events"`
	Stats  *StatsSnapshot    `json:"stats"`
	Policy *policy.Policy    `json:"policy"`
}
