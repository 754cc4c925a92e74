package dashboard

import (
	"sync"
	"time"

	"github.com/coal/siterisk/internal/model"
)

const (
	timeSeriesMinutes = 60
	indexTrendLength  = 30
)

// Stats accumulates statistics over finished scans.
type Stats struct {
	mu sync.RWMutex

	totalScans     uint64
	highRiskEvents uint64
	totalAlerts    uint64
	indexSum       float64
	lastIndex      float64

	severityCounts       map[string]uint64
	ruleCounts           map[string]uint64
	classificationCounts map[string]uint64
	trend                []IndexPoint

	// Per-minute buckets for the last 60 minutes
	timeBuckets [timeSeriesMinutes]timeBucket
}

type timeBucket struct {
	minute time.Time // truncated to minute
	scans  uint64
	alerts uint64
}

// NewStats creates a new stats accumulator.
func NewStats() *Stats {
	return &Stats{
		severityCounts:       make(map[string]uint64),
		ruleCounts:           make(map[string]uint64),
		classificationCounts: make(map[string]uint64),
	}
}

// RecordScan ingests a finished scan.
func (s *Stats) RecordScan(res *model.ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalScans++
	s.totalAlerts += uint64(len(res.Alerts))
	s.indexSum += res.Summary.Index
	s.lastIndex = res.Summary.Index
	s.classificationCounts[string(res.Summary.Classification)]++

	for _, a := range res.Alerts {
		s.severityCounts[string(a.Severity)]++
		s.ruleCounts[a.Rule]++
	}

	s.trend = append(s.trend, IndexPoint{
		ScanID:    res.ScanID,
		Timestamp: res.FinishedAt,
		Index:     res.Summary.Index,
	})
	if len(s.trend) > indexTrendLength {
		s.trend = s.trend[len(s.trend)-indexTrendLength:]
	}

	minute := res.FinishedAt.UTC().Truncate(time.Minute)
	idx := minute.Minute() % timeSeriesMinutes
	if s.timeBuckets[idx].minute != minute {
		s.timeBuckets[idx] = timeBucket{minute: minute}
	}
	s.timeBuckets[idx].scans++
	s.timeBuckets[idx].alerts += uint64(len(res.Alerts))
}

// RecordHighRisk counts a high risk plugin event.
func (s *Stats) RecordHighRisk() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.highRiskEvents++
}

// Snapshot returns a point-in-time copy of the stats.
func (s *Stats) Snapshot() *StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := &StatsSnapshot{
		TotalScans:           s.totalScans,
		HighRiskEvents:       s.highRiskEvents,
		TotalAlerts:          s.totalAlerts,
		LastIndex:            s.lastIndex,
		SeverityCounts:       copyMap(s.severityCounts),
		RuleCounts:           copyMap(s.ruleCounts),
		ClassificationCounts: copyMap(s.classificationCounts),
		IndexTrend:           append([]IndexPoint{}, s.trend...),
	}

	if s.totalScans > 0 {
		snap.AvgIndex = s.indexSum / float64(s.totalScans)
	}

	// Build time series from buckets (last 60 minutes, chronological)
	now := time.Now().UTC().Truncate(time.Minute)
	cutoff := now.Add(-timeSeriesMinutes * time.Minute)
	for i := 0; i < timeSeriesMinutes; i++ {
		t := cutoff.Add(time.Duration(i+1) * time.Minute)
		b := s.timeBuckets[t.Minute()%timeSeriesMinutes]
		if b.minute.Equal(t) {
			snap.TimeSeries = append(snap.TimeSeries, TimeSeriesPoint{Timestamp: t, Scans: b.scans, Alerts: b.alerts})
		} else {
			snap.TimeSeries = append(snap.TimeSeries, TimeSeriesPoint{Timestamp: t})
		}
	}

	return snap
}

func copyMap(m map[string]uint64) map[string]uint64 {
	c := make(map[string]uint64, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
