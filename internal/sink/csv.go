package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/coal/siterisk/internal/model"
)

// CSVSink writes plugins.csv, roles.csv, alerts.csv and summary.csv into a
// directory. Files are UTF-8 with BOM for clean spreadsheet import.
type CSVSink struct {
	dir string
}

// NewCSVSink creates a sink writing into dir.
func NewCSVSink(dir string) *CSVSink {
	return &CSVSink{dir: dir}
}

// Name implements ResultSink.
func (s *CSVSink) Name() string { return "csv:" + s.dir }

// Write implements ResultSink.
func (s *CSVSink) Write(ctx context.Context, res *model.ScanResult) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("csv: mkdir: %w", err)
	}
	writers := []func(string, *model.ScanResult) error{
		writeSummaryCSV,
		writePluginsCSV,
		writeRolesCSV,
		writeAlertsCSV,
	}
	for _, fn := range writers {
		if err := fn(s.dir, res); err != nil {
			return err
		}
	}
	return nil
}

// Close implements ResultSink.
func (s *CSVSink) Close(context.Context) error { return nil }

func writeCSV(dir, name string, header []string, rows [][]string) error {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("csv: %s: %w", name, err)
	}
	defer f.Close()
	// UTF-8 BOM
	if _, err := f.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
		return fmt.Errorf("csv: %s: %w", name, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("csv: %s: %w", name, err)
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return fmt.Errorf("csv: %s: %w", name, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("csv: %s: %w", name, err)
	}
	return f.Close()
}

func itoa(n int) string { return strconv.Itoa(n) }

func writeSummaryCSV(dir string, res *model.ScanResult) error {
	s := res.Summary
	return writeCSV(dir, "summary.csv",
		[]string{"scan_id", "started_at", "total_risk_points", "plugins_scanned", "roles_scanned", "index", "classification", "alerts"},
		[][]string{{
			res.ScanID,
			res.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
			itoa(s.TotalRiskPoints),
			itoa(s.PluginsScanned),
			itoa(s.RolesScanned),
			strconv.FormatFloat(s.Index, 'f', 2, 64),
			string(s.Classification),
			itoa(len(res.Alerts)),
		}})
}

func writePluginsCSV(dir string, res *model.ScanResult) error {
	rows := make([][]string, 0, len(res.Plugins))
	for _, p := range res.Plugins {
		rows = append(rows, []string{
			p.Component,
			itoa(p.Privacy),
			itoa(p.Dependency),
			itoa(p.Capability),
			itoa(p.Structural),
			itoa(p.Total),
			string(p.Level),
			strconv.FormatBool(p.Signals.HasPrivacyProvider),
			itoa(p.Signals.DependencyCount),
			itoa(p.Signals.VersionGap),
		})
	}
	return writeCSV(dir, "plugins.csv",
		[]string{"component", "privacy", "dependency", "capability", "structural", "total", "level",
			"has_privacy_provider", "dependency_count", "version_gap"},
		rows)
}

func writeRolesCSV(dir string, res *model.ScanResult) error {
	rows := make([][]string, 0, len(res.Roles))
	for _, r := range res.Roles {
		rows = append(rows, []string{
			r.RoleID,
			r.Shortname,
			r.Archetype,
			itoa(r.CriticalCapCount),
			itoa(r.RiskScore),
			string(r.Tier),
			strings.Join(r.CriticalCaps, ";"),
		})
	}
	return writeCSV(dir, "roles.csv",
		[]string{"role_id", "shortname", "archetype", "critical_cap_count", "risk_score", "tier", "critical_caps"},
		rows)
}

func writeAlertsCSV(dir string, res *model.ScanResult) error {
	rows := make([][]string, 0, len(res.Alerts))
	for _, a := range res.Alerts {
		rows = append(rows, []string{
			a.Type,
			a.Rule,
			string(a.Severity),
			a.Component,
			a.RoleID,
			a.Description,
		})
	}
	return writeCSV(dir, "alerts.csv",
		[]string{"type", "rule", "severity", "component", "role_id", "description"},
		rows)
}
