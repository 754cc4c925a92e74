package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/coal/siterisk/internal/audit"
	"github.com/coal/siterisk/internal/model"
	"github.com/coal/siterisk/internal/pipeline"
	"github.com/coal/siterisk/internal/provider"
)

var (
	scanFindings   string
	scanPolicyFile string
	scanJSONOut    string
	scanCSVDir     string
	scanAuditFile  string
	scanFailOn     string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Score a site's findings and print the risk summary",
	Long:  "Load findings from a snapshot file or bundle directory, score every plugin and role, correlate alerts, and write the requested reports.",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanFindings, "findings", "", "Path to a findings snapshot file or bundle directory")
	scanCmd.Flags().StringVar(&scanPolicyFile, "policy", "", "Path to policy YAML file (default: built-in policy)")
	scanCmd.Flags().StringVar(&scanJSONOut, "json", "", "Write the full result as JSON to this file")
	scanCmd.Flags().StringVar(&scanCSVDir, "csv-dir", "", "Write CSV reports into this directory")
	scanCmd.Flags().StringVar(&scanAuditFile, "audit-log", "", "Path to audit log file (default: discard)")
	scanCmd.Flags().StringVar(&scanFailOn, "fail-on", "", "Exit non-zero when an alert of this severity or higher is raised (low, medium, high, critical)")
	scanCmd.MarkFlagRequired("findings")
}

func runScan(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	failOn := model.Severity(strings.ToLower(scanFailOn))
	switch failOn {
	case "", model.SeverityLow, model.SeverityMedium, model.SeverityHigh, model.SeverityCritical:
	default:
		return fmt.Errorf("invalid --fail-on severity %q", scanFailOn)
	}

	pol, err := loadPolicy(scanPolicyFile)
	if err != nil {
		return err
	}
	logger.Info().
		Str("policy", pol.PolicyName).
		Str("version", pol.Version).
		Int("alert_rules", len(pol.AlertRules)).
		Int("workers", pol.Scan.Workers).
		Msg("policy loaded")

	src, err := provider.Open(scanFindings)
	if err != nil {
		return err
	}

	auditLogger := audit.NopLogger()
	if scanAuditFile != "" {
		auditLogger, err = audit.NewFileLogger(scanAuditFile)
		if err != nil {
			return fmt.Errorf("creating audit logger: %w", err)
		}
		defer auditLogger.Close()
	}

	out, err := buildSinks(pol, scanJSONOut, scanCSVDir, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if out != nil {
		defer out.Close(ctx)
	}

	pipe := pipeline.New(pol, src, out, auditLogger, logger)
	res, err := pipe.Run(ctx)
	if res == nil {
		return err
	}
	printSummary(os.Stdout, res)
	if err != nil {
		return err
	}

	if pipeline.FailsOn(res, failOn) {
		return fmt.Errorf("alerts at or above %s severity were raised", failOn)
	}
	return nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7AA2F7"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#7B8794"))
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B4252")).
			Padding(0, 1)

	bandColors = map[string]lipgloss.Color{
		string(model.ClassHealthy):  "#2E7D32",
		string(model.ClassLow):      "#689F38",
		string(model.ClassModerate): "#F9A825",
		string(model.LevelMedium):   "#F9A825",
		string(model.ClassHigh):     "#EF6C00",
		string(model.ClassCritical): "#C62828",
		string(model.TierNone):      "#546E7A",
		string(model.TierInfo):      "#0277BD",
		string(model.TierWarning):   "#F9A825",
		string(model.TierDanger):    "#C62828",
	}
)

func badge(label string) string {
	color, ok := bandColors[label]
	if !ok {
		color = "#546E7A"
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color).Render(label)
}

func printSummary(w io.Writer, res *model.ScanResult) {
	s := res.Summary
	header := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Site risk index"),
		fmt.Sprintf("%.2f  %s", s.Index, badge(string(s.Classification))),
		mutedStyle.Render(fmt.Sprintf("%d plugins, %d roles, %d risk points, %d skipped",
			s.PluginsScanned, s.RolesScanned, s.TotalRiskPoints, len(res.Skipped))),
		mutedStyle.Render("scan "+res.ScanID),
	)
	fmt.Fprintln(w, boxStyle.Render(header))

	fmt.Fprintln(w, titleStyle.Render("\nPlugins"))
	for _, p := range res.Plugins {
		fmt.Fprintf(w, "  %-32s P%3d D%3d C%3d S%3d  total %3d  %s\n",
			p.Component, p.Privacy, p.Dependency, p.Capability, p.Structural, p.Total, badge(string(p.Level)))
	}

	if len(res.Heatmap) > 0 {
		fmt.Fprintln(w, titleStyle.Render("\nRole heat map"))
		for _, r := range res.Heatmap {
			name := r.Shortname
			if name == "" {
				name = r.RoleID
			}
			fmt.Fprintf(w, "  %-32s critical caps %2d  score %3d  %s\n", name, r.CriticalCapCount, r.RiskScore, badge(string(r.Tier)))
		}
	}

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("\nAlerts (%d)", len(res.Alerts))))
	if len(res.Alerts) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  none"))
	}
	for _, a := range res.Alerts {
		fmt.Fprintf(w, "  [%s] %s: %s\n", badge(string(a.Severity)), a.Rule, a.Description)
	}

	if len(res.Mismatches) > 0 {
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("\nMismatches (%d)", len(res.Mismatches))))
		for _, m := range res.Mismatches {
			fmt.Fprintf(w, "  [%s] %s %s declared=%v detected=%v\n", m.Severity, m.Component, m.Field, m.Declared, m.Detected)
		}
	}
	fmt.Fprintln(w)
}
