package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coal/siterisk/internal/inspector"
	"github.com/coal/siterisk/internal/score"
)

var (
	inspectField      string
	inspectSampleSize int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [value...]",
	Short: "Classify stored values as encrypted or plaintext",
	Long: `Run the entropy classifier on each value and show its verdict. With
--field, the values are treated as samples of one column and the field's
sensitivity tier and privacy weight are shown as well.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectField, "field", "", "Treat values as samples of this field name")
	inspectCmd.Flags().IntVar(&inspectSampleSize, "sample-size", inspector.DefaultSampleSize, "Maximum values sampled per field")
}

type valueReport struct {
	Value string `json:"value"`
	inspector.Classification
}

type fieldReport struct {
	Field       string                 `json:"field"`
	Sensitivity inspector.Sensitivity  `json:"sensitivity"`
	Weight      int                    `json:"privacy_weight"`
	Verdict     inspector.FieldVerdict `json:"verdict"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	fmt.Fprintf(os.Stderr, "\n=== Value Classification ===\n\n")

	reports := make([]valueReport, 0, len(args))
	for _, v := range args {
		reports = append(reports, valueReport{Value: truncate(v, 80), Classification: inspector.Classify(v)})
	}
	out, err := json.MarshalIndent(reports, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	fmt.Fprintf(os.Stdout, "%s\n", out)

	if inspectField == "" {
		fmt.Fprintln(os.Stderr)
		return nil
	}

	verdict := inspector.New(inspectSampleSize).SampleField(args)
	fr := fieldReport{
		Field:       inspectField,
		Sensitivity: inspector.ClassifyField(inspectField),
		Weight:      score.FieldWeight(inspectField, verdict.IsEncrypted),
		Verdict:     verdict,
	}

	fmt.Fprintf(os.Stderr, "\n=== Field Verdict ===\n\n")
	fmt.Fprintf(os.Stderr, "  Field:       %s\n", fr.Field)
	fmt.Fprintf(os.Stderr, "  Sensitivity: %s\n", fr.Sensitivity)
	fmt.Fprintf(os.Stderr, "  Sampled:     %d (%d look encrypted)\n", verdict.Sampled, verdict.Encrypted)
	fmt.Fprintf(os.Stderr, "  Encrypted:   %v\n", verdict.IsEncrypted)
	fmt.Fprintf(os.Stderr, "  Weight:      %d\n\n", fr.Weight)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
