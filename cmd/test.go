package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coal/siterisk/internal/correlation"
	"github.com/coal/siterisk/internal/inspector"
	"github.com/coal/siterisk/internal/model"
	"github.com/coal/siterisk/internal/score"
	"github.com/coal/siterisk/internal/site"
)

var testPolicyFile string

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Run built-in scoring scenarios against the engine",
	Long:  "Run a suite of reference scenarios to verify layer caps, level and classification boundaries, correlation rules, and normalization.",
	RunE:  runTest,
}

func init() {
	testCmd.Flags().StringVar(&testPolicyFile, "policy", "", "Path to policy YAML file (default: built-in policy)")
}

type testCase struct {
	name     string
	expected string
	run      func(env *testEnv) string
}

type testEnv struct {
	engine *correlation.Engine
}

func itoa(n int) string { return strconv.Itoa(n) }

func hasRule(alerts []model.Alert, rule string) string {
	for _, a := range alerts {
		if a.Rule == rule {
			return "fires"
		}
	}
	return "silent"
}

func escalationRoles(n int) []model.RoleRiskProfile {
	roles := make([]model.RoleRiskProfile, n)
	for i := range roles {
		roles[i] = model.RoleRiskProfile{RoleID: itoa(10 + i), Shortname: "role" + itoa(i), CriticalCapCount: 3}
	}
	return roles
}

var testCases = []testCase{
	{
		name:     "privacy_no_provider_no_fields",
		expected: "30",
		run: func(*testEnv) string {
			return itoa(score.Privacy(false, nil))
		},
	},
	{
		name:     "privacy_provider_no_fields",
		expected: "0",
		run: func(*testEnv) string {
			return itoa(score.Privacy(true, nil))
		},
	},
	{
		name:     "privacy_password_and_city",
		expected: "80",
		run: func(*testEnv) string {
			return itoa(score.Privacy(false, []model.PrivacyFinding{
				{Table: "t", Field: "user_password"},
				{Table: "t", Field: "city"},
			}))
		},
	},
	{
		name:     "dependency_capped",
		expected: "65",
		run: func(*testEnv) string {
			return itoa(score.Dependency(model.DependencyFindings{
				CoreMismatch:        true,
				MissingDependencies: []string{"a", "b", "c"},
				Outdated:            true,
				DeprecatedAPIs:      []model.DeprecatedAPI{{API: "a"}, {API: "b"}, {API: "c"}, {API: "d"}},
				NoRecentUpdate:      true,
			}))
		},
	},
	{
		name:     "structural_capped",
		expected: "65",
		run: func(*testEnv) string {
			calls := make([]model.CallFinding, 10)
			return itoa(score.Structural(model.StructuralFindings{
				NoVersionFile: true, NoLangDir: true, NoReadme: true, NoTests: true,
				NoMaturity: true, LegacyCron: true, UnsafeCalls: calls,
			}))
		},
	},
	{
		name:     "encrypted_empty",
		expected: "false",
		run: func(*testEnv) string {
			return strconv.FormatBool(inspector.IsEncrypted(""))
		},
	},
	{
		name:     "encrypted_md5_digest",
		expected: "true",
		run: func(*testEnv) string {
			return strconv.FormatBool(inspector.IsEncrypted("5f4dcc3b5aa765d61d8327deb882cf99"))
		},
	},
	{
		name:     "encrypted_sha256_digest",
		expected: "true",
		run: func(*testEnv) string {
			return strconv.FormatBool(inspector.IsEncrypted(strings.Repeat("a1", 32)))
		},
	},
	{
		name:     "risk_level_boundaries",
		expected: "low medium medium high high critical",
		run: func(*testEnv) string {
			var out []string
			for _, t := range []int{30, 31, 60, 61, 80, 81} {
				out = append(out, string(score.RiskLevel(t)))
			}
			return strings.Join(out, " ")
		},
	},
	{
		name:     "site_class_boundaries",
		expected: "healthy low low moderate moderate high high critical",
		run: func(*testEnv) string {
			var out []string
			for _, i := range []float64{20, 21, 40, 41, 60, 61, 80, 81} {
				out = append(out, string(site.Classify(i)))
			}
			return strings.Join(out, " ")
		},
	},
	{
		name:     "site_index_two_plugins_one_role",
		expected: "75.47 high",
		run: func(*testEnv) string {
			idx := site.Index(200, 2, 1)
			return fmt.Sprintf("%.2f %s", idx, site.Classify(idx))
		},
	},
	{
		name:     "multi_role_escalation_three",
		expected: "fires",
		run: func(env *testEnv) string {
			return hasRule(env.engine.Evaluate("test", nil, escalationRoles(3)), correlation.RuleMultiRoleEscalate)
		},
	},
	{
		name:     "multi_role_escalation_two",
		expected: "silent",
		run: func(env *testEnv) string {
			return hasRule(env.engine.Evaluate("test", nil, escalationRoles(2)), correlation.RuleMultiRoleEscalate)
		},
	},
}

func runTest(cmd *cobra.Command, args []string) error {
	pol, err := loadPolicy(testPolicyFile)
	if err != nil {
		return err
	}

	env := &testEnv{
		engine: correlation.New(correlation.Options{
			AdminRoles: pol.Roles.AdminRoles,
			Threshold:  pol.Thresholds.Correlation,
		}),
	}

	fmt.Fprintf(os.Stderr, "\n=== Site Risk Engine Tests ===\n")
	fmt.Fprintf(os.Stderr, "Policy: %s (%s)\n\n", pol.PolicyName, pol.Version)

	passed := 0
	failed := 0

	for _, tc := range testCases {
		actual := tc.run(env)

		status := "PASS"
		if actual != tc.expected {
			status = "FAIL"
			failed++
		} else {
			passed++
		}

		fmt.Fprintf(os.Stderr, "  [%s] %-34s expected=%-20q got=%q\n",
			status, tc.name, tc.expected, actual)
	}

	fmt.Fprintf(os.Stderr, "\n  Results: %d passed, %d failed, %d total\n\n",
		passed, failed, len(testCases))

	if failed > 0 {
		return fmt.Errorf("%d test(s) failed", failed)
	}
	return nil
}
