package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhowell/statepick/internal/harness"
	"github.com/dhowell/statepick/internal/scenario"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Filter string // scenario name glob
}

// ScenarioResult is one scenario's outcome.
type ScenarioResult struct {
	Name     string   `json:"name"`
	Pass     bool     `json:"pass"`
	Failures []string `json:"failures,omitempty"`
}

// TestResult is the test command's payload.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

func (r TestResult) String() string {
	var b strings.Builder
	for _, s := range r.Scenarios {
		mark := "PASS"
		if !s.Pass {
			mark = "FAIL"
		}
		fmt.Fprintf(&b, "%s  %s\n", mark, s.Name)
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "      %s\n", f)
		}
	}
	fmt.Fprintf(&b, "%d passed, %d failed, %d total", r.Passed, r.Failed, r.Total)
	return b.String()
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test <scenarios-dir>",
		Short: "Run every scenario in a directory",
		Long: `Run all scenario scripts (*.yaml) under a directory and summarize
their outcomes.

Exit codes:
  0 - all scenarios passed
  1 - one or more scenarios failed
  2 - command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTests(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "only run scenarios whose name matches this glob")

	return cmd
}

func runTests(opts *TestOptions, dir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", dir))
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return WrapExitError(ExitCommandError, "list scenarios", err)
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no scenarios in %s", dir))
	}

	runner := harness.NewRunner(nil)
	result := TestResult{}
	for _, path := range paths {
		sc, err := scenario.Load(path)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("load %s", path), err)
		}
		if opts.Filter != "" {
			ok, err := filepath.Match(opts.Filter, sc.Name)
			if err != nil {
				return WrapExitError(ExitCommandError, "bad filter", err)
			}
			if !ok {
				continue
			}
		}
		formatter.VerboseLog("running %s", sc.Name)

		res, err := runner.Run(sc)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("run %s", sc.Name), err)
		}
		sr := ScenarioResult{Name: sc.Name, Pass: len(res.Failures) == 0, Failures: res.Failures}
		result.Scenarios = append(result.Scenarios, sr)
		result.Total++
		if sr.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	if result.Total == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no scenarios match filter %q", opts.Filter))
	}
	if err := formatter.Success(result); err != nil {
		return err
	}
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}
