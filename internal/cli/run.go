package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhowell/statepick"
	"github.com/dhowell/statepick/internal/harness"
	"github.com/dhowell/statepick/internal/scenario"
	"github.com/dhowell/statepick/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string // optional trace database
}

// RunResult is the run command's payload.
type RunResult struct {
	Scenario    string               `json:"scenario"`
	RunToken    string               `json:"run_token,omitempty"`
	Actives     []string             `json:"actives"`
	Transitions []harness.TraceEvent `json:"transitions"`
	FinalOrder  []string             `json:"final_order"`
	Failures    []string             `json:"failures,omitempty"`
}

func (r RunResult) String() string {
	out := harness.Format(&harness.Result{
		Scenario:    r.Scenario,
		Actives:     r.Actives,
		Transitions: r.Transitions,
		Failures:    r.Failures,
	})
	if r.RunToken != "" {
		out += fmt.Sprintf("recorded as run %s\n", r.RunToken)
	}
	// Success prints with a trailing newline of its own.
	return out[:len(out)-1]
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario script",
		Long: `Run a scenario tick-script against its machine definition.

With --db the run's transitions are recorded into a trace database for
later inspection with the trace command.

Exit codes:
  0 - scenario passed
  1 - expectations or assertions failed
  2 - command error`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenario(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "record the run into this trace database")

	return cmd
}

func runScenario(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(path); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenario not found: %s", path))
	}
	sc, err := scenario.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "load scenario", err)
	}

	var log *slog.Logger
	if opts.Verbose {
		log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	var listeners []statepick.TransitionListener[string]
	var recorder *trace.Recorder
	if opts.Database != "" {
		store, err := trace.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "open trace database", err)
		}
		defer store.Close()
		recorder, err = store.BeginRun(cmd.Context(), sc.Machine, sc.Name)
		if err != nil {
			return WrapExitError(ExitCommandError, "begin trace run", err)
		}
		listeners = append(listeners, recorder)
	}

	res, err := harness.NewRunner(log).Run(sc, listeners...)
	if err != nil {
		return WrapExitError(ExitCommandError, "run scenario", err)
	}
	if recorder != nil {
		if err := recorder.Err(); err != nil {
			return WrapExitError(ExitCommandError, "record trace", err)
		}
	}

	result := RunResult{
		Scenario:    res.Scenario,
		Actives:     res.Actives,
		Transitions: res.Transitions,
		FinalOrder:  res.FinalOrder,
		Failures:    res.Failures,
	}
	if recorder != nil {
		result.RunToken = recorder.Token()
	}
	if err := formatter.Success(result); err != nil {
		return err
	}
	if len(res.Failures) > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", sc.Name))
	}
	return nil
}
