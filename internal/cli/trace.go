package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhowell/statepick/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
}

// RunListing is the trace command's payload without a token argument.
type RunListing struct {
	Runs []trace.Run `json:"runs"`
}

func (r RunListing) String() string {
	if len(r.Runs) == 0 {
		return "no recorded runs"
	}
	var b strings.Builder
	for i, run := range r.Runs {
		scenario := run.Scenario
		if scenario == "" {
			scenario = "-"
		}
		fmt.Fprintf(&b, "%s  %s  %s  %s", run.Token, run.CreatedAt, run.Machine, scenario)
		if i < len(r.Runs)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// RunTrace is the trace command's payload for a single run.
type RunTrace struct {
	Token  string        `json:"token"`
	Events []trace.Event `json:"events"`
}

func (r RunTrace) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run %s: %d transition(s)", r.Token, len(r.Events))
	for _, e := range r.Events {
		mark := ""
		if e.Forced {
			mark = "  (forced)"
		}
		fmt.Fprintf(&b, "\n%4d tick=%d %s -> %s%s", e.Seq, e.Tick, e.From, e.To, mark)
	}
	return b.String()
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace [run-token]",
		Short: "Inspect recorded runs",
		Long: `List recorded runs in a trace database, or print the transitions of
one run when a token is given.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			token := ""
			if len(args) == 1 {
				token = args[0]
			}
			return runTrace(opts, token, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "trace database path (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runTrace(opts *TraceOptions, token string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(opts.Database); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("trace database not found: %s", opts.Database))
	}
	store, err := trace.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "open trace database", err)
	}
	defer store.Close()

	if token == "" {
		runs, err := store.ListRuns(cmd.Context())
		if err != nil {
			return WrapExitError(ExitCommandError, "list runs", err)
		}
		return formatter.Success(RunListing{Runs: runs})
	}

	events, err := store.RunEvents(cmd.Context(), token)
	if err != nil {
		return WrapExitError(ExitCommandError, "read run", err)
	}
	if len(events) == 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("no transitions recorded for run %s", token))
	}
	return formatter.Success(RunTrace{Token: token, Events: events})
}
