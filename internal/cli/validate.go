package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhowell/statepick/internal/compiler"
)

// ValidateResult is the validate command's payload.
type ValidateResult struct {
	Valid   bool     `json:"valid"`
	Machine string   `json:"machine,omitempty"`
	States  []string `json:"states,omitempty"`
	Error   string   `json:"error,omitempty"`
}

func (r ValidateResult) String() string {
	if !r.Valid {
		return fmt.Sprintf("invalid: %s", r.Error)
	}
	return fmt.Sprintf("machine %s: %d state(s): %s",
		r.Machine, len(r.States), strings.Join(r.States, ", "))
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <machine.cue>",
		Short: "Compile a machine definition and report problems",
		Long: `Compile a CUE machine definition without running it.

Exit codes:
  0 - definition compiles
  1 - definition has errors
  2 - command error (file unreadable)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if _, err := os.Stat(path); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("machine definition not found: %s", path))
	}

	spec, err := compiler.CompileMachineFile(path)
	if err != nil {
		var compileErr *compiler.CompileError
		msg := err.Error()
		if errors.As(err, &compileErr) {
			msg = compileErr.Error()
		}
		if err := formatter.Success(ValidateResult{Valid: false, Error: msg}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, "validation failed")
	}

	names := make([]string, 0, len(spec.States))
	for _, st := range spec.States {
		names = append(names, st.Name)
	}
	formatter.VerboseLog("compiled %s from %s", spec.Name, path)
	return formatter.Success(ValidateResult{Valid: true, Machine: spec.Name, States: names})
}
