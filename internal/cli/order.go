package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dhowell/statepick"
	"github.com/dhowell/statepick/internal/compiler"
)

// OrderEntry is one slot of the resolved priority order.
type OrderEntry struct {
	Index    int    `json:"index"`
	State    string `json:"state"`
	Resolver string `json:"resolver"`
}

// OrderResult is the order command's payload.
type OrderResult struct {
	Machine string       `json:"machine"`
	Order   []OrderEntry `json:"order"`
}

func (r OrderResult) String() string {
	lines := make([]string, 0, len(r.Order)+1)
	lines = append(lines, fmt.Sprintf("machine %s", r.Machine))
	for _, e := range r.Order {
		lines = append(lines, fmt.Sprintf("%3d %s  %s", e.Index, e.State, e.Resolver))
	}
	return strings.Join(lines, "\n")
}

// NewOrderCommand creates the order command.
func NewOrderCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "order <machine.cue>",
		Short: "Resolve and print a machine's priority order",
		Long: `Compile a machine definition and resolve the priority order its
states would occupy at registration time, without running the engine.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrder(rootOpts, args[0], cmd)
		},
	}
}

func runOrder(opts *RootOptions, path string, cmd *cobra.Command) error {
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
		if ferr := formatter.Error(err.Error()); ferr != nil {
			return ferr
		}
		return NewExitError(ExitFailure, "compile failed")
	}

	reg := statepick.NewOrderedRegistry[string]()
	resolvers := make(map[string]statepick.Resolver[string], len(spec.States))
	for _, st := range spec.States {
		r := spec.ResolverFor(st)
		resolvers[st.Name] = r
		if err := reg.Insert(st.Name, r); err != nil {
			if ferr := formatter.Error(fmt.Sprintf("place state %s: %v", st.Name, err)); ferr != nil {
				return ferr
			}
			return NewExitError(ExitFailure, "order resolution failed")
		}
	}

	result := OrderResult{Machine: spec.Name}
	for i, id := range reg.IDs() {
		result.Order = append(result.Order, OrderEntry{
			Index:    i,
			State:    id,
			Resolver: resolvers[id].Describe(),
		})
	}
	return formatter.Success(result)
}
