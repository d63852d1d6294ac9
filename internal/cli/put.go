package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/stowage/internal/realm"
)

// PutOptions holds flags for the put command.
type PutOptions struct {
	*RootOptions
	Overwrite bool
	Priority  int64
}

// NewPutCommand creates the put command.
func NewPutCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PutOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "put <key> <value>",
		Short: "Insert a new entry",
		Long: `Insert a new entry.

Fails if the key already exists unless --overwrite is given.

Example:
  stowage put greeting hello
  stowage put greeting hi --overwrite --priority 1`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPut(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Overwrite, "overwrite", false, "replace an existing entry with the same key")
	cmd.Flags().Int64Var(&opts.Priority, "priority", 0, "listing priority (lower first)")

	return cmd
}

func runPut(opts *PutOptions, key, value string, cmd *cobra.Command) error {
	e := &Entry{Key: key, Value: value, Rev: 1}
	if cmd.Flags().Changed("priority") {
		p := opts.Priority
		e.Priority = &p
	}

	policy := realm.ConflictFail
	if opts.Overwrite {
		policy = realm.ConflictOverwrite
	}

	return withApp(opts.RootOptions, cmd, func(a *app, out *OutputFormatter) error {
		if _, err := a.entries.Add(e, policy); err != nil {
			return wrapRealmError(fmt.Sprintf("put %q", key), err)
		}
		return out.Render(e, func(w io.Writer) {
			fmt.Fprintf(w, "put %s\n", key)
		})
	})
}
