package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/stowage/internal/realm"
)

// UpsertOptions holds flags for the upsert command.
type UpsertOptions struct {
	*RootOptions
	SkipUnchanged bool
	Priority      int64
}

// NewUpsertCommand creates the upsert command.
func NewUpsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &UpsertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "upsert <key> <value>",
		Short: "Insert an entry or merge into the existing one",
		Long: `Insert an entry, or merge the value into the entry already stored
under the key. Each merge increments the entry's revision.

With --skip-unchanged a merge that would not change the value is skipped.

Example:
  stowage upsert greeting hello
  stowage upsert greeting hello --skip-unchanged`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpsert(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.SkipUnchanged, "skip-unchanged", false, "skip the merge when the value is unchanged")
	cmd.Flags().Int64Var(&opts.Priority, "priority", 0, "listing priority (lower first)")

	return cmd
}

// upsertResult is the JSON payload of the upsert command.
type upsertResult struct {
	Key     string `json:"key"`
	Outcome string `json:"outcome"`
}

func runUpsert(opts *UpsertOptions, key, value string, cmd *cobra.Command) error {
	e := &Entry{Key: key, Value: value, Rev: 1}
	if cmd.Flags().Changed("priority") {
		p := opts.Priority
		e.Priority = &p
	}

	var gate realm.MergeGate[Entry]
	if opts.SkipUnchanged {
		gate = func(incoming, existing *Entry) bool {
			return incoming.Value != existing.Value
		}
	}

	return withApp(opts.RootOptions, cmd, func(a *app, out *OutputFormatter) error {
		outcome, err := a.entries.UpsertByKey(e, gate)
		if err != nil {
			return wrapRealmError(fmt.Sprintf("upsert %q", key), err)
		}
		res := upsertResult{Key: key, Outcome: outcome.String()}
		return out.Render(res, func(w io.Writer) {
			fmt.Fprintf(w, "%s %s\n", res.Outcome, key)
		})
	})
}
