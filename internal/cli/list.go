package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/stowage/internal/realm"
)

// ListOptions holds flags for the list command.
type ListOptions struct {
	*RootOptions
	Where string
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entries",
		Long: `List entries ordered by priority (unset last), then key.

--where filters with an expression over the entry fields
Key, Value, Rev and Priority.

Example:
  stowage list
  stowage list --where 'Rev > 1 && Key startsWith "user:"'`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Where, "where", "", "filter expression")

	return cmd
}

func runList(opts *ListOptions, cmd *cobra.Command) error {
	var pred realm.Predicate[Entry]
	if opts.Where != "" {
		p, err := realm.Expr[Entry](opts.Where)
		if err != nil {
			return formatter(opts.RootOptions, cmd).Fail(
				&ExitError{Code: ExitCommandError, ErrCode: ErrCodeUsage, Message: "invalid --where", Err: err})
		}
		pred = p
	}

	return withApp(opts.RootOptions, cmd, func(a *app, out *OutputFormatter) error {
		s := a.realm.NewSession()
		defer s.Close()

		hs, err := a.entries.Query(s, pred)
		if err != nil {
			return wrapRealmError("list", err)
		}

		entries := make([]Entry, 0, len(hs))
		for _, h := range hs {
			e, err := h.Get(s)
			if err != nil {
				return wrapRealmError("list", err)
			}
			entries = append(entries, *e)
		}
		sortEntries(entries)

		out.VerboseLog("%d entries", len(entries))
		return out.Render(entries, func(w io.Writer) {
			writeEntryTable(w, entries)
		})
	})
}

func writeEntryTable(w io.Writer, entries []Entry) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE\tREV\tPRIORITY")
	for i := range entries {
		e := &entries[i]
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", e.Key, e.Value, e.Rev, e.priorityText())
	}
	tw.Flush()
}
