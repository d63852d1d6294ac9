package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/stowage/internal/realm"
)

// NewGetCommand creates the get command.
func NewGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one entry",
		Long: `Print the entry stored under a key.

Exits with status 1 if there is none.

Example:
  stowage get greeting
  stowage get greeting --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(rootOpts, args[0], cmd)
		},
	}
}

func runGet(opts *RootOptions, key string, cmd *cobra.Command) error {
	return withApp(opts, cmd, func(a *app, out *OutputFormatter) error {
		s := a.realm.NewSession()
		defer s.Close()

		e, err := findEntry(a, s, key)
		if err != nil {
			return err
		}
		return out.Render(e, func(w io.Writer) {
			fmt.Fprintf(w, "%s\t%s\trev=%d\tpriority=%s\n", e.Key, e.Value, e.Rev, e.priorityText())
		})
	})
}

// findEntry loads the entry for key on s, mapping absence to ErrCodeNotFound.
func findEntry(a *app, s *realm.Session, key string) (*Entry, error) {
	h, ok, err := a.entries.Find(s, key)
	if err != nil {
		return nil, wrapRealmError(fmt.Sprintf("get %q", key), err)
	}
	if !ok {
		return nil, &ExitError{Code: ExitFailure, ErrCode: ErrCodeNotFound, Message: fmt.Sprintf("no entry %q", key)}
	}
	e, err := h.Get(s)
	if err != nil {
		return nil, wrapRealmError(fmt.Sprintf("get %q", key), err)
	}
	return e, nil
}
