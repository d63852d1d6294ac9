package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete every record of every type",
		Long: `Delete every record of every registered type in one transaction.
The database file itself is kept.

Example:
  stowage reset --db ./stowage.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(rootOpts, cmd, func(a *app, out *OutputFormatter) error {
				if err := a.realm.Reset(); err != nil {
					return wrapRealmError("reset", err)
				}
				return out.Render(map[string]bool{"reset": true}, func(w io.Writer) {
					fmt.Fprintln(w, "reset")
				})
			})
		},
	}
}
