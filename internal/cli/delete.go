package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/stowage/internal/realm"
)

// DeleteOptions holds flags for the delete command.
type DeleteOptions struct {
	*RootOptions
	Where string
	All   bool
}

// NewDeleteCommand creates the delete command.
func NewDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeleteOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "delete [key]",
		Short: "Delete entries",
		Long: `Delete one entry by key, every entry matching --where, or every
entry with --all. Exactly one of the three must be given.

Example:
  stowage delete greeting
  stowage delete --where 'Rev == 1'
  stowage delete --all`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDelete(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Where, "where", "", "delete entries matching this expression")
	cmd.Flags().BoolVar(&opts.All, "all", false, "delete every entry")

	return cmd
}

// deleteResult is the JSON payload of the delete command.
type deleteResult struct {
	Deleted int `json:"deleted"`
}

func runDelete(opts *DeleteOptions, args []string, cmd *cobra.Command) error {
	selectors := len(args)
	if opts.Where != "" {
		selectors++
	}
	if opts.All {
		selectors++
	}
	if selectors != 1 {
		return formatter(opts.RootOptions, cmd).Fail(&ExitError{
			Code:    ExitCommandError,
			ErrCode: ErrCodeUsage,
			Message: "give exactly one of <key>, --where or --all",
		})
	}

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
		var n int
		var err error
		switch {
		case opts.All:
			if n, err = a.entries.DeleteAll(); err != nil {
				return wrapRealmError("delete --all", err)
			}
		case pred != nil:
			if n, err = a.entries.DeleteWhere(pred); err != nil {
				return wrapRealmError("delete --where", err)
			}
		default:
			if n, err = deleteKey(a, args[0]); err != nil {
				return err
			}
		}

		res := deleteResult{Deleted: n}
		return out.Render(res, func(w io.Writer) {
			fmt.Fprintf(w, "deleted %d\n", n)
		})
	})
}

// deleteKey removes the entry under key. A missing key is ErrCodeNotFound.
func deleteKey(a *app, key string) (int, error) {
	s := a.realm.NewSession()
	defer s.Close()

	h, ok, err := a.entries.Find(s, key)
	if err != nil {
		return 0, wrapRealmError(fmt.Sprintf("delete %q", key), err)
	}
	if !ok {
		return 0, &ExitError{Code: ExitFailure, ErrCode: ErrCodeNotFound, Message: fmt.Sprintf("no entry %q", key)}
	}
	if err := a.entries.Delete(h); err != nil {
		return 0, wrapRealmError(fmt.Sprintf("delete %q", key), err)
	}
	return 1, nil
}
