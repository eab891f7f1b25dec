package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/requst/internal/storage"
)

// NewHeadersCommand creates the global headers command group.
func NewHeadersCommand(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "headers",
		Short: "Manage headers sent with every request",
	}
	cmd.AddCommand(newHeadersListCommand(ro))
	cmd.AddCommand(newHeadersSetCommand(ro))
	cmd.AddCommand(newHeadersClearCommand(ro))
	return cmd
}

func newHeadersListCommand(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List global headers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, ro)
			if err != nil {
				return err
			}
			defer a.Close()
			if !a.Persistent() {
				return storage.ErrStorageUnavailable
			}

			list := a.GlobalHeaders()
			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No global headers")
				return nil
			}
			s := styles(a)
			for _, h := range list {
				line := fmt.Sprintf("%s: %s", h.Key, h.Value)
				if !h.Enabled {
					line = s.Muted.Render(line + " (disabled)")
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
}

func newHeadersSetCommand(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY:VALUE...",
		Short: "Replace the global headers",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, ro)
			if err != nil {
				return err
			}
			defer a.Close()

			saved, err := a.SetGlobalHeaders(cmd.Context(), parseRows(args, ":"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %d global headers\n", len(saved))
			return nil
		},
	}
}

func newHeadersClearCommand(ro *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every global header",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := confirm(cmd, "Remove every global header?", yes)
			if err != nil || !ok {
				return err
			}
			a, err := openApp(cmd, ro)
			if err != nil {
				return err
			}
			defer a.Close()

			if _, err := a.SetGlobalHeaders(cmd.Context(), nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cleared global headers")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
