package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/requst/internal/core"
)

// NewCookiesCommand creates the cookies command group.
func NewCookiesCommand(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cookies",
		Short: "Show or clear cookies kept for credentialed requests",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored cookies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, ro)
			if err != nil {
				return err
			}
			defer a.Close()

			list, err := a.Cookies(cmd.Context())
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No cookies")
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, c := range list {
				expires := "session"
				if !c.IsSession() {
					expires = core.FormatTimestamp(c.Expires)
				}
				rows = append(rows, []string{c.Domain, c.Path, c.Name + "=" + c.Value, expires})
			}
			printTable(cmd.OutOrStdout(), rows)
			return nil
		},
	})

	var domain string
	var yes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove stored cookies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := "Remove every cookie?"
			if domain != "" {
				prompt = fmt.Sprintf("Remove the cookies of %s?", domain)
			}
			ok, err := confirm(cmd, prompt, yes)
			if err != nil || !ok {
				return err
			}

			a, err := openApp(cmd, ro)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.ClearCookies(cmd.Context(), domain)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cookies\n", n)
			return nil
		},
	}
	clearCmd.Flags().StringVar(&domain, "domain", "", "Only remove cookies of this domain")
	clearCmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	cmd.AddCommand(clearCmd)

	return cmd
}
