package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/artpar/requst/internal/theme"
)

// NewThemeCommand creates the theme command group.
func NewThemeCommand(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "theme",
		Short: "Show or select the color theme",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the built-in themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, ro)
			if err != nil {
				return err
			}
			defer a.Close()

			current := a.Theme().Name
			for _, name := range theme.Names() {
				marker := " "
				if name == current {
					marker = "*"
				}
				t := theme.Resolve(name)
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", marker, theme.NewStyles(t).Title.Render(name))
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the selected theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, ro)
			if err != nil {
				return err
			}
			defer a.Close()
			fmt.Fprintln(cmd.OutOrStdout(), a.Theme().Name)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set NAME",
		Short: "Select a built-in theme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, ro)
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := a.SetTheme(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Theme set to %s\n", t.Name)
			return nil
		},
	})

	return cmd
}
