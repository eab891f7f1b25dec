package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

// NewExportCommand creates the export command.
func NewExportCommand(ro *rootOptions) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a backup of history, collections, global headers and theme",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, ro)
			if err != nil {
				return err
			}
			defer a.Close()

			path, size, err := a.ExportFile(cmd.Context(), dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s (%s)\n", path, humanize.Bytes(uint64(size)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "out", "o", ".", "Directory to write the backup into")
	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(ro *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace all data with a backup",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, ro)
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := a.ReadBackup(args[0])
			if err != nil {
				return err
			}

			prompt := fmt.Sprintf("Replace all data with %d history entries, %d collection items and %d global headers?",
				len(doc.History), len(doc.Collections), len(doc.GlobalHeaders))
			ok, err := confirm(cmd, prompt, yes)
			if err != nil || !ok {
				return err
			}

			if err := a.Import(cmd.Context(), doc); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported backup from %s\n", doc.Timestamp)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
