package cli

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/artpar/requst/internal/core"
	"github.com/artpar/requst/internal/history"
	"github.com/artpar/requst/internal/storage"
)

// NewHistoryCommand creates the history command group.
func NewHistoryCommand(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List and manage sent requests",
	}
	cmd.AddCommand(newHistoryListCommand(ro))
	cmd.AddCommand(newHistoryDeleteCommand(ro))
	cmd.AddCommand(newHistorySaveCommand(ro))
	return cmd
}

func newHistoryListCommand(ro *rootOptions) *cobra.Command {
	var filter string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List history, newest first",
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

			items := history.Filter(a.History(), filter)
			if asJSON {
				if items == nil {
					items = []core.HistoryItem{}
				}
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(items)
			}

			if len(items) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No history")
				return nil
			}
			s := styles(a)
			rows := make([][]string, 0, len(items))
			for _, h := range items {
				rows = append(rows, []string{
					fmt.Sprint(h.ID), s.Method(h.Method), h.Name, h.URL,
					s.Muted.Render(fmt.Sprintf("%s (%s)", core.FormatTimestamp(h.Timestamp), humanize.Time(h.Timestamp))),
				})
			}
			printTable(cmd.OutOrStdout(), rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Only show entries whose name or URL contains this text")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newHistoryDeleteCommand(ro *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a history entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ok, err := confirm(cmd, fmt.Sprintf("Delete history entry %d?", id), yes)
			if err != nil || !ok {
				return err
			}

			a, err := openApp(cmd, ro)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.DeleteHistoryItem(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted history entry %d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newHistorySaveCommand(ro *rootOptions) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "save ID",
		Short: "Save a history entry to collections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			a, err := openApp(cmd, ro)
			if err != nil {
				return err
			}
			defer a.Close()

			item, ok := findHistory(a.History(), id)
			if !ok {
				return fmt.Errorf("%w: %d", history.ErrNotFound, id)
			}
			if name != "" {
				d := a.Draft()
				d.Name = name
				a.SetDraft(d)
			}

			saved, err := a.SaveToCollection(cmd.Context(), item)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %q to collections (id %d)\n", saved.Name, saved.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Name for the saved request")
	return cmd
}

func findHistory(items []core.HistoryItem, id int64) (core.HistoryItem, bool) {
	for _, h := range items {
		if h.ID == id {
			return h, true
		}
	}
	return core.HistoryItem{}, false
}
