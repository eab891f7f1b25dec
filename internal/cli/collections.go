package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/requst/internal/collection"
	"github.com/artpar/requst/internal/storage"
)

// NewCollectionsCommand creates the collections command group.
func NewCollectionsCommand(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"collection", "col"},
		Short:   "Organize saved requests into groups",
	}
	cmd.AddCommand(newCollectionsListCommand(ro))
	cmd.AddCommand(newCollectionsGroupCommand(ro))
	cmd.AddCommand(newCollectionsRenameCommand(ro))
	cmd.AddCommand(newCollectionsEditCommand(ro))
	cmd.AddCommand(newCollectionsMoveCommand(ro))
	cmd.AddCommand(newCollectionsDeleteCommand(ro))
	return cmd
}

func newCollectionsListCommand(ro *rootOptions) *cobra.Command {
	var filter string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the collection tree",
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

			out := cmd.OutOrStdout()
			s := styles(a)
			items := a.Collections()
			if len(items) == 0 {
				fmt.Fprintln(out, "No collections")
				return nil
			}

			// A filter flattens the view to matching requests and groups.
			if filter != "" {
				for _, item := range collection.Filter(items, filter) {
					fmt.Fprintf(out, "%d  %s %s  %s\n", item.ID, s.Method(item.Method), item.Name, s.Muted.Render(item.URL))
				}
				return nil
			}

			for _, row := range collection.Flatten(collection.BuildTree(items)) {
				indent := strings.Repeat("  ", row.Depth)
				item := row.Item
				if item.IsGroup() {
					fmt.Fprintf(out, "%s%s %s\n", indent, s.Group.Render("["+item.Name+"]"), s.Muted.Render(fmt.Sprintf("#%d", item.ID)))
					continue
				}
				fmt.Fprintf(out, "%s%s %s %s\n", indent, s.Method(item.Method), item.Name, s.Muted.Render(fmt.Sprintf("#%d %s", item.ID, item.URL)))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Only show items whose name or URL contains this text")
	return cmd
}

func newCollectionsGroupCommand(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "group NAME",
		Short: "Create a group at the root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, ro)
			if err != nil {
				return err
			}
			defer a.Close()

			group, err := a.CreateGroup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created group %q (id %d)\n", group.Name, group.ID)
			return nil
		},
	}
}

func newCollectionsRenameCommand(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a request or group",
		Args:  cobra.ExactArgs(2),
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

			item, err := a.RenameCollectionItem(cmd.Context(), id, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed %d to %q\n", item.ID, item.Name)
			return nil
		},
	}
}

func newCollectionsEditCommand(ro *rootOptions) *cobra.Command {
	var name, url, parent string

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a request's name, URL or parent group",
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

			current, ok := collection.Find(a.Collections(), id)
			if !ok {
				return fmt.Errorf("%w: %d", collection.ErrNotFound, id)
			}

			changes := collection.Changes{Name: current.Name}
			if cmd.Flags().Changed("name") {
				changes.Name = name
			}
			if cmd.Flags().Changed("url") {
				changes.URL = &url
			}
			if cmd.Flags().Changed("parent") {
				p, err := parseParent(parent)
				if err != nil {
					return err
				}
				changes.SetParent = true
				changes.ParentID = p
			}

			item, err := a.EditCollectionItem(cmd.Context(), id, changes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d %q\n", item.ID, item.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name")
	cmd.Flags().StringVar(&url, "url", "", "New URL")
	cmd.Flags().StringVar(&parent, "parent", "", "Parent group id, or root")
	return cmd
}

func newCollectionsMoveCommand(ro *rootOptions) *cobra.Command {
	var parent string
	var index int

	cmd := &cobra.Command{
		Use:   "move ID",
		Short: "Move an item under a group or to the root",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := parseParent(parent)
			if err != nil {
				return err
			}
			a, err := openApp(cmd, ro)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.MoveCollectionItem(cmd.Context(), id, p, index); err != nil {
				return err
			}
			target := "root"
			if p != nil {
				target = fmt.Sprintf("group %d", *p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Moved %d to %s\n", id, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "root", "Parent group id, or root")
	cmd.Flags().IntVar(&index, "index", -1, "Position among the new siblings (default last)")
	return cmd
}

func newCollectionsDeleteCommand(ro *rootOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a request, or a group with everything in it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ok, err := confirm(cmd, fmt.Sprintf("Delete collection item %d and its contents?", id), yes)
			if err != nil || !ok {
				return err
			}

			a, err := openApp(cmd, ro)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.DeleteCollectionItem(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
