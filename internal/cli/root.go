package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/artpar/requst/internal/app"
	"github.com/artpar/requst/internal/config"
	"github.com/artpar/requst/internal/core"
	"github.com/artpar/requst/internal/theme"
)

// rootOptions holds state shared by every subcommand.
type rootOptions struct {
	configPath string
	appOpts    []app.Option
}

// NewRootCommand creates the root command. Extra app options are applied
// after the configuration, which lets tests inject a store and a transport.
func NewRootCommand(version string, opts ...app.Option) *cobra.Command {
	ro := &rootOptions{appOpts: opts}

	cmd := &cobra.Command{
		Use:           "requst",
		Short:         "Requst - compose, send and organize API requests",
		Long:          "Requst is a local API request composer with history, collections and global headers.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.PersistentFlags().StringVar(&ro.configPath, "config", "", "Config file (default ~/.config/requst/config.yaml)")

	cmd.AddCommand(NewSendCommand(ro))
	cmd.AddCommand(NewHistoryCommand(ro))
	cmd.AddCommand(NewCollectionsCommand(ro))
	cmd.AddCommand(NewHeadersCommand(ro))
	cmd.AddCommand(NewThemeCommand(ro))
	cmd.AddCommand(NewExportCommand(ro))
	cmd.AddCommand(NewImportCommand(ro))
	cmd.AddCommand(NewCookiesCommand(ro))

	return cmd
}

// openApp loads the configuration and builds the application. Load failures
// are logged by the app; commands that need storage report them when they run.
func openApp(cmd *cobra.Command, ro *rootOptions) (*app.App, error) {
	cfg, err := config.Load(ro.configPath)
	if err != nil {
		return nil, err
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "requst",
		Level:  hclog.LevelFromString(cfg.LogLevel),
		Output: cmd.ErrOrStderr(),
	})

	opts := append([]app.Option{app.WithConfig(cfg), app.WithLogger(logger)}, ro.appOpts...)
	a := app.New(opts...)
	_ = a.LoadData(cmd.Context())
	return a, nil
}

func styles(a *app.App) theme.Styles {
	return theme.NewStyles(a.Theme())
}

// printTable writes rows as borderless, left-aligned columns.
func printTable(w io.Writer, rows [][]string) {
	cell := lipgloss.NewStyle().PaddingRight(2)
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(false).
		BorderColumn(false).
		StyleFunc(func(row, col int) lipgloss.Style { return cell }).
		Rows(rows...)
	fmt.Fprintln(w, t.Render())
}

// parseRows converts "key<sep>value" strings into enabled rows, keeping order.
// Entries without the separator become a key with an empty value.
func parseRows(values []string, sep string) []core.KeyValue {
	rows := make([]core.KeyValue, 0, len(values))
	for _, v := range values {
		key, value, _ := strings.Cut(v, sep)
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		rows = append(rows, core.KeyValue{Key: key, Value: strings.TrimSpace(value), Enabled: true})
	}
	return rows
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

// parseParent reads a --parent value: "root" or an empty string is the root.
func parseParent(s string) (*int64, error) {
	if s == "" || strings.EqualFold(s, "root") {
		return nil, nil
	}
	id, err := parseID(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
