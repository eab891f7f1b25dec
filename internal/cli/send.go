package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/artpar/requst/internal/core"
	"github.com/artpar/requst/internal/pipeline"
	"github.com/artpar/requst/internal/theme"
)

// SendOptions holds options for the send command.
type SendOptions struct {
	Headers []string
	Query   []string
	Body    string
	Bearer  string
	Name    string
	JSON    bool
	Copy    bool
}

// copyToClipboard is replaced in tests.
var copyToClipboard = clipboard.WriteAll

// NewSendCommand creates the send command.
func NewSendCommand(ro *rootOptions) *cobra.Command {
	opts := &SendOptions{}

	cmd := &cobra.Command{
		Use:   "send METHOD URL",
		Short: "Send an HTTP request",
		Long:  "Send an HTTP request with the global headers applied and record it in history.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, ro, strings.ToUpper(args[0]), args[1], opts)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Headers, "header", "H", nil, "Request header (format: Key:Value)")
	cmd.Flags().StringArrayVarP(&opts.Query, "query", "q", nil, "Query parameter (format: key=value)")
	cmd.Flags().StringVarP(&opts.Body, "body", "d", "", "JSON request body")
	cmd.Flags().StringVar(&opts.Bearer, "bearer", "", "Bearer token")
	cmd.Flags().StringVar(&opts.Name, "name", "", "Request name")
	cmd.Flags().BoolVar(&opts.JSON, "json", false, "Output response as JSON")
	cmd.Flags().BoolVar(&opts.Copy, "copy", false, "Copy the response body to the clipboard")

	return cmd
}

func runSend(cmd *cobra.Command, ro *rootOptions, method, url string, opts *SendOptions) error {
	a, err := openApp(cmd, ro)
	if err != nil {
		return err
	}
	defer a.Close()

	a.SetDraft(core.Draft{
		Name:        opts.Name,
		Method:      method,
		URL:         url,
		Body:        opts.Body,
		Headers:     core.NormalizeRows(parseRows(opts.Headers, ":")),
		QueryParams: core.NormalizeRows(parseRows(opts.Query, "=")),
		BearerToken: opts.Bearer,
	})

	res, err := a.SendRequest(cmd.Context())
	if res == nil {
		return fmt.Errorf("request failed: %w", err)
	}

	for _, w := range res.Warnings {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", w)
	}
	if res.Err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "error:", res.Err)
	}

	if opts.JSON {
		if oerr := outputJSON(cmd.OutOrStdout(), res); oerr != nil {
			return oerr
		}
	} else {
		outputHuman(cmd.OutOrStdout(), styles(a), res)
	}

	if opts.Copy {
		if cerr := copyToClipboard(core.FormatBody(res.Response.Body)); cerr != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), "warning: failed to copy response:", cerr)
		}
	}

	if errors.Is(err, pipeline.ErrInvalidRequestBody) {
		return err
	}
	if err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
	}
	return nil
}

func outputJSON(w io.Writer, res *pipeline.Result) error {
	result := map[string]any{
		"run_id":      res.RunID,
		"state":       res.State.String(),
		"status":      res.Response.Status,
		"status_text": res.Response.StatusText,
		"headers":     res.Response.Headers,
		"body":        res.Response.Body,
		"timing_ms":   res.Response.Elapsed.Milliseconds(),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func outputHuman(w io.Writer, s theme.Styles, res *pipeline.Result) {
	resp := res.Response
	body := core.FormatBody(resp.Body)

	// Status line
	fmt.Fprintf(w, "HTTP %s\n", s.Status(resp.Status, resp.StatusText))
	fmt.Fprintf(w, "Time: %dms  Size: %s\n", resp.Elapsed.Milliseconds(), humanize.Bytes(uint64(len(body))))
	fmt.Fprintln(w)

	if len(resp.Headers) > 0 {
		fmt.Fprintln(w, s.Title.Render("Headers:"))
		keys := make([]string, 0, len(resp.Headers))
		for k := range resp.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s: %s\n", k, resp.Headers[k])
		}
		fmt.Fprintln(w)
	}

	if body != "" {
		fmt.Fprintln(w, s.Title.Render("Body:"))
		fmt.Fprintln(w, body)
	}
}
