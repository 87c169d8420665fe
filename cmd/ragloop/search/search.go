// Package searchcmder provides the search command for semantic search over
// ingested documents.
package searchcmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"

	apisearch "github.com/papercomputeco/ragloop/api/search"
	"github.com/papercomputeco/ragloop/pkg/cliui"
	"github.com/papercomputeco/ragloop/pkg/config"
	"github.com/papercomputeco/ragloop/pkg/llm"
	"github.com/papercomputeco/ragloop/pkg/utils"
)

const previewWidth = 80

type searchCommander struct {
	query string
	topK  int
	quiet bool

	apiTarget string
}

const searchLongDesc string = `Search ingested documents via the ragloop API.

Returns the documents most similar to the query text, most similar first.
Requires a running "ragloop serve".

Use --quiet to output only document IDs, one per line, for piping into other
commands.

Example:
  ragloop search "office opening hours"
  ragloop search "refund policy" --api-target http://localhost:8081
  ragloop search "refund policy" --top 10
  ragloop search "refund policy" --quiet`

const searchShortDesc string = "Search ingested documents"

func NewSearchCmd() *cobra.Command {
	cmder := &searchCommander{}

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: searchShortDesc,
		Long:  searchLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ResolveCommand(cmd, config.Flags, []string{config.FlagAPITarget})
			if err != nil {
				return err
			}
			cmder.apiTarget = cfg.Client.APITarget
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]
			return cmder.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPITarget, &cmder.apiTarget)
	cmd.Flags().IntVarP(&cmder.topK, "top", "k", apisearch.DefaultTopK, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only document IDs, one per line (for piping)")

	return cmd
}

func (c *searchCommander) run(ctx context.Context, out io.Writer) error {
	output, err := SearchAPI(ctx, c.apiTarget, c.query, c.topK)
	if err != nil {
		return err
	}

	if output.Count == 0 {
		if !c.quiet {
			fmt.Fprintln(out, "No results found.")
		}
		return nil
	}

	if c.quiet {
		for _, result := range output.Results {
			fmt.Fprintln(out, result.ID)
		}
		return nil
	}

	fmt.Fprintf(out, "\n%s %s\n\n",
		cliui.HeaderStyle.Render("Search Results for:"),
		cliui.IDStyle.Render(fmt.Sprintf("%q", output.Query)),
	)

	for i, result := range output.Results {
		printResult(out, i+1, result)
	}

	return nil
}

func printResult(out io.Writer, rank int, result apisearch.SearchResult) {
	fmt.Fprintf(out, "  %s  %s  %s\n",
		cliui.RankStyle.Render(fmt.Sprintf("#%d", rank)),
		cliui.ScoreStyle.Render(fmt.Sprintf("score: %.4f", result.Score)),
		cliui.IDStyle.Render(result.ID),
	)

	preview := utils.OneLine(result.Text)
	if preview == "" {
		preview = "(no text content)"
	}
	fmt.Fprintf(out, "  %s\n\n", cliui.ValueStyle.Render(utils.Truncate(preview, previewWidth)))
}

// SearchAPI calls the ragloop search API and returns the parsed output.
func SearchAPI(ctx context.Context, apiTarget, query string, topK int) (*apisearch.SearchOutput, error) {
	searchURL, err := url.Parse(apiTarget)
	if err != nil {
		return nil, fmt.Errorf("invalid API target URL: %w", err)
	}
	searchURL.Path = "/v1/search"
	q := searchURL.Query()
	q.Set("query", query)
	q.Set("top_k", strconv.Itoa(topK))
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating search request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ragloop API at %s: %w", apiTarget, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr llm.ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("search request failed (HTTP %d): %s", resp.StatusCode, string(body))
	}

	var output apisearch.SearchOutput
	if err := json.Unmarshal(body, &output); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return &output, nil
}
