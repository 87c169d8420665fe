// Package tracescmder provides the traces command for inspecting exchange
// records kept in the local trace store.
package tracescmder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/ragloop/pkg/cliui"
	"github.com/papercomputeco/ragloop/pkg/config"
	"github.com/papercomputeco/ragloop/pkg/telemetry"
	"github.com/papercomputeco/ragloop/pkg/telemetry/sqlite"
	"github.com/papercomputeco/ragloop/pkg/utils"
)

const (
	inputWidth = 48
	textWidth  = 72
)

// recordReader is the read side of the sqlite trace store.
type recordReader interface {
	List(ctx context.Context, limit int) ([]*telemetry.Record, error)
	ByTrace(ctx context.Context, traceID string) ([]*telemetry.Record, error)
}

type tracesCommander struct {
	traceStore string
	limit      int
	traceID    string
	jsonOut    bool
}

const tracesLongDesc string = `Inspect exchange records in the local trace store.

Every conversation exchange handled by "ragloop serve" or "ragloop chat" is
recorded to the trace store when telemetry.trace_store is set. Without
arguments the most recent exchanges are listed, newest first. Use --trace to
show every record of one trace in full, including retrieved documents and
token usage.

Examples:
  ragloop traces --trace-store ./traces.db
  ragloop traces -n 50
  ragloop traces --trace 4f9c2a1e-8d3b-4c5e-9f7a-1b2c3d4e5f60
  ragloop traces --json | jq .`

const tracesShortDesc string = "Inspect recorded exchanges"

func NewTracesCmd() *cobra.Command {
	cmder := &tracesCommander{}

	cmd := &cobra.Command{
		Use:   "traces",
		Short: tracesShortDesc,
		Long:  tracesLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.ResolveCommand(cmd, config.Flags, []string{config.FlagTraceStore})
			if err != nil {
				return err
			}
			cmder.traceStore = cfg.Telemetry.TraceStore
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.traceStore == "" {
				return errors.New("no trace store configured: set telemetry.trace_store or pass --trace-store")
			}

			store, err := sqlite.New(cmder.traceStore)
			if err != nil {
				return fmt.Errorf("opening trace store: %w", err)
			}
			defer store.Close()

			return cmder.run(cmd.Context(), cmd.OutOrStdout(), store)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagTraceStore, &cmder.traceStore)
	cmd.Flags().IntVarP(&cmder.limit, "limit", "n", sqlite.DefaultListLimit, "Number of recent exchanges to list")
	cmd.Flags().StringVarP(&cmder.traceID, "trace", "t", "", "Show every record of one trace in full")
	cmd.Flags().BoolVar(&cmder.jsonOut, "json", false, "Print records as JSON lines")

	return cmd
}

func (c *tracesCommander) run(ctx context.Context, out io.Writer, store recordReader) error {
	var (
		records []*telemetry.Record
		err     error
	)
	if c.traceID != "" {
		records, err = store.ByTrace(ctx, c.traceID)
	} else {
		records, err = store.List(ctx, c.limit)
	}
	if err != nil {
		return err
	}

	if c.jsonOut {
		enc := json.NewEncoder(out)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("encoding record: %w", err)
			}
		}
		return nil
	}

	if len(records) == 0 {
		if c.traceID != "" {
			return fmt.Errorf("trace %s not found", c.traceID)
		}
		fmt.Fprintln(out, "No exchanges recorded.")
		return nil
	}

	if c.traceID != "" {
		for _, rec := range records {
			printDetail(out, rec)
		}
		return nil
	}

	fmt.Fprintf(out, "\n  %s\n\n", cliui.HeaderStyle.Render(fmt.Sprintf("Recent exchanges (%d)", len(records))))
	for _, rec := range records {
		printSummary(out, rec)
	}
	fmt.Fprintln(out)
	return nil
}

func printSummary(out io.Writer, rec *telemetry.Record) {
	fmt.Fprintf(out, "  %s %s  %s  %s  %s\n",
		statusMark(rec),
		cliui.IDStyle.Render(utils.Truncate(rec.TraceID, 8)),
		cliui.DimStyle.Render(rec.EmittedAt.Local().Format("2006-01-02 15:04:05")),
		cliui.ScoreStyle.Render(fmt.Sprintf("%6dms", rec.DurationMs)),
		utils.Truncate(utils.OneLine(rec.Input), inputWidth),
	)
}

func printDetail(out io.Writer, rec *telemetry.Record) {
	row := func(key, value string) {
		fmt.Fprintf(out, "  %s %s\n", cliui.KeyStyle.Render(fmt.Sprintf("%-10s", key)), value)
	}

	fmt.Fprintf(out, "\n  %s %s\n\n", statusMark(rec), cliui.IDStyle.Render(rec.TraceID))
	row("event", rec.EventID)
	if rec.SessionID != "" {
		row("session", rec.SessionID)
	}
	row("time", rec.EmittedAt.Local().Format("2006-01-02 15:04:05"))
	row("duration", fmt.Sprintf("%dms", rec.DurationMs))
	if rec.Provider != "" {
		row("model", cliui.NameStyle.Render(rec.Provider+"/"+rec.Model))
	}
	row("input", utils.Truncate(utils.OneLine(rec.Input), textWidth))
	if rec.Failed() {
		row("error", cliui.ErrorStyle.Render(rec.Error))
	} else {
		row("output", utils.Truncate(utils.OneLine(rec.Output), textWidth))
	}
	if rec.Usage != nil {
		row("tokens", fmt.Sprintf("%d prompt, %d completion", rec.Usage.PromptTokens, rec.Usage.CompletionTokens))
	}

	if rec.Retrieval != nil && len(rec.Retrieval.Matches) > 0 {
		fmt.Fprintf(out, "\n  %s\n", cliui.HeaderStyle.Render(fmt.Sprintf("Retrieved (top %d)", rec.Retrieval.TopK)))
		for i, m := range rec.Retrieval.Matches {
			fmt.Fprintf(out, "  %s  %s  %s  %s\n",
				cliui.RankStyle.Render(fmt.Sprintf("#%d", i+1)),
				cliui.ScoreStyle.Render(fmt.Sprintf("%.4f", m.Score)),
				cliui.IDStyle.Render(m.ID),
				cliui.DimStyle.Render(utils.Truncate(utils.OneLine(m.Text), inputWidth)),
			)
		}
	}
	fmt.Fprintln(out)
}

func statusMark(rec *telemetry.Record) string {
	if rec.Failed() {
		return cliui.FailMark
	}
	return cliui.SuccessMark
}
