package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/alnah/go-captions/internal/format"
	"github.com/alnah/go-captions/internal/history"
)

const defaultHistoryLimit = 20

// HistoryCmd creates the history command.
func HistoryCmd(env *Env) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent caption runs",
		Long: `Show recent caption runs, newest first.

Runs are recorded in $XDG_DATA_HOME/go-captions/history.db
(default ~/.local/share/go-captions/history.db).`,
		Example: `  captions history
  captions history -n 50
  captions history -n 0   # all runs`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), env, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultHistoryLimit, "Number of runs to show (0 for all)")

	return cmd
}

// runHistory prints the most recent runs as a table on stdout.
func runHistory(ctx context.Context, env *Env, limit int) error {
	store, err := env.HistoryOpener.Open(ctx)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer func() { _ = store.Close() }()

	runs, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(env.Stdout, "No runs recorded yet.")
		return nil
	}

	fmt.Fprintln(env.Stdout, renderHistory(runs))
	return nil
}

// renderHistory formats runs as a rounded table.
func renderHistory(runs []history.Run) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"When", "Video", "Status", "Lang", "Cues", "Words", "Confidence", "Took"})

	for _, r := range runs {
		status := string(r.Status)
		cues, words, confidence := "-", "-", "-"
		if r.Status == history.StatusSucceeded {
			cues = strconv.Itoa(r.CueCount)
			words = strconv.Itoa(r.WordCount)
			confidence = format.Percent(r.Confidence)
		} else if r.Stage != "" {
			status += " (" + r.Stage + ")"
		}
		tw.AppendRow(table.Row{
			format.Ago(r.CreatedAt),
			filepath.Base(r.VideoPath),
			status,
			r.Language,
			cues,
			words,
			confidence,
			format.DurationHuman(r.Duration),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 7, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 8, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})
	return tw.Render()
}
