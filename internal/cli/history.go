package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"voxscribe/internal/store"
)

func newHistoryCmd(app *appState) *cobra.Command {
	var limit int
	var clear bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past transcriptions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if clear {
				return app.clearHistory(cmd)
			}
			return app.showHistory(cmd, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Rows to show, newest first")
	cmd.Flags().BoolVar(&clear, "clear", false, "Delete all history rows")
	return cmd
}

func (a *appState) showHistory(cmd *cobra.Command, limit int) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	entries, err := st.ListTranscriptions(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no transcriptions recorded yet")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		lang := entry.DetectedLanguage
		if lang == "" {
			lang = entry.Language
		}
		if lang == "" {
			lang = "auto"
		}
		duration := "-"
		if entry.Duration > 0 {
			duration = entry.Duration.Round(time.Second).String()
		}
		rows = append(rows, []string{
			entry.CreatedAt.Local().Format("2006-01-02 15:04"),
			filepath.Base(entry.SourcePath),
			entry.Model,
			entry.Task,
			lang,
			duration,
			entry.Status,
			entry.Elapsed.Round(time.Millisecond).String(),
		})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, renderTable(
		[]string{"WHEN", "FILE", "MODEL", "TASK", "LANGUAGE", "LENGTH", "STATUS", "TIME"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft, alignRight},
	))
	for i := range entries {
		entry := &entries[i]
		if entry.Status == store.StatusFailed && entry.ErrorMessage != "" {
			fmt.Fprintf(w, "%s: %s\n", filepath.Base(entry.SourcePath), entry.ErrorMessage)
		}
	}
	return nil
}

func (a *appState) clearHistory(cmd *cobra.Command) error {
	st, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	removed, err := st.ClearHistory(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "cleared %d history rows\n", removed)
	return nil
}
