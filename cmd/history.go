package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mediarelay/internal/history"
	"mediarelay/internal/ui"
)

var (
	flagHistoryLimit int
	flagHistoryClear bool
	flagHistoryYes   bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent probe and stream activity",
	Args:  cobra.NoArgs,
	RunE:  historyRun,
}

func init() {
	historyCmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", history.DefaultLimit, "Number of entries to show")
	historyCmd.Flags().BoolVar(&flagHistoryClear, "clear", false, "Delete all history entries")
	historyCmd.Flags().BoolVarP(&flagHistoryYes, "yes", "y", false, "Do not ask for confirmation")
}

func historyRun(cmd *cobra.Command, args []string) error {
	store, err := history.OpenDefault()
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer store.Close()

	if flagHistoryClear {
		if !flagHistoryYes && isTerminal(os.Stdin) {
			ok, err := ui.Confirm("Delete all history?")
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		if err := store.Clear(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
		return nil
	}

	entries, err := store.List(cmd.Context(), flagHistoryLimit)
	if err != nil {
		return fmt.Errorf("loading history: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(out, "No history entries found.")
		return nil
	}

	if !isTerminal(os.Stdout) {
		for _, line := range history.FormatForDisplay(entries) {
			fmt.Fprintln(out, line)
		}
		return nil
	}

	t := newTable("WHEN", "ACTION", "STATUS", "SIZE", "TITLE / URL")
	for _, e := range entries {
		action := e.Action
		if e.Kind != "" {
			action += "/" + e.Kind
		}
		label := e.Title
		if label == "" {
			label = e.URL
		}
		size := ""
		if e.Bytes > 0 {
			size = history.HumanBytes(e.Bytes)
		}
		t.Row(e.CreatedAt.Format("2006-01-02 15:04"), action, string(e.Status), size, label)
	}
	fmt.Fprintln(out, t.Render())
	return nil
}
