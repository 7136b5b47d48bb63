package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vedsharma/apiplay/internal/format"
)

func init() {
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "View request history",
		Run:   runHistoryList,
	}

	historyCmd.Flags().IntP("limit", "n", 10, "Number of requests to show")

	showCmd := &cobra.Command{
		Use:   "show <id or index>",
		Short: "Show full details of a request",
		Args:  cobra.ExactArgs(1),
		Run:   runHistoryShow,
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear all history",
		Run:   runHistoryClear,
	}

	historyCmd.AddCommand(showCmd, clearCmd)
	rootCmd.AddCommand(historyCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	history, err := store.LoadHistory()
	if err != nil {
		exitOnError("Failed to load history", err)
	}

	limit, _ := cmd.Flags().GetInt("limit")
	format.PrintHistoryList(history.Entries, limit)
}

func runHistoryShow(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	identifier := args[0]

	// Try to parse as index first (1-based)
	if index, err := strconv.Atoi(identifier); err == nil && index > 0 {
		history, err := store.LoadHistory()
		if err != nil {
			exitOnError("Failed to load history", err)
		}
		if index <= len(history.Entries) {
			format.PrintHistoryDetail(&history.Entries[index-1])
			return
		}
	}

	entry, err := store.GetHistoryEntry(identifier)
	if err != nil {
		exitOnError("Failed to load history", err)
	}
	if entry == nil {
		exitOnError("Failed to load history", fmt.Errorf("request not found: %s", identifier))
	}

	format.PrintHistoryDetail(entry)
}

func runHistoryClear(cmd *cobra.Command, args []string) {
	store := openStore()
	defer store.Close()

	if err := store.ClearHistory(); err != nil {
		exitOnError("Failed to clear history", err)
	}

	format.PrintSuccess("History cleared")
}
