package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"obtrader/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "List trades from a SQLite journal",
	Long: `Print the trades recorded in a SQLite journal, oldest first.

Example:
  obtrader journal --db ./obtrader.sqlite`,
	RunE: runJournal,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)

	journalCmd.Flags().StringVar(&journalDBPath, "db", "./obtrader.sqlite", "path to SQLite journal DB")
}

func runJournal(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	trades, err := j.ListTrades()
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	if len(trades) == 0 {
		fmt.Println("no trades recorded")
		return nil
	}

	for _, tr := range trades {
		fmt.Printf("%s  %-8s %-5s  entry %.2f  exit %.2f  size %.6f  pnl %+.4f (%+.2f%%)  %s\n",
			tr.ClosedAt.UTC().Format(time.DateTime),
			tr.Symbol, tr.Direction,
			tr.EntryPrice, tr.ExitPrice, tr.Size,
			tr.PnL, tr.PnLPct, tr.Reason)
	}
	fmt.Printf("\n%d trades\n", len(trades))
	return nil
}
