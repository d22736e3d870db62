package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"obtrader/config"
	"obtrader/logger"
	"obtrader/notify"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay exchange history through the pipeline",
	Long: `Fetch history_days of candles and run them through the detector,
equity filter and ledger exactly as the live loop would, then print the
resulting performance. No notifications are sent.

Example:
  obtrader replay --config configs/config.yaml`,
	RunE: runReplay,
}

var replayConfigPath string

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	replayCmd.MarkFlagRequired("config")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(replayConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.Log.Dir, cfg.Log.Debug)
	defer logger.Sync()

	jrn, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer jrn.Close()

	tester, err := buildTester(cfg, jrn, notify.Noop{})
	if err != nil {
		return err
	}

	if err := tester.Bootstrap(cmd.Context()); err != nil {
		return err
	}

	st := tester.Stats()
	fmt.Printf("Replayed %d days of %s %s\n\n", cfg.Trading.HistoryDays, cfg.Exchange.Symbol, cfg.Exchange.Timeframe)
	fmt.Printf("  Trades: %d (W: %d, L: %d)\n", st.Trades, st.Wins, st.Losses)
	fmt.Printf("  Win rate: %.1f%%\n", st.WinRate)
	fmt.Printf("  Avg win: %.4f  Avg loss: %.4f\n", st.AvgWin, st.AvgLoss)
	fmt.Printf("  Commission paid: %.4f\n", st.CommissionPaid)
	fmt.Printf("  Final capital: %.2f (%+.2f%%)\n", st.Capital, st.TotalReturn)
	if cfg.Journal.Type == "csv" {
		fmt.Printf("\nResults saved to:\n  - %s\n  - %s\n", cfg.Journal.TradesFile, cfg.Journal.EquityFile)
	} else {
		fmt.Printf("\nResults saved to: %s\n", cfg.Journal.DBPath)
	}
	return nil
}
