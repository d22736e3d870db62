package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "obtrader",
	Short: "An order-block paper-trading bot for crypto markets",
	Long: `Obtrader follows a crypto market candle by candle, detects order-block
entry signals, and paper-trades them through a simulated ledger with
slippage, commission and risk-based sizing.

It provides tools for:
  - Running a live forward test against exchange candles
  - Replaying exchange history through the full pipeline
  - Inspecting the trade journal
  - Telegram notifications for signals, fills and daily summaries`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
