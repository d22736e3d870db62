package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"obtrader/config"
	"obtrader/feed"
	"obtrader/filter"
	"obtrader/forward"
	"obtrader/journal"
	"obtrader/ledger"
	"obtrader/logger"
	"obtrader/notify"
	"obtrader/strategy"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the live forward test",
	Long: `Run the paper-trading loop against live exchange candles.

History is replayed first so indicator and filter state match a run
started history_days ago; then the loop polls for completed candles
until interrupted. Ctrl-C closes any open position and reports final
stats.

Example:
  obtrader run --config configs/config.yaml`,
	RunE: runRun,
}

var runConfigPath string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to config file (YAML or JSON) (required)")
	runCmd.MarkFlagRequired("config")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(runConfigPath)
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

	var notif notify.Notifier = notify.Noop{}
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger.Module("notify"))
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		notif = tg
	}
	defer notif.Close()

	tester, err := buildTester(cfg, jrn, notif)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := tester.Bootstrap(ctx); err != nil {
		return err
	}
	return tester.Run(ctx)
}

func buildTester(cfg *config.Config, jrn journal.Journal, notif notify.Notifier) (*forward.Tester, error) {
	retryDelay, _ := cfg.Feed.ParseRetryDelay()
	f, err := feed.New(feed.NewBinanceSource(), feed.Config{
		Symbol:     cfg.Exchange.Symbol,
		Timeframe:  cfg.Exchange.Timeframe,
		MaxRetries: cfg.Feed.MaxRetries,
		RetryDelay: retryDelay,
		BatchSize:  cfg.Feed.BatchSize,
	}, logger.Module("feed"))
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}

	det := strategy.NewDetector(cfg.Strategy)
	filt := filter.NewEquityFilter(cfg.Trading.EquityEMA)
	led := ledger.New(ledger.Config{
		InitialCapital: cfg.Trading.InitialCapital,
		RiskFraction:   cfg.Trading.RiskFraction,
		Slippage:       cfg.Trading.Slippage,
		Commission:     cfg.Trading.Commission,
	}, cfg.Exchange.Symbol, jrn)

	pollInterval, _ := cfg.Feed.ParsePollInterval()
	return forward.New(forward.Config{
		Symbol:       cfg.Exchange.Symbol,
		Timeframe:    cfg.Exchange.Timeframe,
		HistoryDays:  cfg.Trading.HistoryDays,
		PollInterval: pollInterval,
	}, f, det, filt, led, notif, logger.Module("forward")), nil
}

func openJournal(cfg *config.Config) (journal.Journal, error) {
	if cfg.Journal.Type == "csv" {
		return journal.NewCSV(cfg.Journal.TradesFile, cfg.Journal.EquityFile)
	}
	return journal.NewSQLite(cfg.Journal.DBPath)
}
