// Package forward runs the paper-trading loop: it bootstraps detector
// and filter state from exchange history, then polls for completed
// candles and routes each one through stop checks, signal detection,
// the equity filter and the simulated ledger.
package forward

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"obtrader/feed"
	"obtrader/filter"
	"obtrader/ledger"
	"obtrader/market"
	"obtrader/notify"
	"obtrader/strategy"
)

// signalSource is the detector surface the tester consumes; narrowed
// for tests.
type signalSource interface {
	Update(c market.Candle) *strategy.Signal
}

// Config holds the orchestrator's own knobs; component configs live
// with their packages.
type Config struct {
	Symbol       string
	Timeframe    string
	HistoryDays  int
	PollInterval time.Duration
}

// Tester owns the single candle-processing goroutine. Every candle,
// live or historical, flows through apply in order; the only
// difference live mode adds is notifications and the daily summary.
type Tester struct {
	cfg   Config
	feed  *feed.Feed
	det   signalSource
	filt  *filter.EquityFilter
	led   *ledger.Ledger
	notif notify.Notifier
	log   *zap.Logger

	lastCandle time.Time
	lastPrice  float64
	lastDay    time.Time
}

func New(cfg Config, f *feed.Feed, det signalSource, filt *filter.EquityFilter,
	led *ledger.Ledger, notif notify.Notifier, log *zap.Logger) *Tester {
	if notif == nil {
		notif = notify.Noop{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Tester{
		cfg:   cfg,
		feed:  f,
		det:   det,
		filt:  filt,
		led:   led,
		notif: notif,
		log:   log,
	}
}

// Bootstrap replays exchange history through the full pipeline so the
// detector window, equity curve and filter EMA match what a run
// started that many days ago would hold. No notifications are sent.
func (t *Tester) Bootstrap(ctx context.Context) error {
	hist, err := t.feed.FetchHistory(ctx, t.cfg.HistoryDays)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	for _, c := range hist {
		if err := t.apply(c, false); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
	}
	st := t.led.Stats()
	t.log.Info("bootstrap complete",
		zap.Int("candles", len(hist)),
		zap.Int("trades", st.Trades),
		zap.Float64("capital", st.Capital))
	return nil
}

// Run polls for completed candles until the context is cancelled.
// Feed outages are logged and retried on the next tick; journal write
// failures stop the run.
func (t *Tester) Run(ctx context.Context) error {
	t.notif.Send(notify.FormatStartup(t.cfg.Symbol, t.cfg.Timeframe, t.led.Capital()))
	t.log.Info("forward test running",
		zap.String("symbol", t.cfg.Symbol),
		zap.String("timeframe", t.cfg.Timeframe),
		zap.Duration("poll", t.cfg.PollInterval))

	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.shutdown()
			return nil
		case <-ticker.C:
			if err := t.poll(ctx); err != nil {
				t.notif.Send(notify.FormatError("stopping forward test", err))
				t.shutdown()
				return err
			}
		}
	}
}

func (t *Tester) poll(ctx context.Context) error {
	c, err := t.feed.Next(ctx, t.lastCandle)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if errors.Is(err, feed.ErrUnavailable) {
			t.log.Warn("feed unavailable, will retry", zap.Error(err))
			return nil
		}
		t.log.Warn("fetch failed, will retry", zap.Error(err))
		return nil
	}
	if c == nil {
		return nil // no new completed candle yet
	}
	return t.apply(*c, true)
}

// apply processes one completed candle. Step order matters: the stop
// is checked on the candle's range before the detector sees it, the
// filter decision uses equity from the previous candle, and the
// close-price equity mark is observed only after the trade decision.
func (t *Tester) apply(c market.Candle, live bool) error {
	if err := c.Validate(); err != nil {
		t.log.Warn("dropping malformed candle", zap.Error(err))
		return nil
	}
	if !t.lastCandle.IsZero() && !c.OpenTime.After(t.lastCandle) {
		t.log.Warn("dropping out-of-order candle",
			zap.Time("open", c.OpenTime),
			zap.Time("last", t.lastCandle))
		return nil
	}

	closed, err := t.led.Update(c)
	if closed != nil && live {
		t.notif.Send(notify.FormatClosed(t.cfg.Symbol, *closed, t.led.Capital()))
	}
	if err != nil {
		return err
	}

	if sig := t.det.Update(c); sig != nil {
		if err := t.onSignal(c, sig, live); err != nil {
			return err
		}
	}

	eq, err := t.led.RecordEquity(c.OpenTime, c.Close)
	if err != nil {
		return err
	}
	t.filt.Observe(eq)

	if err := t.rollDay(c, eq, live); err != nil {
		return err
	}

	t.lastCandle = c.OpenTime
	t.lastPrice = c.Close
	return nil
}

func (t *Tester) onSignal(c market.Candle, sig *strategy.Signal, live bool) error {
	if live {
		t.notif.Send(notify.FormatSignal(t.cfg.Symbol, *sig))
	}

	if pos := t.led.Position(); pos != nil {
		if pos.Side == sig.Side {
			t.log.Debug("signal in open direction ignored", zap.Stringer("side", sig.Side))
			return nil
		}
		closed, err := t.led.Close(c.Close, c.OpenTime, ledger.ReasonSignalReversal)
		if closed != nil && live {
			t.notif.Send(notify.FormatClosed(t.cfg.Symbol, *closed, t.led.Capital()))
		}
		if err != nil {
			return err
		}
	}

	if !t.filt.Allow() {
		ema, _ := t.filt.EMA()
		t.log.Info("signal blocked by equity filter",
			zap.Stringer("side", sig.Side),
			zap.Float64("ema", ema))
		return nil
	}

	pos, err := t.led.Open(sig.Side, sig.Entry, sig.Stop, c.OpenTime)
	if err != nil {
		if errors.Is(err, ledger.ErrSizingRejected) || errors.Is(err, ledger.ErrPositionOpen) {
			t.log.Info("entry rejected", zap.Error(err))
			return nil
		}
		return err
	}
	t.log.Info("position opened",
		zap.Stringer("side", pos.Side),
		zap.Float64("entry", pos.Entry),
		zap.Float64("stop", pos.Stop),
		zap.Float64("size", pos.Size))
	if live {
		t.notif.Send(notify.FormatOpened(t.cfg.Symbol, pos))
	}
	return nil
}

// rollDay sends the daily summary when the candle's UTC date advances
// past the previous one. Bootstrap advances the date silently so the
// first live candle does not fire a summary for history.
func (t *Tester) rollDay(c market.Candle, equity float64, live bool) error {
	day := c.OpenTime.UTC().Truncate(24 * time.Hour)
	if t.lastDay.IsZero() {
		t.lastDay = day
		return nil
	}
	if !day.After(t.lastDay) {
		return nil
	}
	if live {
		t.notif.Send(notify.FormatDailySummary(t.lastDay, equity, t.led.Stats()))
		t.log.Info("daily summary sent", zap.Time("day", t.lastDay))
	}
	t.lastDay = day
	return nil
}

// Stats reports the ledger's performance summary.
func (t *Tester) Stats() ledger.Stats { return t.led.Stats() }

// shutdown closes any open position at the last seen price and reports
// final stats.
func (t *Tester) shutdown() {
	if t.led.Position() != nil && t.lastPrice > 0 {
		closed, err := t.led.Close(t.lastPrice, t.lastCandle, ledger.ReasonManual)
		if closed != nil {
			t.notif.Send(notify.FormatClosed(t.cfg.Symbol, *closed, t.led.Capital()))
		}
		if err != nil {
			t.log.Error("closing position on shutdown", zap.Error(err))
		}
	}
	st := t.led.Stats()
	t.notif.Send(notify.FormatShutdown(st))
	t.log.Info("forward test stopped",
		zap.Int("trades", st.Trades),
		zap.Float64("win_rate", st.WinRate),
		zap.Float64("capital", st.Capital))
}
