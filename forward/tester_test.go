package forward

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"obtrader/feed"
	"obtrader/filter"
	"obtrader/journal"
	"obtrader/ledger"
	"obtrader/market"
	"obtrader/strategy"
)

var testBase = time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)

type memJournal struct {
	trades []journal.TradeRecord
	equity []journal.EquitySnapshot
}

func (j *memJournal) RecordTrade(t journal.TradeRecord) error {
	j.trades = append(j.trades, t)
	return nil
}

func (j *memJournal) RecordEquity(s journal.EquitySnapshot) error {
	j.equity = append(j.equity, s)
	return nil
}

func (j *memJournal) Close() error { return nil }

type memNotifier struct{ msgs []string }

func (n *memNotifier) Send(text string) { n.msgs = append(n.msgs, text) }
func (n *memNotifier) Close()           {}

func (n *memNotifier) containing(sub string) int {
	count := 0
	for _, m := range n.msgs {
		if strings.Contains(m, sub) {
			count++
		}
	}
	return count
}

// scriptedDetector returns canned signals keyed by candle open time.
type scriptedDetector struct {
	signals map[int64]*strategy.Signal
}

func (d *scriptedDetector) Update(c market.Candle) *strategy.Signal {
	if d.signals == nil {
		return nil
	}
	return d.signals[c.OpenTime.UnixMilli()]
}

type fixture struct {
	tester *Tester
	jrn    *memJournal
	notif  *memNotifier
	det    *scriptedDetector
	led    *ledger.Ledger
	filt   *filter.EquityFilter
}

func newFixture(t *testing.T, f *feed.Feed) *fixture {
	t.Helper()
	jrn := &memJournal{}
	notif := &memNotifier{}
	det := &scriptedDetector{signals: map[int64]*strategy.Signal{}}
	led := ledger.New(ledger.Config{
		InitialCapital: 100,
		RiskFraction:   0.02,
		Slippage:       0.0005,
		Commission:     0.0006,
	}, "ETHUSDT", jrn)
	filt := filter.NewEquityFilter(200)
	cfg := Config{Symbol: "ETHUSDT", Timeframe: "3m", HistoryDays: 1, PollInterval: time.Minute}
	return &fixture{
		tester: New(cfg, f, det, filt, led, notif, nil),
		jrn:    jrn,
		notif:  notif,
		det:    det,
		led:    led,
		filt:   filt,
	}
}

func bar(i int, o, h, l, cl float64) market.Candle {
	return market.Candle{
		OpenTime: testBase.Add(time.Duration(i) * 3 * time.Minute),
		Open:     o, High: h, Low: l, Close: cl,
		Volume: 100,
	}
}

func (fx *fixture) signalAt(c market.Candle, side market.Side, entry, stop float64) {
	fx.det.signals[c.OpenTime.UnixMilli()] = &strategy.Signal{
		Side: side, Entry: entry, Stop: stop, Time: c.OpenTime,
	}
}

func TestApplyOpensOnSignal(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	c := bar(0, 100, 101, 99, 100)
	fx.signalAt(c, market.Long, 100, 98)

	require.NoError(t, fx.tester.apply(c, true))

	pos := fx.led.Position()
	require.NotNil(t, pos)
	assert.Equal(t, market.Long, pos.Side)
	assert.InDelta(t, 1.0, pos.Size, 1e-9)
	assert.Equal(t, 1, fx.notif.containing("signal"))
	assert.Equal(t, 1, fx.notif.containing("Position opened"))
	require.Len(t, fx.jrn.equity, 1)
}

func TestApplySilentWhenNotLive(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	c := bar(0, 100, 101, 99, 100)
	fx.signalAt(c, market.Long, 100, 98)

	require.NoError(t, fx.tester.apply(c, false))

	require.NotNil(t, fx.led.Position())
	assert.Empty(t, fx.notif.msgs)
	// journals still run during bootstrap
	require.Len(t, fx.jrn.equity, 1)
}

func TestApplyStopLoss(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	open := bar(0, 100, 101, 99, 100)
	fx.signalAt(open, market.Long, 100, 98)
	require.NoError(t, fx.tester.apply(open, true))

	// low trades through the stop
	require.NoError(t, fx.tester.apply(bar(1, 99, 99.5, 97.5, 97.8), true))

	assert.Nil(t, fx.led.Position())
	require.Len(t, fx.jrn.trades, 1)
	assert.Equal(t, "stop_loss", fx.jrn.trades[0].Reason)
	assert.Equal(t, 1, fx.notif.containing("Position closed"))
}

func TestApplySignalReversal(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	open := bar(0, 100, 101, 99, 100)
	fx.signalAt(open, market.Long, 100, 98)
	require.NoError(t, fx.tester.apply(open, true))

	flip := bar(1, 100, 100.5, 99, 99.5)
	fx.signalAt(flip, market.Short, 99.5, 101)
	require.NoError(t, fx.tester.apply(flip, true))

	require.Len(t, fx.jrn.trades, 1)
	assert.Equal(t, "signal_reversal", fx.jrn.trades[0].Reason)

	// the reversal signal opens the opposite side on the same candle
	pos := fx.led.Position()
	require.NotNil(t, pos)
	assert.Equal(t, market.Short, pos.Side)
}

func TestApplySameSideSignalIgnored(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	open := bar(0, 100, 101, 99, 100)
	fx.signalAt(open, market.Long, 100, 98)
	require.NoError(t, fx.tester.apply(open, true))
	first := fx.led.Position()

	again := bar(1, 100, 101, 99.5, 100.5)
	fx.signalAt(again, market.Long, 100.5, 99)
	require.NoError(t, fx.tester.apply(again, true))

	assert.Empty(t, fx.jrn.trades)
	pos := fx.led.Position()
	require.NotNil(t, pos)
	assert.Equal(t, first.ID, pos.ID)
}

func TestEquityFilterBlocksEntry(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	fx.filt = filter.NewEquityFilter(3)
	fx.tester.filt = fx.filt
	for _, eq := range []float64{100, 98, 96, 94} {
		fx.filt.Observe(eq)
	}
	require.False(t, fx.filt.Allow())

	c := bar(0, 100, 101, 99, 100)
	fx.signalAt(c, market.Long, 100, 98)
	require.NoError(t, fx.tester.apply(c, true))

	assert.Nil(t, fx.led.Position())
	assert.Equal(t, 1, fx.notif.containing("signal"))
	assert.Equal(t, 0, fx.notif.containing("Position opened"))
}

func TestApplyDropsOutOfOrder(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	require.NoError(t, fx.tester.apply(bar(1, 100, 101, 99, 100), true))
	require.NoError(t, fx.tester.apply(bar(0, 100, 101, 99, 100), true))
	require.NoError(t, fx.tester.apply(bar(1, 100, 101, 99, 100), true))

	assert.Len(t, fx.jrn.equity, 1)
}

func TestDailySummaryAtDateChange(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	lastOfDay := market.Candle{
		OpenTime: time.Date(2026, 1, 10, 23, 57, 0, 0, time.UTC),
		Open:     100, High: 101, Low: 99, Close: 100, Volume: 100,
	}
	firstOfNext := market.Candle{
		OpenTime: time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC),
		Open:     100, High: 101, Low: 99, Close: 100, Volume: 100,
	}

	require.NoError(t, fx.tester.apply(lastOfDay, true))
	assert.Equal(t, 0, fx.notif.containing("Daily summary"))

	require.NoError(t, fx.tester.apply(firstOfNext, true))
	assert.Equal(t, 1, fx.notif.containing("Daily summary"))
	assert.Equal(t, 1, fx.notif.containing("2026-01-10"))
}

func TestShutdownClosesOpenPosition(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	c := bar(0, 100, 101, 99, 100)
	fx.signalAt(c, market.Long, 100, 98)
	require.NoError(t, fx.tester.apply(c, true))

	fx.tester.shutdown()

	assert.Nil(t, fx.led.Position())
	require.Len(t, fx.jrn.trades, 1)
	assert.Equal(t, "manual", fx.jrn.trades[0].Reason)
	assert.Equal(t, 1, fx.notif.containing("stopped"))
}

func TestShutdownFlat(t *testing.T) {
	t.Parallel()

	fx := newFixture(t, nil)
	fx.tester.shutdown()

	assert.Empty(t, fx.jrn.trades)
	assert.Equal(t, 1, fx.notif.containing("stopped"))
}

type historySource struct {
	candles []market.Candle
}

func (s *historySource) Klines(_ context.Context, _, _ string, start time.Time, limit int) ([]market.Candle, error) {
	var out []market.Candle
	for _, c := range s.candles {
		if !start.IsZero() && c.OpenTime.Before(start) {
			continue
		}
		out = append(out, c)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func TestBootstrapReplaysHistorySilently(t *testing.T) {
	t.Parallel()

	// 20 hours of closed 3m candles inside the one-day history window
	src := &historySource{}
	base := time.Now().UTC().Add(-23 * time.Hour).Truncate(time.Minute)
	for i := 0; i < 400; i++ {
		src.candles = append(src.candles, market.Candle{
			OpenTime: base.Add(time.Duration(i) * 3 * time.Minute),
			Open:     100, High: 101, Low: 99, Close: 100, Volume: 100,
		})
	}
	f, err := feed.New(src, feed.Config{
		Symbol: "ETHUSDT", Timeframe: "3m", MaxRetries: 1,
		RetryDelay: time.Millisecond, BatchSize: 100,
	}, nil)
	require.NoError(t, err)

	fx := newFixture(t, f)
	require.NoError(t, fx.tester.Bootstrap(context.Background()))

	assert.Empty(t, fx.notif.msgs)
	assert.Len(t, fx.jrn.equity, 400)
	assert.Equal(t, 400, fx.filt.Samples())
	assert.Equal(t, src.candles[399].OpenTime, fx.tester.lastCandle)
}

// identical candle streams through two testers produce identical
// ledgers.
func TestReplayDeterminism(t *testing.T) {
	t.Parallel()

	candles := []market.Candle{
		bar(0, 100, 101, 99, 100),
		bar(1, 100, 102, 99.5, 101.5),
		bar(2, 101.5, 102, 97.5, 98),
		bar(3, 98, 99, 97, 98.5),
	}
	run := func() *fixture {
		fx := newFixture(t, nil)
		fx.signalAt(candles[0], market.Long, 100, 98)
		fx.signalAt(candles[3], market.Short, 98.5, 100)
		for _, c := range candles {
			require.NoError(t, fx.tester.apply(c, false))
		}
		return fx
	}

	a, b := run(), run()
	assert.Equal(t, a.led.Stats(), b.led.Stats())
	assert.Equal(t, a.jrn.equity, b.jrn.equity)
	require.Equal(t, len(a.jrn.trades), len(b.jrn.trades))
	for i := range a.jrn.trades {
		at, bt := a.jrn.trades[i], b.jrn.trades[i]
		at.TradeID, bt.TradeID = "", ""
		assert.Equal(t, at, bt)
	}
}
