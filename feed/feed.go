// Package feed supplies historical and live OHLCV candles for one
// symbol/timeframe. It never returns a candle at or before the caller's
// last-seen open time, and it drops malformed bars instead of
// propagating them.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"obtrader/market"
)

// ErrUnavailable wraps exchange errors that survived the retry budget.
// Callers treat it as transient and try again on the next poll.
var ErrUnavailable = errors.New("feed: exchange unavailable")

// Source is the raw exchange kline endpoint. start may be zero to
// request the most recent bars.
type Source interface {
	Klines(ctx context.Context, symbol, interval string, start time.Time, limit int) ([]market.Candle, error)
}

// Config holds feed parameters.
type Config struct {
	Symbol     string
	Timeframe  string
	MaxRetries int
	RetryDelay time.Duration
	BatchSize  int // klines per history request
}

// Feed wraps a Source with retries, deduplication and candle
// validation.
type Feed struct {
	src  Source
	cfg  Config
	step time.Duration
	log  *zap.Logger
}

func New(src Source, cfg Config, log *zap.Logger) (*Feed, error) {
	step, err := market.ParseTimeframe(cfg.Timeframe)
	if err != nil {
		return nil, err
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1000
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{src: src, cfg: cfg, step: step, log: log}, nil
}

// Step is the duration of one bar.
func (f *Feed) Step() time.Duration { return f.step }

// FetchHistory returns the last `days` days of completed candles in
// chronological order, deduplicated by open time. Still-open bars are
// excluded.
func (f *Feed) FetchHistory(ctx context.Context, days int) ([]market.Candle, error) {
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -days)

	var all []market.Candle
	for cursor := since; cursor.Before(now); {
		batch, err := f.withRetry(ctx, func(c context.Context) ([]market.Candle, error) {
			return f.src.Klines(c, f.cfg.Symbol, f.cfg.Timeframe, cursor, f.cfg.BatchSize)
		})
		if err != nil {
			return nil, fmt.Errorf("fetch history from %s: %w", cursor.Format(time.RFC3339), err)
		}
		if len(batch) == 0 {
			break
		}
		all = append(all, batch...)

		next := batch[len(batch)-1].OpenTime.Add(f.step)
		if !next.After(cursor) {
			break // exchange stopped advancing; avoid spinning
		}
		cursor = next
	}

	return f.sanitize(all, now), nil
}

// Next returns the most recent completed candle if its open time is
// after lastSeen, or nil when no new bar exists yet.
func (f *Feed) Next(ctx context.Context, lastSeen time.Time) (*market.Candle, error) {
	batch, err := f.withRetry(ctx, func(c context.Context) ([]market.Candle, error) {
		return f.src.Klines(c, f.cfg.Symbol, f.cfg.Timeframe, time.Time{}, 2)
	})
	if err != nil {
		return nil, fmt.Errorf("fetch latest candle: %w", err)
	}
	if len(batch) < 2 {
		return nil, nil
	}

	// The last kline is still forming; the one before it is complete.
	c := batch[len(batch)-2]
	if err := c.Validate(); err != nil {
		f.log.Warn("dropping malformed candle", zap.Error(err))
		return nil, nil
	}
	if !c.OpenTime.After(lastSeen) {
		return nil, nil
	}
	return &c, nil
}

// sanitize sorts, deduplicates by open time, drops malformed bars and
// excludes any bar that has not closed by `now`.
func (f *Feed) sanitize(candles []market.Candle, now time.Time) []market.Candle {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})

	out := candles[:0]
	var last time.Time
	for _, c := range candles {
		if !last.IsZero() && !c.OpenTime.After(last) {
			continue
		}
		if err := c.Validate(); err != nil {
			f.log.Warn("dropping malformed candle", zap.Error(err))
			continue
		}
		if c.OpenTime.Add(f.step).After(now) {
			continue // still open
		}
		out = append(out, c)
		last = c.OpenTime
	}
	return out
}

func (f *Feed) withRetry(ctx context.Context, fn func(context.Context) ([]market.Candle, error)) ([]market.Candle, error) {
	var lastErr error
	for attempt := 0; attempt < f.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(f.cfg.RetryDelay * time.Duration(attempt)):
			}
		}
		out, err := fn(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		f.log.Warn("kline request failed",
			zap.Int("attempt", attempt+1),
			zap.Int("max", f.cfg.MaxRetries),
			zap.Error(err))
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}
