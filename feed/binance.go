package feed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2"

	"obtrader/market"
)

// BinanceSource fetches spot klines from Binance. No credentials are
// needed for public market data.
type BinanceSource struct {
	client *binance.Client
}

func NewBinanceSource() *BinanceSource {
	return &BinanceSource{client: binance.NewClient("", "")}
}

func (s *BinanceSource) Klines(ctx context.Context, symbol, interval string, start time.Time, limit int) ([]market.Candle, error) {
	svc := s.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit)
	if !start.IsZero() {
		svc = svc.StartTime(start.UnixMilli())
	}

	klines, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("binance klines %s %s: %w", symbol, interval, err)
	}

	out := make([]market.Candle, 0, len(klines))
	for _, k := range klines {
		c, err := convertKline(k)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func convertKline(k *binance.Kline) (market.Candle, error) {
	var (
		c   market.Candle
		err error
	)
	c.OpenTime = time.UnixMilli(k.OpenTime).UTC()
	if c.Open, err = strconv.ParseFloat(k.Open, 64); err != nil {
		return c, fmt.Errorf("parse kline open %q: %w", k.Open, err)
	}
	if c.High, err = strconv.ParseFloat(k.High, 64); err != nil {
		return c, fmt.Errorf("parse kline high %q: %w", k.High, err)
	}
	if c.Low, err = strconv.ParseFloat(k.Low, 64); err != nil {
		return c, fmt.Errorf("parse kline low %q: %w", k.Low, err)
	}
	if c.Close, err = strconv.ParseFloat(k.Close, 64); err != nil {
		return c, fmt.Errorf("parse kline close %q: %w", k.Close, err)
	}
	if c.Volume, err = strconv.ParseFloat(k.Volume, 64); err != nil {
		return c, fmt.Errorf("parse kline volume %q: %w", k.Volume, err)
	}
	return c, nil
}
