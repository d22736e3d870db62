package market

import (
	"fmt"
	"time"
)

// Side is the direction of a signal or position.
type Side int8

const (
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "unknown"
	}
}

// Candle is a single completed OHLCV bar. Candles are immutable once
// produced; OpenTime is the bar's open instant in UTC.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// Validate reports whether the candle is well-formed: positive prices,
// non-negative volume, a consistent high/low range and a non-zero time.
func (c Candle) Validate() error {
	if c.OpenTime.IsZero() {
		return fmt.Errorf("candle: zero open time")
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return fmt.Errorf("candle %s: non-positive price", c.OpenTime.Format(time.RFC3339))
	}
	if c.Volume < 0 {
		return fmt.Errorf("candle %s: negative volume", c.OpenTime.Format(time.RFC3339))
	}
	if c.High < c.Low {
		return fmt.Errorf("candle %s: high %.8f below low %.8f", c.OpenTime.Format(time.RFC3339), c.High, c.Low)
	}
	if c.Open > c.High || c.Open < c.Low || c.Close > c.High || c.Close < c.Low {
		return fmt.Errorf("candle %s: open/close outside high/low range", c.OpenTime.Format(time.RFC3339))
	}
	return nil
}

// Bullish reports whether the candle closed above its open.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish reports whether the candle closed below its open.
func (c Candle) Bearish() bool { return c.Close < c.Open }
