// Package strategy detects order-block entry signals: a momentum trigger
// on the open-price rate of change, gated by trend, momentum, volume and
// volatility filters, with the stop placed at the order block itself
// (the nearest opposing-body candle a few bars back).
package strategy

import (
	"time"

	"obtrader/indicators"
	"obtrader/market"
)

// Signal is a directional entry with its protective stop. At most one is
// produced per candle. The stop is always on the losing side of the
// entry price.
type Signal struct {
	Side  market.Side
	Entry float64
	Stop  float64
	Time  time.Time
}

// Config holds the detection parameters. All thresholds are tunable;
// zero values are replaced by defaults matching the tuned live setup.
type Config struct {
	Sensitivity         float64 `yaml:"sensitivity"`           // trigger threshold on the percent change, e.g. 0.015
	TriggerLookback     int     `yaml:"trigger_lookback"`      // bars for the percent-change trigger
	MinVolumePercentile float64 `yaml:"min_volume_percentile"` // volume rank floor, 0..100
	VolumeMultiple      float64 `yaml:"volume_multiple"`       // volume vs trailing average floor
	VolumePeriod        int     `yaml:"volume_period"`         // trailing average volume window
	TrendFast           int     `yaml:"trend_fast"`            // fast close SMA
	TrendSlow           int     `yaml:"trend_slow"`            // slow close SMA; also the warmup bar count
	MomentumPeriod      int     `yaml:"momentum_period"`       // close rate-of-change lookback
	ATRPeriod           int     `yaml:"atr_period"`
	ATRMultiple         float64 `yaml:"atr_multiple"` // skip signals when ATR exceeds this multiple of its long-run average
	BlockScanMin        int     `yaml:"block_scan_min"`
	BlockScanMax        int     `yaml:"block_scan_max"`
	CooldownBars        int     `yaml:"cooldown_bars"` // minimum bars between signals
}

// DefaultConfig mirrors the tuned parameters of the live deployment.
func DefaultConfig() Config {
	return Config{
		Sensitivity:         0.015,
		TriggerLookback:     4,
		MinVolumePercentile: 50,
		VolumeMultiple:      1.0,
		VolumePeriod:        20,
		TrendFast:           20,
		TrendSlow:           50,
		MomentumPeriod:      10,
		ATRPeriod:           14,
		ATRMultiple:         1.5,
		BlockScanMin:        4,
		BlockScanMax:        16,
		CooldownBars:        10,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Sensitivity == 0 {
		c.Sensitivity = d.Sensitivity
	}
	if c.TriggerLookback == 0 {
		c.TriggerLookback = d.TriggerLookback
	}
	if c.MinVolumePercentile == 0 {
		c.MinVolumePercentile = d.MinVolumePercentile
	}
	if c.VolumeMultiple == 0 {
		c.VolumeMultiple = d.VolumeMultiple
	}
	if c.VolumePeriod == 0 {
		c.VolumePeriod = d.VolumePeriod
	}
	if c.TrendFast == 0 {
		c.TrendFast = d.TrendFast
	}
	if c.TrendSlow == 0 {
		c.TrendSlow = d.TrendSlow
	}
	if c.MomentumPeriod == 0 {
		c.MomentumPeriod = d.MomentumPeriod
	}
	if c.ATRPeriod == 0 {
		c.ATRPeriod = d.ATRPeriod
	}
	if c.ATRMultiple == 0 {
		c.ATRMultiple = d.ATRMultiple
	}
	if c.BlockScanMin == 0 {
		c.BlockScanMin = d.BlockScanMin
	}
	if c.BlockScanMax == 0 {
		c.BlockScanMax = d.BlockScanMax
	}
	if c.CooldownBars == 0 {
		c.CooldownBars = d.CooldownBars
	}
	return c
}

// Detector consumes one completed candle per Update call and emits at
// most one signal per candle. All filter inputs are computed from bars
// strictly before the candle under evaluation, so detection is causal.
type Detector struct {
	cfg Config

	window []market.Candle // most recent past candles, newest last
	keep   int

	smaFast *indicators.SMA // closes, excluding current bar
	smaSlow *indicators.SMA
	volMA   *indicators.SMA // volumes, excluding current bar
	atr     *indicators.ATR
	volRank *indicators.Percentile

	atrSum   float64 // expanding mean of past ATR values
	atrCount int

	bar        int
	lastSignal int
}

func NewDetector(cfg Config) *Detector {
	cfg = cfg.withDefaults()
	keep := cfg.TrendSlow + 1
	if m := cfg.BlockScanMax + 1; m > keep {
		keep = m
	}
	if m := cfg.TriggerLookback + 2; m > keep {
		keep = m
	}
	if m := cfg.MomentumPeriod + 1; m > keep {
		keep = m
	}
	return &Detector{
		cfg:        cfg,
		keep:       keep,
		window:     make([]market.Candle, 0, keep),
		smaFast:    indicators.NewSMA(cfg.TrendFast),
		smaSlow:    indicators.NewSMA(cfg.TrendSlow),
		volMA:      indicators.NewSMA(cfg.VolumePeriod),
		atr:        indicators.NewATR(cfg.ATRPeriod),
		volRank:    indicators.NewPercentile(),
		lastSignal: -1 << 30,
	}
}

// Config returns the effective (defaulted) parameters.
func (d *Detector) Config() Config { return d.cfg }

// Reset clears all detector state.
func (d *Detector) Reset() {
	d.window = d.window[:0]
	d.smaFast.Reset()
	d.smaSlow.Reset()
	d.volMA.Reset()
	d.atr.Reset()
	d.volRank.Reset()
	d.atrSum = 0
	d.atrCount = 0
	d.bar = 0
	d.lastSignal = -1 << 30
}

// Update evaluates the newly closed candle and returns a signal or nil.
// Too little history is never an error; the detector simply stays quiet
// until its indicators are warm.
func (d *Detector) Update(c market.Candle) *Signal {
	sig := d.evaluate(c)
	d.push(c)
	if sig != nil {
		d.lastSignal = d.bar - 1 // bar was advanced by push
	}
	return sig
}

func (d *Detector) evaluate(c market.Candle) *Signal {
	cfg := d.cfg

	if d.bar < cfg.TrendSlow || d.bar-d.lastSignal < cfg.CooldownBars {
		return nil
	}
	if !d.smaFast.Ready() || !d.smaSlow.Ready() || !d.volMA.Ready() || !d.atr.Ready() || d.atrCount == 0 {
		return nil
	}
	n := len(d.window)
	if n < cfg.TriggerLookback+1 || n < cfg.MomentumPeriod {
		return nil
	}

	// Trigger: percent change of the open over TriggerLookback bars
	// crossing the sensitivity threshold on this bar.
	pc := pctChange(d.window[n-cfg.TriggerLookback].Open, c.Open)
	prevPC := pctChange(d.window[n-cfg.TriggerLookback-1].Open, d.window[n-1].Open)

	var side market.Side
	switch {
	case prevPC < cfg.Sensitivity && pc >= cfg.Sensitivity:
		side = market.Long
	case prevPC > -cfg.Sensitivity && pc <= -cfg.Sensitivity:
		side = market.Short
	default:
		return nil
	}

	// Trend gate: fast SMA vs slow SMA, both over past closes only. A
	// flat trend (equal averages) is ambiguous and produces no signal.
	fast, slow := d.smaFast.Value(), d.smaSlow.Value()
	roc := pctChange(d.window[n-cfg.MomentumPeriod].Close, c.Close)
	if side == market.Long && !(fast > slow && roc > 0) {
		return nil
	}
	if side == market.Short && !(fast < slow && roc < 0) {
		return nil
	}

	// Volume gates: rank against all past volumes and level against the
	// trailing average.
	if d.volRank.Rank(c.Volume) < cfg.MinVolumePercentile {
		return nil
	}
	if c.Volume < d.volMA.Value()*cfg.VolumeMultiple {
		return nil
	}

	// Volatility throttle: stand aside when the current ATR blows out
	// versus its long-run average.
	if d.atr.Value() > d.atrSum/float64(d.atrCount)*cfg.ATRMultiple {
		return nil
	}

	// Order block: the nearest opposing-body candle in the scan range
	// supplies the stop. Long entries stop under a bearish block's low,
	// short entries above a bullish block's high.
	for back := cfg.BlockScanMin; back <= cfg.BlockScanMax && back <= n; back++ {
		block := d.window[n-back]
		if side == market.Long && block.Bearish() && c.Close > block.Low {
			return &Signal{Side: market.Long, Entry: c.Close, Stop: block.Low, Time: c.OpenTime}
		}
		if side == market.Short && block.Bullish() && c.Close < block.High {
			return &Signal{Side: market.Short, Entry: c.Close, Stop: block.High, Time: c.OpenTime}
		}
	}
	return nil
}

// push folds the candle into the detector state after evaluation, so
// every indicator lags the bar under evaluation by one (no look-ahead).
func (d *Detector) push(c market.Candle) {
	d.volRank.Observe(c.Volume)

	if d.atr.Ready() {
		d.atrSum += d.atr.Value()
		d.atrCount++
	}

	d.window = append(d.window, c)
	if len(d.window) > d.keep {
		d.window = d.window[1:]
	}
	d.smaFast.Update(c.Close)
	d.smaSlow.Update(c.Close)
	d.volMA.Update(c.Volume)
	d.atr.Update(c)
	d.bar++
}

func pctChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}
