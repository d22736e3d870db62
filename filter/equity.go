// Package filter gates detected signals on the shape of the account's
// own equity curve: trade only while equity sits above its trailing EMA.
package filter

import (
	"obtrader/indicators"
)

// EquityFilter observes one equity sample per candle close and decides
// whether new signals may be acted on.
//
// Warmup policy: until `period` samples exist the EMA is undefined and
// the filter accepts every signal. This is the bootstrap-friendly choice
// and is applied here and nowhere else.
type EquityFilter struct {
	ema    *indicators.EMA
	latest float64
	seen   int
}

func NewEquityFilter(period int) *EquityFilter {
	return &EquityFilter{ema: indicators.NewEMA(period)}
}

// Observe records the equity at a candle close.
func (f *EquityFilter) Observe(equity float64) {
	f.ema.Update(equity)
	f.latest = equity
	f.seen++
}

// Allow reports whether a signal should be acted on: accept during
// warmup, otherwise require latest equity strictly above the EMA.
func (f *EquityFilter) Allow() bool {
	if !f.ema.Ready() {
		return true
	}
	return f.latest > f.ema.Value()
}

// EMA returns the current EMA value and whether it is defined yet.
func (f *EquityFilter) EMA() (float64, bool) {
	if !f.ema.Ready() {
		return 0, false
	}
	return f.ema.Value(), true
}

// Samples returns how many equity samples have been observed.
func (f *EquityFilter) Samples() int { return f.seen }

// Reset clears all filter state.
func (f *EquityFilter) Reset() {
	f.ema.Reset()
	f.latest = 0
	f.seen = 0
}
