// Package indicators provides streaming indicators that consume one value
// (or candle) per bar. Each indicator reports Ready() once its warmup
// window is full; Value() is undefined before that.
package indicators

import (
	"fmt"
	"sort"

	"obtrader/market"
)

// SMA is a streaming simple moving average.
type SMA struct {
	period int
	vals   []float64
}

func NewSMA(period int) *SMA {
	return &SMA{period: period, vals: make([]float64, 0, period)}
}

func (s *SMA) Name() string { return fmt.Sprintf("SMA(%d)", s.period) }
func (s *SMA) Warmup() int  { return s.period }

func (s *SMA) Reset() { s.vals = s.vals[:0] }

func (s *SMA) Update(v float64) {
	s.vals = append(s.vals, v)
	if len(s.vals) > s.period {
		s.vals = s.vals[1:]
	}
}

func (s *SMA) Ready() bool { return len(s.vals) >= s.period }

func (s *SMA) Value() float64 {
	if !s.Ready() {
		return 0
	}
	sum := 0.0
	for _, v := range s.vals {
		sum += v
	}
	return sum / float64(len(s.vals))
}

// EMA is a streaming exponential moving average seeded with the SMA of
// the first period values.
type EMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

func NewEMA(period int) *EMA {
	return &EMA{period: period, multiplier: 2.0 / float64(period+1)}
}

func (e *EMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }
func (e *EMA) Warmup() int  { return e.period }

func (e *EMA) Reset() {
	e.ema = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *EMA) Update(v float64) {
	if e.count < e.period {
		e.warmupSum += v
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (v-e.ema)*e.multiplier + e.ema
}

func (e *EMA) Ready() bool { return e.count >= e.period }

func (e *EMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}

// ATR is a streaming average true range over the trailing period.
type ATR struct {
	period    int
	prevClose float64
	seen      int
	trs       []float64
}

func NewATR(period int) *ATR {
	return &ATR{period: period, trs: make([]float64, 0, period)}
}

func (a *ATR) Name() string { return fmt.Sprintf("ATR(%d)", a.period) }
func (a *ATR) Warmup() int  { return a.period + 1 }

func (a *ATR) Reset() {
	a.prevClose = 0
	a.seen = 0
	a.trs = a.trs[:0]
}

func (a *ATR) Update(c market.Candle) {
	a.seen++
	if a.seen == 1 {
		// First bar has no previous close; no true range yet.
		a.prevClose = c.Close
		return
	}
	tr := c.High - c.Low
	if hc := abs(c.High - a.prevClose); hc > tr {
		tr = hc
	}
	if lc := abs(c.Low - a.prevClose); lc > tr {
		tr = lc
	}
	a.prevClose = c.Close

	a.trs = append(a.trs, tr)
	if len(a.trs) > a.period {
		a.trs = a.trs[1:]
	}
}

func (a *ATR) Ready() bool { return len(a.trs) >= a.period }

func (a *ATR) Value() float64 {
	if !a.Ready() {
		return 0
	}
	sum := 0.0
	for _, tr := range a.trs {
		sum += tr
	}
	return sum / float64(len(a.trs))
}

// Percentile ranks each new value against every value seen before it,
// returning the fraction (0..100) of past values strictly below it.
// Rank uses only past data, so it is causal by construction.
type Percentile struct {
	sorted []float64
}

func NewPercentile() *Percentile {
	return &Percentile{}
}

func (p *Percentile) Name() string { return "Percentile" }

func (p *Percentile) Reset() { p.sorted = p.sorted[:0] }

// Rank returns the percentile of v against all observed values. With no
// history it returns 50.
func (p *Percentile) Rank(v float64) float64 {
	n := len(p.sorted)
	if n == 0 {
		return 50
	}
	below := sort.SearchFloat64s(p.sorted, v)
	return float64(below) / float64(n) * 100
}

// Observe records v for future ranks.
func (p *Percentile) Observe(v float64) {
	i := sort.SearchFloat64s(p.sorted, v)
	p.sorted = append(p.sorted, 0)
	copy(p.sorted[i+1:], p.sorted[i:])
	p.sorted[i] = v
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
