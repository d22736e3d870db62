package indicators

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"obtrader/market"
)

func TestSMAWarmupAndValue(t *testing.T) {
	t.Parallel()

	s := NewSMA(3)
	s.Update(1)
	s.Update(2)
	assert.False(t, s.Ready())
	assert.Equal(t, 0.0, s.Value())

	s.Update(3)
	assert.True(t, s.Ready())
	assert.InDelta(t, 2.0, s.Value(), 1e-12)

	s.Update(7) // window slides to 2,3,7
	assert.InDelta(t, 4.0, s.Value(), 1e-12)
}

func TestEMAMatchesAnalytic(t *testing.T) {
	t.Parallel()

	e := NewEMA(3)
	for _, v := range []float64{1, 2, 3} {
		e.Update(v)
	}
	assert.True(t, e.Ready())
	// Seeded with SMA(1,2,3)=2, then standard recursion with k=0.5.
	assert.InDelta(t, 2.0, e.Value(), 1e-12)

	e.Update(4) // 2 + (4-2)*0.5 = 3
	assert.InDelta(t, 3.0, e.Value(), 1e-12)

	e.Update(4) // 3 + (4-3)*0.5 = 3.5
	assert.InDelta(t, 3.5, e.Value(), 1e-12)
}

func TestEMAReset(t *testing.T) {
	t.Parallel()

	e := NewEMA(2)
	e.Update(10)
	e.Update(20)
	assert.True(t, e.Ready())

	e.Reset()
	assert.False(t, e.Ready())
	e.Update(1)
	e.Update(3)
	assert.InDelta(t, 2.0, e.Value(), 1e-12)
}

func candleAt(i int, high, low, close float64) market.Candle {
	return market.Candle{
		OpenTime: time.Date(2024, 1, 1, 0, i, 0, 0, time.UTC),
		Open:     close, High: high, Low: low, Close: close,
		Volume: 1,
	}
}

func TestATR(t *testing.T) {
	t.Parallel()

	a := NewATR(2)
	a.Update(candleAt(0, 101, 99, 100)) // no TR on first bar
	assert.False(t, a.Ready())

	a.Update(candleAt(1, 102, 100, 101)) // TR = max(2, |102-100|, |100-100|) = 2
	assert.False(t, a.Ready())

	a.Update(candleAt(2, 105, 101, 104)) // TR = max(4, |105-101|, |101-101|) = 4
	assert.True(t, a.Ready())
	assert.InDelta(t, 3.0, a.Value(), 1e-12)
}

func TestATRGapUsesPrevClose(t *testing.T) {
	t.Parallel()

	a := NewATR(1)
	a.Update(candleAt(0, 101, 99, 100))
	// Gap up: range is 1 but distance from previous close is 10.
	a.Update(candleAt(1, 110, 109, 110))
	assert.True(t, a.Ready())
	assert.InDelta(t, 10.0, a.Value(), 1e-12)
}

func TestPercentileRank(t *testing.T) {
	t.Parallel()

	p := NewPercentile()
	assert.InDelta(t, 50.0, p.Rank(10), 1e-12) // no history yet
	p.Observe(10)
	assert.InDelta(t, 0.0, p.Rank(5), 1e-12) // below everything seen
	p.Observe(5)
	assert.InDelta(t, 100.0, p.Rank(20), 1e-12)
	p.Observe(20)
	// History is {5,10,20}; 15 beats two of three.
	assert.InDelta(t, 100.0*2.0/3.0, p.Rank(15), 1e-9)
}
