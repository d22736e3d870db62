// Package ledger simulates the trading account: it opens, holds and
// closes at most one position, applies slippage and commission, and
// keeps capital and trade history. Capital only changes on commission
// payment and realized PnL; unrealized PnL feeds equity marks only.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"time"

	"obtrader/internal/id"
	"obtrader/journal"
	"obtrader/market"
)

var (
	// ErrPositionOpen is returned by Open while a position exists.
	ErrPositionOpen = errors.New("ledger: position already open")
	// ErrSizingRejected is returned when the stop distance or risk budget
	// produces a non-positive size.
	ErrSizingRejected = errors.New("ledger: sizing rejected")
	// ErrNoPosition is returned by Close when the account is flat.
	ErrNoPosition = errors.New("ledger: no open position")
)

// CloseReason explains why a position was closed.
type CloseReason string

const (
	ReasonStopLoss       CloseReason = "stop_loss"
	ReasonSignalReversal CloseReason = "signal_reversal"
	ReasonManual         CloseReason = "manual"
)

// Position is the single open simulated position. Entry is the
// slippage-adjusted fill price.
type Position struct {
	ID              string
	Side            market.Side
	Entry           float64
	Stop            float64
	Size            float64
	EntryCommission float64
	CapitalAtEntry  float64
	OpenedAt        time.Time
}

// ClosedTrade is an immutable record of a finished trade. PnL includes
// both commissions; PnLPct is relative to capital at entry.
type ClosedTrade struct {
	ID         string
	Side       market.Side
	Entry      float64
	Exit       float64
	Size       float64
	PnL        float64
	PnLPct     float64
	Commission float64
	Reason     CloseReason
	OpenedAt   time.Time
	ClosedAt   time.Time
}

// Config holds the cost model and risk budget.
type Config struct {
	InitialCapital float64
	RiskFraction   float64 // fraction of capital risked per trade, e.g. 0.02
	Slippage       float64 // adverse fill adjustment, e.g. 0.0005
	Commission     float64 // fee per side on notional, e.g. 0.0006
}

// Ledger is the simulated account. Not safe for concurrent use; all
// calls happen on the single candle-processing goroutine.
type Ledger struct {
	cfg    Config
	symbol string
	jrn    journal.Journal

	capital float64
	pos     *Position
	trades  []ClosedTrade
}

func New(cfg Config, symbol string, jrn journal.Journal) *Ledger {
	return &Ledger{
		cfg:     cfg,
		symbol:  symbol,
		jrn:     jrn,
		capital: cfg.InitialCapital,
	}
}

// Open enters a position at the signal price. The fill is adjusted
// against the trader by the slippage rate, size is the risk budget
// divided by the stop distance (capped at 1x notional), and the entry
// commission is deducted from capital immediately.
func (l *Ledger) Open(side market.Side, entry, stop float64, at time.Time) (Position, error) {
	if l.pos != nil {
		return Position{}, ErrPositionOpen
	}

	adjEntry := entry * (1 + float64(side)*l.cfg.Slippage)
	if side == market.Long && stop >= adjEntry {
		return Position{}, fmt.Errorf("%w: long stop %.8f not below entry %.8f", ErrSizingRejected, stop, adjEntry)
	}
	if side == market.Short && stop <= adjEntry {
		return Position{}, fmt.Errorf("%w: short stop %.8f not above entry %.8f", ErrSizingRejected, stop, adjEntry)
	}

	dist := math.Abs(entry - stop)
	if dist <= entry*1e-9 {
		return Position{}, fmt.Errorf("%w: stop distance too small", ErrSizingRejected)
	}

	size := l.capital * l.cfg.RiskFraction / dist
	if size*entry > l.capital {
		size = l.capital / entry
	}
	if size <= 0 || math.IsInf(size, 0) || math.IsNaN(size) {
		return Position{}, fmt.Errorf("%w: computed size %.8f", ErrSizingRejected, size)
	}

	entryCommission := size * adjEntry * l.cfg.Commission

	l.pos = &Position{
		ID:              id.New(),
		Side:            side,
		Entry:           adjEntry,
		Stop:            stop,
		Size:            size,
		EntryCommission: entryCommission,
		CapitalAtEntry:  l.capital,
		OpenedAt:        at,
	}
	l.capital -= entryCommission

	return *l.pos, nil
}

// Update checks the candle's range against the stop. A crossed stop
// closes the position at the stop price (with slippage and commission)
// and returns the trade; otherwise it returns nil.
func (l *Ledger) Update(c market.Candle) (*ClosedTrade, error) {
	if l.pos == nil {
		return nil, nil
	}
	hit := (l.pos.Side == market.Long && c.Low <= l.pos.Stop) ||
		(l.pos.Side == market.Short && c.High >= l.pos.Stop)
	if !hit {
		return nil, nil
	}
	return l.closeAt(l.pos.Stop, c.OpenTime, ReasonStopLoss)
}

// Close exits the open position at the given price with the given
// reason (signal reversal or manual shutdown).
func (l *Ledger) Close(price float64, at time.Time, reason CloseReason) (*ClosedTrade, error) {
	if l.pos == nil {
		return nil, ErrNoPosition
	}
	return l.closeAt(price, at, reason)
}

func (l *Ledger) closeAt(price float64, at time.Time, reason CloseReason) (*ClosedTrade, error) {
	pos := l.pos

	adjExit := price * (1 - float64(pos.Side)*l.cfg.Slippage)
	gross := pos.Size * (adjExit - pos.Entry) * float64(pos.Side)
	exitCommission := pos.Size * adjExit * l.cfg.Commission

	l.capital += gross - exitCommission
	if l.capital < 0 {
		l.capital = 0
	}

	trade := ClosedTrade{
		ID:         pos.ID,
		Side:       pos.Side,
		Entry:      pos.Entry,
		Exit:       adjExit,
		Size:       pos.Size,
		PnL:        gross - exitCommission - pos.EntryCommission,
		Commission: pos.EntryCommission + exitCommission,
		Reason:     reason,
		OpenedAt:   pos.OpenedAt,
		ClosedAt:   at,
	}
	if pos.CapitalAtEntry > 0 {
		trade.PnLPct = trade.PnL / pos.CapitalAtEntry * 100
	}

	l.trades = append(l.trades, trade)
	l.pos = nil

	if err := l.jrn.RecordTrade(journal.TradeRecord{
		TradeID:    trade.ID,
		Symbol:     l.symbol,
		Direction:  trade.Side.String(),
		EntryPrice: trade.Entry,
		ExitPrice:  trade.Exit,
		Size:       trade.Size,
		PnL:        trade.PnL,
		PnLPct:     trade.PnLPct,
		Reason:     string(trade.Reason),
		OpenedAt:   trade.OpenedAt,
		ClosedAt:   trade.ClosedAt,
	}); err != nil {
		return &trade, fmt.Errorf("journal trade %s: %w", trade.ID, err)
	}
	return &trade, nil
}

// Equity marks the account to the given price: capital when flat,
// capital plus unrealized PnL (exit slippage applied) when in a
// position.
func (l *Ledger) Equity(markPrice float64) float64 {
	if l.pos == nil {
		return l.capital
	}
	adjExit := markPrice * (1 - float64(l.pos.Side)*l.cfg.Slippage)
	return l.capital + l.pos.Size*(adjExit-l.pos.Entry)*float64(l.pos.Side)
}

// RecordEquity journals the equity mark for this candle close and
// returns it.
func (l *Ledger) RecordEquity(at time.Time, markPrice float64) (float64, error) {
	eq := l.Equity(markPrice)
	if err := l.jrn.RecordEquity(journal.EquitySnapshot{Time: at, Equity: eq}); err != nil {
		return eq, fmt.Errorf("journal equity at %s: %w", at.Format(time.RFC3339), err)
	}
	return eq, nil
}

// Capital is the realized account balance.
func (l *Ledger) Capital() float64 { return l.capital }

// Position returns a copy of the open position, or nil when flat.
func (l *Ledger) Position() *Position {
	if l.pos == nil {
		return nil
	}
	p := *l.pos
	return &p
}

// Trades returns the closed-trade history, oldest first.
func (l *Ledger) Trades() []ClosedTrade { return l.trades }

// Stats summarizes performance so far.
type Stats struct {
	Trades         int
	Wins           int
	Losses         int
	WinRate        float64 // percent
	AvgWin         float64
	AvgLoss        float64
	TotalReturn    float64 // percent vs initial capital
	Capital        float64
	CommissionPaid float64
}

func (l *Ledger) Stats() Stats {
	st := Stats{Capital: l.capital}
	if l.cfg.InitialCapital > 0 {
		st.TotalReturn = (l.capital - l.cfg.InitialCapital) / l.cfg.InitialCapital * 100
	}

	var winSum, lossSum float64
	for _, tr := range l.trades {
		st.Trades++
		st.CommissionPaid += tr.Commission
		switch {
		case tr.PnL > 0:
			st.Wins++
			winSum += tr.PnL
		case tr.PnL < 0:
			st.Losses++
			lossSum += tr.PnL
		}
	}
	if st.Trades > 0 {
		st.WinRate = float64(st.Wins) / float64(st.Trades) * 100
	}
	if st.Wins > 0 {
		st.AvgWin = winSum / float64(st.Wins)
	}
	if st.Losses > 0 {
		st.AvgLoss = lossSum / float64(st.Losses)
	}
	return st
}
