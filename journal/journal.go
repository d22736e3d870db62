// Package journal persists the paper-trading record: one append-only log
// of closed trades and one of equity samples. Rows are never rewritten.
package journal

import "time"

// TradeRecord is one closed trade.
type TradeRecord struct {
	TradeID    string
	Symbol     string
	Direction  string
	EntryPrice float64
	ExitPrice  float64
	Size       float64
	PnL        float64
	PnLPct     float64
	Reason     string
	OpenedAt   time.Time
	ClosedAt   time.Time
}

// EquitySnapshot is the account equity observed at one candle close.
type EquitySnapshot struct {
	Time   time.Time
	Equity float64
}

// Journal records trades and equity snapshots. Implementations must make
// each record durable before returning; a write error means the log can
// no longer be trusted and callers treat it as fatal.
type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}
