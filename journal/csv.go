package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

var (
	tradeHeader  = []string{"trade_id", "symbol", "direction", "entry_price", "exit_price", "size", "pnl", "pnl_pct", "close_reason", "opened_at", "closed_at"}
	equityHeader = []string{"timestamp", "equity"}
)

// CSVJournal appends trades and equity rows to two CSV files. Existing
// files are appended to, so a restarted run continues the same logs.
type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, tw, err := openAppend(tradesPath, tradeHeader)
	if err != nil {
		return nil, fmt.Errorf("open trades log: %w", err)
	}
	ef, ew, err := openAppend(equityPath, equityHeader)
	if err != nil {
		tf.Close()
		return nil, fmt.Errorf("open equity log: %w", err)
	}
	return &CSVJournal{trades: tw, equity: ew, tf: tf, ef: ef}, nil
}

func openAppend(path string, header []string) (*os.File, *csv.Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	w := csv.NewWriter(f)

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	if info.Size() == 0 {
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, nil, err
		}
	}
	return f, w, nil
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	row := []string{
		t.TradeID,
		t.Symbol,
		t.Direction,
		formatFloat(t.EntryPrice),
		formatFloat(t.ExitPrice),
		formatFloat(t.Size),
		formatFloat(t.PnL),
		formatFloat(t.PnLPct),
		t.Reason,
		t.OpenedAt.UTC().Format(time.RFC3339),
		t.ClosedAt.UTC().Format(time.RFC3339),
	}
	if err := j.trades.Write(row); err != nil {
		return fmt.Errorf("write trade row: %w", err)
	}
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return fmt.Errorf("flush trade row: %w", err)
	}
	return nil
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	row := []string{
		e.Time.UTC().Format(time.RFC3339),
		formatFloat(e.Equity),
	}
	if err := j.equity.Write(row); err != nil {
		return fmt.Errorf("write equity row: %w", err)
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return fmt.Errorf("flush equity row: %w", err)
	}
	return nil
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	j.equity.Flush()
	if err := j.tf.Close(); err != nil {
		j.ef.Close()
		return err
	}
	return j.ef.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
