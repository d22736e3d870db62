package journal

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id     TEXT PRIMARY KEY,
	symbol       TEXT NOT NULL,
	direction    TEXT NOT NULL,
	entry_price  REAL NOT NULL,
	exit_price   REAL NOT NULL,
	size         REAL NOT NULL,
	pnl          REAL NOT NULL,
	pnl_pct      REAL NOT NULL,
	close_reason TEXT NOT NULL,
	opened_at    TIMESTAMP NOT NULL,
	closed_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS equity (
	timestamp TIMESTAMP NOT NULL,
	equity    REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_closed_at ON trades(closed_at);
CREATE INDEX IF NOT EXISTS idx_equity_timestamp ON equity(timestamp);
`

// SQLiteJournal stores the trade and equity logs in a SQLite database.
type SQLiteJournal struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite journal: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, direction, entry_price, exit_price, size, pnl, pnl_pct, close_reason, opened_at, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Symbol, t.Direction, t.EntryPrice, t.ExitPrice,
		t.Size, t.PnL, t.PnLPct, t.Reason, t.OpenedAt.UTC(), t.ClosedAt.UTC(),
	)
	return err
}

func (j *SQLiteJournal) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity (timestamp, equity) VALUES (?, ?)`,
		e.Time.UTC(), e.Equity,
	)
	return err
}

// ListTrades returns all recorded trades ordered by close time, oldest
// first. Used by the replay command to print results.
func (j *SQLiteJournal) ListTrades() ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT trade_id, symbol, direction, entry_price, exit_price, size, pnl, pnl_pct, close_reason, opened_at, closed_at
		FROM trades ORDER BY closed_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var t TradeRecord
		if err := rows.Scan(&t.TradeID, &t.Symbol, &t.Direction, &t.EntryPrice, &t.ExitPrice,
			&t.Size, &t.PnL, &t.PnLPct, &t.Reason, &t.OpenedAt, &t.ClosedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
