package notify

import (
	"fmt"
	"strings"
	"time"

	"obtrader/ledger"
	"obtrader/market"
	"obtrader/strategy"
)

// Formatters build the HTML payloads pushed to Telegram. Prices keep
// two decimals, sizes six; times are reported in UTC.

func FormatStartup(symbol, timeframe string, capital float64) string {
	var b strings.Builder
	b.WriteString("<b>🚀 Forward test started</b>\n")
	fmt.Fprintf(&b, "Symbol: <code>%s</code>\n", symbol)
	fmt.Fprintf(&b, "Timeframe: <code>%s</code>\n", timeframe)
	fmt.Fprintf(&b, "Capital: <code>%.2f</code>", capital)
	return b.String()
}

func FormatSignal(symbol string, sig strategy.Signal) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s signal</b> %s\n", sideLabel(sig.Side), symbol)
	fmt.Fprintf(&b, "Entry: <code>%.2f</code>\n", sig.Entry)
	fmt.Fprintf(&b, "Stop: <code>%.2f</code>\n", sig.Stop)
	fmt.Fprintf(&b, "Time: <code>%s</code>", sig.Time.UTC().Format("2006-01-02 15:04"))
	return b.String()
}

func FormatOpened(symbol string, pos ledger.Position) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>📈 Position opened</b> %s %s\n", sideLabel(pos.Side), symbol)
	fmt.Fprintf(&b, "Entry: <code>%.2f</code>\n", pos.Entry)
	fmt.Fprintf(&b, "Stop: <code>%.2f</code>\n", pos.Stop)
	fmt.Fprintf(&b, "Size: <code>%.6f</code>", pos.Size)
	return b.String()
}

func FormatClosed(symbol string, trade ledger.ClosedTrade, capital float64) string {
	icon := "🟢"
	if trade.PnL < 0 {
		icon = "🔴"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s Position closed</b> %s %s\n", icon, sideLabel(trade.Side), symbol)
	fmt.Fprintf(&b, "Reason: <code>%s</code>\n", trade.Reason)
	fmt.Fprintf(&b, "Entry: <code>%.2f</code> → Exit: <code>%.2f</code>\n", trade.Entry, trade.Exit)
	fmt.Fprintf(&b, "PnL: <code>%+.4f</code> (<code>%+.2f%%</code>)\n", trade.PnL, trade.PnLPct)
	fmt.Fprintf(&b, "Capital: <code>%.2f</code>", capital)
	return b.String()
}

func FormatDailySummary(day time.Time, equity float64, stats ledger.Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>📊 Daily summary %s</b>\n", day.UTC().Format("2006-01-02"))
	fmt.Fprintf(&b, "Equity: <code>%.2f</code>\n", equity)
	fmt.Fprintf(&b, "Trades: <code>%d</code> (W:<code>%d</code> L:<code>%d</code>)\n",
		stats.Trades, stats.Wins, stats.Losses)
	fmt.Fprintf(&b, "Win rate: <code>%.1f%%</code>\n", stats.WinRate)
	fmt.Fprintf(&b, "Total return: <code>%+.2f%%</code>", stats.TotalReturn)
	return b.String()
}

func FormatError(context string, err error) string {
	return fmt.Sprintf("<b>⚠️ Error</b>\n%s\n<code>%s</code>", context, err)
}

func FormatShutdown(stats ledger.Stats) string {
	var b strings.Builder
	b.WriteString("<b>🛑 Forward test stopped</b>\n")
	fmt.Fprintf(&b, "Trades: <code>%d</code>\n", stats.Trades)
	fmt.Fprintf(&b, "Win rate: <code>%.1f%%</code>\n", stats.WinRate)
	fmt.Fprintf(&b, "Total return: <code>%+.2f%%</code>\n", stats.TotalReturn)
	fmt.Fprintf(&b, "Capital: <code>%.2f</code>", stats.Capital)
	return b.String()
}

func sideLabel(s market.Side) string {
	return strings.ToUpper(s.String())
}
