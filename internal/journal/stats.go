package journal

import "trading-journal-go/internal/models"

// Summary holds aggregate statistics over a set of trades.
type Summary struct {
	TotalTrades      int     `json:"total_trades"`
	ProfitableTrades int     `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalProfit      float64 `json:"total_profit"`
}

// Summarize computes the running totals shown alongside the journal table.
func Summarize(trades []models.Trade) Summary {
	s := Summary{TotalTrades: len(trades)}

	for _, t := range trades {
		if t.Profit > 0 {
			s.ProfitableTrades++
		}
		s.TotalProfit += t.Profit
	}

	if s.TotalTrades > 0 {
		s.WinRate = float64(s.ProfitableTrades) / float64(s.TotalTrades)
	}
	return s
}
