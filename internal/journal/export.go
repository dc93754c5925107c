package journal

import (
	"encoding/csv"
	"io"
	"strconv"

	"trading-journal-go/internal/models"
)

// csvHeader matches the column order users see in the journal table.
var csvHeader = []string{"ID", "Market", "Open", "TP", "SL", "Lot", "Side", "P/L", "Note", "Timestamp"}

const csvTimeFormat = "2006-01-02 15:04:05"

// WriteCSV serializes trades to w as CSV with a fixed header row.
// Floats are written in full precision, rounding is a display concern.
func WriteCSV(w io.Writer, trades []models.Trade) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, t := range trades {
		record := []string{
			strconv.FormatUint(uint64(t.ID), 10),
			t.Market,
			f(t.OpenPrice),
			f(t.TakeProfit),
			f(t.StopLoss),
			f(t.Lot),
			t.Side,
			f(t.Profit),
			t.Note,
			t.Timestamp.Format(csvTimeFormat),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
