package models

import (
	"time"

	"gorm.io/gorm"
)

// Trade side values.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Trade represents one journaled position owned by a user.
type Trade struct {
	ID        uint           `json:"id" gorm:"primarykey"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	UserID     uint      `json:"user_id" gorm:"index;not null"`
	Market     string    `json:"market"`
	OpenPrice  float64   `json:"open_price"`
	TakeProfit float64   `json:"take_profit"`
	StopLoss   float64   `json:"stop_loss"`
	Lot        float64   `json:"lot"`
	Side       string    `json:"side"` // "BUY" or "SELL"
	Profit     float64   `json:"profit"`
	Note       string    `json:"note"`
	Timestamp  time.Time `json:"timestamp"`
}

// ComputePL returns the signed profit or loss for a position.
// A BUY gains when the target is above the open price, a SELL when it
// is below. No rounding is applied.
func ComputePL(side string, openPrice, targetPrice, lot float64) float64 {
	if side == SideSell {
		return (openPrice - targetPrice) * lot
	}
	return (targetPrice - openPrice) * lot
}

// Result is the display label derived from the sign of the stored profit.
func (t *Trade) Result() string {
	if t.Profit < 0 {
		return "Loss"
	}
	return "Profit"
}
