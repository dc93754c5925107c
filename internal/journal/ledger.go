package journal

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trading-journal-go/internal/models"
)

var (
	// ErrValidation is returned when submitted trade fields are malformed.
	// The store is never touched on a validation failure.
	ErrValidation = errors.New("invalid trade input")
	// ErrNotFoundOrForbidden is returned when an update or delete matches
	// no trade owned by the calling user.
	ErrNotFoundOrForbidden = errors.New("trade not found for user")
)

var validate = validator.New()

// TradeInput carries the user-submitted fields of a trade record.
// Profit is not accepted from the caller, it is always recomputed
// from side, open price, take profit and lot.
type TradeInput struct {
	Market     string  `json:"market"`
	OpenPrice  float64 `json:"open_price"`
	TakeProfit float64 `json:"take_profit"`
	StopLoss   float64 `json:"stop_loss"`
	Lot        float64 `json:"lot" validate:"gt=0"`
	Side       string  `json:"side" validate:"oneof=BUY SELL"`
	Note       string  `json:"note"`
}

// Ledger owns the trade records of all users and scopes every
// operation to the calling user's id.
type Ledger struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewLedger creates a new trade ledger.
func NewLedger(db *gorm.DB, logger *zap.Logger) *Ledger {
	return &Ledger{db: db, logger: logger}
}

// CreateTrade validates the input, computes the profit and inserts a new
// trade owned by userID.
func (l *Ledger) CreateTrade(userID uint, input TradeInput) (*models.Trade, error) {
	if err := validate.Struct(input); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	trade := models.Trade{
		UserID:     userID,
		Market:     input.Market,
		OpenPrice:  input.OpenPrice,
		TakeProfit: input.TakeProfit,
		StopLoss:   input.StopLoss,
		Lot:        input.Lot,
		Side:       input.Side,
		Profit:     models.ComputePL(input.Side, input.OpenPrice, input.TakeProfit, input.Lot),
		Note:       input.Note,
		Timestamp:  time.Now().UTC(),
	}

	if err := l.db.Create(&trade).Error; err != nil {
		return nil, fmt.Errorf("failed to save trade: %w", err)
	}

	l.logger.Info("Saved trade",
		zap.Uint("trade_id", trade.ID),
		zap.Uint("user_id", userID),
		zap.String("side", trade.Side),
		zap.Float64("profit", trade.Profit))

	return &trade, nil
}

// ListTrades returns the trades owned by userID, oldest first. Each bound
// is optional and inclusive.
func (l *Ledger) ListTrades(userID uint, from, to *time.Time) ([]models.Trade, error) {
	q := l.db.Where("user_id = ?", userID)
	if from != nil {
		q = q.Where("timestamp >= ?", *from)
	}
	if to != nil {
		q = q.Where("timestamp <= ?", *to)
	}

	trades := make([]models.Trade, 0)
	if err := q.Order("timestamp asc, id asc").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// UpdateTrade replaces all mutable fields of the trade identified by
// tradeID, but only if it is owned by userID. The owner and id never
// change; profit is recomputed from the new fields.
func (l *Ledger) UpdateTrade(tradeID, userID uint, input TradeInput) error {
	if err := validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	res := l.db.Model(&models.Trade{}).
		Where("id = ? AND user_id = ?", tradeID, userID).
		Updates(map[string]interface{}{
			"market":      input.Market,
			"open_price":  input.OpenPrice,
			"take_profit": input.TakeProfit,
			"stop_loss":   input.StopLoss,
			"lot":         input.Lot,
			"side":        input.Side,
			"profit":      models.ComputePL(input.Side, input.OpenPrice, input.TakeProfit, input.Lot),
			"note":        input.Note,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update trade: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFoundOrForbidden
	}
	return nil
}

// DeleteTrade removes the trade identified by tradeID if it is owned by
// userID.
func (l *Ledger) DeleteTrade(tradeID, userID uint) error {
	res := l.db.Where("id = ? AND user_id = ?", tradeID, userID).Delete(&models.Trade{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete trade: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFoundOrForbidden
	}
	return nil
}

// TotalProfitLoss sums the profit field across the given trades.
func TotalProfitLoss(trades []models.Trade) float64 {
	var total float64
	for _, t := range trades {
		total += t.Profit
	}
	return total
}
