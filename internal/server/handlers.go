package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trading-journal-go/internal/auth"
	"trading-journal-go/internal/journal"
)

// dateLayout is the format of the from/to query parameters.
const dateLayout = "2006-01-02"

// Handler holds dependencies for the API endpoints.
type Handler struct {
	logger *zap.Logger
	db     *gorm.DB
	auth   *auth.Service
	ledger *journal.Ledger
}

// NewHandler creates a new Handler.
func NewHandler(logger *zap.Logger, db *gorm.DB, authSvc *auth.Service, ledger *journal.Ledger) *Handler {
	return &Handler{logger: logger, db: db, auth: authSvc, ledger: ledger}
}

type credentialsInput struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a new user account.
func (h *Handler) Register(c *gin.Context) {
	var in credentialsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := h.auth.Register(in.Username, in.Password)
	switch {
	case errors.Is(err, auth.ErrDuplicateUsername):
		c.JSON(http.StatusConflict, gin.H{"error": "username already exists"})
	case errors.Is(err, auth.ErrEmptyCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password must not be empty"})
	case err != nil:
		h.logger.Error("Failed to register user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to register"})
	default:
		c.JSON(http.StatusCreated, gin.H{"user_id": userID})
	}
}

// Login authenticates a user and returns a session token.
func (h *Handler) Login(c *gin.Context) {
	var in credentialsInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := h.auth.Authenticate(in.Username, in.Password)
	if err != nil {
		// Do not reveal whether the username or the password was wrong.
		if errors.Is(err, auth.ErrUserNotFound) || errors.Is(err, auth.ErrInvalidCredential) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		h.logger.Error("Failed to authenticate user", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	token, err := h.auth.IssueToken(userID)
	if err != nil {
		h.logger.Error("Failed to issue token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to log in"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

// CreateTrade adds a new trade to the caller's journal.
func (h *Handler) CreateTrade(c *gin.Context) {
	var in journal.TradeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trade, err := h.ledger.CreateTrade(currentUserID(c), in)
	if err != nil {
		if errors.Is(err, journal.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to create trade", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create trade"})
		return
	}

	c.JSON(http.StatusCreated, trade)
}

// ListTrades returns the caller's trades, optionally restricted to an
// inclusive date range.
func (h *Handler) ListTrades(c *gin.Context) {
	from, to, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trades, err := h.ledger.ListTrades(currentUserID(c), from, to)
	if err != nil {
		h.logger.Error("Failed to list trades", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list trades"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trades":       trades,
		"total_profit": journal.TotalProfitLoss(trades),
	})
}

// UpdateTrade replaces the fields of one of the caller's trades.
func (h *Handler) UpdateTrade(c *gin.Context) {
	tradeID, err := parseTradeID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trade id"})
		return
	}

	var in journal.TradeInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err = h.ledger.UpdateTrade(tradeID, currentUserID(c), in)
	switch {
	case errors.Is(err, journal.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, journal.ErrNotFoundOrForbidden):
		c.JSON(http.StatusNotFound, gin.H{"error": "trade not found"})
	case err != nil:
		h.logger.Error("Failed to update trade", zap.Error(err), zap.Uint("trade_id", tradeID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update trade"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "trade updated"})
	}
}

// DeleteTrade removes one of the caller's trades.
func (h *Handler) DeleteTrade(c *gin.Context) {
	tradeID, err := parseTradeID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid trade id"})
		return
	}

	err = h.ledger.DeleteTrade(tradeID, currentUserID(c))
	switch {
	case errors.Is(err, journal.ErrNotFoundOrForbidden):
		c.JSON(http.StatusNotFound, gin.H{"error": "trade not found"})
	case err != nil:
		h.logger.Error("Failed to delete trade", zap.Error(err), zap.Uint("trade_id", tradeID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete trade"})
	default:
		c.JSON(http.StatusOK, gin.H{"message": "trade deleted"})
	}
}

// ExportTrades streams the caller's journal as a CSV attachment.
func (h *Handler) ExportTrades(c *gin.Context) {
	from, to, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trades, err := h.ledger.ListTrades(currentUserID(c), from, to)
	if err != nil {
		h.logger.Error("Failed to export trades", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export trades"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="journal.csv"`)
	if err := journal.WriteCSV(c.Writer, trades); err != nil {
		h.logger.Error("Failed to write CSV", zap.Error(err))
	}
}

// Stats returns aggregate statistics over the caller's trades.
func (h *Handler) Stats(c *gin.Context) {
	from, to, err := parseDateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	trades, err := h.ledger.ListTrades(currentUserID(c), from, to)
	if err != nil {
		h.logger.Error("Failed to load trades for stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to compute stats"})
		return
	}

	c.JSON(http.StatusOK, journal.Summarize(trades))
}

// Health reports whether the store is reachable.
func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		h.logger.Error("Health check failed", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseTradeID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}

// parseDateRange reads the optional from/to query parameters. Both bounds
// are inclusive; the to bound covers the whole day it names.
func parseDateRange(c *gin.Context) (*time.Time, *time.Time, error) {
	var from, to *time.Time

	if s := c.Query("from"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, nil, errors.New("from must be formatted as YYYY-MM-DD")
		}
		from = &t
	}

	if s := c.Query("to"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, nil, errors.New("to must be formatted as YYYY-MM-DD")
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		to = &end
	}

	return from, to, nil
}
