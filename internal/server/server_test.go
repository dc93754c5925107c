package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"trading-journal-go/internal/auth"
	"trading-journal-go/internal/config"
	"trading-journal-go/internal/journal"
	"trading-journal-go/internal/models"
)

// setupRouter builds the full API against a fresh in-memory database.
func setupRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Trade{}))

	logger := zap.NewNop()
	authSvc := auth.NewService(db, logger, &config.Auth{
		JWTSecret:     "test-secret",
		TokenTTLHours: 1,
		BcryptCost:    bcrypt.MinCost,
	})
	ledger := journal.NewLedger(db, logger)

	return NewRouter(logger, db, authSvc, ledger)
}

func doJSON(router *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerAndLogin(t *testing.T, router *gin.Engine, username string) string {
	w := doJSON(router, http.MethodPost, "/api/register", "", gin.H{
		"username": username, "password": "s3cret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/api/login", "", gin.H{
		"username": username, "password": "s3cret",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func sampleTrade() gin.H {
	return gin.H{
		"market":      "EURUSD",
		"open_price":  1.1000,
		"take_profit": 1.1050,
		"stop_loss":   1.0950,
		"lot":         2,
		"side":        "BUY",
		"note":        "breakout retest",
	}
}

func TestRegister_Duplicate(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodPost, "/api/register", "", gin.H{"username": "alice", "password": "pw"})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodPost, "/api/register", "", gin.H{"username": "alice", "password": "pw"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	router := setupRouter(t)
	registerAndLogin(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/api/login", "", gin.H{"username": "alice", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(router, http.MethodPost, "/api/login", "", gin.H{"username": "nobody", "password": "pw"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTrades_RequireAuth(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodGet, "/api/trades", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(router, http.MethodPost, "/api/trades", "garbage-token", sampleTrade())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTrades_CreateAndList(t *testing.T) {
	router := setupRouter(t)
	token := registerAndLogin(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/api/trades", token, sampleTrade())
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Trade
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotZero(t, created.ID)
	assert.InDelta(t, 0.01, created.Profit, 1e-9)

	w = doJSON(router, http.MethodGet, "/api/trades", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Trades      []models.Trade `json:"trades"`
		TotalProfit float64        `json:"total_profit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Trades, 1)
	assert.Equal(t, "EURUSD", resp.Trades[0].Market)
	assert.InDelta(t, 0.01, resp.TotalProfit, 1e-9)
}

func TestTrades_ValidationError(t *testing.T) {
	router := setupRouter(t)
	token := registerAndLogin(t, router, "alice")

	bad := sampleTrade()
	bad["side"] = "HOLD"
	w := doJSON(router, http.MethodPost, "/api/trades", token, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	bad = sampleTrade()
	bad["lot"] = 0
	w = doJSON(router, http.MethodPost, "/api/trades", token, bad)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(router, http.MethodGet, "/api/trades", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"trades":[]`)
}

func TestTrades_BadDateRange(t *testing.T) {
	router := setupRouter(t)
	token := registerAndLogin(t, router, "alice")

	w := doJSON(router, http.MethodGet, "/api/trades?from=15-01-2024", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTrades_ToBoundCoversWholeDay(t *testing.T) {
	router := setupRouter(t)
	token := registerAndLogin(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/api/trades", token, sampleTrade())
	require.Equal(t, http.StatusCreated, w.Code)

	// A to-bound naming today must include a trade created moments ago,
	// not just trades at midnight.
	today := time.Now().UTC().Format("2006-01-02")
	w = doJSON(router, http.MethodGet, "/api/trades?to="+today, token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Trades []models.Trade `json:"trades"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Trades, 1)
	assert.Equal(t, "EURUSD", resp.Trades[0].Market)

	// The same bound one day earlier excludes it.
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	w = doJSON(router, http.MethodGet, "/api/trades?to="+yesterday, token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Trades)
}

func TestTrades_CrossUserAccessRejected(t *testing.T) {
	router := setupRouter(t)
	alice := registerAndLogin(t, router, "alice")
	mallory := registerAndLogin(t, router, "mallory")

	w := doJSON(router, http.MethodPost, "/api/trades", alice, sampleTrade())
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.Trade
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Another user cannot see, update or delete the trade.
	w = doJSON(router, http.MethodGet, "/api/trades", mallory, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"trades":[]`)

	path := fmt.Sprintf("/api/trades/%d", created.ID)
	w = doJSON(router, http.MethodPut, path, mallory, sampleTrade())
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(router, http.MethodDelete, path, mallory, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The owner still can.
	w = doJSON(router, http.MethodDelete, path, alice, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTrades_Export(t *testing.T) {
	router := setupRouter(t)
	token := registerAndLogin(t, router, "alice")

	w := doJSON(router, http.MethodPost, "/api/trades", token, sampleTrade())
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodGet, "/api/trades/export", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Market,Open,TP,SL,Lot,Side,P/L,Note,Timestamp", lines[0])
	assert.Contains(t, lines[1], "EURUSD")
}

func TestStats(t *testing.T) {
	router := setupRouter(t)
	token := registerAndLogin(t, router, "alice")

	win := sampleTrade()
	w := doJSON(router, http.MethodPost, "/api/trades", token, win)
	require.Equal(t, http.StatusCreated, w.Code)

	loss := sampleTrade()
	loss["take_profit"] = 1.0900
	w = doJSON(router, http.MethodPost, "/api/trades", token, loss)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(router, http.MethodGet, "/api/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var s journal.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &s))
	assert.Equal(t, 2, s.TotalTrades)
	assert.Equal(t, 1, s.ProfitableTrades)
	assert.Equal(t, 0.5, s.WinRate)
}

func TestHealthz(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(router, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
