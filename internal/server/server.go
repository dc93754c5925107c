package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"trading-journal-go/internal/auth"
	"trading-journal-go/internal/config"
	"trading-journal-go/internal/journal"
)

// Server exposes the journal over HTTP.
type Server struct {
	server *http.Server
	logger *zap.Logger
}

// New creates a new Server with all routes mounted.
func New(cfg *config.Config, logger *zap.Logger, db *gorm.DB, authSvc *auth.Service, ledger *journal.Ledger) *Server {
	router := NewRouter(logger, db, authSvc, ledger)

	return &Server{
		server: &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: router,
		},
		logger: logger.Named("server"),
	}
}

// NewRouter builds the gin engine with all journal routes.
func NewRouter(logger *zap.Logger, db *gorm.DB, authSvc *auth.Service, ledger *journal.Ledger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	h := NewHandler(logger, db, authSvc, ledger)

	router.GET("/healthz", h.Health)

	api := router.Group("/api")
	api.POST("/register", h.Register)
	api.POST("/login", h.Login)

	trades := api.Group("/trades", RequireAuth(authSvc))
	trades.POST("", h.CreateTrade)
	trades.GET("", h.ListTrades)
	trades.GET("/export", h.ExportTrades)
	trades.PUT("/:id", h.UpdateTrade)
	trades.DELETE("/:id", h.DeleteTrade)

	api.GET("/stats", RequireAuth(authSvc), h.Stats)

	return router
}

// Start runs the HTTP server in a new goroutine.
func (s *Server) Start() {
	s.logger.Info("Starting API server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
			s.logger.Error("API server failed", zap.Error(err))
		}
	}()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping API server...")
	return s.server.Shutdown(ctx)
}
