package auth

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"trading-journal-go/internal/config"
	"trading-journal-go/internal/models"
)

var (
	// ErrDuplicateUsername is returned by Register when the username is taken.
	ErrDuplicateUsername = errors.New("username already exists")
	// ErrUserNotFound is returned by Authenticate for an unknown username.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredential is returned by Authenticate on a password mismatch.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrEmptyCredentials is returned by Register for a blank username or password.
	ErrEmptyCredentials = errors.New("username and password must not be empty")
)

// Service registers users and verifies their credentials.
type Service struct {
	db         *gorm.DB
	logger     *zap.Logger
	bcryptCost int
	jwtSecret  []byte
	tokenTTL   time.Duration
}

// NewService creates a new auth service.
func NewService(db *gorm.DB, logger *zap.Logger, cfg *config.Auth) *Service {
	cost := cfg.BcryptCost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Service{
		db:         db,
		logger:     logger,
		bcryptCost: cost,
		jwtSecret:  []byte(cfg.JWTSecret),
		tokenTTL:   time.Duration(cfg.TokenTTLHours) * time.Hour,
	}
}

// Register creates a new user with a bcrypt-hashed credential and returns
// its id. The username must be unique.
func (s *Service) Register(username, password string) (uint, error) {
	if username == "" || password == "" {
		return 0, ErrEmptyCredentials
	}

	var existing models.User
	err := s.db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return 0, ErrDuplicateUsername
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("failed to look up username: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{Username: username, PasswordHash: string(hash)}
	if err := s.db.Create(&user).Error; err != nil {
		// The unique index catches usernames the lookup above cannot see,
		// e.g. a registration that landed between the check and the insert.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, ErrDuplicateUsername
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("Registered new user",
		zap.Uint("user_id", user.ID),
		zap.String("username", username))

	return user.ID, nil
}

// Authenticate verifies a username/password pair and returns the user id.
func (s *Service) Authenticate(username, password string) (uint, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return 0, ErrInvalidCredential
	}

	return user.ID, nil
}
