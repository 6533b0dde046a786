package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sitecms/internal/db"
	"github.com/sitecms/internal/pkg/jwt"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginResult is returned after a successful login.
type LoginResult struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
}

// AuthService checks admin credentials and issues bearer tokens.
type AuthService struct {
	db     *gorm.DB
	signer *jwt.Signer
	logger *zap.Logger
}

// NewAuthService returns a new AuthService instance.
func NewAuthService(gdb *gorm.DB, signer *jwt.Signer, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{db: gdb, signer: signer, logger: logger}
}

// Login checks username and password and issues a token.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrUnauthorized
	}

	var user db.User
	if err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("login rejected", zap.String("username", username))
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		s.logger.Warn("login rejected", zap.String("username", username))
		return nil, ErrUnauthorized
	}

	token, expires, err := s.signer.Sign(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	s.logger.Info("admin logged in", zap.String("username", user.Username))
	return &LoginResult{Token: token, ExpiresAt: expires, Username: user.Username}, nil
}

// Verify parses a bearer token and returns its claims.
func (s *AuthService) Verify(token string) (*jwt.Claims, error) {
	claims, err := s.signer.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return claims, nil
}
