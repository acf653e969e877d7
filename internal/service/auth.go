package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skvortsov/storefront/internal/events"
	"github.com/skvortsov/storefront/internal/hash"
	"github.com/skvortsov/storefront/internal/logging"
	"github.com/skvortsov/storefront/internal/models"
	"github.com/skvortsov/storefront/internal/repo"
)

type AuthService struct {
	Repo   *repo.GormRepo
	Tokens *TokenService
	Events events.Publisher
}

type LoginResult struct {
	User         *models.User
	AccessToken  string
	RefreshToken string
}

func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" {
		return nil, fmt.Errorf("username required: %w", ErrValidation)
	}
	if password == "" {
		return nil, fmt.Errorf("password required: %w", ErrValidation)
	}

	if _, err := s.Repo.GetUserByUsername(ctx, username); err == nil {
		return nil, fmt.Errorf("user already exists: %w", ErrConflict)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("lookup user: %w", ErrUnavailable)
	}

	h, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Username:     username,
		PasswordHash: h,
		Role:         "user",
	}
	if err := s.Repo.CreateUser(ctx, &user); err != nil {
		return nil, fmt.Errorf("create user: %w", ErrUnavailable)
	}

	s.publishUser(ctx, map[string]any{
		"type":     "user_registered",
		"user_id":  user.ID,
		"username": user.Username,
	})
	return &user, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("username and password required: %w", ErrValidation)
	}

	user, err := s.Repo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
		}
		return nil, fmt.Errorf("lookup user: %w", ErrUnavailable)
	}
	if !hash.CheckPassword(user.PasswordHash, password) {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}

	access, err := s.Tokens.SignAccessToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := s.Tokens.SignRefreshToken(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}

	s.publishUser(ctx, map[string]any{
		"type":    "user_logged_in",
		"user_id": user.ID,
	})
	return &LoginResult{User: user, AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (string, string, error) {
	if rawRefresh == "" {
		return "", "", fmt.Errorf("refresh token required: %w", ErrUnauthorized)
	}
	return s.Tokens.Rotate(ctx, rawRefresh)
}

// Logout revokes the refresh token; an empty token is a no-op so logging out
// an already-expired session never errors.
func (s *AuthService) Logout(ctx context.Context, rawRefresh string) error {
	if rawRefresh == "" {
		return nil
	}
	if err := s.Repo.RevokeRefreshToken(ctx, rawRefresh); err != nil {
		return fmt.Errorf("revoke refresh token: %w", ErrUnavailable)
	}
	return nil
}

func (s *AuthService) publishUser(ctx context.Context, event map[string]any) {
	if s.Events == nil {
		return
	}
	event["event_id"] = uuid.NewString()
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Events.Publish(pctx, "user_events", fmt.Sprint(event["user_id"]), event); err != nil {
		logging.FromContext(ctx).Error("event publish error", "topic", "user_events", "error", err)
	}
}
