package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skvortsov/storefront/internal/repo"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

type TokenService struct {
	Repo          *repo.GormRepo
	JWTSecret     []byte
	RefreshSecret []byte
}

type Identity struct {
	UserID uint
	Role   string
}

func (t *TokenService) SignAccessToken(userID uint, role string) (string, error) {
	claims := jwt.MapClaims{
		"sub":  float64(userID),
		"role": role,
		"exp":  time.Now().Add(accessTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.JWTSecret)
}

func (t *TokenService) SignRefreshToken(ctx context.Context, userID uint, role string) (string, error) {
	exp := time.Now().Add(refreshTTL)
	claims := jwt.MapClaims{
		"sub":  float64(userID),
		"role": role,
		"exp":  exp.Unix(),
		"typ":  "refresh",
		"jti":  uuid.NewString(),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.RefreshSecret)
	if err != nil {
		return "", err
	}
	if err := t.Repo.SaveRefreshToken(ctx, raw, userID, exp); err != nil {
		return "", fmt.Errorf("save refresh token: %w", ErrUnavailable)
	}
	return raw, nil
}

func parseHMAC(raw string, secret []byte) (jwt.MapClaims, error) {
	token, err := jwt.Parse(raw, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", ErrUnauthorized)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims: %w", ErrUnauthorized)
	}
	return claims, nil
}

func identityFromClaims(claims jwt.MapClaims) (Identity, error) {
	sub, ok := claims["sub"].(float64)
	if !ok {
		return Identity{}, fmt.Errorf("invalid subject claim: %w", ErrUnauthorized)
	}
	role, ok := claims["role"].(string)
	if !ok {
		return Identity{}, fmt.Errorf("invalid role claim: %w", ErrUnauthorized)
	}
	return Identity{UserID: uint(sub), Role: role}, nil
}

// ParseAccess verifies an access token and extracts the server-side identity
// every cart and admin operation is keyed by.
func (t *TokenService) ParseAccess(raw string) (Identity, error) {
	claims, err := parseHMAC(raw, t.JWTSecret)
	if err != nil {
		return Identity{}, err
	}
	return identityFromClaims(claims)
}

// ValidateRefresh verifies the signature and the stored token row: rotation
// and logout revoke rows, so a replayed refresh token dies here.
func (t *TokenService) ValidateRefresh(ctx context.Context, raw string) (Identity, error) {
	claims, err := parseHMAC(raw, t.RefreshSecret)
	if err != nil {
		return Identity{}, err
	}
	if typ, ok := claims["typ"].(string); !ok || typ != "refresh" {
		return Identity{}, fmt.Errorf("not a refresh token: %w", ErrUnauthorized)
	}

	stored, err := t.Repo.GetRefreshToken(ctx, raw)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Identity{}, fmt.Errorf("unknown refresh token: %w", ErrUnauthorized)
		}
		return Identity{}, fmt.Errorf("load refresh token: %w", ErrUnavailable)
	}
	if stored.Revoked {
		return Identity{}, fmt.Errorf("refresh token revoked: %w", ErrUnauthorized)
	}
	if time.Now().After(stored.ExpiresAt) {
		return Identity{}, fmt.Errorf("refresh token expired: %w", ErrUnauthorized)
	}

	return identityFromClaims(claims)
}

// Rotate revokes the presented refresh token and issues a fresh pair.
func (t *TokenService) Rotate(ctx context.Context, raw string) (string, string, error) {
	id, err := t.ValidateRefresh(ctx, raw)
	if err != nil {
		return "", "", err
	}

	if err := t.Repo.RevokeRefreshToken(ctx, raw); err != nil {
		return "", "", fmt.Errorf("revoke refresh token: %w", ErrUnavailable)
	}

	access, err := t.SignAccessToken(id.UserID, id.Role)
	if err != nil {
		return "", "", err
	}
	refresh, err := t.SignRefreshToken(ctx, id.UserID, id.Role)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}
