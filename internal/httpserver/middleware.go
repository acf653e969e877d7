package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/skvortsov/storefront/internal/logging"
	"github.com/skvortsov/storefront/internal/service"
	"github.com/skvortsov/storefront/internal/transport"
)

// RequestLogger puts a request-scoped logger into the request context so
// handlers and services can pick it up with logging.FromContext.
func RequestLogger(l *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rl := l.With(
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"method", req.Method,
				"path", req.URL.Path,
			)
			c.SetRequest(req.WithContext(logging.IntoContext(req.Context(), rl)))
			return next(c)
		}
	}
}

type AuthMiddleware struct {
	Tokens *service.TokenService
}

// RequireAuth resolves the caller's identity from the access token cookie and
// stores it in the echo context. Handlers key every cart operation by this
// identity; client-supplied user ids are never trusted.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		cookie, err := c.Cookie("accessToken")
		if err != nil || cookie.Value == "" {
			return c.JSON(http.StatusUnauthorized, transport.ErrorResponse{Error: "missing auth cookie"})
		}

		id, err := m.Tokens.ParseAccess(cookie.Value)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, transport.ErrorResponse{Error: "invalid token"})
		}

		c.Set("userID", id.UserID)
		c.Set("role", id.Role)
		return next(c)
	}
}

func (m *AuthMiddleware) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.RequireAuth(func(c echo.Context) error {
		if role, _ := c.Get("role").(string); role != "admin" {
			return c.JSON(http.StatusForbidden, transport.ErrorResponse{Error: "admin only"})
		}
		return next(c)
	})
}

func userID(c echo.Context) (uint, error) {
	id, ok := c.Get("userID").(uint)
	if !ok || id == 0 {
		return 0, errors.New("unauthorized")
	}
	return id, nil
}

func writeError(c echo.Context, err error) error {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation):
		code = http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, service.ErrInsufficientStock), errors.Is(err, service.ErrConflict):
		code = http.StatusConflict
	case errors.Is(err, service.ErrUnauthorized):
		code = http.StatusUnauthorized
	case errors.Is(err, service.ErrUnavailable):
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, transport.ErrorResponse{Error: err.Error()})
}
