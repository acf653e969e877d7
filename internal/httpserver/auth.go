package httpserver

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/skvortsov/storefront/internal/logging"
	"github.com/skvortsov/storefront/internal/service"
	"github.com/skvortsov/storefront/internal/transport"
)

type AuthHTTP struct {
	Svc *service.AuthService
}

func createCookie(name, value, path string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHTTP) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "register")

	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, transport.ErrorResponse{Error: "invalid body"})
	}

	user, err := h.Svc.Register(ctx, req.Username, req.Password)
	if err != nil {
		l.Warn("register_error", "error", err)
		return writeError(c, err)
	}

	l.Info("user_registered", "user_id", user.ID)
	return c.JSON(http.StatusCreated, user)
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "login")

	var req credentialsRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, transport.ErrorResponse{Error: "invalid body"})
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		l.Warn("login_error", "error", err)
		return writeError(c, err)
	}

	c.SetCookie(createCookie("accessToken", res.AccessToken, "/", time.Now().Add(15*time.Minute)))
	c.SetCookie(createCookie("refreshToken", res.RefreshToken, "/", time.Now().Add(7*24*time.Hour)))

	l.Info("user_logged_in", "user_id", res.User.ID)
	return c.JSON(http.StatusOK, res.User)
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "refresh")

	cookie, err := c.Cookie("refreshToken")
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, transport.ErrorResponse{Error: "missing refresh cookie"})
	}

	access, refresh, err := h.Svc.Refresh(ctx, cookie.Value)
	if err != nil {
		l.Warn("refresh_error", "error", err)
		return writeError(c, err)
	}

	c.SetCookie(createCookie("accessToken", access, "/", time.Now().Add(15*time.Minute)))
	c.SetCookie(createCookie("refreshToken", refresh, "/", time.Now().Add(7*24*time.Hour)))

	return c.JSON(http.StatusOK, map[string]string{"message": "tokens refreshed"})
}

func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "logout")

	raw := ""
	if cookie, err := c.Cookie("refreshToken"); err == nil {
		raw = cookie.Value
	}

	if err := h.Svc.Logout(ctx, raw); err != nil {
		l.Warn("logout_error", "error", err)
		return writeError(c, err)
	}

	c.SetCookie(createCookie("accessToken", "", "/", time.Unix(0, 0)))
	c.SetCookie(createCookie("refreshToken", "", "/", time.Unix(0, 0)))

	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}
