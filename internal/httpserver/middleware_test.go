package httpserver

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, map[string]uint{"user_id": uid})
}

func (env *testEnv) request(t *testing.T, cookies ...*http.Cookie) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	return rec, env.E.NewContext(req, rec)
}

func TestRequireAuth_MissingCookie(t *testing.T) {
	env := newTestEnv(t)
	mw := &AuthMiddleware{Tokens: env.Tokens}

	rec, c := env.request(t)
	require.NoError(t, mw.RequireAuth(okHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_BadToken(t *testing.T) {
	env := newTestEnv(t)
	mw := &AuthMiddleware{Tokens: env.Tokens}

	rec, c := env.request(t, &http.Cookie{Name: "accessToken", Value: "garbage"})
	require.NoError(t, mw.RequireAuth(okHandler)(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_ValidToken(t *testing.T) {
	env := newTestEnv(t)
	mw := &AuthMiddleware{Tokens: env.Tokens}

	access, err := env.Tokens.SignAccessToken(7, "user")
	require.NoError(t, err)

	rec, c := env.request(t, &http.Cookie{Name: "accessToken", Value: access})
	require.NoError(t, mw.RequireAuth(okHandler)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id": 7}`, rec.Body.String())
}

func TestRequireAdmin_RejectsUserRole(t *testing.T) {
	env := newTestEnv(t)
	mw := &AuthMiddleware{Tokens: env.Tokens}

	access, err := env.Tokens.SignAccessToken(7, "user")
	require.NoError(t, err)

	rec, c := env.request(t, &http.Cookie{Name: "accessToken", Value: access})
	require.NoError(t, mw.RequireAdmin(okHandler)(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireAdmin_AllowsAdmin(t *testing.T) {
	env := newTestEnv(t)
	mw := &AuthMiddleware{Tokens: env.Tokens}

	access, err := env.Tokens.SignAccessToken(1, "admin")
	require.NoError(t, err)

	rec, c := env.request(t, &http.Cookie{Name: "accessToken", Value: access})
	require.NoError(t, mw.RequireAdmin(okHandler)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
