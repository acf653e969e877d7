package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skvortsov/storefront/internal/models"
	"github.com/skvortsov/storefront/internal/repo"
	"github.com/skvortsov/storefront/internal/service"
)

type testEnv struct {
	E      *echo.Echo
	DB     *gorm.DB
	Cart   *CartHTTP
	Prod   *ProductHTTP
	Tokens *service.TokenService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.User{},
		&models.RefreshToken{},
		&models.Cart{},
		&models.CartItem{},
	))
	t.Cleanup(func() { sqlDB.Close() })

	r := &repo.GormRepo{DB: db}
	return &testEnv{
		E:    echo.New(),
		DB:   db,
		Cart: &CartHTTP{Svc: &service.CartService{Repo: r}},
		Prod: &ProductHTTP{Svc: &service.CatalogService{Repo: r}},
		Tokens: &service.TokenService{
			Repo:          r,
			JWTSecret:     []byte("test-jwt-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
		},
	}
}

func (env *testEnv) doJSON(t *testing.T, method, target string, body any) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, env.E.NewContext(req, rec)
}

func (env *testEnv) seedProduct(t *testing.T, remaining uint) *models.Product {
	t.Helper()
	p := models.Product{Name: "mug", Price: 9.5, Remaining: remaining}
	require.NoError(t, env.DB.Create(&p).Error)
	return &p
}

func asUser(c echo.Context, id uint) {
	c.Set("userID", id)
	c.Set("role", "user")
}

func TestCartHTTP_AddToCart(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 10)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"product_id": p.ID,
		"quantity":   4,
	})
	asUser(c, 1)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var item models.CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, p.ID, item.ProductID)
	assert.Equal(t, uint(4), item.Quantity)

	var got models.Product
	require.NoError(t, env.DB.First(&got, p.ID).Error)
	assert.Equal(t, uint(6), got.Remaining)
}

func TestCartHTTP_AddToCart_InsufficientStockIs409(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 2)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"product_id": p.ID,
		"quantity":   5,
	})
	asUser(c, 1)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusConflict, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["error"], "insufficient stock")
}

func TestCartHTTP_AddToCart_BadQuantityIs400(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 2)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"product_id": p.ID,
		"quantity":   0,
	})
	asUser(c, 1)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCartHTTP_AddToCart_UnknownProductIs404(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"product_id": 999,
		"quantity":   1,
	})
	asUser(c, 1)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCartHTTP_Unauthorized(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSON(t, http.MethodGet, "/api/v1/cart", nil)
	require.NoError(t, env.Cart.GetCart(c))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartHTTP_GetCart(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 10)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"product_id": p.ID,
		"quantity":   2,
	})
	asUser(c, 1)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, c = env.doJSON(t, http.MethodGet, "/api/v1/cart", nil)
	asUser(c, 1)
	require.NoError(t, env.Cart.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var cart models.Cart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "mug", cart.Items[0].Product.Name)
}

func TestCartHTTP_GetCart_EmptyForNewUser(t *testing.T) {
	env := newTestEnv(t)

	rec, c := env.doJSON(t, http.MethodGet, "/api/v1/cart", nil)
	asUser(c, 5)
	require.NoError(t, env.Cart.GetCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var cart models.Cart
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cart))
	assert.Empty(t, cart.Items)
}

func TestCartHTTP_SetQuantity(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 10)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"product_id": p.ID,
		"quantity":   4,
	})
	asUser(c, 1)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, c = env.doJSON(t, http.MethodPatch, "/api/v1/cart", map[string]any{
		"product_id": p.ID,
		"quantity":   2,
	})
	asUser(c, 1)
	require.NoError(t, env.Cart.SetQuantity(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var item models.CartItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &item))
	assert.Equal(t, uint(2), item.Quantity)

	var got models.Product
	require.NoError(t, env.DB.First(&got, p.ID).Error)
	assert.Equal(t, uint(8), got.Remaining)
}

func TestCartHTTP_RemoveFromCart(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 10)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"product_id": p.ID,
		"quantity":   3,
	})
	asUser(c, 1)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, c = env.doJSON(t, http.MethodDelete, "/api/v1/cart", map[string]any{
		"product_id": p.ID,
	})
	asUser(c, 1)
	require.NoError(t, env.Cart.RemoveFromCart(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Product
	require.NoError(t, env.DB.First(&got, p.ID).Error)
	assert.Equal(t, uint(10), got.Remaining, "removal restores stock")
}

func TestCartHTTP_Checkout(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 10)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"product_id": p.ID,
		"quantity":   3,
	})
	asUser(c, 1)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var cart models.Cart
	require.NoError(t, env.DB.Where("user_id = ?", 1).First(&cart).Error)

	rec, c = env.doJSON(t, http.MethodDelete, "/api/v1/cart/checkout", map[string]any{
		"cart_id": cart.ID,
	})
	asUser(c, 1)
	require.NoError(t, env.Cart.Checkout(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.CartItem{}).Where("cart_id = ?", cart.ID).Count(&count).Error)
	assert.EqualValues(t, 0, count)

	var got models.Product
	require.NoError(t, env.DB.First(&got, p.ID).Error)
	assert.Equal(t, uint(7), got.Remaining, "checkout commits the sale")

	// second checkout of the now-empty cart still succeeds
	rec, c = env.doJSON(t, http.MethodDelete, "/api/v1/cart/checkout", map[string]any{
		"cart_id": cart.ID,
	})
	asUser(c, 1)
	require.NoError(t, env.Cart.Checkout(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCartHTTP_Checkout_ForeignCartIs404(t *testing.T) {
	env := newTestEnv(t)
	p := env.seedProduct(t, 10)

	rec, c := env.doJSON(t, http.MethodPost, "/api/v1/cart", map[string]any{
		"product_id": p.ID,
		"quantity":   3,
	})
	asUser(c, 1)
	require.NoError(t, env.Cart.AddToCart(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var cart models.Cart
	require.NoError(t, env.DB.Where("user_id = ?", 1).First(&cart).Error)

	rec, c = env.doJSON(t, http.MethodDelete, "/api/v1/cart/checkout", map[string]any{
		"cart_id": cart.ID,
	})
	asUser(c, 2)
	require.NoError(t, env.Cart.Checkout(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}
