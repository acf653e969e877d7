package repo

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/skvortsov/storefront/internal/models"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.User{},
		&models.RefreshToken{},
	))

	t.Cleanup(func() { sqlDB.Close() })
	return &GormRepo{DB: db}
}

func seedProduct(t *testing.T, r *GormRepo, remaining uint) *models.Product {
	t.Helper()
	p := models.Product{Name: "mug", Price: 9.5, Remaining: remaining}
	require.NoError(t, r.DB.Create(&p).Error)
	return &p
}

func productRemaining(t *testing.T, r *GormRepo, id uint) uint {
	t.Helper()
	var p models.Product
	require.NoError(t, r.DB.First(&p, id).Error)
	return p.Remaining
}

func TestTryAdjustStock_Decrement(t *testing.T) {
	r := newTestRepo(t)
	p := seedProduct(t, r, 10)

	remaining, err := r.TryAdjustStock(context.Background(), p.ID, -4)
	require.NoError(t, err)
	assert.Equal(t, uint(6), remaining)
	assert.Equal(t, uint(6), productRemaining(t, r, p.ID))
}

func TestTryAdjustStock_Increment(t *testing.T) {
	r := newTestRepo(t)
	p := seedProduct(t, r, 2)

	remaining, err := r.TryAdjustStock(context.Background(), p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, uint(5), remaining)
}

func TestTryAdjustStock_Insufficient_NoWrite(t *testing.T) {
	r := newTestRepo(t)
	p := seedProduct(t, r, 3)

	_, err := r.TryAdjustStock(context.Background(), p.ID, -4)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, uint(3), productRemaining(t, r, p.ID), "failed adjust must not write")
}

func TestTryAdjustStock_ExactDrain(t *testing.T) {
	r := newTestRepo(t)
	p := seedProduct(t, r, 3)

	remaining, err := r.TryAdjustStock(context.Background(), p.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, uint(0), remaining)
}

func TestTryAdjustStock_UnknownProduct(t *testing.T) {
	r := newTestRepo(t)

	_, err := r.TryAdjustStock(context.Background(), 999, -1)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTryAdjustStock_ZeroDeltaChecksExistence(t *testing.T) {
	r := newTestRepo(t)
	p := seedProduct(t, r, 7)

	remaining, err := r.TryAdjustStock(context.Background(), p.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, uint(7), remaining)

	_, err = r.TryAdjustStock(context.Background(), 999, 0)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTryAdjustStock_ConcurrentDrain(t *testing.T) {
	r := newTestRepo(t)
	p := seedProduct(t, r, 8)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = r.TryAdjustStock(context.Background(), p.ID, -5)
		}(i)
	}
	wg.Wait()

	var ok, insufficient int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientStock):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok, "exactly one adjust must win")
	assert.Equal(t, 1, insufficient)
	assert.Equal(t, uint(3), productRemaining(t, r, p.ID))
}
