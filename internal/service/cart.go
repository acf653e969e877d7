package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/skvortsov/storefront/internal/events"
	"github.com/skvortsov/storefront/internal/logging"
	"github.com/skvortsov/storefront/internal/models"
	"github.com/skvortsov/storefront/internal/repo"
)

// CartService keeps cart lines and product stock consistent: every mutation
// that changes a line quantity by some delta changes the product's remaining
// count by the opposite delta inside the same transaction.
type CartService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func (s *CartService) GetCart(ctx context.Context, userID uint) (*models.Cart, error) {
	cart, err := s.Repo.GetCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", ErrUnavailable)
	}
	return cart, nil
}

func (s *CartService) AddToCart(ctx context.Context, userID, productID uint, quantity int) (*models.CartItem, error) {
	if productID == 0 {
		return nil, fmt.Errorf("product id required: %w", ErrValidation)
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive: %w", ErrValidation)
	}

	var item *models.CartItem
	err := withRetry(ctx, func() error {
		var err error
		item, err = s.Repo.AddToCart(ctx, userID, productID, uint(quantity))
		return err
	})
	if err != nil {
		return nil, mapStoreErr("add to cart", err)
	}

	s.publish(ctx, "cart_events", userID, map[string]any{
		"type":       "cart_item_added",
		"user_id":    userID,
		"product_id": productID,
		"quantity":   item.Quantity,
	})
	return item, nil
}

// SetQuantity moves the line to the target quantity; 0 removes the line. The
// stock delta is settled within the same transaction, so a shrinking line
// returns stock and a growing line reserves it.
func (s *CartService) SetQuantity(ctx context.Context, userID, productID uint, quantity int) (*models.CartItem, bool, error) {
	if productID == 0 {
		return nil, false, fmt.Errorf("product id required: %w", ErrValidation)
	}
	if quantity < 0 {
		return nil, false, fmt.Errorf("quantity must not be negative: %w", ErrValidation)
	}

	var (
		item    *models.CartItem
		removed bool
	)
	err := withRetry(ctx, func() error {
		var err error
		item, removed, err = s.Repo.SetQuantity(ctx, userID, productID, uint(quantity))
		return err
	})
	if err != nil {
		return nil, false, mapStoreErr("set quantity", err)
	}

	s.publish(ctx, "cart_events", userID, map[string]any{
		"type":       "cart_quantity_set",
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
		"removed":    removed,
	})
	return item, removed, nil
}

func (s *CartService) RemoveFromCart(ctx context.Context, userID, productID uint) (uint, error) {
	if productID == 0 {
		return 0, fmt.Errorf("product id required: %w", ErrValidation)
	}

	var freed uint
	err := withRetry(ctx, func() error {
		var err error
		freed, err = s.Repo.RemoveFromCart(ctx, userID, productID)
		return err
	})
	if err != nil {
		return 0, mapStoreErr("remove from cart", err)
	}

	s.publish(ctx, "cart_events", userID, map[string]any{
		"type":       "cart_item_removed",
		"user_id":    userID,
		"product_id": productID,
		"freed":      freed,
	})
	return freed, nil
}

// Checkout clears the cart and commits the reservations: stock is not
// restored. Checking out an already-empty cart succeeds.
func (s *CartService) Checkout(ctx context.Context, userID, cartID uint) error {
	if cartID == 0 {
		return fmt.Errorf("cart id required: %w", ErrValidation)
	}

	err := withRetry(ctx, func() error {
		return s.Repo.ClearCart(ctx, cartID, userID)
	})
	if err != nil {
		return mapStoreErr("checkout", err)
	}

	s.publish(ctx, "cart_events", userID, map[string]any{
		"type":    "cart_checked_out",
		"user_id": userID,
		"cart_id": cartID,
	})
	return nil
}

func mapStoreErr(op string, err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, repo.ErrInsufficientStock):
		return fmt.Errorf("%s: %w", op, ErrInsufficientStock)
	case errors.Is(err, repo.ErrProductReferenced):
		return fmt.Errorf("%s: %w", op, ErrConflict)
	case errors.Is(err, ErrConflict), errors.Is(err, ErrUnavailable):
		return err
	default:
		return fmt.Errorf("%s: %v: %w", op, err, ErrUnavailable)
	}
}

func (s *CartService) publish(ctx context.Context, topic string, userID uint, event map[string]any) {
	if s.Events == nil {
		return
	}
	event["event_id"] = uuid.NewString()
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Events.Publish(pctx, topic, fmt.Sprint(userID), event); err != nil {
		logging.FromContext(ctx).Error("event publish error", "topic", topic, "error", err)
	}
}
