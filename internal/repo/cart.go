package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skvortsov/storefront/internal/models"
)

// GetCart loads the user's cart with its lines and nested products. A user
// without a cart gets an empty value, not an error.
func (r *GormRepo) GetCart(ctx context.Context, userID uint) (*models.Cart, error) {
	var cart models.Cart
	err := r.DB.WithContext(ctx).
		Preload("Items.Product").
		Where("user_id = ?", userID).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Cart{UserID: userID, Items: []models.CartItem{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return &cart, nil
}

// AddToCart reserves qty units of the product and adds them to the user's
// cart, creating the cart and the line as needed. The stock decrement and the
// line upsert commit or roll back together.
func (r *GormRepo) AddToCart(ctx context.Context, userID, productID uint, qty uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Where(models.Cart{UserID: userID}).FirstOrCreate(&cart).Error; err != nil {
			return err
		}

		if err := adjustStock(tx, productID, -int(qty)); err != nil {
			return err
		}

		res := tx.Model(&models.CartItem{}).
			Where("cart_id = ? AND product_id = ?", cart.ID, productID).
			Update("quantity", gorm.Expr("quantity + ?", qty))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			item = models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: qty}
			return tx.Omit(clause.Associations).Create(&item).Error
		}
		return tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// SetQuantity moves the line to the target quantity and settles the
// difference against the stock ledger. Target 0 deletes the line. The line
// write is conditional on the quantity the delta was computed from; if it
// changed underneath, the transaction fails with ErrTxConflict and the stock
// adjustment rolls back with it.
func (r *GormRepo) SetQuantity(ctx context.Context, userID, productID uint, newQty uint) (*models.CartItem, bool, error) {
	var item models.CartItem
	deleted := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			return err
		}

		var existing uint
		err := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error
		switch {
		case err == nil:
			existing = item.Quantity
		case errors.Is(err, gorm.ErrRecordNotFound):
			if newQty == 0 {
				return gorm.ErrRecordNotFound
			}
		default:
			return err
		}

		if err := adjustStock(tx, productID, int(existing)-int(newQty)); err != nil {
			return err
		}

		if newQty == 0 {
			deleted = true
			res := tx.Where("id = ? AND quantity = ?", item.ID, existing).Delete(&models.CartItem{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrTxConflict
			}
			return nil
		}

		if existing == 0 {
			item = models.CartItem{CartID: cart.ID, ProductID: productID, Quantity: newQty}
			return tx.Omit(clause.Associations).Create(&item).Error
		}

		res := tx.Model(&models.CartItem{}).
			Where("id = ? AND quantity = ?", item.ID, existing).
			Update("quantity", newQty)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTxConflict
		}
		item.Quantity = newQty
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if deleted {
		return nil, true, nil
	}
	return &item, false, nil
}

// RemoveFromCart deletes the line and returns the freed quantity to the
// product's remaining count.
func (r *GormRepo) RemoveFromCart(ctx context.Context, userID, productID uint) (uint, error) {
	var freed uint
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Where("user_id = ?", userID).First(&cart).Error; err != nil {
			return err
		}

		var item models.CartItem
		if err := tx.Where("cart_id = ? AND product_id = ?", cart.ID, productID).First(&item).Error; err != nil {
			return err
		}

		res := tx.Where("id = ? AND quantity = ?", item.ID, item.Quantity).Delete(&models.CartItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrTxConflict
		}

		if err := adjustStock(tx, productID, int(item.Quantity)); err != nil {
			return err
		}
		freed = item.Quantity
		return nil
	})
	if err != nil {
		return 0, err
	}
	return freed, nil
}

// ClearCart drops every line of the cart without touching stock: checked-out
// items count as sold. Clearing an already-empty cart is a no-op.
func (r *GormRepo) ClearCart(ctx context.Context, cartID, userID uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var cart models.Cart
		if err := tx.Where("id = ? AND user_id = ?", cartID, userID).First(&cart).Error; err != nil {
			return err
		}
		return tx.Where("cart_id = ?", cartID).Delete(&models.CartItem{}).Error
	})
}
