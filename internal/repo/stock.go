package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/skvortsov/storefront/internal/models"
)

// adjustStock applies delta to the product's remaining count with a single
// conditional UPDATE, so the availability check and the write cannot be
// interleaved with a concurrent adjust on the same row.
func adjustStock(tx *gorm.DB, productID uint, delta int) error {
	if delta == 0 {
		var p models.Product
		return tx.Select("id").First(&p, productID).Error
	}

	res := tx.Model(&models.Product{}).
		Where("id = ? AND remaining + ? >= 0", productID, delta).
		Update("remaining", gorm.Expr("remaining + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var p models.Product
		if err := tx.Select("id").First(&p, productID).Error; err != nil {
			return err
		}
		return ErrInsufficientStock
	}
	return nil
}

// TryAdjustStock is the standalone ledger primitive: it atomically checks and
// adjusts a product's remaining count and reports the new value. Cart
// mutations compose adjustStock with their line writes in one transaction
// instead of calling this.
func (r *GormRepo) TryAdjustStock(ctx context.Context, productID uint, delta int) (uint, error) {
	var remaining uint
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := adjustStock(tx, productID, delta); err != nil {
			return err
		}
		var p models.Product
		if err := tx.First(&p, productID).Error; err != nil {
			return err
		}
		remaining = p.Remaining
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}
