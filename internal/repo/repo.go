package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	// ErrInsufficientStock is returned when a stock adjustment would drive
	// a product's remaining count below zero.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrTxConflict is returned when a cart line changed under an in-flight
	// mutation. The whole transaction is rolled back and may be retried.
	ErrTxConflict = errors.New("concurrent cart update")

	// ErrProductReferenced is returned when deleting a product that still
	// sits in someone's cart.
	ErrProductReferenced = errors.New("product referenced by cart")
)

type GormRepo struct {
	DB *gorm.DB
}
