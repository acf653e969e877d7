package models

import (
	"time"
)

type Product struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"  json:"id"`
	Name      string  `gorm:"not null"                  json:"name"`
	Price     float64 `gorm:"not null"                  json:"price"`
	ImageURL  string  `gorm:"column:image_url"          json:"image_url"`
	Remaining uint    `gorm:"not null;default:0"        json:"remaining"`
}

type User struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string `gorm:"unique;not null"          json:"username"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"not null"                 json:"role"`
}

type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"          json:"id"`
	Token     string    `gorm:"unique;not null"     json:"token"`
	UserID    uint      `gorm:"index;not null"      json:"user_id"`
	ExpiresAt time.Time `gorm:"not null"            json:"expires_at"`
	Revoked   bool      `gorm:"default:false"       json:"revoked"`
}

// Cart is created lazily on the first add and survives checkout.
type Cart struct {
	ID     uint       `gorm:"primaryKey;autoIncrement"  json:"id"`
	UserID uint       `gorm:"uniqueIndex;not null"      json:"user_id"`
	Items  []CartItem `gorm:"foreignKey:CartID"         json:"items"`
}

// CartItem quantity is always positive; a line that would reach zero is
// deleted instead of being kept at zero.
type CartItem struct {
	ID        uint    `gorm:"primaryKey;autoIncrement"               json:"id"`
	CartID    uint    `gorm:"uniqueIndex:idx_cart_product;not null"  json:"cart_id"`
	ProductID uint    `gorm:"uniqueIndex:idx_cart_product;not null"  json:"product_id"`
	Quantity  uint    `gorm:"not null;check:quantity>0"              json:"quantity"`
	Product   Product `gorm:"foreignKey:ProductID"                   json:"product"`
}
