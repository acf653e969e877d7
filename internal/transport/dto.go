package transport

import "github.com/skvortsov/storefront/internal/models"

type ErrorResponse struct {
	Error string `json:"error"`
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type SetQuantityRequest struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

type RemoveFromCartRequest struct {
	ProductID uint `json:"product_id"`
}

type CheckoutRequest struct {
	CartID uint `json:"cart_id"`
}

type RemoveFromCartResponse struct {
	ProductID uint `json:"product_id"`
	Freed     uint `json:"freed"`
}

type CreateProductRequest struct {
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	ImageURL  string  `json:"image_url"`
	Remaining uint    `json:"remaining"`
}

type PatchProductRequest struct {
	Name      *string  `json:"name"`
	Price     *float64 `json:"price"`
	ImageURL  *string  `json:"image_url"`
	Remaining *uint    `json:"remaining"`
}

type ProductListResponse struct {
	Data []models.Product `json:"data"`
	Meta ListMeta         `json:"meta"`
}

type ListMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
	HasPrev    bool  `json:"has_prev"`
	HasNext    bool  `json:"has_next"`
}
