package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skvortsov/storefront/internal/events"
	"github.com/skvortsov/storefront/internal/logging"
	"github.com/skvortsov/storefront/internal/models"
	"github.com/skvortsov/storefront/internal/repo"
	"github.com/skvortsov/storefront/internal/transport"
)

// CatalogService owns product CRUD. Admin writes go straight to the product
// row and are trusted to correct stock; the cart invariant is not enforced
// here.
type CatalogService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	prod, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, mapStoreErr("get product", err)
	}
	return prod, nil
}

func (s *CatalogService) GetProducts(ctx context.Context, offset, limit int) (int64, []models.Product, error) {
	total, items, err := s.Repo.GetProducts(ctx, offset, limit)
	if err != nil {
		return 0, nil, mapStoreErr("list products", err)
	}
	return total, items, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, req transport.CreateProductRequest) (*models.Product, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("name required: %w", ErrValidation)
	}
	if req.Price < 0 {
		return nil, fmt.Errorf("price must not be negative: %w", ErrValidation)
	}

	prod := models.Product{
		Name:      req.Name,
		Price:     req.Price,
		ImageURL:  req.ImageURL,
		Remaining: req.Remaining,
	}
	if err := s.Repo.CreateProduct(ctx, &prod); err != nil {
		return nil, mapStoreErr("create product", err)
	}

	s.publishProduct(ctx, map[string]any{
		"type":       "product_created",
		"product_id": prod.ID,
		"name":       prod.Name,
	})
	return &prod, nil
}

func (s *CatalogService) PatchProduct(ctx context.Context, req transport.PatchProductRequest, id uint) (*models.Product, error) {
	if req.Price != nil && *req.Price < 0 {
		return nil, fmt.Errorf("price must not be negative: %w", ErrValidation)
	}

	prod, err := s.Repo.PatchProduct(ctx, req, id)
	if err != nil {
		return nil, mapStoreErr("patch product", err)
	}

	s.publishProduct(ctx, map[string]any{
		"type":       "product_updated",
		"product_id": prod.ID,
		"name":       prod.Name,
	})
	return prod, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return mapStoreErr("delete product", err)
	}

	s.publishProduct(ctx, map[string]any{
		"type":       "product_deleted",
		"product_id": id,
	})
	return nil
}

func (s *CatalogService) publishProduct(ctx context.Context, event map[string]any) {
	if s.Events == nil {
		return
	}
	event["event_id"] = uuid.NewString()
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Events.Publish(pctx, "product_events", fmt.Sprint(event["product_id"]), event); err != nil {
		logging.FromContext(ctx).Error("event publish error", "topic", "product_events", "error", err)
	}
}
