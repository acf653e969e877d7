package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/skvortsov/storefront/internal/logging"
	"github.com/skvortsov/storefront/internal/service"
	"github.com/skvortsov/storefront/internal/transport"
)

type CartHTTP struct {
	Svc *service.CartService
}

func (h *CartHTTP) GetCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "get.cart")

	uid, err := userID(c)
	if err != nil {
		l.Error("get_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, transport.ErrorResponse{Error: "unauthorized"})
	}

	cart, err := h.Svc.GetCart(ctx, uid)
	if err != nil {
		l.Error("get_cart_error", "error", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, cart)
}

func (h *CartHTTP) AddToCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "add.cart")

	uid, err := userID(c)
	if err != nil {
		l.Error("add_to_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, transport.ErrorResponse{Error: "unauthorized"})
	}

	var req transport.AddToCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("add_to_cart_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, transport.ErrorResponse{Error: "invalid body"})
	}

	item, err := h.Svc.AddToCart(ctx, uid, req.ProductID, req.Quantity)
	if err != nil {
		l.Warn("add_to_cart_error", "error", err)
		return writeError(c, err)
	}

	l.Info("cart_item_added", "product_id", req.ProductID, "quantity", item.Quantity)
	return c.JSON(http.StatusCreated, item)
}

func (h *CartHTTP) SetQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "set.quantity")

	uid, err := userID(c)
	if err != nil {
		l.Error("set_quantity_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, transport.ErrorResponse{Error: "unauthorized"})
	}

	var req transport.SetQuantityRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("set_quantity_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, transport.ErrorResponse{Error: "invalid body"})
	}

	item, removed, err := h.Svc.SetQuantity(ctx, uid, req.ProductID, req.Quantity)
	if err != nil {
		l.Warn("set_quantity_error", "error", err)
		return writeError(c, err)
	}

	if removed {
		l.Info("cart_item_removed", "product_id", req.ProductID)
		return c.JSON(http.StatusOK, transport.RemoveFromCartResponse{ProductID: req.ProductID})
	}
	l.Info("cart_quantity_set", "product_id", req.ProductID, "quantity", item.Quantity)
	return c.JSON(http.StatusOK, item)
}

func (h *CartHTTP) RemoveFromCart(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "remove.cart")

	uid, err := userID(c)
	if err != nil {
		l.Error("remove_from_cart_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, transport.ErrorResponse{Error: "unauthorized"})
	}

	var req transport.RemoveFromCartRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("remove_from_cart_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, transport.ErrorResponse{Error: "invalid body"})
	}

	freed, err := h.Svc.RemoveFromCart(ctx, uid, req.ProductID)
	if err != nil {
		l.Warn("remove_from_cart_error", "error", err)
		return writeError(c, err)
	}

	l.Info("cart_item_removed", "product_id", req.ProductID, "freed", freed)
	return c.JSON(http.StatusOK, transport.RemoveFromCartResponse{ProductID: req.ProductID, Freed: freed})
}

func (h *CartHTTP) Checkout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "checkout.cart")

	uid, err := userID(c)
	if err != nil {
		l.Error("checkout_error", "status", 401, "error", err)
		return c.JSON(http.StatusUnauthorized, transport.ErrorResponse{Error: "unauthorized"})
	}

	var req transport.CheckoutRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("checkout_error", "status", 400, "error", err)
		return c.JSON(http.StatusBadRequest, transport.ErrorResponse{Error: "invalid body"})
	}

	if err := h.Svc.Checkout(ctx, uid, req.CartID); err != nil {
		l.Warn("checkout_error", "error", err)
		return writeError(c, err)
	}

	l.Info("cart_checked_out", "cart_id", req.CartID)
	return c.JSON(http.StatusOK, map[string]string{"message": "cart checked out"})
}
