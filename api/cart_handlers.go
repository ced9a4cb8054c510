package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"menu-api/cart"
	"menu-api/domain"
)

const headerIdempotencyKey = "Idempotency-Key"

type addItemRequest struct {
	ItemID string `json:"itemId"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

type toggleCartRequest struct {
	Open *bool `json:"open"`
}

func getCart(sessions *sessionStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := sessions.get(c.Param("sid"))
		if err != nil {
			return c.String(http.StatusNotFound, err.Error())
		}
		return c.JSON(http.StatusOK, newCartView(s.cart.State()))
	}
}

// postCartItem adds one unit of a menu item. Ids that are not on the
// session's menu leave the cart unchanged.
func postCartItem(sessions *sessionStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := sessions.get(c.Param("sid"))
		if err != nil {
			return c.String(http.StatusNotFound, err.Error())
		}
		var req addItemRequest
		if err := decodeBody(c, &req, false); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		item, ok := s.menu.Item(req.ItemID)
		if !ok {
			return c.JSON(http.StatusOK, newCartView(s.cart.State()))
		}
		return c.JSON(http.StatusOK, newCartView(s.cart.AddItem(item)))
	}
}

func putCartItem(sessions *sessionStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := sessions.get(c.Param("sid"))
		if err != nil {
			return c.String(http.StatusNotFound, err.Error())
		}
		var req setQuantityRequest
		if err := decodeBody(c, &req, false); err != nil || req.Quantity == nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		return c.JSON(http.StatusOK, newCartView(s.cart.SetQuantity(c.Param("itemId"), *req.Quantity)))
	}
}

func deleteCartItem(sessions *sessionStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := sessions.get(c.Param("sid"))
		if err != nil {
			return c.String(http.StatusNotFound, err.Error())
		}
		return c.JSON(http.StatusOK, newCartView(s.cart.RemoveItem(c.Param("itemId"))))
	}
}

func deleteCart(sessions *sessionStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := sessions.get(c.Param("sid"))
		if err != nil {
			return c.String(http.StatusNotFound, err.Error())
		}
		return c.JSON(http.StatusOK, newCartView(s.cart.Clear()))
	}
}

func postToggleCart(sessions *sessionStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := sessions.get(c.Param("sid"))
		if err != nil {
			return c.String(http.StatusNotFound, err.Error())
		}
		var req toggleCartRequest
		if err := decodeBody(c, &req, true); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		return c.JSON(http.StatusOK, newCartView(s.cart.Toggle(req.Open)))
	}
}

// postConfirmOrder confirms the cart and publishes the order. A repeated
// Idempotency-Key is rejected before the cart is touched.
func postConfirmOrder(sessions *sessionStore, deduper Deduper, orders *orderSender) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := sessions.get(c.Param("sid"))
		if err != nil {
			return c.String(http.StatusNotFound, err.Error())
		}
		ctx := c.Request().Context()

		key := ""
		if deduper != nil {
			key = strings.TrimSpace(c.Request().Header.Get(headerIdempotencyKey))
		}
		if key != "" {
			added, err := deduper.Add(ctx, s.id, key)
			if err != nil {
				c.Logger().Error(err)
				return c.String(http.StatusInternalServerError, "failed to record idempotency key")
			}
			if !added {
				return c.String(http.StatusConflict, "order already confirmed")
			}
		}

		conf, err := s.cart.ConfirmOrder()
		if err != nil {
			if key != "" {
				if rerr := deduper.Remove(context.Background(), s.id, key); rerr != nil {
					c.Logger().Errorf("dedupe rollback failed: %v", rerr)
				}
			}
			if errors.Is(err, cart.ErrEmptyCart) {
				return c.String(http.StatusUnprocessableEntity, err.Error())
			}
			return c.String(http.StatusInternalServerError, err.Error())
		}

		order := domain.OrderConfirmation{
			ID:          uuid.NewString(),
			SessionID:   s.id,
			BusinessID:  s.menu.Business.ID,
			Items:       conf.Items,
			Summary:     conf.Summary,
			ConfirmedAt: nextTimestamp(),
		}
		// The cart is already cleared; a failed notification is only logged.
		if err := orders.send(orderJob{order: order, key: key}); err != nil {
			c.Logger().Errorf("order publish failed: %v", err)
		}
		return c.JSON(http.StatusCreated, order)
	}
}
