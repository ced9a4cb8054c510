package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"menu-api/catalog"
	"menu-api/domain"
	"menu-api/navigation"
	"menu-api/storage"
)

// Server owns the background work started by Register.
type Server struct {
	sessions *sessionStore
	orders   *orderSender
	cancel   context.CancelFunc
}

// Register wires up all API routes on the provided Echo instance and starts
// the session sweeper and the order notification pool.
func Register(e *echo.Echo, store Catalog, publisher OrderPublisher, deduper Deduper, logger *log.Logger, opts Options) *Server {
	sessions := newSessionStore(opts.SessionTTL, opts.Navigation, opts.Clock, logger)
	orders := newOrderSender(publisher, deduper, logger, opts.Notify)
	ctx, cancel := context.WithCancel(context.Background())
	go sessions.run(ctx)

	g := e.Group("/api", GzipRequestMiddleware())
	g.GET("/businesses/:id/menu", getMenu(store, logger))
	g.POST("/sessions", postSession(store, sessions))

	g.GET("/sessions/:sid/categories/:categoryId/items", getCategoryItems(sessions))

	g.GET("/sessions/:sid/cart", getCart(sessions))
	g.DELETE("/sessions/:sid/cart", deleteCart(sessions))
	g.POST("/sessions/:sid/cart/items", postCartItem(sessions))
	g.PUT("/sessions/:sid/cart/items/:itemId", putCartItem(sessions))
	g.DELETE("/sessions/:sid/cart/items/:itemId", deleteCartItem(sessions))
	g.POST("/sessions/:sid/cart/toggle", postToggleCart(sessions))
	g.POST("/sessions/:sid/cart/confirm", postConfirmOrder(sessions, deduper, orders))

	g.GET("/sessions/:sid/navigation", getNavigation(sessions))
	g.POST("/sessions/:sid/navigation/events", postNavigationEvents(sessions))
	g.GET("/sessions/:sid/stream", streamSession(sessions))

	e.GET("/healthz", healthz())

	return &Server{sessions: sessions, orders: orders, cancel: cancel}
}

// Shutdown closes all sessions and drains pending order notifications.
func (s *Server) Shutdown() {
	s.cancel()
	s.sessions.closeAll()
	s.orders.shutdown()
}

func healthz() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}
}

// fetchMenu loads the business and its available products and derives the
// menu.
func fetchMenu(ctx context.Context, store Catalog, businessID string) (domain.Business, []domain.Product, error) {
	business, err := store.FetchBusiness(ctx, businessID)
	if err != nil {
		return domain.Business{}, nil, err
	}
	products, err := store.FetchAvailableProducts(ctx, businessID)
	if err != nil {
		return domain.Business{}, nil, err
	}
	return business, products, nil
}

func getMenu(store Catalog, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		businessID := c.Param("id")
		metrics, ctx := newMenuRequestMetrics(c.Request().Context(), logger, businessID)
		c.SetRequest(c.Request().WithContext(ctx))
		var failure error
		defer func() {
			if failure == nil {
				failure = err
			}
			metrics.Log(c.Response().Status, failure)
		}()

		if refresh, _ := strconv.ParseBool(c.QueryParam("refresh")); refresh {
			if ev, ok := store.(catalogEvicter); ok {
				ev.Evict(ctx, businessID)
			}
		}

		fetchStart := time.Now()
		business, products, fetchErr := fetchMenu(ctx, store, businessID)
		metrics.ObserveFetch(time.Since(fetchStart))
		if fetchErr != nil {
			if errors.Is(fetchErr, storage.ErrNotFound) {
				metrics.SetErrorStage("not_found")
				return c.String(http.StatusNotFound, "business not found")
			}
			metrics.SetErrorStage("storage")
			failure = fetchErr
			c.Logger().Error(fetchErr)
			return c.String(http.StatusInternalServerError, "failed to load menu")
		}

		buildStart := time.Now()
		menu := catalog.Build(business, products)
		metrics.ObserveBuild(time.Since(buildStart))
		metrics.SetReturned(len(menu.Categories), len(menu.Items))

		if err = c.JSON(http.StatusOK, menu); err != nil {
			metrics.SetErrorStage("encode_response")
		}
		return err
	}
}

type createSessionRequest struct {
	BusinessID string `json:"businessId"`
}

type sessionResponse struct {
	SessionID  string           `json:"sessionId"`
	Menu       *catalog.Menu    `json:"menu"`
	Navigation navigation.State `json:"navigation"`
	Cart       cartView         `json:"cart"`
}

func postSession(store Catalog, sessions *sessionStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createSessionRequest
		if err := decodeBody(c, &req, false); err != nil || req.BusinessID == "" {
			return c.String(http.StatusBadRequest, "invalid body")
		}

		business, products, err := fetchMenu(c.Request().Context(), store, req.BusinessID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return c.String(http.StatusNotFound, "business not found")
			}
			c.Logger().Error(err)
			return c.String(http.StatusInternalServerError, "failed to load menu")
		}

		s := sessions.create(catalog.Build(business, products))
		return c.JSON(http.StatusCreated, sessionResponse{
			SessionID:  s.id,
			Menu:       s.menu,
			Navigation: s.nav.State(),
			Cart:       newCartView(s.cart.State()),
		})
	}
}

// getCategoryItems lists the items of one category of the session's menu.
func getCategoryItems(sessions *sessionStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := sessions.get(c.Param("sid"))
		if err != nil {
			return c.String(http.StatusNotFound, err.Error())
		}
		categoryID := c.Param("categoryId")
		for _, cat := range s.menu.Categories {
			if cat.ID == categoryID {
				return c.JSON(http.StatusOK, s.menu.ItemsIn(categoryID))
			}
		}
		return c.String(http.StatusNotFound, "category not found")
	}
}

// decodeBody decodes a JSON body with unknown fields rejected. An empty body
// is accepted when optional is set.
func decodeBody(c echo.Context, v any, optional bool) error {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, maxBodySize))
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		if optional {
			return nil
		}
		return io.ErrUnexpectedEOF
	}
	dec := sonic.ConfigStd.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
