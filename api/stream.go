package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// streamSession pushes navigation, cart and scroll command events over SSE.
// The stream opens with the current navigation and cart state and ends when
// the client disconnects or the session expires.
func streamSession(sessions *sessionStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := sessions.get(c.Param("sid"))
		if err != nil {
			return c.String(http.StatusNotFound, err.Error())
		}
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}
		ch, open := s.event.subscribe()
		if !open {
			return c.String(http.StatusNotFound, ErrSessionNotFound.Error())
		}
		defer s.event.unsubscribe(ch)

		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		c.Response().WriteHeader(http.StatusOK)

		for _, snap := range []struct {
			name string
			v    any
		}{
			{eventNavigation, s.nav.State()},
			{eventCart, newCartView(s.cart.State())},
		} {
			ev, err := newSessionEvent(snap.name, snap.v)
			if err != nil {
				return err
			}
			if err := writeEvent(c.Response(), ev); err != nil {
				c.Logger().Error(err)
				return err
			}
		}
		flusher.Flush()

		ctx := c.Request().Context()
		for {
			select {
			case <-ctx.Done():
				return nil
			case ev, ok := <-ch:
				if !ok {
					return nil
				}
				if err := writeEvent(c.Response(), ev); err != nil {
					c.Logger().Error(err)
					return err
				}
				flusher.Flush()
			}
		}
	}
}

func writeEvent(w io.Writer, ev sessionEvent) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, ev.data)
	return err
}
