package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"menu-api/navigation"
)

// Navigation event types reported by the browser.
const (
	navEventGeometry    = "geometry"
	navEventVisibility  = "visibility"
	navEventScroll      = "scroll"
	navEventSelect      = "select"
	navEventStripScroll = "strip-scroll"
)

type navigationEvent struct {
	Type       string               `json:"type"`
	Geometry   *navigation.Geometry `json:"geometry,omitempty"`
	Entries    []navigation.Entry   `json:"entries,omitempty"`
	CategoryID string               `json:"categoryId,omitempty"`
	Source     string               `json:"source,omitempty"`
}

func (ev navigationEvent) validate() error {
	switch ev.Type {
	case navEventGeometry:
		if ev.Geometry == nil {
			return errors.New("geometry event without geometry")
		}
	case navEventVisibility, navEventScroll, navEventStripScroll:
	case navEventSelect:
		if ev.CategoryID == "" {
			return errors.New("select event without categoryId")
		}
		if _, err := parseSource(ev.Source); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}

func parseSource(s string) (navigation.Source, error) {
	switch s {
	case "", "tab":
		return navigation.SourceTab, nil
	case "external":
		return navigation.SourceExternal, nil
	default:
		return 0, fmt.Errorf("unknown source %q", s)
	}
}

func getNavigation(sessions *sessionStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := sessions.get(c.Param("sid"))
		if err != nil {
			return c.String(http.StatusNotFound, err.Error())
		}
		return c.JSON(http.StatusOK, s.nav.State())
	}
}

// postNavigationEvents applies a batch of browser events in order. The batch
// is validated as a whole before any event is applied.
func postNavigationEvents(sessions *sessionStore) echo.HandlerFunc {
	return func(c echo.Context) error {
		s, err := sessions.get(c.Param("sid"))
		if err != nil {
			return c.String(http.StatusNotFound, err.Error())
		}

		events := make([]navigationEvent, 0, 4)
		if err := decodeBody(c, &events, false); err != nil {
			return c.String(http.StatusBadRequest, "invalid body")
		}
		for _, ev := range events {
			if err := ev.validate(); err != nil {
				return c.String(http.StatusBadRequest, err.Error())
			}
		}

		for _, ev := range events {
			if ev.Geometry != nil {
				s.host.UpdateGeometry(*ev.Geometry)
				s.nav.OnGeometry()
			}
			switch ev.Type {
			case navEventVisibility:
				s.host.Report(ev.Entries)
			case navEventScroll:
				s.nav.OnScroll()
			case navEventSelect:
				src, _ := parseSource(ev.Source)
				s.nav.Select(ev.CategoryID, src)
			case navEventStripScroll:
				s.nav.OnTabStripScroll()
			}
		}
		return c.JSON(http.StatusOK, s.nav.State())
	}
}
