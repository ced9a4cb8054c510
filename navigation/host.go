package navigation

import "time"

// Rect is an element's bounding box in viewport coordinates.
type Rect struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// containsX reports whether inner lies entirely within r on the horizontal axis.
func (r Rect) containsX(inner Rect) bool {
	return inner.Left >= r.Left && inner.Right <= r.Right
}

// Entry is one visibility observation for a category section.
type Entry struct {
	SectionID    string  `json:"sectionId"`
	Ratio        float64 `json:"ratio"`
	Intersecting bool    `json:"intersecting"`
}

// VisibilityReporter delivers visibility observations per section. Subscribe
// replaces any previous callback for the same section.
type VisibilityReporter interface {
	Subscribe(sectionID string, fn func(Entry))
	Unsubscribe(sectionID string)
}

// Host exposes the page geometry and the scroll primitives of the browser.
// Query methods may be called while the Synchronizer holds its lock and must
// not call back into it. A false result means the element is not rendered.
type Host interface {
	SectionRect(categoryID string) (Rect, bool)
	TabRect(categoryID string) (Rect, bool)
	TabStripRect() (Rect, bool)
	ScrollY() float64
	SmoothScrollTo(top float64)
	ScrollTabIntoView(categoryID string)
}

// Timer is a pending deferred task.
type Timer interface {
	Stop() bool
}

// Clock schedules deferred tasks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock schedules tasks on the runtime timers.
func RealClock() Clock { return realClock{} }
