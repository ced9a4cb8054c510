package navigation

import "sync"

// Command types sent back to the browser.
const (
	CommandScrollTo          = "scroll-to"
	CommandScrollTabIntoView = "scroll-tab-into-view"
)

// Command is a scroll instruction for the browser.
type Command struct {
	Type       string  `json:"type"`
	Top        float64 `json:"top,omitempty"`
	CategoryID string  `json:"categoryId,omitempty"`
	Behavior   string  `json:"behavior"`
	Block      string  `json:"block,omitempty"`
}

// Geometry is a layout snapshot reported by the browser. Nil maps leave the
// previous values in place.
type Geometry struct {
	ScrollY  *float64        `json:"scrollY,omitempty"`
	Sections map[string]Rect `json:"sections,omitempty"`
	Tabs     map[string]Rect `json:"tabs,omitempty"`
	TabStrip *Rect           `json:"tabStrip,omitempty"`
}

// RemoteHost is a Host and VisibilityReporter backed by snapshots the browser
// pushes to the server. Scroll effects are forwarded to send.
type RemoteHost struct {
	send func(Command)

	mu       sync.RWMutex
	scrollY  float64
	sections map[string]Rect
	tabs     map[string]Rect
	strip    *Rect
	subs     map[string]func(Entry)
}

// NewRemoteHost returns a host that forwards scroll commands to send.
func NewRemoteHost(send func(Command)) *RemoteHost {
	if send == nil {
		send = func(Command) {}
	}
	return &RemoteHost{
		send:     send,
		sections: map[string]Rect{},
		tabs:     map[string]Rect{},
		subs:     map[string]func(Entry){},
	}
}

// UpdateGeometry merges g into the stored layout.
func (h *RemoteHost) UpdateGeometry(g Geometry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if g.ScrollY != nil {
		h.scrollY = *g.ScrollY
	}
	for id, r := range g.Sections {
		h.sections[id] = r
	}
	for id, r := range g.Tabs {
		h.tabs[id] = r
	}
	if g.TabStrip != nil {
		r := *g.TabStrip
		h.strip = &r
	}
}

// Report delivers visibility entries to the subscribed sections. Entries for
// sections nobody subscribed to are dropped.
func (h *RemoteHost) Report(entries []Entry) {
	for _, e := range entries {
		h.mu.RLock()
		fn := h.subs[e.SectionID]
		h.mu.RUnlock()
		if fn != nil {
			fn(e)
		}
	}
}

func (h *RemoteHost) Subscribe(sectionID string, fn func(Entry)) {
	h.mu.Lock()
	h.subs[sectionID] = fn
	h.mu.Unlock()
}

func (h *RemoteHost) Unsubscribe(sectionID string) {
	h.mu.Lock()
	delete(h.subs, sectionID)
	h.mu.Unlock()
}

func (h *RemoteHost) SectionRect(categoryID string) (Rect, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.sections[categoryID]
	return r, ok
}

func (h *RemoteHost) TabRect(categoryID string) (Rect, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.tabs[categoryID]
	return r, ok
}

func (h *RemoteHost) TabStripRect() (Rect, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.strip == nil {
		return Rect{}, false
	}
	return *h.strip, true
}

func (h *RemoteHost) ScrollY() float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.scrollY
}

func (h *RemoteHost) SmoothScrollTo(top float64) {
	h.send(Command{Type: CommandScrollTo, Top: top, Behavior: "smooth"})
}

func (h *RemoteHost) ScrollTabIntoView(categoryID string) {
	h.send(Command{Type: CommandScrollTabIntoView, CategoryID: categoryID, Behavior: "smooth", Block: "center"})
}
