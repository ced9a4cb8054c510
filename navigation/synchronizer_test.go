package navigation

import (
	"sort"
	"sync"
	"testing"
	"time"
)

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.clock.leaky {
		return false
	}
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

// fakeClock fires timers only when advanced. A leaky clock ignores Stop to
// emulate a timer that fired while a newer task was being scheduled.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	timers []*fakeTimer
	leaky  bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	t := &fakeTimer{clock: c, at: c.now + d, seq: c.seq, fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()
	for {
		c.mu.Lock()
		var due []*fakeTimer
		for _, t := range c.timers {
			if !t.fired && !t.stopped && t.at <= target {
				due = append(due, t)
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.Slice(due, func(i, j int) bool {
			if due[i].at == due[j].at {
				return due[i].seq < due[j].seq
			}
			return due[i].at < due[j].at
		})
		next := due[0]
		next.fired = true
		c.now = next.at
		c.mu.Unlock()
		next.fn()
	}
}

type fakeHost struct {
	sections map[string]Rect
	tabs     map[string]Rect
	strip    *Rect
	scrollY  float64

	scrolls    []float64
	tabReveals []string
}

func newFakeHost() *fakeHost {
	return &fakeHost{sections: map[string]Rect{}, tabs: map[string]Rect{}}
}

func (h *fakeHost) SectionRect(id string) (Rect, bool) {
	r, ok := h.sections[id]
	return r, ok
}

func (h *fakeHost) TabRect(id string) (Rect, bool) {
	r, ok := h.tabs[id]
	return r, ok
}

func (h *fakeHost) TabStripRect() (Rect, bool) {
	if h.strip == nil {
		return Rect{}, false
	}
	return *h.strip, true
}

func (h *fakeHost) ScrollY() float64            { return h.scrollY }
func (h *fakeHost) SmoothScrollTo(top float64)  { h.scrolls = append(h.scrolls, top) }
func (h *fakeHost) ScrollTabIntoView(id string) { h.tabReveals = append(h.tabReveals, id) }

type fakeReporter struct {
	subs map[string]func(Entry)
}

func (r *fakeReporter) Subscribe(id string, fn func(Entry)) { r.subs[id] = fn }
func (r *fakeReporter) Unsubscribe(id string)               { delete(r.subs, id) }

func (r *fakeReporter) emit(id string, ratio float64) {
	if fn := r.subs[id]; fn != nil {
		fn(Entry{SectionID: id, Ratio: ratio, Intersecting: ratio > 0})
	}
}

func newTestSynchronizer(t *testing.T, ids ...string) (*Synchronizer, *fakeHost, *fakeReporter, *fakeClock) {
	t.Helper()
	host := newFakeHost()
	rep := &fakeReporter{subs: map[string]func(Entry){}}
	clock := &fakeClock{}
	s := New(host, rep, clock, DefaultConfig())
	s.Start(ids)
	return s, host, rep, clock
}

func TestStartActivatesFirstCategory(t *testing.T) {
	s, _, rep, _ := newTestSynchronizer(t, "bebidas", "postres")
	st := s.State()
	if st.ActiveCategoryID != "bebidas" || st.Phase != AutoTracking {
		t.Fatalf("unexpected state %+v", st)
	}
	if len(rep.subs) != 2 {
		t.Fatalf("expected 2 subscriptions, got %d", len(rep.subs))
	}
}

func TestStartWithoutCategoriesIsIdle(t *testing.T) {
	s, _, _, _ := newTestSynchronizer(t)
	s.Select("x", SourceTab)
	if st := s.State(); st.Phase != Idle || st.ActiveCategoryID != "" {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestVisibilityPicksHighestRatio(t *testing.T) {
	s, _, rep, _ := newTestSynchronizer(t, "a", "b", "c")
	rep.emit("b", 0.4)
	rep.emit("c", 0.7)
	if got := s.State().ActiveCategoryID; got != "c" {
		t.Fatalf("expected c, got %s", got)
	}
	rep.emit("c", 0)
	if got := s.State().ActiveCategoryID; got != "b" {
		t.Fatalf("expected b after c left, got %s", got)
	}
}

func TestVisibilityBelowThresholdIsIgnored(t *testing.T) {
	s, _, rep, _ := newTestSynchronizer(t, "a", "b")
	rep.emit("b", 0.05)
	if got := s.State().ActiveCategoryID; got != "a" {
		t.Fatalf("expected a, got %s", got)
	}
}

func TestVisibilityTieGoesToEarlierCategory(t *testing.T) {
	s, _, rep, _ := newTestSynchronizer(t, "a", "b", "c")
	rep.emit("c", 0.5)
	rep.emit("b", 0.5)
	if got := s.State().ActiveCategoryID; got != "b" {
		t.Fatalf("expected b, got %s", got)
	}
}

func TestSelectScrollsOnceAndOverrides(t *testing.T) {
	s, host, rep, _ := newTestSynchronizer(t, "a", "b", "c")
	host.scrollY = 200
	host.sections["c"] = Rect{Top: 900, Bottom: 1400}

	s.Select("c", SourceTab)

	st := s.State()
	if st.ActiveCategoryID != "c" || st.Phase != ManualOverride || !st.ManualOverrideActive {
		t.Fatalf("unexpected state %+v", st)
	}
	if len(host.scrolls) != 1 {
		t.Fatalf("expected exactly one scroll, got %v", host.scrolls)
	}
	if want := 900.0 + 200 - (56 + 68 + 16); host.scrolls[0] != want {
		t.Fatalf("expected scroll target %v, got %v", want, host.scrolls[0])
	}

	// the smooth scroll passes through b
	rep.emit("b", 0.9)
	if got := s.State().ActiveCategoryID; got != "c" {
		t.Fatalf("override should hold c, got %s", got)
	}
}

func TestSelectSameOrUnknownIsNoop(t *testing.T) {
	s, host, _, clock := newTestSynchronizer(t, "a", "b")
	host.sections["a"] = Rect{Top: 10, Bottom: 20}
	s.Select("a", SourceTab)
	s.Select("zzz", SourceTab)
	if len(host.scrolls) != 0 {
		t.Fatalf("expected no scrolls, got %v", host.scrolls)
	}
	if st := s.State(); st.Phase != AutoTracking {
		t.Fatalf("expected auto tracking, got %v", st.Phase)
	}
	if len(clock.timers) != 0 {
		t.Fatalf("expected no timers, got %d", len(clock.timers))
	}
}

func TestSelectWithMissingSectionSkipsScroll(t *testing.T) {
	s, host, _, _ := newTestSynchronizer(t, "a", "b")
	s.Select("b", SourceExternal)
	if len(host.scrolls) != 0 {
		t.Fatalf("expected no scroll, got %v", host.scrolls)
	}
	if got := s.State().ActiveCategoryID; got != "b" {
		t.Fatalf("expected b, got %s", got)
	}
}

func TestOverrideSettles(t *testing.T) {
	s, host, rep, clock := newTestSynchronizer(t, "a", "b", "c")
	host.sections["c"] = Rect{Top: 900}
	s.Select("c", SourceTab)

	clock.Advance(999 * time.Millisecond)
	if st := s.State(); st.Phase != ManualOverride {
		t.Fatalf("expected override before settle, got %v", st.Phase)
	}
	clock.Advance(time.Millisecond)
	if st := s.State(); st.Phase != AutoTracking || st.ManualOverrideActive {
		t.Fatalf("expected auto tracking after settle, got %+v", st)
	}
	rep.emit("b", 0.8)
	if got := s.State().ActiveCategoryID; got != "b" {
		t.Fatalf("expected b after settle, got %s", got)
	}
}

func TestStaleSettleDoesNotEndNewerOverride(t *testing.T) {
	s, host, rep, clock := newTestSynchronizer(t, "a", "b", "c")
	clock.leaky = true
	host.sections["b"] = Rect{Top: 500}
	host.sections["c"] = Rect{Top: 900}

	s.Select("b", SourceTab)
	clock.Advance(500 * time.Millisecond)
	s.Select("c", SourceTab)

	clock.Advance(600 * time.Millisecond) // first timer fires here
	if st := s.State(); st.Phase != ManualOverride {
		t.Fatalf("stale timer ended the override: %+v", st)
	}
	rep.emit("a", 0.9)
	if got := s.State().ActiveCategoryID; got != "c" {
		t.Fatalf("expected c, got %s", got)
	}

	clock.Advance(400 * time.Millisecond)
	if st := s.State(); st.Phase != AutoTracking {
		t.Fatalf("expected auto tracking, got %v", st.Phase)
	}
}

func TestTabBarVisibility(t *testing.T) {
	s, host, _, _ := newTestSynchronizer(t, "a", "b")

	host.sections["a"] = Rect{Top: 300, Bottom: 800}
	host.sections["b"] = Rect{Top: 800, Bottom: 1400}
	s.OnScroll()
	if s.State().TabBarVisible {
		t.Fatal("tab bar should be hidden above the first section")
	}

	host.sections["a"] = Rect{Top: 100, Bottom: 600}
	host.sections["b"] = Rect{Top: 600, Bottom: 1200}
	s.OnScroll()
	if !s.State().TabBarVisible {
		t.Fatal("tab bar should show inside the menu")
	}

	host.sections["a"] = Rect{Top: -1200, Bottom: -700}
	host.sections["b"] = Rect{Top: -700, Bottom: 100}
	s.OnScroll()
	if s.State().TabBarVisible {
		t.Fatal("tab bar should be hidden below the last section")
	}
}

func TestScrollingFlagClearsWhenIdle(t *testing.T) {
	s, _, _, clock := newTestSynchronizer(t, "a")
	s.OnScroll()
	clock.Advance(100 * time.Millisecond)
	s.OnScroll()
	clock.Advance(100 * time.Millisecond)
	if !s.State().IsScrolling {
		t.Fatal("expected scrolling")
	}
	clock.Advance(50 * time.Millisecond)
	if s.State().IsScrolling {
		t.Fatal("expected scrolling flag cleared")
	}
}

func TestTabRevealOutsideStrip(t *testing.T) {
	_, host, rep, _ := newTestSynchronizer(t, "a", "b", "c")
	host.strip = &Rect{Left: 0, Right: 320}
	host.tabs["b"] = Rect{Left: 100, Right: 200}
	host.tabs["c"] = Rect{Left: 300, Right: 420}

	rep.emit("b", 0.6)
	if len(host.tabReveals) != 0 {
		t.Fatalf("visible tab should not scroll, got %v", host.tabReveals)
	}
	rep.emit("c", 0.9)
	if len(host.tabReveals) != 1 || host.tabReveals[0] != "c" {
		t.Fatalf("expected c revealed, got %v", host.tabReveals)
	}
}

func TestTabRevealSkippedDuringStripInteraction(t *testing.T) {
	s, host, rep, clock := newTestSynchronizer(t, "a", "b", "c")
	host.strip = &Rect{Left: 0, Right: 320}
	host.tabs["c"] = Rect{Left: 300, Right: 420}
	host.tabs["b"] = Rect{Left: 400, Right: 500}

	s.OnTabStripScroll()
	rep.emit("c", 0.9)
	if len(host.tabReveals) != 0 {
		t.Fatalf("reveal during strip interaction: %v", host.tabReveals)
	}

	clock.Advance(800 * time.Millisecond)
	rep.emit("b", 1)
	if len(host.tabReveals) != 1 || host.tabReveals[0] != "b" {
		t.Fatalf("expected b revealed after strip settled, got %v", host.tabReveals)
	}
}

func TestExternalSelectRevealsTab(t *testing.T) {
	s, host, _, _ := newTestSynchronizer(t, "a", "b")
	host.strip = &Rect{Left: 0, Right: 320}
	host.tabs["b"] = Rect{Left: 310, Right: 400}
	s.Select("b", SourceExternal)
	if len(host.tabReveals) != 1 {
		t.Fatalf("expected tab reveal, got %v", host.tabReveals)
	}

	s2, host2, _, _ := newTestSynchronizer(t, "a", "b")
	host2.strip = &Rect{Left: 0, Right: 320}
	host2.tabs["b"] = Rect{Left: 310, Right: 400}
	s2.Select("b", SourceTab)
	if len(host2.tabReveals) != 0 {
		t.Fatalf("tab click should not scroll the strip, got %v", host2.tabReveals)
	}
}

func TestOnChangeReceivesTransitions(t *testing.T) {
	s, host, _, clock := newTestSynchronizer(t, "a", "b")
	host.sections["b"] = Rect{Top: 700}

	var seen []State
	unsubscribe := s.OnChange(func(st State) { seen = append(seen, st) })

	s.Select("b", SourceTab)
	clock.Advance(time.Second)
	if len(seen) != 2 {
		t.Fatalf("expected 2 transitions, got %d: %+v", len(seen), seen)
	}
	if seen[0].Phase != ManualOverride || seen[1].Phase != AutoTracking {
		t.Fatalf("unexpected transitions %+v", seen)
	}

	unsubscribe()
	s.Select("a", SourceTab)
	if len(seen) != 2 {
		t.Fatalf("unsubscribed observer still notified")
	}
}

func TestStopIgnoresLaterSignals(t *testing.T) {
	s, host, rep, clock := newTestSynchronizer(t, "a", "b")
	host.sections["b"] = Rect{Top: 700}
	s.Select("b", SourceTab)
	s.Stop()

	if len(rep.subs) != 0 {
		t.Fatalf("expected subscriptions dropped, got %d", len(rep.subs))
	}
	clock.Advance(time.Second)
	s.Select("a", SourceTab)
	if st := s.State(); st.Phase != Idle {
		t.Fatalf("expected idle, got %+v", st)
	}
}

func TestClickScenarioEndToEnd(t *testing.T) {
	s, host, rep, clock := newTestSynchronizer(t, "entradas", "principales", "postres")
	host.sections["entradas"] = Rect{Top: 150, Bottom: 650}
	host.sections["principales"] = Rect{Top: 650, Bottom: 1150}
	host.sections["postres"] = Rect{Top: 1150, Bottom: 1650}

	s.Select("postres", SourceTab)
	if got := s.State().ActiveCategoryID; got != "postres" {
		t.Fatalf("expected postres immediately, got %s", got)
	}

	// intermediate frames of the smooth scroll
	rep.emit("entradas", 0.2)
	rep.emit("principales", 1)
	clock.Advance(400 * time.Millisecond)
	rep.emit("principales", 0.3)
	rep.emit("postres", 0.8)

	if got := s.State().ActiveCategoryID; got != "postres" {
		t.Fatalf("highlight moved during scroll: %s", got)
	}
	if len(host.scrolls) != 1 {
		t.Fatalf("expected exactly one scroll command, got %v", host.scrolls)
	}
	clock.Advance(600 * time.Millisecond)
	if st := s.State(); st.Phase != AutoTracking || st.ActiveCategoryID != "postres" {
		t.Fatalf("unexpected final state %+v", st)
	}
}

func TestPhaseMarshalsByName(t *testing.T) {
	b, err := ManualOverride.MarshalText()
	if err != nil || string(b) != "manual-override" {
		t.Fatalf("unexpected %q %v", b, err)
	}
}
