// Package navigation keeps the highlighted category tab in sync with the
// section the user is looking at, and scrolls to a section when the user
// picks a tab.
package navigation

import (
	"sync"
)

// Synchronizer arbitrates between passive visibility signals and explicit
// category selections. A selection suppresses visibility-driven changes for
// Config.SettleDelay so the smooth scroll it triggers does not move the
// highlight through the intermediate sections.
type Synchronizer struct {
	cfg        Config
	host       Host
	visibility VisibilityReporter
	clock      Clock

	mu         sync.Mutex
	categories []string
	order      map[string]int
	entries    map[string]Entry
	state      State
	version    uint64
	closed     bool

	overrideToken uint64
	overrideTimer Timer

	stripToken  uint64
	stripTimer  Timer
	stripActive bool

	scrollToken uint64
	scrollTimer Timer

	subsMu  sync.Mutex
	nextSub int
	subs    map[int]func(State)

	deliverMu sync.Mutex
	notified  uint64
	delivered State
	sent      bool
}

// New returns an idle synchronizer. A nil clock uses the runtime timers.
func New(host Host, visibility VisibilityReporter, clock Clock, cfg Config) *Synchronizer {
	if clock == nil {
		clock = RealClock()
	}
	return &Synchronizer{
		cfg:        cfg,
		host:       host,
		visibility: visibility,
		clock:      clock,
		order:      map[string]int{},
		entries:    map[string]Entry{},
		subs:       map[int]func(State){},
	}
}

// Start begins tracking the given categories in page order. The first
// category becomes active. Calling Start again replaces the tracked set.
func (s *Synchronizer) Start(categoryIDs []string) {
	ids := append([]string(nil), categoryIDs...)

	s.mu.Lock()
	old := s.categories
	s.stopTimersLocked()
	s.closed = false
	s.categories = ids
	s.order = make(map[string]int, len(ids))
	for i, id := range ids {
		s.order[id] = i
	}
	s.entries = make(map[string]Entry, len(ids))
	s.state = State{}
	if len(ids) > 0 {
		s.state.ActiveCategoryID = ids[0]
		s.state.Phase = AutoTracking
	}
	s.updateTabBarLocked()
	snap, version := s.commitLocked()
	s.mu.Unlock()

	if s.visibility != nil {
		for _, id := range old {
			s.visibility.Unsubscribe(id)
		}
		for _, id := range ids {
			id := id
			s.visibility.Subscribe(id, func(e Entry) {
				e.SectionID = id
				s.handleVisibility(e)
			})
		}
	}
	s.notify(snap, version)
}

// Stop cancels pending timers, drops the visibility subscriptions and moves
// the synchronizer to Idle. Signals received afterwards are ignored.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	old := s.categories
	s.closed = true
	s.stopTimersLocked()
	s.categories = nil
	s.order = map[string]int{}
	s.entries = map[string]Entry{}
	s.state = State{ActiveCategoryID: s.state.ActiveCategoryID}
	snap, version := s.commitLocked()
	s.mu.Unlock()

	if s.visibility != nil {
		for _, id := range old {
			s.visibility.Unsubscribe(id)
		}
	}
	s.notify(snap, version)
}

// Select makes id the active category and scrolls its section into place.
// Selecting the active or an unknown category does nothing.
func (s *Synchronizer) Select(id string, src Source) {
	s.mu.Lock()
	if s.closed || s.state.Phase == Idle {
		s.mu.Unlock()
		return
	}
	if _, ok := s.order[id]; !ok || id == s.state.ActiveCategoryID {
		s.mu.Unlock()
		return
	}

	var effects []func()
	if rect, ok := s.host.SectionRect(id); ok {
		target := rect.Top + s.host.ScrollY() - s.cfg.scrollOffset()
		effects = append(effects, func() { s.host.SmoothScrollTo(target) })
	}

	s.state.ActiveCategoryID = id
	s.state.Phase = ManualOverride
	s.state.ManualOverrideActive = true
	s.armOverrideLocked()

	if src == SourceTab {
		s.beginStripInteractionLocked()
	}
	if fx := s.revealTabLocked(id); fx != nil {
		effects = append(effects, fx)
	}
	snap, version := s.commitLocked()
	s.mu.Unlock()

	run(effects)
	s.notify(snap, version)
}

// OnScroll handles a page scroll event.
func (s *Synchronizer) OnScroll() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state.IsScrolling = true
	s.scrollToken++
	token := s.scrollToken
	if s.scrollTimer != nil {
		s.scrollTimer.Stop()
	}
	s.scrollTimer = s.clock.AfterFunc(s.cfg.ScrollIdleDelay, func() { s.scrollSettled(token) })
	s.updateTabBarLocked()
	snap, version := s.commitLocked()
	s.mu.Unlock()

	s.notify(snap, version)
}

// OnGeometry re-evaluates the layout-derived state after the host reports
// new section positions.
func (s *Synchronizer) OnGeometry() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.updateTabBarLocked()
	snap, version := s.commitLocked()
	s.mu.Unlock()

	s.notify(snap, version)
}

// OnTabStripScroll handles the user scrolling the tab strip itself. The
// strip is not scrolled programmatically until the interaction settles.
func (s *Synchronizer) OnTabStripScroll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.beginStripInteractionLocked()
}

// State returns the current navigation state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// OnChange registers fn to receive every state transition. Callbacks run on
// the goroutine that caused the transition, outside the synchronizer's lock.
func (s *Synchronizer) OnChange(fn func(State)) (unsubscribe func()) {
	s.subsMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subs, id)
		s.subsMu.Unlock()
	}
}

func (s *Synchronizer) handleVisibility(e Entry) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if _, ok := s.order[e.SectionID]; !ok {
		s.mu.Unlock()
		return
	}
	s.entries[e.SectionID] = e
	if s.state.Phase != AutoTracking {
		s.mu.Unlock()
		return
	}

	best := s.mostVisibleLocked()
	if best == "" || best == s.state.ActiveCategoryID {
		s.mu.Unlock()
		return
	}
	s.state.ActiveCategoryID = best
	fx := s.revealTabLocked(best)
	snap, version := s.commitLocked()
	s.mu.Unlock()

	if fx != nil {
		fx()
	}
	s.notify(snap, version)
}

// mostVisibleLocked picks the intersecting section with the highest ratio.
// Equal ratios resolve to the earlier category.
func (s *Synchronizer) mostVisibleLocked() string {
	best := ""
	bestRatio := 0.0
	for _, id := range s.categories {
		e, ok := s.entries[id]
		if !ok || !e.Intersecting || e.Ratio < s.cfg.MinRatio {
			continue
		}
		if best == "" || e.Ratio > bestRatio {
			best, bestRatio = id, e.Ratio
		}
	}
	return best
}

func (s *Synchronizer) armOverrideLocked() {
	s.overrideToken++
	token := s.overrideToken
	if s.overrideTimer != nil {
		s.overrideTimer.Stop()
	}
	s.overrideTimer = s.clock.AfterFunc(s.cfg.SettleDelay, func() { s.overrideSettled(token) })
}

func (s *Synchronizer) overrideSettled(token uint64) {
	s.mu.Lock()
	if s.closed || token != s.overrideToken || s.state.Phase != ManualOverride {
		s.mu.Unlock()
		return
	}
	s.overrideTimer = nil
	s.state.Phase = AutoTracking
	s.state.ManualOverrideActive = false
	snap, version := s.commitLocked()
	s.mu.Unlock()

	s.notify(snap, version)
}

func (s *Synchronizer) beginStripInteractionLocked() {
	s.stripToken++
	token := s.stripToken
	s.stripActive = true
	if s.stripTimer != nil {
		s.stripTimer.Stop()
	}
	s.stripTimer = s.clock.AfterFunc(s.cfg.StripSettleDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if token == s.stripToken {
			s.stripActive = false
			s.stripTimer = nil
		}
	})
}

// revealTabLocked returns the effect that centers the tab of id in the strip,
// or nil when the tab is already fully visible or the user is handling the
// strip.
func (s *Synchronizer) revealTabLocked(id string) func() {
	if s.stripActive {
		return nil
	}
	tab, ok := s.host.TabRect(id)
	if !ok {
		return nil
	}
	strip, ok := s.host.TabStripRect()
	if !ok || strip.containsX(tab) {
		return nil
	}
	return func() { s.host.ScrollTabIntoView(id) }
}

func (s *Synchronizer) scrollSettled(token uint64) {
	s.mu.Lock()
	if s.closed || token != s.scrollToken {
		s.mu.Unlock()
		return
	}
	s.scrollTimer = nil
	s.state.IsScrolling = false
	snap, version := s.commitLocked()
	s.mu.Unlock()

	s.notify(snap, version)
}

func (s *Synchronizer) updateTabBarLocked() {
	if len(s.categories) == 0 {
		return
	}
	first, ok := s.host.SectionRect(s.categories[0])
	if !ok {
		return
	}
	last, ok := s.host.SectionRect(s.categories[len(s.categories)-1])
	if !ok {
		return
	}
	threshold := s.cfg.tabBarThreshold()
	s.state.TabBarVisible = first.Top <= threshold && last.Bottom >= threshold
}

func (s *Synchronizer) stopTimersLocked() {
	for _, t := range []Timer{s.overrideTimer, s.stripTimer, s.scrollTimer} {
		if t != nil {
			t.Stop()
		}
	}
	s.overrideTimer, s.stripTimer, s.scrollTimer = nil, nil, nil
	s.overrideToken++
	s.stripToken++
	s.scrollToken++
	s.stripActive = false
}

// commitLocked stamps the current state with a new version.
func (s *Synchronizer) commitLocked() (State, uint64) {
	s.version++
	return s.state, s.version
}

// notify delivers snap unless a newer version was already delivered, so
// observers never see the state move backwards when timers race.
func (s *Synchronizer) notify(snap State, version uint64) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if version <= s.notified {
		return
	}
	s.notified = version
	if s.sent && s.delivered == snap {
		return
	}
	s.delivered, s.sent = snap, true

	s.subsMu.Lock()
	subs := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func run(effects []func()) {
	for _, fx := range effects {
		fx()
	}
}
