package api

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"menu-api/cart"
	"menu-api/catalog"
	"menu-api/domain"
	"menu-api/navigation"
)

// session is one browser visit to a business menu.
type session struct {
	id    string
	menu  *catalog.Menu
	cart  *cart.Engine
	nav   *navigation.Synchronizer
	host  *navigation.RemoteHost
	event *eventBroker

	lastSeen atomic.Int64
	unsubs   []func()
}

type cartView struct {
	cart.State
	Count   int                 `json:"count"`
	Summary domain.OrderSummary `json:"summary"`
}

func newCartView(s cart.State) cartView {
	return cartView{State: s, Count: s.Count(), Summary: cart.Summarize(s.Items)}
}

func (s *session) touch(now time.Time) {
	s.lastSeen.Store(now.UnixNano())
}

func (s *session) close() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.nav.Stop()
	s.event.close()
}

type sessionStore struct {
	ttl    time.Duration
	navCfg navigation.Config
	clock  navigation.Clock
	log    *log.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionStore(ttl time.Duration, navCfg navigation.Config, clock navigation.Clock, logger *log.Logger) *sessionStore {
	return &sessionStore{
		ttl:      ttl,
		navCfg:   navCfg,
		clock:    clock,
		log:      logger,
		now:      time.Now,
		sessions: make(map[string]*session),
	}
}

// create starts a session for menu with an empty cart and the first
// category active.
func (st *sessionStore) create(menu *catalog.Menu) *session {
	broker := newEventBroker()
	host := navigation.NewRemoteHost(func(cmd navigation.Command) {
		broker.publish(eventCommand, cmd)
	})
	s := &session{
		id:    uuid.NewString(),
		menu:  menu,
		cart:  cart.NewEngine(),
		nav:   navigation.New(host, host, st.clock, st.navCfg),
		host:  host,
		event: broker,
	}
	s.touch(st.now())
	s.unsubs = append(s.unsubs,
		s.cart.OnChange(func(cs cart.State) { broker.publish(eventCart, newCartView(cs)) }),
		s.nav.OnChange(func(ns navigation.State) { broker.publish(eventNavigation, ns) }),
	)
	s.nav.Start(menu.CategoryIDs())

	st.mu.Lock()
	st.sessions[s.id] = s
	st.mu.Unlock()

	st.log.WithFields(log.Fields{
		"session":    s.id,
		"business":   menu.Business.ID,
		"categories": len(menu.Categories),
	}).Debug("session created")
	return s
}

func (st *sessionStore) get(id string) (*session, error) {
	st.mu.Lock()
	s, ok := st.sessions[id]
	st.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	s.touch(st.now())
	return s, nil
}

func (st *sessionStore) len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// sweep closes sessions idle for longer than the TTL and returns how many
// were removed.
func (st *sessionStore) sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	cutoff := st.now().Add(-st.ttl).UnixNano()

	var expired []*session
	st.mu.Lock()
	for id, s := range st.sessions {
		if s.lastSeen.Load() < cutoff {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.close()
		st.log.WithField("session", s.id).Debug("session expired")
	}
	return len(expired)
}

// run sweeps periodically until ctx is cancelled.
func (st *sessionStore) run(ctx context.Context) {
	interval := st.ttl / 4
	if interval <= 0 {
		return
	}
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.sweep(); n > 0 {
				st.log.WithField("expired", n).Info("sessions swept")
			}
		}
	}
}

func (st *sessionStore) closeAll() {
	st.mu.Lock()
	all := st.sessions
	st.sessions = make(map[string]*session)
	st.mu.Unlock()
	for _, s := range all {
		s.close()
	}
}
