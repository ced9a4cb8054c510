// Command menu-load simulates visitors browsing a business menu: each visitor
// opens a page session, keeps its event stream open, scrolls through the
// categories and orders a few items.
package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"menu-api/api"
	"menu-api/catalog"
	"menu-api/navigation"
)

type counters struct {
	sessions uint64
	events   uint64
	requests uint64
	failures uint64
	orders   uint64
}

type visitor struct {
	base   string
	client *http.Client
	stats  *counters
	rng    *rand.Rand

	sessionID string
	menu      *catalog.Menu
}

type sessionReply struct {
	SessionID string        `json:"sessionId"`
	Menu      *catalog.Menu `json:"menu"`
}

type navEvent struct {
	Type       string             `json:"type"`
	Entries    []navigation.Entry `json:"entries,omitempty"`
	CategoryID string             `json:"categoryId,omitempty"`
	Source     string             `json:"source,omitempty"`
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Fatalf("invalid %s: %q", key, v)
	}
	return n
}

// positiveDuration reads a duration that must be greater than zero.
func positiveDuration(key string, def time.Duration) time.Duration {
	d := api.EnvDuration(key, def)
	if d == 0 {
		log.Fatalf("invalid %s: must be greater than zero", key)
	}
	return d
}

func main() {
	_ = godotenv.Load()
	base := strings.TrimRight(getenv("MENU_API_URL", "http://localhost:8080"), "/")
	businessID := os.Getenv("BUSINESS_ID")
	if businessID == "" {
		log.Fatal("missing BUSINESS_ID")
	}
	visitors := getenvInt("VISITORS", 50)
	duration := positiveDuration("DURATION", 2*time.Minute)
	interval := positiveDuration("ACTION_INTERVAL", 500*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	stats := &counters{}
	client := &http.Client{}
	var wg sync.WaitGroup
	wg.Add(visitors)
	for i := range visitors {
		go func() {
			defer wg.Done()
			v := &visitor{
				base:   base,
				client: client,
				stats:  stats,
				rng:    rand.New(rand.NewPCG(uint64(i), uint64(time.Now().UnixNano()))),
			}
			v.run(ctx, businessID, interval)
		}()
	}
	wg.Wait()

	requests := atomic.LoadUint64(&stats.requests)
	failures := atomic.LoadUint64(&stats.failures)
	events := atomic.LoadUint64(&stats.events)
	failureRate := 0.0
	if requests > 0 {
		failureRate = float64(failures) / float64(requests)
	}
	log.WithFields(log.Fields{
		"visitors": visitors,
		"sessions": atomic.LoadUint64(&stats.sessions),
		"requests": requests,
		"failures": failures,
		"events":   events,
		"orders":   atomic.LoadUint64(&stats.orders),
	}).Info("menu.load.done")
	if events == 0 || failureRate > 0.01 {
		os.Exit(1)
	}
}

func (v *visitor) run(ctx context.Context, businessID string, interval time.Duration) {
	backoff := time.Second
	for v.sessionID == "" {
		if ctx.Err() != nil {
			return
		}
		if err := v.openSession(ctx, businessID); err != nil {
			log.WithError(err).Debug("session create failed")
			sleep(ctx, backoff)
			backoff = min(backoff*2, 5*time.Second)
		}
	}
	if len(v.menu.Categories) == 0 {
		return
	}

	go v.stream(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for step := 0; ; step++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		v.act(ctx, step)
	}
}

func (v *visitor) act(ctx context.Context, step int) {
	cats := v.menu.Categories
	cat := cats[v.rng.IntN(len(cats))].ID
	switch {
	case step%10 == 9:
		key := uuid.NewString()
		if v.post(ctx, "/cart/confirm", nil, map[string]string{"Idempotency-Key": key}) {
			atomic.AddUint64(&v.stats.orders, 1)
		}
	case step%3 == 2 && len(v.menu.Items) > 0:
		item := v.menu.Items[v.rng.IntN(len(v.menu.Items))].ID
		v.post(ctx, "/cart/items", map[string]string{"itemId": item}, nil)
	case step%4 == 1:
		v.post(ctx, "/navigation/events", []navEvent{{Type: "select", CategoryID: cat, Source: "tab"}}, nil)
	default:
		v.post(ctx, "/navigation/events", []navEvent{
			{Type: "scroll"},
			{Type: "visibility", Entries: []navigation.Entry{{SectionID: cat, Ratio: 0.3 + v.rng.Float64()*0.7, Intersecting: true}}},
		}, nil)
	}
}

func (v *visitor) openSession(ctx context.Context, businessID string) error {
	body, err := sonic.Marshal(map[string]string{"businessId": businessID})
	if err != nil {
		return err
	}
	atomic.AddUint64(&v.stats.requests, 1)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.base+"/api/sessions", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := v.client.Do(req)
	if err != nil {
		atomic.AddUint64(&v.stats.failures, 1)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		atomic.AddUint64(&v.stats.failures, 1)
		return fmt.Errorf("create session: status %d", resp.StatusCode)
	}
	var reply sessionReply
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return err
	}
	if reply.Menu == nil {
		return errors.New("create session: empty menu")
	}
	v.sessionID, v.menu = reply.SessionID, reply.Menu
	atomic.AddUint64(&v.stats.sessions, 1)
	return nil
}

// post sends a session request and reports whether it succeeded.
func (v *visitor) post(ctx context.Context, path string, payload any, headers map[string]string) bool {
	var body []byte
	if payload != nil {
		var err error
		if body, err = sonic.Marshal(payload); err != nil {
			log.WithError(err).Error("encode payload")
			return false
		}
	}
	atomic.AddUint64(&v.stats.requests, 1)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.base+"/api/sessions/"+v.sessionID+path, bytes.NewReader(body))
	if err != nil {
		atomic.AddUint64(&v.stats.failures, 1)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	for k, val := range headers {
		req.Header.Set(k, val)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			atomic.AddUint64(&v.stats.failures, 1)
		}
		return false
	}
	resp.Body.Close()
	// 422 is an empty cart at confirm time, not a failure.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusUnprocessableEntity {
		atomic.AddUint64(&v.stats.failures, 1)
		return false
	}
	return resp.StatusCode < 300
}

func (v *visitor) stream(ctx context.Context) {
	backoff := time.Second
	for ctx.Err() == nil {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.base+"/api/sessions/"+v.sessionID+"/stream", nil)
		if err != nil {
			return
		}
		resp, err := v.client.Do(req)
		if err != nil || resp.StatusCode != http.StatusOK {
			if resp != nil {
				resp.Body.Close()
			}
			if ctx.Err() != nil {
				return
			}
			sleep(ctx, backoff)
			backoff = min(backoff*2, 5*time.Second)
			continue
		}
		backoff = time.Second
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			if strings.HasPrefix(scanner.Text(), "data:") {
				atomic.AddUint64(&v.stats.events, 1)
			}
		}
		resp.Body.Close()
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
