package api

import (
	"sync"

	"github.com/bytedance/sonic"
)

// SSE event names.
const (
	eventNavigation = "navigation"
	eventCart       = "cart"
	eventCommand    = "command"
)

type sessionEvent struct {
	name string
	data []byte
}

// eventBroker fans session events out to the session's SSE streams. Slow
// streams drop events instead of blocking the engines.
type eventBroker struct {
	mu     sync.Mutex
	subs   map[chan sessionEvent]struct{}
	closed bool
}

const streamBuffer = 32

func newEventBroker() *eventBroker {
	return &eventBroker{subs: make(map[chan sessionEvent]struct{})}
}

func (b *eventBroker) subscribe() (chan sessionEvent, bool) {
	ch := make(chan sessionEvent, streamBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, false
	}
	b.subs[ch] = struct{}{}
	return ch, true
}

func (b *eventBroker) unsubscribe(ch chan sessionEvent) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

func newSessionEvent(name string, v any) (sessionEvent, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return sessionEvent{}, err
	}
	return sessionEvent{name: name, data: data}, nil
}

func (b *eventBroker) publish(name string, v any) {
	ev, err := newSessionEvent(name, v)
	if err != nil {
		return
	}
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	b.mu.Unlock()
}

// close ends every stream of the session.
func (b *eventBroker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

func (b *eventBroker) subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
