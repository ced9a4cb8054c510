// Package cart implements the customer's shopping cart for one page session:
// a pure reducer over cart intents and an Engine that owns the state.
package cart

import (
	"errors"
	"sync"

	"menu-api/domain"
)

// ErrEmptyCart is returned when confirming a cart without items.
var ErrEmptyCart = errors.New("cart is empty")

// Confirmation is the result of confirming an order.
type Confirmation struct {
	Items   []domain.CartItem
	Summary domain.OrderSummary
}

// Engine owns the cart state of one page session. All mutations go through
// intents. Observers registered with OnChange see transitions in the order
// they were applied; a transition overtaken by a newer one is skipped.
type Engine struct {
	mu        sync.Mutex
	state     State
	version   uint64
	nextSubID int
	subs      map[int]func(State)

	deliverMu sync.Mutex
	delivered uint64
}

// NewEngine returns an engine holding an empty, closed cart.
func NewEngine() *Engine {
	return &Engine{state: EmptyState(), subs: make(map[int]func(State))}
}

// Dispatch applies the intents in order as a single transition and returns
// the resulting state.
func (e *Engine) Dispatch(intents ...Intent) State {
	e.mu.Lock()
	next := e.state
	for _, in := range intents {
		next = Reduce(next, in)
	}
	e.state = next
	e.version++
	snapshot, version := next.clone(), e.version
	subs := e.subscribers()
	e.mu.Unlock()

	e.notify(subs, snapshot, version)
	return snapshot
}

// AddItem adds one unit of item and opens the drawer. An item without an id
// changes nothing.
func (e *Engine) AddItem(item domain.MenuItem) State {
	if item.ID == "" {
		return e.State()
	}
	return e.Dispatch(AddItem{Item: item}, Open(true))
}

// RemoveItem removes the entry for id.
func (e *Engine) RemoveItem(id string) State {
	return e.Dispatch(RemoveItem{ID: id})
}

// SetQuantity sets the quantity for id; non-positive quantities remove it.
func (e *Engine) SetQuantity(id string, quantity int) State {
	return e.Dispatch(SetQuantity{ID: id, Quantity: quantity})
}

// Clear empties the cart.
func (e *Engine) Clear() State {
	return e.Dispatch(ClearCart{})
}

// Toggle sets the drawer visibility, or flips it when open is nil.
func (e *Engine) Toggle(open *bool) State {
	return e.Dispatch(ToggleCart{Open: open})
}

// State returns a copy of the current state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Summary derives the totals of the current cart.
func (e *Engine) Summary() domain.OrderSummary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Summarize(e.state.Items)
}

// ConfirmOrder summarizes the cart, then clears and closes it in the same
// transition.
func (e *Engine) ConfirmOrder() (Confirmation, error) {
	e.mu.Lock()
	if len(e.state.Items) == 0 {
		e.mu.Unlock()
		return Confirmation{}, ErrEmptyCart
	}
	confirmed := e.state.clone()
	next := Reduce(e.state, ClearCart{})
	next = Reduce(next, Open(false))
	e.state = next
	e.version++
	snapshot, version := next.clone(), e.version
	subs := e.subscribers()
	e.mu.Unlock()

	e.notify(subs, snapshot, version)
	return Confirmation{Items: confirmed.Items, Summary: Summarize(confirmed.Items)}, nil
}

// OnChange registers fn to be called after every transition. The returned
// function removes the registration.
func (e *Engine) OnChange(fn func(State)) func() {
	e.mu.Lock()
	id := e.nextSubID
	e.nextSubID++
	e.subs[id] = fn
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.subs, id)
		e.mu.Unlock()
	}
}

// notify delivers snapshot unless a newer transition was already delivered.
func (e *Engine) notify(subs []func(State), snapshot State, version uint64) {
	e.deliverMu.Lock()
	defer e.deliverMu.Unlock()
	if version <= e.delivered {
		return
	}
	e.delivered = version
	for _, fn := range subs {
		fn(snapshot.clone())
	}
}

func (e *Engine) subscribers() []func(State) {
	subs := make([]func(State), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	return subs
}
