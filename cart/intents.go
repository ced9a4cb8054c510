package cart

import "menu-api/domain"

// Intent is a request to change the cart. Intents are total: input that does
// not match the cart (unknown ids, non-positive quantities) leaves the state
// unchanged instead of failing.
type Intent interface {
	apply(State) State
}

// AddItem appends item with quantity 1, or increments the quantity of the
// entry that already holds it.
type AddItem struct {
	Item domain.MenuItem
}

// RemoveItem drops the entry with the given menu item id.
type RemoveItem struct {
	ID string
}

// SetQuantity overwrites an entry's quantity. Quantities of zero or less remove
// the entry.
type SetQuantity struct {
	ID       string
	Quantity int
}

// ClearCart empties the cart without touching drawer visibility.
type ClearCart struct{}

// ToggleCart opens or closes the cart drawer. A nil Open flips the current
// visibility.
type ToggleCart struct {
	Open *bool
}

// Open returns a ToggleCart that forces the given visibility.
func Open(open bool) ToggleCart {
	return ToggleCart{Open: &open}
}

func (in AddItem) apply(s State) State {
	if in.Item.ID == "" {
		return s
	}
	if i := s.indexOf(in.Item.ID); i >= 0 {
		s.Items[i].Quantity++
		return s
	}
	s.Items = append(s.Items, domain.CartItem{MenuItem: in.Item, Quantity: 1})
	return s
}

func (in RemoveItem) apply(s State) State {
	i := s.indexOf(in.ID)
	if i < 0 {
		return s
	}
	s.Items = append(s.Items[:i], s.Items[i+1:]...)
	return s
}

func (in SetQuantity) apply(s State) State {
	if in.Quantity <= 0 {
		return RemoveItem{ID: in.ID}.apply(s)
	}
	if i := s.indexOf(in.ID); i >= 0 {
		s.Items[i].Quantity = in.Quantity
	}
	return s
}

func (ClearCart) apply(s State) State {
	s.Items = []domain.CartItem{}
	return s
}

func (in ToggleCart) apply(s State) State {
	if in.Open != nil {
		s.IsOpen = *in.Open
	} else {
		s.IsOpen = !s.IsOpen
	}
	return s
}
