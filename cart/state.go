package cart

import "menu-api/domain"

// State is the cart contents plus drawer visibility.
type State struct {
	Items  []domain.CartItem `json:"items"`
	IsOpen bool              `json:"isOpen"`
}

// EmptyState is the state every page session starts with.
func EmptyState() State {
	return State{Items: []domain.CartItem{}}
}

func (s State) clone() State {
	items := make([]domain.CartItem, len(s.Items))
	copy(items, s.Items)
	return State{Items: items, IsOpen: s.IsOpen}
}

func (s State) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, item := range s.Items {
		if item.ID == id {
			return i
		}
	}
	return -1
}

// Quantity reports how many units of the item are in the cart.
func (s State) Quantity(id string) int {
	if i := s.indexOf(id); i >= 0 {
		return s.Items[i].Quantity
	}
	return 0
}

// Count is the total number of units across all entries.
func (s State) Count() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

// Reduce applies one intent to s and returns the next state. s is not
// modified.
func Reduce(s State, in Intent) State {
	if in == nil {
		return s.clone()
	}
	return in.apply(s.clone())
}
