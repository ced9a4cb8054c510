package domain

// Product is a raw catalog row as stored by the data service. Nullable columns
// are pointers so the projection can tell "missing" from "zero".
type Product struct {
	ID          string   `json:"id"`
	BusinessID  string   `json:"businessId"`
	Name        string   `json:"name"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Image       *string  `json:"image,omitempty"`
	IsAvailable *bool    `json:"isAvailable,omitempty"`
}

// Available reports whether the product should be listed on the public menu.
func (p Product) Available() bool {
	return p.IsAvailable != nil && *p.IsAvailable
}
