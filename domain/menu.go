package domain

import "github.com/shopspring/decimal"

// MenuItem is an immutable catalog entry derived from a Product.
type MenuItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
}

// Category groups menu items under a display label.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
