package domain

import "github.com/shopspring/decimal"

// CartItem is a menu item together with the quantity the customer selected.
type CartItem struct {
	MenuItem
	Quantity int `json:"quantity"`
}

// OrderSummary holds the totals derived from the cart contents.
type OrderSummary struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// OrderConfirmation is published once a customer confirms the cart.
type OrderConfirmation struct {
	ID          string       `json:"id"`
	SessionID   string       `json:"sessionId"`
	BusinessID  string       `json:"businessId"`
	Items       []CartItem   `json:"items"`
	Summary     OrderSummary `json:"summary"`
	ConfirmedAt int64        `json:"confirmedAt"`
}
