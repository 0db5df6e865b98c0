package domain

import "github.com/shopspring/decimal"

// Product is the descriptor a view hands to the cart.
type Product struct {
	ID        ID              `json:"id"`
	Title     string          `json:"title"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	ImageURL  string          `json:"imageUrl,omitempty"`
}
