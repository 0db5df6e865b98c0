package domain

import "github.com/shopspring/decimal"

// TaxRate is the fixed VAT applied by the cart and checkout views.
var TaxRate = decimal.RequireFromString("0.21")

// LineItem is one product-and-quantity pair inside the cart.
type LineItem struct {
	ID        ID              `json:"id"`
	Title     string          `json:"title"`
	ImageURL  string          `json:"imageUrl,omitempty"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
}

// Subtotal is unitPrice × quantity.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Total sums the subtotals of items.
func Total(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Tax returns the tax portion of a raw total.
func Tax(total decimal.Decimal) decimal.Decimal {
	return total.Mul(TaxRate)
}

// TaxedTotal returns total plus tax.
func TaxedTotal(total decimal.Decimal) decimal.Decimal {
	return total.Add(Tax(total))
}
