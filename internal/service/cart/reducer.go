package cart

import (
	"math"

	"beatsphere/internal/domain"
)

// The reducers below never modify their input slice; each returns the next
// state and whether it differs from the previous one.

func addItem(items []domain.LineItem, p domain.Product) ([]domain.LineItem, bool) {
	next := clone(items)
	if i := indexOf(next, p.ID); i >= 0 {
		if next[i].Quantity == math.MaxInt {
			return items, false
		}
		next[i].Quantity++
		return next, true
	}
	return append(next, domain.LineItem{
		ID:        p.ID,
		Title:     p.Title,
		ImageURL:  p.ImageURL,
		UnitPrice: p.UnitPrice,
		Quantity:  1,
	}), true
}

func updateQuantity(items []domain.LineItem, id domain.ID, delta int) ([]domain.LineItem, bool) {
	i := indexOf(items, id)
	if i < 0 {
		return items, false
	}
	qty := addSaturating(items[i].Quantity, delta)
	if qty < 1 {
		qty = 1
	}
	if qty == items[i].Quantity {
		return items, false
	}
	next := clone(items)
	next[i].Quantity = qty
	return next, true
}

func removeItem(items []domain.LineItem, id domain.ID) ([]domain.LineItem, bool) {
	i := indexOf(items, id)
	if i < 0 {
		return items, false
	}
	next := make([]domain.LineItem, 0, len(items)-1)
	next = append(next, items[:i]...)
	next = append(next, items[i+1:]...)
	return next, true
}

// takeItems subtracts each line of taken from items, dropping lines that reach
// zero. It returns the quantities actually removed, which can be less than
// requested when the cart shrank in the meantime.
func takeItems(items, taken []domain.LineItem) (next, removed []domain.LineItem) {
	next = clone(items)
	for _, t := range taken {
		i := indexOf(next, t.ID)
		if i < 0 || t.Quantity < 1 {
			continue
		}
		qty := min(t.Quantity, next[i].Quantity)
		line := t
		line.Quantity = qty
		removed = append(removed, line)
		next[i].Quantity -= qty
		if next[i].Quantity == 0 {
			next = append(next[:i], next[i+1:]...)
		}
	}
	return next, removed
}

// addSaturating returns q+delta clamped to the int range.
func addSaturating(q, delta int) int {
	switch {
	case delta > 0 && q > math.MaxInt-delta:
		return math.MaxInt
	case delta < 0 && q < math.MinInt-delta:
		return math.MinInt
	}
	return q + delta
}

func indexOf(items []domain.LineItem, id domain.ID) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func clone(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, len(items), len(items)+1)
	copy(out, items)
	return out
}
