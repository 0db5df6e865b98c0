// Package cart holds the in-memory shopping cart shared by the cart, checkout
// and confirmation views.
package cart

import (
	"sync"

	"beatsphere/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Listener receives a snapshot of the cart after every change.
type Listener func(items []domain.LineItem)

// Store is the single source of truth for the cart. Line items are unique by
// canonical id; quantities never drop below 1. All mutations serialize on one
// mutex and listeners run after it is released, in mutation order. A listener
// must not mutate the store synchronously.
type Store struct {
	notifyMu  sync.Mutex
	mu        sync.Mutex
	items     []domain.LineItem
	listeners map[int]Listener
	nextSubID int
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		listeners: make(map[int]Listener),
		logger:    logger,
	}
}

// AddItem appends p with quantity 1, or increments the quantity of the line
// item that already carries p's id.
func (s *Store) AddItem(p domain.Product) error {
	id, err := domain.IDOf(p.ID)
	if err != nil {
		return err
	}
	if p.UnitPrice.IsNegative() {
		return &domain.ValidationError{Field: "unitPrice", Reason: "must not be negative"}
	}
	p.ID = id

	s.apply(func(items []domain.LineItem) ([]domain.LineItem, bool) {
		return addItem(items, p)
	})
	s.logger.Debug("cart item added", zap.String("id", id.String()), zap.String("title", p.Title))
	return nil
}

// UpdateQuantity sets quantity to max(1, quantity+delta). It never removes the
// item; an unknown id is a no-op.
func (s *Store) UpdateQuantity(id domain.ID, delta int) error {
	id, err := domain.IDOf(id)
	if err != nil {
		return err
	}
	s.apply(func(items []domain.LineItem) ([]domain.LineItem, bool) {
		return updateQuantity(items, id, delta)
	})
	return nil
}

// RemoveItem drops the line item with id. Removing an absent id is a no-op.
func (s *Store) RemoveItem(id domain.ID) error {
	id, err := domain.IDOf(id)
	if err != nil {
		return err
	}
	s.apply(func(items []domain.LineItem) ([]domain.LineItem, bool) {
		return removeItem(items, id)
	})
	return nil
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.apply(func(items []domain.LineItem) ([]domain.LineItem, bool) {
		return nil, len(items) > 0
	})
}

// Take removes the given line items from the cart, quantity by quantity, and
// returns what was actually removed. Lines added after the caller took its
// snapshot stay in the cart.
func (s *Store) Take(items []domain.LineItem) []domain.LineItem {
	var removed []domain.LineItem
	s.apply(func(current []domain.LineItem) ([]domain.LineItem, bool) {
		var next []domain.LineItem
		next, removed = takeItems(current, items)
		return next, len(removed) > 0
	})
	return removed
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.items)
}

// Item returns the line item for id.
func (s *Store) Item(id domain.ID) (domain.LineItem, bool) {
	id, err := domain.IDOf(id)
	if err != nil {
		return domain.LineItem{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.items, id); i >= 0 {
		return s.items[i], true
	}
	return domain.LineItem{}, false
}

// Total is Σ(unitPrice × quantity), computed on every call.
func (s *Store) Total() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.Total(s.items)
}

// Count is the sum of quantities.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, item := range s.items {
		n += item.Quantity
	}
	return n
}

// Len is the number of distinct line items.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Subscribe registers fn for change notifications and returns a func that
// unregisters it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) apply(reduce func([]domain.LineItem) ([]domain.LineItem, bool)) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	next, changed := reduce(s.items)
	if !changed {
		s.mu.Unlock()
		return
	}
	s.items = next
	snap := snapshot(next)
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot(snap))
	}
}

func snapshot(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, len(items))
	copy(out, items)
	return out
}
