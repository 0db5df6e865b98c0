// Package checkout runs the simulated purchase flow: no money moves, the cart
// is priced, a confirmation is issued and the cart is emptied.
package checkout

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"beatsphere/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Cart is the part of the cart store checkout drains.
type Cart interface {
	Items() []domain.LineItem
	Take(items []domain.LineItem) []domain.LineItem
}

// Sessions exposes the current session.
type Sessions interface {
	Current() domain.Session
}

// Wallet stores and lists saved cards.
type Wallet interface {
	PaymentMethods(ctx context.Context, userID domain.ID) ([]domain.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, userID domain.ID, card domain.Card) (domain.PaymentMethod, error)
}

// Request selects either a saved payment method or a new card.
type Request struct {
	PaymentMethodID domain.ID    `json:"paymentMethodId,omitempty"`
	Card            *domain.Card `json:"card,omitempty"`
	SaveCard        bool         `json:"saveCard"`
}

// Confirmation is what the confirmation view shows after a purchase.
type Confirmation struct {
	ID            string            `json:"id"`
	UserID        domain.ID         `json:"userId"`
	Items         []domain.LineItem `json:"items"`
	Subtotal      decimal.Decimal   `json:"subtotal"`
	Tax           decimal.Decimal   `json:"tax"`
	Total         decimal.Decimal   `json:"total"`
	PaymentMethod string            `json:"paymentMethod"`
	CardSaved     bool              `json:"cardSaved"`
	CreatedAt     time.Time         `json:"createdAt"`
}

type Service struct {
	cart     Cart
	sessions Sessions
	wallet   Wallet
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	last *Confirmation
}

func New(cart Cart, sessions Sessions, wallet Wallet, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cart:     cart,
		sessions: sessions,
		wallet:   wallet,
		logger:   logger,
		now:      time.Now,
	}
}

// Checkout prices the cart, issues a confirmation and removes the purchased
// lines from the cart. Items added while payment is resolved are left in the
// cart for a later purchase.
func (s *Service) Checkout(ctx context.Context, req Request) (Confirmation, error) {
	sess := s.sessions.Current()
	if !sess.Authenticated() {
		return Confirmation{}, domain.ErrUnauthenticated
	}
	items := s.cart.Items()
	if len(items) == 0 {
		return Confirmation{}, domain.ErrEmptyCart
	}

	var (
		method string
		saved  bool
	)
	switch {
	case !req.PaymentMethodID.IsZero():
		pm, err := s.savedMethod(ctx, sess.UserID, req.PaymentMethodID)
		if err != nil {
			return Confirmation{}, err
		}
		method = describe(pm.Provider, pm.Number)
	case req.Card != nil:
		card := normalizeCard(*req.Card)
		if err := validateCard(card); err != nil {
			return Confirmation{}, err
		}
		method = describe(card.Provider, card.Number)
		if req.SaveCard {
			if _, err := s.wallet.CreatePaymentMethod(ctx, sess.UserID, card); err != nil {
				s.logger.Warn("save card failed, continuing checkout", zap.String("user_id", sess.UserID.String()), zap.Error(err))
			} else {
				saved = true
			}
		}
	default:
		return Confirmation{}, &domain.ValidationError{Field: "payment", Reason: "choose a saved card or enter a new one"}
	}

	items = s.cart.Take(items)
	if len(items) == 0 {
		return Confirmation{}, domain.ErrEmptyCart
	}

	subtotal := domain.Total(items)
	conf := Confirmation{
		ID:            uuid.NewString(),
		UserID:        sess.UserID,
		Items:         items,
		Subtotal:      subtotal,
		Tax:           domain.Tax(subtotal),
		Total:         domain.TaxedTotal(subtotal),
		PaymentMethod: method,
		CardSaved:     saved,
		CreatedAt:     s.now().UTC(),
	}

	s.mu.Lock()
	s.last = &conf
	s.mu.Unlock()

	s.logger.Info("checkout completed",
		zap.String("confirmation_id", conf.ID),
		zap.String("user_id", sess.UserID.String()),
		zap.String("total", conf.Total.StringFixed(2)),
		zap.Int("line_items", len(items)),
	)
	return conf, nil
}

// LastConfirmation returns the most recent confirmation, if any.
func (s *Service) LastConfirmation() (Confirmation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return Confirmation{}, false
	}
	return *s.last, true
}

func (s *Service) savedMethod(ctx context.Context, userID, id domain.ID) (domain.PaymentMethod, error) {
	methods, err := s.wallet.PaymentMethods(ctx, userID)
	if err != nil {
		return domain.PaymentMethod{}, err
	}
	for _, pm := range methods {
		if pm.ID == id {
			return pm, nil
		}
	}
	return domain.PaymentMethod{}, &domain.ValidationError{Field: "paymentMethodId", Reason: "unknown payment method"}
}

func normalizeCard(c domain.Card) domain.Card {
	c.Holder = strings.TrimSpace(c.Holder)
	c.Number = strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, c.Number)
	c.Expiry = strings.TrimSpace(c.Expiry)
	c.CVV = strings.TrimSpace(c.CVV)
	c.Provider = strings.TrimSpace(c.Provider)
	return c
}

func validateCard(c domain.Card) error {
	switch {
	case c.Holder == "":
		return &domain.ValidationError{Field: "card.name", Reason: "required"}
	case c.Number == "":
		return &domain.ValidationError{Field: "card.numC", Reason: "required"}
	case !digitsOnly(c.Number):
		return &domain.ValidationError{Field: "card.numC", Reason: "must contain digits only"}
	case c.Expiry == "":
		return &domain.ValidationError{Field: "card.cadC", Reason: "required"}
	case c.CVV == "":
		return &domain.ValidationError{Field: "card.cvv", Reason: "required"}
	case !digitsOnly(c.CVV):
		return &domain.ValidationError{Field: "card.cvv", Reason: "must contain digits only"}
	case c.Provider == "":
		return &domain.ValidationError{Field: "card.provider", Reason: "required"}
	}
	return nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// describe renders "visa ending 4242" without exposing the full number.
func describe(provider, number string) string {
	last := number
	if len(last) > 4 {
		last = last[len(last)-4:]
	}
	if provider == "" {
		return "card ending " + last
	}
	return provider + " ending " + last
}
