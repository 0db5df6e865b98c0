package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"beatsphere/internal/domain"
	"beatsphere/internal/logger"
	"beatsphere/internal/service/cart"
	"beatsphere/internal/service/catalog"
	"beatsphere/internal/service/checkout"
	"beatsphere/internal/service/discovery"
	"beatsphere/internal/service/radio"
	"beatsphere/internal/service/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// CartStore is the cart as the view layer sees it.
type CartStore interface {
	AddItem(p domain.Product) error
	UpdateQuantity(id domain.ID, delta int) error
	RemoveItem(id domain.ID) error
	Clear()
	Items() []domain.LineItem
	Subscribe(fn cart.Listener) func()
}

// SessionStore is the session as the view layer sees it.
type SessionStore interface {
	Current() domain.Session
	Authenticate(ctx context.Context, creds domain.Credentials) (domain.Session, error)
	Logout(ctx context.Context)
	Subscribe(fn session.Listener) func()
}

// AccountService covers registration, profile and saved cards.
type AccountService interface {
	Register(ctx context.Context, in domain.Registration) error
	Profile(ctx context.Context, userID domain.ID) (domain.Profile, error)
	UpdateProfile(ctx context.Context, userID domain.ID, in domain.Profile) (domain.Profile, error)
	PaymentMethods(ctx context.Context, userID domain.ID) ([]domain.PaymentMethod, error)
	CreatePaymentMethod(ctx context.Context, userID domain.ID, card domain.Card) (domain.PaymentMethod, error)
	DeletePaymentMethod(ctx context.Context, userID, methodID domain.ID) error
	Subscribe(ctx context.Context, userID, artistID domain.ID) error
}

type CheckoutService interface {
	Checkout(ctx context.Context, req checkout.Request) (checkout.Confirmation, error)
	LastConfirmation() (checkout.Confirmation, bool)
}

type CatalogBrowser interface {
	Apply(ctx context.Context, f catalog.Filter) (catalog.Listing, error)
	LoadMore(ctx context.Context) (catalog.Listing, error)
	Album(ctx context.Context, id domain.ID) (domain.Album, error)
}

type DiscoveryFeed interface {
	Home(ctx context.Context) discovery.Home
	Artist(ctx context.Context, id domain.ID) (discovery.ArtistPage, error)
}

type LikeTracker interface {
	Like(ctx context.Context, trackID domain.ID) error
	Liked(trackID domain.ID) bool
	Play(ctx context.Context, trackID domain.ID)
}

type RadioPlaylist interface {
	Load(ctx context.Context) error
	Current() (radio.Entry, bool)
	Filter(search, genre string) []radio.Entry
	Select(ctx context.Context, id domain.ID) (radio.Entry, error)
	Next(ctx context.Context) (radio.Entry, error)
	Prev(ctx context.Context) (radio.Entry, error)
}

// Pinger reports whether persistent storage is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the handlers call.
type Deps struct {
	Cart      CartStore
	Session   SessionStore
	Accounts  AccountService
	Checkout  CheckoutService
	Catalog   CatalogBrowser
	Discovery DiscoveryFeed
	Likes     LikeTracker
	Radio     RadioPlaylist
	Storage   Pinger
}

func (d Deps) validate() error {
	switch {
	case d.Cart == nil:
		return errors.New("cart store is required")
	case d.Session == nil:
		return errors.New("session store is required")
	case d.Accounts == nil:
		return errors.New("account service is required")
	case d.Checkout == nil:
		return errors.New("checkout service is required")
	case d.Catalog == nil:
		return errors.New("catalog browser is required")
	case d.Discovery == nil:
		return errors.New("discovery feed is required")
	case d.Likes == nil:
		return errors.New("like tracker is required")
	case d.Radio == nil:
		return errors.New("radio playlist is required")
	}
	return nil
}

// Options tune the middleware stack.
type Options struct {
	Env            string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// buildRouter wires routes for the view API.
func buildRouter(log *zap.Logger, deps Deps, opts Options) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(logger.RequestLogger(log), gin.Recovery())
	if len(opts.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     opts.CORSOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "X-Request-ID"},
			ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	if opts.RateLimitRPS > 0 {
		router.Use(rateLimit(newIPLimiter(rate.Limit(opts.RateLimitRPS), max(opts.RateLimitBurst, 1))))
	}

	router.GET("/healthz", healthHandler)
	router.GET("/readyz", readyHandler(deps.Storage))

	ch := &cartHandler{cart: deps.Cart}
	router.GET("/cart", ch.get)
	router.GET("/cart/events", ch.events)
	router.POST("/cart/items", ch.add)
	router.PATCH("/cart/items/:id", ch.updateQuantity)
	router.DELETE("/cart/items/:id", ch.remove)
	router.DELETE("/cart", ch.clear)

	sh := &sessionHandler{sessions: deps.Session, accounts: deps.Accounts}
	router.GET("/session", sh.get)
	router.GET("/session/events", sh.events)
	router.POST("/session/login", sh.login)
	router.POST("/session/logout", sh.logout)
	router.POST("/session/register", sh.register)

	coh := &checkoutHandler{checkouts: deps.Checkout}
	router.POST("/checkout", coh.checkout)
	router.GET("/checkout/confirmation", coh.confirmation)

	cah := &catalogHandler{catalog: deps.Catalog, discovery: deps.Discovery}
	router.GET("/catalog/albums", cah.albums)
	router.POST("/catalog/albums/more", cah.more)
	router.GET("/catalog/albums/:id", cah.album)
	router.GET("/catalog/artists/:id", cah.artist)
	router.GET("/recommendations", cah.recommendations)

	th := &trackHandler{likes: deps.Likes, radio: deps.Radio}
	router.POST("/tracks/:id/like", th.like)
	router.GET("/tracks/:id/like", th.liked)
	router.POST("/tracks/:id/play", th.play)
	router.GET("/radio", th.playlist)
	router.POST("/radio/reload", th.reload)
	router.POST("/radio/select/:id", th.selectTrack)
	router.POST("/radio/next", th.next)
	router.POST("/radio/prev", th.prev)

	me := router.Group("/me", requireSession(deps.Session))
	ah := &accountHandler{accounts: deps.Accounts}
	me.GET("/profile", ah.profile)
	me.PUT("/profile", ah.updateProfile)
	me.GET("/payment-methods", ah.paymentMethods)
	me.POST("/payment-methods", ah.createPaymentMethod)
	me.DELETE("/payment-methods/:id", ah.deletePaymentMethod)
	me.POST("/subscriptions/:id", ah.subscribe)

	return router, nil
}

const sessionCtxKey = "session"

// requireSession rejects anonymous requests and stores the session for the
// handlers behind it.
func requireSession(sessions SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Current()
		if !sess.Authenticated() {
			writeError(c, domain.ErrUnauthenticated)
			c.Abort()
			return
		}
		c.Set(sessionCtxKey, sess)
		c.Next()
	}
}

func currentSession(c *gin.Context) domain.Session {
	sess, _ := c.MustGet(sessionCtxKey).(domain.Session)
	return sess
}

func pathID(c *gin.Context) domain.ID {
	return domain.ID(c.Param("id"))
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	var (
		validation *domain.ValidationError
		network    *domain.NetworkError
	)
	switch {
	case errors.As(err, &validation), errors.Is(err, domain.ErrInvalidIdentity):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusConflict
	case errors.As(err, &network):
		if network.Status == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c *gin.Context, err error) {
	writeError(c, &domain.ValidationError{Reason: err.Error()})
}

// offerLatest leaves v as the only pending value on a 1-slot channel,
// replacing anything the reader has not picked up yet. The stores deliver to
// one listener at a time, so the send below never blocks.
func offerLatest[T any](ch chan T, v T) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}
