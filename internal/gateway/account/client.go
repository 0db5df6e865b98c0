package account

import (
	"context"
	"strconv"

	"beatsphere/internal/domain"
	"beatsphere/internal/gateway"
)

// Client is the account service: authentication, profile, payment methods
// and engagement events.
type Client struct {
	gw *gateway.Client
}

func New(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// Login exchanges credentials for an identity; the service also sets the
// session cookie on the shared jar.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.Identity, error) {
	var out domain.Identity
	err := c.gw.Post(ctx, "login", "/auth/login", creds, &out)
	return out, err
}

// Logout asks the service to invalidate the server-side session.
func (c *Client) Logout(ctx context.Context) error {
	return c.gw.Post(ctx, "logout", "/auth/logout", nil, nil)
}

// Session is the "who am I" check. A 401/403 NetworkError means no session.
func (c *Client) Session(ctx context.Context) (domain.Identity, error) {
	var out domain.Identity
	err := c.gw.Get(ctx, "session", "/auth/session", nil, &out)
	return out, err
}

func (c *Client) Register(ctx context.Context, in domain.Registration) error {
	return c.gw.Post(ctx, "register", "/auth/register", in, nil)
}

func (c *Client) Profile(ctx context.Context, userID domain.ID) (domain.Profile, error) {
	var out domain.Profile
	err := c.gw.Get(ctx, "profile", "/users/"+gateway.PathID(userID)+"/profile", nil, &out)
	return out, err
}

func (c *Client) UpdateProfile(ctx context.Context, userID domain.ID, in domain.Profile) (domain.Profile, error) {
	var out domain.Profile
	err := c.gw.Put(ctx, "update profile", "/users/"+gateway.PathID(userID)+"/profile", in, &out)
	return out, err
}

func (c *Client) PaymentMethods(ctx context.Context, userID domain.ID) ([]domain.PaymentMethod, error) {
	var out []domain.PaymentMethod
	if err := c.gw.Get(ctx, "list payment methods", "/users/"+gateway.PathID(userID)+"/payment-methods", nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.PaymentMethod{}
	}
	return out, nil
}

func (c *Client) CreatePaymentMethod(ctx context.Context, userID domain.ID, card domain.Card) (domain.PaymentMethod, error) {
	var out domain.PaymentMethod
	err := c.gw.Post(ctx, "create payment method", "/users/"+gateway.PathID(userID)+"/payment-methods", card, &out)
	return out, err
}

func (c *Client) DeletePaymentMethod(ctx context.Context, userID, methodID domain.ID) error {
	return c.gw.Delete(ctx, "delete payment method", "/users/"+gateway.PathID(userID)+"/payment-methods/"+gateway.PathID(methodID))
}

// AddLike records a like. The service takes the track id as a string here.
func (c *Client) AddLike(ctx context.Context, userID, trackID domain.ID) error {
	body := map[string]string{"idTrack": trackID.String()}
	return c.gw.Post(ctx, "add like", "/users/"+gateway.PathID(userID)+"/likes", body, nil)
}

// RecordPlay records a play event. The service takes the track id as a
// number here; non-numeric ids are sent as strings.
func (c *Client) RecordPlay(ctx context.Context, userID, trackID domain.ID) error {
	var idTrack any = trackID.String()
	if n, err := strconv.ParseInt(trackID.String(), 10, 64); err == nil {
		idTrack = n
	}
	body := map[string]any{"idTrack": idTrack}
	return c.gw.Post(ctx, "record play", "/users/"+gateway.PathID(userID)+"/play", body, nil)
}

// Subscribe follows an artist.
func (c *Client) Subscribe(ctx context.Context, userID, artistID domain.ID) error {
	body := map[string]string{"idArtist": artistID.String()}
	return c.gw.Post(ctx, "subscribe", "/users/"+gateway.PathID(userID)+"/subscriptions", body, nil)
}
