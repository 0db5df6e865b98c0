package recommendation

import (
	"context"

	"beatsphere/internal/domain"
	"beatsphere/internal/gateway"
)

// Client is the recommendation service. Callers decide how to degrade on
// errors; the client itself reports them.
type Client struct {
	gw *gateway.Client
}

func New(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

// TopTracks is the global top ten.
func (c *Client) TopTracks(ctx context.Context) ([]domain.Track, error) {
	return c.tracks(ctx, "top tracks", "/recommendations/tracks/top")
}

// ByGenre recommends from the user's recent favourite genre.
func (c *Client) ByGenre(ctx context.Context, userID domain.ID) ([]domain.Track, error) {
	return c.tracks(ctx, "genre recommendations", "/recommendations/users/"+gateway.PathID(userID)+"/recommended-tracks/genre")
}

// ByLike recommends through collaborative filtering on likes.
func (c *Client) ByLike(ctx context.Context, userID domain.ID) ([]domain.Track, error) {
	return c.tracks(ctx, "like recommendations", "/recommendations/users/"+gateway.PathID(userID)+"/recommended-tracks/like")
}

func (c *Client) ArtistTopTracks(ctx context.Context, artistID domain.ID) ([]domain.Track, error) {
	return c.tracks(ctx, "artist top tracks", "/recommendations/artists/"+gateway.PathID(artistID)+"/top-tracks")
}

func (c *Client) tracks(ctx context.Context, op, path string) ([]domain.Track, error) {
	var out []domain.Track
	if err := c.gw.Get(ctx, op, path, nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []domain.Track{}
	}
	return out, nil
}
