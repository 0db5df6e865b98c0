package content

import (
	"context"
	"net/url"
	"strconv"
	"strings"

	"beatsphere/internal/domain"
	"beatsphere/internal/gateway"
)

// Search types accepted by the albums endpoint.
const (
	SearchAlbum  = "album"
	SearchArtist = "artist"
	SearchTrack  = "track"
)

// AllGenres is the view's "no genre filter" option.
const AllGenres = "Todas"

// AlbumQuery filters the paginated album listing.
type AlbumQuery struct {
	Page       int
	Size       int
	Search     string
	SearchType string
	Genre      string
}

// Values renders the query the way the content service expects: search and
// type only with a non-blank search, genre only when it is a real genre.
func (q AlbumQuery) Values() url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.Size))
	if s := strings.TrimSpace(q.Search); s != "" {
		v.Set("search", s)
		searchType := q.SearchType
		if searchType == "" {
			searchType = SearchAlbum
		}
		v.Set("type", searchType)
	}
	if g := strings.TrimSpace(q.Genre); g != "" && g != AllGenres {
		v.Set("genre", g)
	}
	return v
}

// Page is one page of a paginated listing. The service answers either with a
// bare array or with a Spring-style page object; both decode here.
type Page[T any] struct {
	Content []T  `json:"content"`
	Last    bool `json:"last"`
}

type Client struct {
	gw *gateway.Client
}

func New(gw *gateway.Client) *Client {
	return &Client{gw: gw}
}

func (c *Client) Albums(ctx context.Context, q AlbumQuery) ([]domain.Album, error) {
	return list[domain.Album](ctx, c.gw, "albums", "/albums", q.Values())
}

func (c *Client) Artists(ctx context.Context) ([]domain.Artist, error) {
	return list[domain.Artist](ctx, c.gw, "artists", "/artists", url.Values{"size": {"100"}})
}

func (c *Client) Tracks(ctx context.Context) ([]domain.Track, error) {
	return list[domain.Track](ctx, c.gw, "tracks", "/tracks", url.Values{"size": {"500"}})
}

func (c *Client) Artist(ctx context.Context, id domain.ID) (domain.Artist, error) {
	var out domain.Artist
	err := c.gw.Get(ctx, "artist", "/artists/"+gateway.PathID(id), nil, &out)
	return out, err
}

func (c *Client) Album(ctx context.Context, id domain.ID) (domain.Album, error) {
	var out domain.Album
	err := c.gw.Get(ctx, "album", "/albums/"+gateway.PathID(id), nil, &out)
	return out, err
}

func (c *Client) ArtistAlbums(ctx context.Context, id domain.ID) ([]domain.Album, error) {
	return list[domain.Album](ctx, c.gw, "artist albums", "/artists/"+gateway.PathID(id)+"/albums", nil)
}

func (c *Client) ArtistTracks(ctx context.Context, id domain.ID) ([]domain.Track, error) {
	return list[domain.Track](ctx, c.gw, "artist tracks", "/artists/"+gateway.PathID(id)+"/tracks", nil)
}

func list[T any](ctx context.Context, gw *gateway.Client, op, path string, q url.Values) ([]T, error) {
	var page listBody[T]
	if err := gw.Get(ctx, op, path, q, &page); err != nil {
		return nil, err
	}
	if page.items == nil {
		return []T{}, nil
	}
	return page.items, nil
}
