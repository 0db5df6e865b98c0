// Package catalog keeps the marketplace listing: the active filter and the
// albums loaded so far, one page at a time.
package catalog

import (
	"context"
	"strings"
	"sync"

	"beatsphere/internal/domain"
	"beatsphere/internal/gateway/content"
	"go.uber.org/zap"
)

// DefaultPageSize matches the marketplace grid.
const DefaultPageSize = 8

// Source lists albums page by page and fetches single albums.
type Source interface {
	Albums(ctx context.Context, q content.AlbumQuery) ([]domain.Album, error)
	Album(ctx context.Context, id domain.ID) (domain.Album, error)
}

// Filter narrows the listing. A blank Genre or content.AllGenres means every
// genre; SearchType only matters with a non-blank Search.
type Filter struct {
	Search     string `json:"search" form:"search"`
	SearchType string `json:"type" form:"type"`
	Genre      string `json:"genre" form:"genre"`
}

func (f Filter) normalized() Filter {
	f.Search = strings.TrimSpace(f.Search)
	f.SearchType = strings.ToLower(strings.TrimSpace(f.SearchType))
	if f.SearchType == "" {
		f.SearchType = content.SearchAlbum
	}
	f.Genre = strings.TrimSpace(f.Genre)
	if f.Genre == content.AllGenres {
		f.Genre = ""
	}
	return f
}

func (f Filter) validate() error {
	switch f.SearchType {
	case content.SearchAlbum, content.SearchArtist, content.SearchTrack:
		return nil
	}
	return &domain.ValidationError{Field: "type", Reason: "must be album, artist or track"}
}

// Listing is a snapshot of the browser state.
type Listing struct {
	Filter   Filter         `json:"filter"`
	Albums   []domain.Album `json:"albums"`
	NextPage int            `json:"nextPage"`
	HasMore  bool           `json:"hasMore"`
}

type Browser struct {
	src    Source
	size   int
	logger *zap.Logger

	// fetchMu serializes page loads so pages append in order.
	fetchMu sync.Mutex

	mu      sync.Mutex
	loaded  bool
	filter  Filter
	albums  []domain.Album
	next    int
	hasMore bool
}

func New(src Source, pageSize int, logger *zap.Logger) *Browser {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Browser{src: src, size: pageSize, logger: logger}
}

// Apply switches to filter f and loads its first page. Re-applying the active
// filter returns the current listing without a request. On error the
// previous listing is kept.
func (b *Browser) Apply(ctx context.Context, f Filter) (Listing, error) {
	f = f.normalized()
	if err := f.validate(); err != nil {
		return Listing{}, err
	}

	b.fetchMu.Lock()
	defer b.fetchMu.Unlock()

	b.mu.Lock()
	if b.loaded && b.filter == f {
		l := b.listingLocked()
		b.mu.Unlock()
		return l, nil
	}
	b.mu.Unlock()

	albums, err := b.fetch(ctx, f, 0)
	if err != nil {
		return Listing{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loaded = true
	b.filter = f
	b.albums = albums
	b.next = 1
	b.hasMore = len(albums) >= b.size
	return b.listingLocked(), nil
}

// LoadMore appends the next page. It loads the first page when nothing has
// been loaded yet and is a no-op once the last page was seen.
func (b *Browser) LoadMore(ctx context.Context) (Listing, error) {
	b.mu.Lock()
	loaded, f := b.loaded, b.filter
	b.mu.Unlock()
	if !loaded {
		return b.Apply(ctx, f)
	}

	b.fetchMu.Lock()
	defer b.fetchMu.Unlock()

	b.mu.Lock()
	if !b.hasMore {
		l := b.listingLocked()
		b.mu.Unlock()
		return l, nil
	}
	f, page := b.filter, b.next
	b.mu.Unlock()

	albums, err := b.fetch(ctx, f, page)
	if err != nil {
		return Listing{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.albums = append(b.albums, albums...)
	b.next = page + 1
	b.hasMore = len(albums) >= b.size
	return b.listingLocked(), nil
}

// Album fetches one album for the product detail view.
func (b *Browser) Album(ctx context.Context, id domain.ID) (domain.Album, error) {
	id, err := domain.IDOf(id)
	if err != nil {
		return domain.Album{}, err
	}
	return b.src.Album(ctx, id)
}

// Listing returns the current state.
func (b *Browser) Listing() Listing {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.listingLocked()
}

func (b *Browser) fetch(ctx context.Context, f Filter, page int) ([]domain.Album, error) {
	albums, err := b.src.Albums(ctx, content.AlbumQuery{
		Page:       page,
		Size:       b.size,
		Search:     f.Search,
		SearchType: f.SearchType,
		Genre:      f.Genre,
	})
	if err != nil {
		b.logger.Warn("load albums", zap.Int("page", page), zap.String("search", f.Search), zap.Error(err))
		return nil, err
	}
	return albums, nil
}

func (b *Browser) listingLocked() Listing {
	albums := make([]domain.Album, len(b.albums))
	copy(albums, b.albums)
	return Listing{Filter: b.filter, Albums: albums, NextPage: b.next, HasMore: b.hasMore}
}
