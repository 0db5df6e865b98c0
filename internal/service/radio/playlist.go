// Package radio drives the radio page: the full track list, the current
// position in it and the search/genre view over it.
package radio

import (
	"context"
	"math"
	"strings"
	"sync"

	"beatsphere/internal/domain"
	"beatsphere/internal/gateway/content"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AllGenres is the genre option that disables the genre filter.
const AllGenres = "Todos"

const libraryAlbumPageSize = 500

// Library is the content the radio plays from.
type Library interface {
	Tracks(ctx context.Context) ([]domain.Track, error)
	Artists(ctx context.Context) ([]domain.Artist, error)
	Albums(ctx context.Context, q content.AlbumQuery) ([]domain.Album, error)
}

// Player is told about every track that starts playing.
type Player interface {
	Play(ctx context.Context, trackID domain.ID)
}

// Entry is a track with the names the view shows next to it.
type Entry struct {
	domain.Track
	ArtistName string `json:"artistName"`
	CoverURL   string `json:"coverUrl,omitempty"`
}

type Playlist struct {
	lib    Library
	player Player
	logger *zap.Logger

	mu      sync.Mutex
	entries []Entry
	current int
	playing bool
}

func New(lib Library, player Player, logger *zap.Logger) *Playlist {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Playlist{lib: lib, player: player, logger: logger}
}

// Load fetches tracks and the album/artist metadata used to name them. Only a
// track failure is fatal; missing metadata leaves names blank. The position
// resets to the first track.
func (p *Playlist) Load(ctx context.Context) error {
	var (
		tracks  []domain.Track
		albums  []domain.Album
		artists []domain.Artist
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tracks, err = p.lib.Tracks(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		if albums, err = p.lib.Albums(gctx, content.AlbumQuery{Size: libraryAlbumPageSize}); err != nil {
			p.logger.Warn("radio: load albums", zap.Error(err))
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if artists, err = p.lib.Artists(gctx); err != nil {
			p.logger.Warn("radio: load artists", zap.Error(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	entries := label(tracks, albums, artists)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = entries
	p.current = 0
	p.playing = false
	return nil
}

func label(tracks []domain.Track, albums []domain.Album, artists []domain.Artist) []Entry {
	albumByID := make(map[domain.ID]domain.Album, len(albums))
	for _, a := range albums {
		albumByID[a.ID] = a
	}
	artistName := make(map[domain.ID]string, len(artists))
	for _, a := range artists {
		artistName[a.ID] = a.Name
	}

	entries := make([]Entry, 0, len(tracks))
	for _, t := range tracks {
		e := Entry{Track: t}
		album, ok := albumByID[t.AlbumID]
		if ok {
			e.CoverURL = album.CoverURL
		}
		artistID := t.ArtistID
		if artistID.IsZero() {
			artistID = album.ArtistID
		}
		e.ArtistName = artistName[artistID]
		entries = append(entries, e)
	}
	return entries
}

// Tracks returns the full playlist.
func (p *Playlist) Tracks() []Entry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// Current returns the track under the cursor.
func (p *Playlist) Current() (Entry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.entries) == 0 {
		return Entry{}, false
	}
	return p.entries[p.current], true
}

// Playing reports whether a track was started since the last Load.
func (p *Playlist) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Select moves to the track with id and starts it.
func (p *Playlist) Select(ctx context.Context, id domain.ID) (Entry, error) {
	id, err := domain.IDOf(id)
	if err != nil {
		return Entry{}, err
	}
	return p.move(ctx, func(entries []Entry, _ int) int {
		for i := range entries {
			if entries[i].ID == id {
				return i
			}
		}
		return -1
	})
}

// Next wraps from the last track to the first.
func (p *Playlist) Next(ctx context.Context) (Entry, error) {
	return p.move(ctx, func(entries []Entry, cur int) int {
		return (cur + 1) % len(entries)
	})
}

// Prev wraps from the first track to the last.
func (p *Playlist) Prev(ctx context.Context) (Entry, error) {
	return p.move(ctx, func(entries []Entry, cur int) int {
		return (cur - 1 + len(entries)) % len(entries)
	})
}

func (p *Playlist) move(ctx context.Context, pick func([]Entry, int) int) (Entry, error) {
	p.mu.Lock()
	if len(p.entries) == 0 {
		p.mu.Unlock()
		return Entry{}, domain.ErrNotFound
	}
	i := pick(p.entries, p.current)
	if i < 0 {
		p.mu.Unlock()
		return Entry{}, domain.ErrNotFound
	}
	p.current = i
	p.playing = true
	e := p.entries[i]
	p.mu.Unlock()

	if p.player != nil {
		p.player.Play(ctx, e.ID)
	}
	return e, nil
}

// Filter returns the tracks whose title or artist name contains search and
// whose genre equals genre, both case-insensitive. It does not move the
// cursor; Next and Prev always walk the full playlist.
func (p *Playlist) Filter(search, genre string) []Entry {
	query := strings.ToLower(strings.TrimSpace(search))
	genre = strings.TrimSpace(genre)
	anyGenre := genre == "" || strings.EqualFold(genre, AllGenres)

	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Entry, 0, len(p.entries))
	for _, e := range p.entries {
		matchesSearch := strings.Contains(strings.ToLower(e.Title), query) ||
			strings.Contains(strings.ToLower(e.ArtistName), query)
		matchesGenre := anyGenre || strings.EqualFold(e.Genre, genre)
		if matchesSearch && matchesGenre {
			out = append(out, e)
		}
	}
	return out
}

// Progress returns position/duration as a percentage in [0, 100].
func Progress(position, duration float64) float64 {
	if duration <= 0 || math.IsNaN(duration) || math.IsNaN(position) || position <= 0 {
		return 0
	}
	return math.Min(position/duration*100, 100)
}
