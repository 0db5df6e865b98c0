// Package discovery assembles the recommendation shelves and artist pages
// from the content and recommendation services.
package discovery

import (
	"context"

	"beatsphere/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ArtistTopLimit caps the top-tracks shelf on an artist page.
const ArtistTopLimit = 10

// Recommender is the recommendation service.
type Recommender interface {
	TopTracks(ctx context.Context) ([]domain.Track, error)
	ByGenre(ctx context.Context, userID domain.ID) ([]domain.Track, error)
	ByLike(ctx context.Context, userID domain.ID) ([]domain.Track, error)
	ArtistTopTracks(ctx context.Context, artistID domain.ID) ([]domain.Track, error)
}

// Catalog is the part of the content service artist pages read.
type Catalog interface {
	Artist(ctx context.Context, id domain.ID) (domain.Artist, error)
	ArtistAlbums(ctx context.Context, id domain.ID) ([]domain.Album, error)
	ArtistTracks(ctx context.Context, id domain.ID) ([]domain.Track, error)
}

// Sessions exposes the current session.
type Sessions interface {
	Current() domain.Session
}

// Home is the set of shelves on the discovery page. Personal shelves are
// empty for anonymous sessions.
type Home struct {
	Top     []domain.Track `json:"top"`
	ByGenre []domain.Track `json:"byGenre"`
	ByLike  []domain.Track `json:"byLike"`
}

// ArtistPage is everything the artist view renders.
type ArtistPage struct {
	Artist    domain.Artist  `json:"artist"`
	Albums    []domain.Album `json:"albums"`
	TopTracks []domain.Track `json:"topTracks"`
}

type Feed struct {
	recs     Recommender
	catalog  Catalog
	sessions Sessions
	logger   *zap.Logger
}

func New(recs Recommender, catalog Catalog, sessions Sessions, logger *zap.Logger) *Feed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Feed{recs: recs, catalog: catalog, sessions: sessions, logger: logger}
}

// Home loads all shelves concurrently. A failing shelf is logged and comes
// back empty; Home itself never fails.
func (f *Feed) Home(ctx context.Context) Home {
	home := Home{Top: []domain.Track{}, ByGenre: []domain.Track{}, ByLike: []domain.Track{}}
	sess := f.sessions.Current()

	var g errgroup.Group
	g.Go(func() error {
		home.Top = f.shelf("top", func() ([]domain.Track, error) { return f.recs.TopTracks(ctx) })
		return nil
	})
	if sess.Authenticated() {
		g.Go(func() error {
			home.ByGenre = f.shelf("genre", func() ([]domain.Track, error) { return f.recs.ByGenre(ctx, sess.UserID) })
			return nil
		})
		g.Go(func() error {
			home.ByLike = f.shelf("like", func() ([]domain.Track, error) { return f.recs.ByLike(ctx, sess.UserID) })
			return nil
		})
	}
	_ = g.Wait()
	return home
}

func (f *Feed) shelf(name string, load func() ([]domain.Track, error)) []domain.Track {
	tracks, err := load()
	if err != nil {
		f.logger.Warn("recommendation shelf unavailable", zap.String("shelf", name), zap.Error(err))
		return []domain.Track{}
	}
	if tracks == nil {
		return []domain.Track{}
	}
	return tracks
}

// Artist loads an artist page. The artist itself is required; albums degrade
// to empty, and top tracks fall back to the artist's catalog tracks when the
// recommendation service fails or has nothing.
func (f *Feed) Artist(ctx context.Context, id domain.ID) (ArtistPage, error) {
	id, err := domain.IDOf(id)
	if err != nil {
		return ArtistPage{}, err
	}

	page := ArtistPage{Albums: []domain.Album{}, TopTracks: []domain.Track{}}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		artist, err := f.catalog.Artist(gctx, id)
		if err != nil {
			return err
		}
		page.Artist = artist
		return nil
	})
	g.Go(func() error {
		albums, err := f.catalog.ArtistAlbums(gctx, id)
		if err != nil {
			f.logger.Warn("artist albums unavailable", zap.String("artist_id", id.String()), zap.Error(err))
			return nil
		}
		if albums != nil {
			page.Albums = albums
		}
		return nil
	})
	g.Go(func() error {
		page.TopTracks = f.topTracks(gctx, id)
		return nil
	})
	if err := g.Wait(); err != nil {
		return ArtistPage{}, err
	}
	return page, nil
}

func (f *Feed) topTracks(ctx context.Context, id domain.ID) []domain.Track {
	tracks, err := f.recs.ArtistTopTracks(ctx, id)
	if err != nil {
		f.logger.Warn("artist top tracks unavailable, using catalog tracks", zap.String("artist_id", id.String()), zap.Error(err))
	}
	if len(tracks) == 0 {
		tracks, err = f.catalog.ArtistTracks(ctx, id)
		if err != nil {
			f.logger.Warn("artist tracks unavailable", zap.String("artist_id", id.String()), zap.Error(err))
			return []domain.Track{}
		}
	}
	if len(tracks) > ArtistTopLimit {
		tracks = tracks[:ArtistTopLimit]
	}
	if tracks == nil {
		tracks = []domain.Track{}
	}
	return tracks
}
