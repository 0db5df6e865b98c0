package discovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"beatsphere/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tracks(prefix string, n int) []domain.Track {
	out := make([]domain.Track, n)
	for i := range out {
		out[i] = domain.Track{ID: domain.ID(fmt.Sprintf("%s%d", prefix, i))}
	}
	return out
}

type stubRecs struct {
	mu        sync.Mutex
	top       []domain.Track
	topErr    error
	genreErr  error
	artistTop []domain.Track
	artistErr error
	users     []domain.ID
}

func (s *stubRecs) TopTracks(context.Context) ([]domain.Track, error) {
	return s.top, s.topErr
}

func (s *stubRecs) ByGenre(_ context.Context, userID domain.ID) ([]domain.Track, error) {
	s.mu.Lock()
	s.users = append(s.users, userID)
	s.mu.Unlock()
	return tracks("g", 2), s.genreErr
}

func (s *stubRecs) ByLike(_ context.Context, userID domain.ID) ([]domain.Track, error) {
	s.mu.Lock()
	s.users = append(s.users, userID)
	s.mu.Unlock()
	return tracks("l", 3), nil
}

func (s *stubRecs) ArtistTopTracks(context.Context, domain.ID) ([]domain.Track, error) {
	return s.artistTop, s.artistErr
}

type stubCatalog struct {
	artistErr error
	albumsErr error
	tracks    []domain.Track
}

func (s *stubCatalog) Artist(_ context.Context, id domain.ID) (domain.Artist, error) {
	return domain.Artist{ID: id, Name: "Extremoduro"}, s.artistErr
}

func (s *stubCatalog) ArtistAlbums(context.Context, domain.ID) ([]domain.Album, error) {
	return []domain.Album{{ID: "al"}}, s.albumsErr
}

func (s *stubCatalog) ArtistTracks(context.Context, domain.ID) ([]domain.Track, error) {
	return s.tracks, nil
}

type stubSessions struct {
	sess domain.Session
}

func (s stubSessions) Current() domain.Session { return s.sess }

func TestHomeAnonymous(t *testing.T) {
	recs := &stubRecs{top: tracks("t", 10)}
	home := New(recs, &stubCatalog{}, stubSessions{}, nil).Home(context.Background())

	assert.Len(t, home.Top, 10)
	assert.NotNil(t, home.ByGenre)
	assert.Empty(t, home.ByGenre)
	assert.Empty(t, home.ByLike)
	assert.Empty(t, recs.users)
}

func TestHomeDegradesPerShelf(t *testing.T) {
	recs := &stubRecs{topErr: errors.New("down"), genreErr: errors.New("down")}
	home := New(recs, &stubCatalog{}, stubSessions{sess: domain.Session{UserID: "4"}}, nil).Home(context.Background())

	assert.NotNil(t, home.Top)
	assert.Empty(t, home.Top)
	assert.Empty(t, home.ByGenre)
	assert.Len(t, home.ByLike, 3)
	assert.ElementsMatch(t, []domain.ID{"4", "4"}, recs.users)
}

func TestArtistUsesRecommendations(t *testing.T) {
	recs := &stubRecs{artistTop: tracks("r", 12)}
	page, err := New(recs, &stubCatalog{tracks: tracks("c", 3)}, stubSessions{}, nil).Artist(context.Background(), "7")
	require.NoError(t, err)

	assert.Equal(t, "Extremoduro", page.Artist.Name)
	assert.Len(t, page.Albums, 1)
	require.Len(t, page.TopTracks, ArtistTopLimit)
	assert.Equal(t, domain.ID("r0"), page.TopTracks[0].ID)
}

func TestArtistFallsBackToCatalogTracks(t *testing.T) {
	catalog := &stubCatalog{tracks: tracks("c", 3)}

	page, err := New(&stubRecs{artistErr: errors.New("down")}, catalog, stubSessions{}, nil).Artist(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, domain.ID("c0"), page.TopTracks[0].ID)

	page, err = New(&stubRecs{}, catalog, stubSessions{}, nil).Artist(context.Background(), "7")
	require.NoError(t, err)
	assert.Len(t, page.TopTracks, 3)
}

func TestArtistErrors(t *testing.T) {
	feed := New(&stubRecs{}, &stubCatalog{artistErr: domain.ErrNotFound}, stubSessions{}, nil)
	_, err := feed.Artist(context.Background(), "7")
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = feed.Artist(context.Background(), " ")
	assert.True(t, domain.IsValidation(err))

	page, err := New(&stubRecs{}, &stubCatalog{albumsErr: errors.New("down")}, stubSessions{}, nil).Artist(context.Background(), "7")
	require.NoError(t, err)
	assert.NotNil(t, page.Albums)
	assert.Empty(t, page.Albums)
	assert.Empty(t, page.TopTracks)
}
