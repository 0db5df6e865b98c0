// Package likes sends engagement events for the logged-in user: likes are
// applied optimistically, plays are fire-and-forget.
package likes

import (
	"context"
	"sync"

	"beatsphere/internal/domain"
	"go.uber.org/zap"
)

// Engagement is the slice of the account service that records events.
type Engagement interface {
	AddLike(ctx context.Context, userID, trackID domain.ID) error
	RecordPlay(ctx context.Context, userID, trackID domain.ID) error
}

// Sessions exposes the current session.
type Sessions interface {
	Current() domain.Session
}

type Tracker struct {
	events   Engagement
	sessions Sessions
	logger   *zap.Logger

	mu    sync.Mutex
	owner domain.ID
	liked map[domain.ID]struct{}
}

func New(events Engagement, sessions Sessions, logger *zap.Logger) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tracker{
		events:   events,
		sessions: sessions,
		logger:   logger,
		liked:    make(map[domain.ID]struct{}),
	}
}

// Like marks trackID liked and tells the account service. The mark stays even
// when the request fails; liking a track twice sends nothing the second time.
func (t *Tracker) Like(ctx context.Context, trackID domain.ID) error {
	sess := t.sessions.Current()
	if !sess.Authenticated() {
		return domain.ErrUnauthenticated
	}
	id, err := domain.IDOf(trackID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	liked := t.likedLocked(sess.UserID)
	_, already := liked[id]
	liked[id] = struct{}{}
	t.mu.Unlock()
	if already {
		return nil
	}

	if err := t.events.AddLike(ctx, sess.UserID, id); err != nil {
		t.logger.Warn("like request failed", zap.String("user_id", sess.UserID.String()), zap.String("track_id", id.String()), zap.Error(err))
	}
	return nil
}

// Liked reports whether the current user liked trackID in this process.
func (t *Tracker) Liked(trackID domain.ID) bool {
	sess := t.sessions.Current()
	if !sess.Authenticated() {
		return false
	}
	id, err := domain.IDOf(trackID)
	if err != nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.likedLocked(sess.UserID)[id]
	return ok
}

// Play records a play for the current user. Anonymous plays are skipped and
// failures are only logged.
func (t *Tracker) Play(ctx context.Context, trackID domain.ID) {
	sess := t.sessions.Current()
	if !sess.Authenticated() {
		return
	}
	id, err := domain.IDOf(trackID)
	if err != nil {
		return
	}
	if err := t.events.RecordPlay(ctx, sess.UserID, id); err != nil {
		t.logger.Warn("play event failed", zap.String("user_id", sess.UserID.String()), zap.String("track_id", id.String()), zap.Error(err))
	}
}

// likedLocked returns the like set for userID, dropping marks that belong to
// a previous user.
func (t *Tracker) likedLocked(userID domain.ID) map[domain.ID]struct{} {
	if t.owner != userID {
		t.owner = userID
		t.liked = make(map[domain.ID]struct{})
	}
	return t.liked
}
