// Package session tracks who is logged in for the lifetime of the process
// and keeps that identity in persistent local storage across restarts.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"beatsphere/internal/domain"
	"beatsphere/internal/storage"
	"go.uber.org/zap"
)

// Restore strategies.
const (
	// RestoreServer asks the account service who the cookie belongs to.
	RestoreServer = "server"
	// RestoreCached trusts the persisted userId and role.
	RestoreCached = "cached"
)

const logoutNotifyTimeout = 10 * time.Second

// Authenticator is the slice of the account service the store needs.
type Authenticator interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.Identity, error)
	Logout(ctx context.Context) error
	Session(ctx context.Context) (domain.Identity, error)
}

// Listener receives the session after every change.
type Listener func(domain.Session)

// Store is the single source of truth for the current session.
type Store struct {
	auth     Authenticator
	storage  storage.Store
	strategy string
	logger   *zap.Logger

	// notifyMu orders listener delivery; persistMu orders storage writes.
	// Both are taken before mu.
	notifyMu  sync.Mutex
	persistMu sync.Mutex

	mu        sync.Mutex
	current   domain.Session
	gen       uint64
	listeners map[int]Listener
	nextSubID int

	pending sync.WaitGroup
}

func New(auth Authenticator, st storage.Store, strategy string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strategy != RestoreCached {
		strategy = RestoreServer
	}
	return &Store{
		auth:      auth,
		storage:   st,
		strategy:  strategy,
		logger:    logger,
		listeners: make(map[int]Listener),
	}
}

// Restore rebuilds the session at startup. It never fails: anything it
// cannot confirm leaves the store unauthenticated. A Login or Logout that
// lands while Restore is in flight wins.
func (s *Store) Restore(ctx context.Context) {
	gen := s.generation()

	var (
		next     domain.Session
		rejected bool
	)
	switch s.strategy {
	case RestoreCached:
		next = s.cached(ctx)
	default:
		identity, err := s.auth.Session(ctx)
		switch {
		case err == nil && !identity.UserID.IsZero():
			next = domain.Session{UserID: identity.UserID, Role: identity.Role}
		case err == nil, domain.IsUnauthorized(err):
			rejected = true
		default:
			s.logger.Warn("session check failed, continuing unauthenticated", zap.Error(err))
		}
	}

	if !s.set(gen, next) {
		return
	}
	switch {
	case next.Authenticated():
		s.persist(ctx, gen, next)
		s.logger.Info("session restored", zap.String("user_id", next.UserID.String()), zap.String("role", string(next.Role)))
	case rejected:
		s.forget(ctx, gen)
	}
}

func (s *Store) cached(ctx context.Context) domain.Session {
	userID, err := s.storage.Get(ctx, storage.KeyUserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("read persisted user id", zap.Error(err))
		}
		return domain.Session{}
	}
	id, err := domain.IDOf(userID)
	if err != nil {
		return domain.Session{}
	}
	role, err := s.storage.Get(ctx, storage.KeyRole)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("read persisted role", zap.Error(err))
	}
	return domain.Session{UserID: id, Role: domain.ParseRole(role)}
}

// Login adopts an identity obtained from the account service.
func (s *Store) Login(ctx context.Context, identity domain.Identity) error {
	id, err := domain.IDOf(identity.UserID)
	if err != nil {
		return domain.ErrInvalidIdentity
	}
	next := domain.Session{UserID: id, Role: identity.Role}
	gen := s.bump()
	s.set(gen, next)
	s.persist(ctx, gen, next)
	s.logger.Info("logged in", zap.String("user_id", id.String()), zap.String("role", string(next.Role)))
	return nil
}

// Authenticate performs the credential exchange and then Login. A 401/403
// from the account service becomes domain.ErrInvalidCredentials.
func (s *Store) Authenticate(ctx context.Context, creds domain.Credentials) (domain.Session, error) {
	identity, err := s.auth.Login(ctx, creds)
	if err != nil {
		if domain.IsUnauthorized(err) {
			return domain.Session{}, domain.ErrInvalidCredentials
		}
		return domain.Session{}, err
	}
	if err := s.Login(ctx, identity); err != nil {
		return domain.Session{}, err
	}
	return s.Current(), nil
}

// Logout clears the session locally and tells the account service in the
// background. Local state is cleared even when the service is unreachable.
func (s *Store) Logout(ctx context.Context) {
	gen := s.bump()
	s.set(gen, domain.Session{})
	s.forget(ctx, gen)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutNotifyTimeout)
		defer cancel()
		if err := s.auth.Logout(notifyCtx); err != nil {
			s.logger.Warn("logout notification failed", zap.Error(err))
		}
	}()
}

// Close waits for in-flight logout notifications.
func (s *Store) Close() {
	s.pending.Wait()
}

func (s *Store) Current() domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Store) IsAuthenticated() bool {
	return s.Current().Authenticated()
}

func (s *Store) UserID() domain.ID {
	return s.Current().UserID
}

// Role is RoleUnset whenever no user is logged in.
func (s *Store) Role() domain.Role {
	return s.Current().EffectiveRole()
}

// Subscribe registers fn for change notifications and returns a func that
// unregisters it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Store) bump() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return s.gen
}

// set replaces the session if no newer mutation happened since gen was read.
// It reports whether the value was applied. Listeners run after mu is
// released but before the next set can start, so they observe changes in
// order; they must not call Login or Logout synchronously.
func (s *Store) set(gen uint64, next domain.Session) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return false
	}
	changed := s.current != next
	s.current = next
	var listeners []Listener
	if changed {
		for _, l := range s.listeners {
			listeners = append(listeners, l)
		}
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(next)
	}
	return true
}

// latest reports whether gen is still the newest mutation.
func (s *Store) latest(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}

// persist writes sess to storage unless a newer Login or Logout superseded
// gen. Writes hold persistMu so a superseding mutation always writes last.
func (s *Store) persist(ctx context.Context, gen uint64, sess domain.Session) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if !s.latest(gen) {
		return
	}
	if err := s.storage.Set(ctx, storage.KeyUserID, sess.UserID.String()); err != nil {
		s.logger.Error("persist user id", zap.Error(err))
		return
	}
	if sess.Role == domain.RoleUnset {
		if err := s.storage.Delete(ctx, storage.KeyRole); err != nil {
			s.logger.Error("clear persisted role", zap.Error(err))
		}
		return
	}
	if err := s.storage.Set(ctx, storage.KeyRole, string(sess.Role)); err != nil {
		s.logger.Error("persist role", zap.Error(err))
	}
}

func (s *Store) forget(ctx context.Context, gen uint64) {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()
	if !s.latest(gen) {
		return
	}
	for _, key := range []string{storage.KeyUserID, storage.KeyRole} {
		if err := s.storage.Delete(ctx, key); err != nil {
			s.logger.Error("clear persisted session", zap.String("key", key), zap.Error(err))
		}
	}
}
