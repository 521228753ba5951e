// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session tracks who the current visitor is: the cookie session
// manager and the Store that follows auth events and resolves each signed-in
// user's role.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/olegiv/studio-go/internal/auth"
)

// Role is the authorization level of a session.
type Role string

// Roles.
const (
	RoleAdmin    Role = "admin"
	RoleStandard Role = "standard"
)

// Session is a value snapshot of a visitor's session.
type Session struct {
	ID        string    `json:"id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	Email     string    `json:"email,omitempty"`
	Role      Role      `json:"role"`
	IsLoading bool      `json:"is_loading"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

// Anonymous is the session of a visitor who is not signed in.
func Anonymous() Session {
	return Session{Role: RoleStandard}
}

// Authenticated reports whether the session belongs to a signed-in user.
func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// IsAdmin is true only for a signed-in user whose role has resolved to admin.
func (s Session) IsAdmin() bool {
	return s.Authenticated() && !s.IsLoading && s.Role == RoleAdmin
}

// Backend is the auth service the Store follows.
type Backend interface {
	SignIn(ctx context.Context, email, password, userAgent string) (*auth.Session, error)
	SignOut(ctx context.Context, sessionID string) error
	GetSession(ctx context.Context, accessToken string) (*auth.Session, error)
	TokenSessionID(accessToken string) (string, error)
	Refresh(ctx context.Context, sessionID string) (*auth.Session, error)
	Subscribe(l auth.Listener) func()
}

// ProfileLookup returns the stored profile of a user.
type ProfileLookup interface {
	Profile(ctx context.Context, userID string) (auth.Profile, error)
}

// StoreConfig tunes the Store.
type StoreConfig struct {
	// RoleTimeout bounds a single role lookup.
	RoleTimeout time.Duration
	// RefreshInterval is how often sessions seen since the last run are refreshed.
	RefreshInterval time.Duration
	// RefreshTimeout bounds one refresh run.
	RefreshTimeout time.Duration
}

// DefaultStoreConfig returns the production defaults.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		RoleTimeout:     10 * time.Second,
		RefreshInterval: 50 * time.Minute,
		RefreshTimeout:  time.Minute,
	}
}

type entry struct {
	session  Session
	resolved bool
	gen      uint64
	ready    chan struct{}
	seen     bool
	// version is the profile UpdatedAt the role was read from.
	version time.Time
}

func (e *entry) markReady() {
	select {
	case <-e.ready:
	default:
		close(e.ready)
	}
}

func (e *entry) snapshot() Session {
	s := e.session
	s.IsLoading = !e.resolved
	if !e.resolved {
		s.Role = RoleStandard
	}
	return s
}

// Store holds the resolved state of every known auth session. It is the
// only writer of that state; callers receive copies.
type Store struct {
	backend  Backend
	profiles ProfileLookup
	cfg      StoreConfig
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	stopped bool

	baseCtx     context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
	startOnce   sync.Once
	stopOnce    sync.Once
}

// NewStore creates a Store. Call Start before serving requests.
func NewStore(backend Backend, profiles ProfileLookup, cfg StoreConfig, logger *slog.Logger) *Store {
	def := DefaultStoreConfig()
	if cfg.RoleTimeout <= 0 {
		cfg.RoleTimeout = def.RoleTimeout
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = def.RefreshInterval
	}
	if cfg.RefreshTimeout <= 0 {
		cfg.RefreshTimeout = def.RefreshTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		backend:  backend,
		profiles: profiles,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		entries:  make(map[string]*entry),
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Start subscribes to auth events and starts the refresh loop.
func (s *Store) Start() {
	s.startOnce.Do(func() {
		s.mu.Lock()
		stopped := s.stopped
		s.mu.Unlock()
		if stopped {
			return
		}
		s.unsubscribe = s.backend.Subscribe(s.handle)
		s.wg.Add(1)
		go s.refreshLoop()
		s.logger.Info("session store started", "refresh_interval", s.cfg.RefreshInterval)
	})
}

// Stop unsubscribes, stops the refresh loop and waits for in-flight role
// lookups. It is safe to call more than once.
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()

		if s.unsubscribe != nil {
			s.unsubscribe()
		}
		s.cancel()
		s.wg.Wait()
		s.logger.Info("session store stopped")
	})
}

// Len returns the number of tracked sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Session resolves an access token. Invalid, expired or empty tokens give
// the anonymous session. The first sight of a valid session starts its role
// lookup and returns IsLoading until it completes.
func (s *Store) Session(ctx context.Context, accessToken string) Session {
	if accessToken == "" {
		return Anonymous()
	}

	as, err := s.backend.GetSession(ctx, accessToken)
	if err != nil {
		var aerr *auth.Error
		if !errors.As(err, &aerr) {
			s.logger.Warn("session lookup failed", "error", err)
		}
		return Anonymous()
	}

	s.mu.Lock()
	if e, ok := s.entries[as.ID]; ok {
		e.seen = true
		e.session.ExpiresAt = as.ExpiresAt
		snap := e.snapshot()
		resolved := e.resolved
		s.mu.Unlock()
		if !resolved {
			return snap
		}
		return s.verifyRole(ctx, e, snap)
	}
	s.mu.Unlock()

	s.handle(auth.Event{Type: auth.EventInitialSession, Session: *as})
	return s.snapshot(as.ID)
}

// Await waits until the session's first role resolution completes or ctx
// ends, then returns its current snapshot.
func (s *Store) Await(ctx context.Context, sessionID string) Session {
	s.mu.Lock()
	e, ok := s.entries[sessionID]
	s.mu.Unlock()
	if !ok {
		return Anonymous()
	}

	select {
	case <-e.ready:
	case <-ctx.Done():
	}
	return s.snapshot(sessionID)
}

// Login signs in and returns the session with its role resolved (or the
// wait bounded by ctx), together with the access token.
func (s *Store) Login(ctx context.Context, email, password, userAgent string) (Session, string, error) {
	as, err := s.backend.SignIn(ctx, email, password, userAgent)
	if err != nil {
		return Anonymous(), "", err
	}
	// SIGNED_IN has been delivered synchronously by now; make sure an
	// entry exists even when the Store is not subscribed.
	s.mu.Lock()
	_, known := s.entries[as.ID]
	s.mu.Unlock()
	if !known {
		s.handle(auth.Event{Type: auth.EventSignedIn, Session: *as})
	}
	return s.Await(ctx, as.ID), as.AccessToken, nil
}

// Logout clears local state for the token's session, then signs it out
// at the backend. Unknown or expired tokens are a no-op. When the session
// cannot be looked up, the id is taken from the token itself so the sign
// out still happens.
func (s *Store) Logout(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	var id string
	as, err := s.backend.GetSession(ctx, accessToken)
	if err != nil {
		var aerr *auth.Error
		if errors.As(err, &aerr) {
			return nil
		}
		sid, perr := s.backend.TokenSessionID(accessToken)
		if perr != nil {
			return nil
		}
		s.logger.Warn("session lookup failed during logout", "session_id", sid, "error", err)
		id = sid
	} else {
		id = as.ID
	}
	s.remove(id)
	return s.backend.SignOut(ctx, id)
}

// verifyRole re-reads the profile behind a resolved session. Role changes
// written by another process (studioctl) publish no event here, so a newer
// profile version replaces the role on the next request. A failed read
// answers this request as standard and leaves the entry alone.
func (s *Store) verifyRole(ctx context.Context, e *entry, snap Session) Session {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RoleTimeout)
	defer cancel()

	p, err := s.fetchProfile(ctx, snap.UserID)
	if err != nil {
		s.logger.Warn("role check failed", "user_id", snap.UserID, "error", err)
		snap.Role = RoleStandard
		return snap
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[snap.ID]; !ok || cur != e {
		return Anonymous()
	}
	if !e.resolved || p.UpdatedAt.Equal(e.version) {
		return e.snapshot()
	}
	role := roleOf(p.Role)
	if role != e.session.Role {
		s.logger.Info("session role changed", "session_id", snap.ID, "user_id", snap.UserID, "role", role)
	}
	// Newer than any lookup still in flight.
	e.gen++
	e.session.Role = role
	e.version = p.UpdatedAt
	return e.snapshot()
}

// handle applies one auth event. It runs on the publisher's goroutine and
// never calls the backend.
func (s *Store) handle(ev auth.Event) {
	id := ev.Session.ID
	switch ev.Type {
	case auth.EventSignedOut:
		s.remove(id)
		s.logger.Debug("session cleared", "session_id", id)
		return

	case auth.EventSignedIn, auth.EventInitialSession:
		s.mu.Lock()
		e, ok := s.entries[id]
		if !ok {
			e = &entry{ready: make(chan struct{})}
			s.entries[id] = e
		}
		s.apply(e, ev.Session)
		e.seen = true
		s.mu.Unlock()

	case auth.EventTokenRefreshed, auth.EventUserUpdated:
		s.mu.Lock()
		e, ok := s.entries[id]
		if !ok {
			s.mu.Unlock()
			return
		}
		s.apply(e, ev.Session)
		s.mu.Unlock()

	default:
		return
	}

	s.resolveRole(id, ev.Session.UserID)
}

// apply copies backend session fields into e. Callers hold s.mu.
func (s *Store) apply(e *entry, as auth.Session) {
	e.session.ID = as.ID
	e.session.UserID = as.UserID
	if as.Email != "" {
		e.session.Email = as.Email
	}
	if !as.ExpiresAt.IsZero() {
		e.session.ExpiresAt = as.ExpiresAt
	}
	if !e.resolved {
		e.session.Role = RoleStandard
	}
}

func (s *Store) remove(id string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	delete(s.entries, id)
	s.mu.Unlock()
	if ok {
		e.markReady()
	}
}

func (s *Store) snapshot(id string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return Anonymous()
	}
	return e.snapshot()
}

// resolveRole starts a role lookup for the entry. Only the newest lookup of
// an entry may write its result.
func (s *Store) resolveRole(id, userID string) {
	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	e.gen++
	gen := e.gen
	stopped := s.stopped
	if !stopped {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if stopped {
		s.finishLookup(id, e, gen, auth.Profile{Role: string(RoleStandard)})
		return
	}

	go func() {
		defer s.wg.Done()
		s.finishLookup(id, e, gen, s.lookupRole(userID))
	}()
}

func (s *Store) finishLookup(id string, e *entry, gen uint64, p auth.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[id]; !ok || cur != e || e.gen != gen {
		return
	}
	e.session.Role = roleOf(p.Role)
	e.version = p.UpdatedAt
	e.resolved = true
	e.markReady()
}

// lookupRole fails closed. A failed lookup has a zero version, so the next
// request that reads the profile replaces it.
func (s *Store) lookupRole(userID string) auth.Profile {
	ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.RoleTimeout)
	defer cancel()

	p, err := s.fetchProfile(ctx, userID)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.Warn("role lookup timed out", "user_id", userID, "timeout", s.cfg.RoleTimeout)
		return auth.Profile{Role: string(RoleStandard)}
	case err != nil:
		s.logger.Warn("role lookup failed", "user_id", userID, "error", err)
		return auth.Profile{Role: string(RoleStandard)}
	}
	return p
}

// fetchProfile gives up when ctx ends even if the lookup itself does not.
func (s *Store) fetchProfile(ctx context.Context, userID string) (auth.Profile, error) {
	type result struct {
		profile auth.Profile
		err     error
	}
	ch := make(chan result, 1)
	go func() {
		p, err := s.profiles.Profile(ctx, userID)
		ch <- result{p, err}
	}()

	select {
	case r := <-ch:
		if err := ctx.Err(); err != nil {
			return auth.Profile{}, err
		}
		return r.profile, r.err
	case <-ctx.Done():
		return auth.Profile{}, ctx.Err()
	}
}

// roleOf maps a stored role to a Role; anything but "admin" is standard.
func roleOf(stored string) Role {
	if Role(stored) == RoleAdmin {
		return RoleAdmin
	}
	return RoleStandard
}

func (s *Store) refreshLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(s.baseCtx, s.cfg.RefreshTimeout)
			s.RefreshAll(ctx)
			cancel()
		case <-s.baseCtx.Done():
			return
		}
	}
}

// RefreshAll refreshes every session seen since the previous run and evicts
// sessions that expired without being seen. Failures are logged.
func (s *Store) RefreshAll(ctx context.Context) {
	now := s.now()

	s.mu.Lock()
	var ids []string
	for id, e := range s.entries {
		switch {
		case e.seen:
			e.seen = false
			ids = append(ids, id)
		case !e.session.ExpiresAt.IsZero() && !now.Before(e.session.ExpiresAt):
			delete(s.entries, id)
			e.markReady()
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.backend.Refresh(ctx, id); err != nil {
			if errors.Is(err, auth.ErrSessionExpired) {
				s.remove(id)
				s.logger.Info("session expired", "session_id", id)
				continue
			}
			s.logger.Warn("session refresh failed", "session_id", id, "error", err)
		}
	}
}
