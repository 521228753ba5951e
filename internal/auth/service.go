// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/studio-go/internal/cache"
	"github.com/olegiv/studio-go/internal/store"
)

// Config configures the auth Service.
type Config struct {
	// Secret signs access tokens.
	Secret []byte
	// TTL is how long a session lives after sign-in or its last refresh.
	TTL time.Duration
	// CacheTTL bounds how long a session lookup may be served from cache.
	CacheTTL time.Duration
}

// Service is the auth backend.
type Service struct {
	db      *sql.DB
	queries *store.Queries
	cache   cache.Cache
	cfg     Config
	bus     *bus
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates the auth backend. c may be nil to disable lookup caching.
func NewService(db *sql.DB, c cache.Cache, cfg Config, logger *slog.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:      db,
		queries: store.New(db),
		cache:   c,
		cfg:     cfg,
		bus:     newBus(),
		logger:  logger,
		now:     time.Now,
	}
}

// Subscribe registers l for auth events and returns its unsubscribe func.
func (s *Service) Subscribe(l Listener) func() {
	return s.bus.subscribe(l)
}

// SignIn checks credentials, opens a session and publishes SIGNED_IN.
func (s *Service) SignIn(ctx context.Context, email, password, userAgent string) (*Session, error) {
	email = normalizeEmail(email)
	user, err := s.queries.GetUserByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		// Hash anyway so unknown emails take as long as wrong passwords.
		_, _ = HashPassword(password)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	ok, err := CheckPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Error("stored password hash is unreadable", "user_id", user.ID, "error", err)
		return nil, ErrInvalidCredentials
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	sess := &Session{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Email:     user.Email,
		Device:    deviceLabel(userAgent),
		ExpiresAt: now.Add(s.cfg.TTL).Truncate(time.Second),
	}
	sess.AccessToken, err = newAccessToken(s.cfg.Secret, sess.ID, sess.UserID, sess.Email, now)
	if err != nil {
		return nil, err
	}

	if err := s.queries.CreateAuthSession(ctx, store.CreateAuthSessionParams{
		ID:          sess.ID,
		UserID:      sess.UserID,
		UserAgent:   sess.Device,
		CreatedAt:   now.Unix(),
		RefreshedAt: now.Unix(),
		ExpiresAt:   sess.ExpiresAt.Unix(),
	}); err != nil {
		return nil, fmt.Errorf("creating auth session: %w", err)
	}

	if err := s.queries.UpdateUserLastLogin(ctx, store.UpdateUserLastLoginParams{
		LastLoginAt: sql.NullTime{Time: now, Valid: true},
		ID:          user.ID,
	}); err != nil {
		s.logger.Warn("failed to stamp last login", "user_id", user.ID, "error", err)
	}

	if NeedsRehash(user.PasswordHash) {
		s.rehash(ctx, user.ID, password)
	}

	s.logger.Info("user signed in", "user_id", user.ID, "session_id", sess.ID, "device", sess.Device)
	s.bus.publish(Event{Type: EventSignedIn, Session: *sess})
	return sess, nil
}

func (s *Service) rehash(ctx context.Context, userID, password string) {
	hash, err := HashPassword(password)
	if err != nil {
		s.logger.Warn("failed to rehash password", "user_id", userID, "error", err)
		return
	}
	if err := s.queries.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{
		PasswordHash: hash,
		UpdatedAt:    s.now().UTC(),
		ID:           userID,
	}); err != nil {
		s.logger.Warn("failed to store rehashed password", "user_id", userID, "error", err)
	}
}

// SignOut ends a session and publishes SIGNED_OUT. Signing out an unknown
// session is not an error.
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	row, err := s.queries.GetAuthSession(ctx, sessionID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("loading auth session: %w", err)
	}
	if err := s.queries.DeleteAuthSession(ctx, sessionID); err != nil {
		return fmt.Errorf("deleting auth session: %w", err)
	}
	s.forget(ctx, sessionID)

	s.logger.Info("user signed out", "user_id", row.UserID, "session_id", sessionID)
	s.bus.publish(Event{Type: EventSignedOut, Session: Session{ID: sessionID, UserID: row.UserID}})
	return nil
}

// cachedSession is the cache encoding of a session lookup.
type cachedSession struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Device    string `json:"device"`
	ExpiresAt int64  `json:"expires_at"`
}

func sessionCacheKey(id string) string {
	return "auth:session:" + id
}

// GetSession resolves an access token to its live session.
func (s *Service) GetSession(ctx context.Context, accessToken string) (*Session, error) {
	claims, err := parseAccessToken(s.cfg.Secret, accessToken)
	if err != nil {
		return nil, err
	}

	sess, err := s.lookup(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if sess.UserID != claims.Subject {
		return nil, ErrInvalidToken
	}
	sess.AccessToken = accessToken
	return sess, nil
}

// TokenSessionID returns the session id of a validly signed access token
// without touching storage.
func (s *Service) TokenSessionID(accessToken string) (string, error) {
	claims, err := parseAccessToken(s.cfg.Secret, accessToken)
	if err != nil {
		return "", err
	}
	return claims.ID, nil
}

func (s *Service) lookup(ctx context.Context, sessionID string) (*Session, error) {
	now := s.now()

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, sessionCacheKey(sessionID)); err == nil {
			var c cachedSession
			if json.Unmarshal(data, &c) == nil {
				sess := &Session{
					ID:        sessionID,
					UserID:    c.UserID,
					Email:     c.Email,
					Device:    c.Device,
					ExpiresAt: time.Unix(c.ExpiresAt, 0).UTC(),
				}
				if sess.Expired(now) {
					return nil, ErrSessionExpired
				}
				return sess, nil
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("session cache lookup failed", "error", err)
		}
	}

	row, err := s.queries.GetAuthSession(ctx, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("loading auth session: %w", err)
	}
	user, err := s.queries.GetUserByID(ctx, row.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("loading session user: %w", err)
	}

	sess := &Session{
		ID:        row.ID,
		UserID:    row.UserID,
		Email:     user.Email,
		Device:    row.UserAgent,
		ExpiresAt: time.Unix(row.ExpiresAt, 0).UTC(),
	}
	if sess.Expired(now) {
		return nil, ErrSessionExpired
	}
	s.remember(ctx, sess)
	return sess, nil
}

func (s *Service) remember(ctx context.Context, sess *Session) {
	if s.cache == nil {
		return
	}
	ttl := min(s.cfg.CacheTTL, sess.ExpiresAt.Sub(s.now()))
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(cachedSession{
		UserID:    sess.UserID,
		Email:     sess.Email,
		Device:    sess.Device,
		ExpiresAt: sess.ExpiresAt.Unix(),
	})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, sessionCacheKey(sess.ID), data, ttl); err != nil {
		s.logger.Warn("session cache store failed", "error", err)
	}
}

func (s *Service) forget(ctx context.Context, sessionID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, sessionCacheKey(sessionID)); err != nil {
		s.logger.Warn("session cache invalidation failed", "error", err)
	}
}

// Refresh extends a live session and publishes TOKEN_REFRESHED. An expired
// or unknown session yields ErrSessionExpired.
func (s *Service) Refresh(ctx context.Context, sessionID string) (*Session, error) {
	now := s.now().UTC()
	expires := now.Add(s.cfg.TTL)

	n, err := s.queries.RefreshAuthSession(ctx, store.RefreshAuthSessionParams{
		RefreshedAt: now.Unix(),
		ExpiresAt:   expires.Unix(),
		ID:          sessionID,
		Now:         now.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("refreshing auth session: %w", err)
	}
	if n == 0 {
		return nil, ErrSessionExpired
	}
	s.forget(ctx, sessionID)

	sess, err := s.lookup(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	sess.AccessToken, err = newAccessToken(s.cfg.Secret, sess.ID, sess.UserID, sess.Email, now)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("session refreshed", "session_id", sessionID, "expires_at", sess.ExpiresAt)
	s.bus.publish(Event{Type: EventTokenRefreshed, Session: *sess})
	return sess, nil
}

// UpdatePassword changes the password of the session's user and publishes
// USER_UPDATED.
func (s *Service) UpdatePassword(ctx context.Context, accessToken, newPassword string) error {
	sess, err := s.GetSession(ctx, accessToken)
	if err != nil {
		return err
	}
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.queries.UpdateUserPassword(ctx, store.UpdateUserPasswordParams{
		PasswordHash: hash,
		UpdatedAt:    s.now().UTC(),
		ID:           sess.UserID,
	}); err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	s.logger.Info("password updated", "user_id", sess.UserID)
	s.bus.publish(Event{Type: EventUserUpdated, Session: *sess})
	return nil
}

// Profile returns the stored profile of a user.
func (s *Service) Profile(ctx context.Context, userID string) (Profile, error) {
	p, err := s.queries.GetProfile(ctx, userID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{Role: p.Role, UpdatedAt: p.UpdatedAt}, nil
}

// CreateUser adds a user with a profile of the given role.
func (s *Service) CreateUser(ctx context.Context, email, password, role string) (store.User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return store.User{}, fmt.Errorf("invalid email %q", email)
	}
	if len(password) < MinPasswordLength {
		return store.User{}, ErrWeakPassword
	}
	if role != store.RoleAdmin && role != store.RoleStandard {
		return store.User{}, fmt.Errorf("unknown role %q", role)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return store.User{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.User{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	qtx := s.queries.WithTx(tx)
	now := s.now().UTC()
	user, err := qtx.CreateUser(ctx, store.CreateUserParams{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return store.User{}, fmt.Errorf("creating user: %w", err)
	}
	if err := qtx.UpsertProfile(ctx, store.UpsertProfileParams{ID: user.ID, Role: role, UpdatedAt: now}); err != nil {
		return store.User{}, fmt.Errorf("creating profile: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return store.User{}, fmt.Errorf("committing user: %w", err)
	}
	return user, nil
}

// SetRole changes the profile role of the user with email and publishes
// USER_UPDATED for each of the user's live sessions.
func (s *Service) SetRole(ctx context.Context, email, role string) error {
	if role != store.RoleAdmin && role != store.RoleStandard {
		return fmt.Errorf("unknown role %q", role)
	}
	user, err := s.queries.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return fmt.Errorf("looking up user: %w", err)
	}
	now := s.now().UTC()
	if err := s.queries.UpsertProfile(ctx, store.UpsertProfileParams{ID: user.ID, Role: role, UpdatedAt: now}); err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}

	sessions, err := s.queries.ListAuthSessionsByUser(ctx, store.ListAuthSessionsByUserParams{
		UserID: user.ID,
		Now:    now.Unix(),
	})
	if err != nil {
		return fmt.Errorf("listing user sessions: %w", err)
	}
	for _, row := range sessions {
		s.bus.publish(Event{Type: EventUserUpdated, Session: Session{
			ID:        row.ID,
			UserID:    row.UserID,
			Email:     user.Email,
			Device:    row.UserAgent,
			ExpiresAt: time.Unix(row.ExpiresAt, 0).UTC(),
		}})
	}
	return nil
}

// ActiveSessions lists sessions that have not expired.
func (s *Service) ActiveSessions(ctx context.Context) ([]store.AuthSession, error) {
	return s.queries.ListActiveAuthSessions(ctx, s.now().Unix())
}

// PurgeExpired deletes expired session rows.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.queries.DeleteExpiredAuthSessions(ctx, s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purging expired sessions: %w", err)
	}
	return n, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
