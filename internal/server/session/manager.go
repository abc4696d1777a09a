// Package session owns the token lifecycle: issue, validate, refresh and
// revoke. A token is valid only while it both verifies under the codec and
// has a live record in the token store.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/tokenstore"
)

const (
	OpIssue    = "issue"
	OpValidate = "validate"
	OpRefresh  = "refresh"
	OpRevoke   = "revoke"
)

// Issued is the result of a successful Issue.
type Issued struct {
	AccessToken      string
	RefreshToken     string
	ExpiresIn        int64
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Refreshed is the result of a successful Refresh.
type Refreshed struct {
	AccessToken string
	ExpiresIn   int64
	ExpiresAt   time.Time
}

// Observer is told the outcome of every manager operation.
type Observer interface {
	ObserveSession(op string, err error)
}

type Option func(*Manager)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithObserver registers o for operation outcomes.
func WithObserver(o Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// Manager is safe for concurrent use.
type Manager struct {
	codec    *auth.Codec
	store    tokenstore.Store
	logger   logging.Logger
	timeout  time.Duration
	now      func() time.Time
	observer Observer
}

// NewManager validates cfg and returns a Manager over store.
func NewManager(cfg Config, store tokenstore.Store, logger logging.Logger, opts ...Option) (*Manager, error) {
	codec, err := auth.NewCodec(cfg.SecretKey, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, fmt.Errorf("%w: nil token store", common.ErrorValidation)
	}
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}

	m := &Manager{
		codec:   codec,
		store:   store,
		logger:  logger.With("module", "session"),
		timeout: timeout,
		now:     time.Now,
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Issue mints an access/refresh pair for subjectID and records both. The
// access token is linked to the refresh token for cascade revocation.
func (m *Manager) Issue(ctx context.Context, subjectID string) (res *Issued, err error) {
	defer func() { m.done(ctx, OpIssue, err, "subject", subjectID) }()

	now := m.now()
	access, ac, err := m.codec.Encode(subjectID, auth.TokenTypeAccess, now)
	if err != nil {
		return nil, err
	}
	refresh, rc, err := m.codec.Encode(subjectID, auth.TokenTypeRefresh, now)
	if err != nil {
		return nil, err
	}
	accessTTL := ac.Remaining(now)
	refreshTTL := rc.Remaining(now)

	if err := m.call(ctx, func(ctx context.Context) error {
		return m.store.Put(ctx, tokenstore.NamespaceAccess, access, subjectID, accessTTL)
	}); err != nil {
		return nil, err
	}
	if err := m.call(ctx, func(ctx context.Context) error {
		return m.store.Put(ctx, tokenstore.NamespaceRefresh, refresh, subjectID, refreshTTL)
	}); err != nil {
		m.discard(ctx, tokenstore.NamespaceAccess, access)
		return nil, err
	}
	if err := m.call(ctx, func(ctx context.Context) error {
		return m.store.Link(ctx, access, refresh, accessTTL)
	}); err != nil {
		m.discard(ctx, tokenstore.NamespaceAccess, access)
		m.discard(ctx, tokenstore.NamespaceRefresh, refresh)
		return nil, err
	}

	return &Issued{
		AccessToken:      access,
		RefreshToken:     refresh,
		ExpiresIn:        ac.ExpiresAt.Unix() - now.Unix(),
		AccessExpiresAt:  ac.ExpiresAt.Time,
		RefreshExpiresAt: rc.ExpiresAt.Time,
	}, nil
}

// Validate returns the subject of a live access token.
func (m *Manager) Validate(ctx context.Context, token string) (subjectID string, err error) {
	defer func() { m.done(ctx, OpValidate, err, "subject", subjectID) }()

	claims, err := m.codec.Decode(token, m.now())
	if err != nil {
		return "", err
	}
	if claims.Type != auth.TokenTypeAccess {
		return "", fmt.Errorf("%w: want %s, got %s", common.ErrWrongTokenType, auth.TokenTypeAccess, claims.Type)
	}

	stored, err := m.lookup(ctx, tokenstore.NamespaceAccess, token)
	if err != nil {
		return "", err
	}
	if stored != claims.UserID {
		return "", common.ErrSubjectMismatch
	}
	return claims.UserID, nil
}

// Refresh mints a new access token from a live refresh token. The refresh
// record is left as is, so refresh tokens are multi-use until they expire
// or are revoked.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (res *Refreshed, err error) {
	var subjectID string
	defer func() { m.done(ctx, OpRefresh, err, "subject", subjectID) }()

	now := m.now()
	claims, err := m.codec.Decode(refreshToken, now)
	if err != nil {
		return nil, err
	}
	if claims.Type != auth.TokenTypeRefresh {
		return nil, fmt.Errorf("%w: want %s, got %s", common.ErrWrongTokenType, auth.TokenTypeRefresh, claims.Type)
	}

	stored, err := m.lookup(ctx, tokenstore.NamespaceRefresh, refreshToken)
	if err != nil {
		return nil, err
	}
	if stored != claims.UserID {
		return nil, common.ErrSubjectMismatch
	}
	subjectID = claims.UserID

	access, ac, err := m.codec.Encode(subjectID, auth.TokenTypeAccess, now)
	if err != nil {
		return nil, err
	}
	ttl := ac.Remaining(now)

	if err := m.call(ctx, func(ctx context.Context) error {
		return m.store.Put(ctx, tokenstore.NamespaceAccess, access, subjectID, ttl)
	}); err != nil {
		return nil, err
	}
	if err := m.call(ctx, func(ctx context.Context) error {
		return m.store.Link(ctx, access, refreshToken, ttl)
	}); err != nil {
		m.discard(ctx, tokenstore.NamespaceAccess, access)
		return nil, err
	}

	return &Refreshed{
		AccessToken: access,
		ExpiresIn:   ac.ExpiresAt.Unix() - now.Unix(),
		ExpiresAt:   ac.ExpiresAt.Time,
	}, nil
}

// Revoke removes the refresh record linked to accessToken, then the link,
// then the access record itself. The access record goes last so a revoke
// that fails halfway still validates and can be retried to completion.
// The token is expected to have passed Validate. revoked is false when the
// access record was already gone.
func (m *Manager) Revoke(ctx context.Context, accessToken string) (revoked bool, err error) {
	defer func() { m.done(ctx, OpRevoke, err, "revoked", revoked) }()

	var refresh string
	err = m.call(ctx, func(ctx context.Context) error {
		var err error
		refresh, err = m.store.Get(ctx, tokenstore.NamespaceLink, accessToken)
		return err
	})
	linked := err == nil
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return false, err
	}

	if linked {
		if err := m.call(ctx, func(ctx context.Context) error {
			_, err := m.store.Delete(ctx, tokenstore.NamespaceRefresh, refresh)
			return err
		}); err != nil {
			return false, err
		}
		err = m.call(ctx, func(ctx context.Context) error {
			_, err := m.store.Unlink(ctx, accessToken)
			return err
		})
		if err != nil && !errors.Is(err, common.ErrorNotFound) {
			return false, err
		}
	}

	if err := m.call(ctx, func(ctx context.Context) error {
		var err error
		revoked, err = m.store.Delete(ctx, tokenstore.NamespaceAccess, accessToken)
		return err
	}); err != nil {
		return false, err
	}

	if revoked && !linked {
		m.logger.Warn(ctx, "no refresh token linked to revoked access token")
	}
	return revoked, nil
}

// lookup reads the subject stored for token, mapping a missing record to
// ErrRevokedOrUnknownToken.
func (m *Manager) lookup(ctx context.Context, ns tokenstore.Namespace, token string) (string, error) {
	var subject string
	err := m.call(ctx, func(ctx context.Context) error {
		var err error
		subject, err = m.store.Get(ctx, ns, token)
		return err
	})
	if errors.Is(err, common.ErrorNotFound) {
		return "", common.ErrRevokedOrUnknownToken
	}
	return subject, err
}

// call runs fn under the store timeout. Context errors and anything else
// the store did not classify come back as ErrStoreUnavailable; not-found and
// rejected arguments are passed through.
func (m *Manager) call(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := fn(ctx)
	switch {
	case err == nil,
		errors.Is(err, common.ErrorNotFound),
		errors.Is(err, common.ErrStoreUnavailable),
		errors.Is(err, common.ErrorValidation),
		errors.Is(err, tokenstore.ErrInvalidTTL):
		return err
	default:
		return fmt.Errorf("%w: %v", common.ErrStoreUnavailable, err)
	}
}

// discard is a best-effort cleanup after a partially failed write.
func (m *Manager) discard(ctx context.Context, ns tokenstore.Namespace, token string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()
	if _, err := m.store.Delete(ctx, ns, token); err != nil {
		m.logger.Warn(ctx, "cleanup after failed write", "namespace", string(ns), "error", err)
	}
}

func (m *Manager) done(ctx context.Context, op string, err error, args ...any) {
	if m.observer != nil {
		m.observer.ObserveSession(op, err)
	}
	if err == nil {
		m.logger.Debug(ctx, op+" ok", args...)
		return
	}
	args = append(args, "kind", common.ErrorKind(err), "error", err)
	if errors.Is(err, common.ErrStoreUnavailable) {
		m.logger.Error(ctx, op+" failed", args...)
		return
	}
	m.logger.Warn(ctx, op+" failed", args...)
}
