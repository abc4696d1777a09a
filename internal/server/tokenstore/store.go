// Package tokenstore keeps the authoritative record of which tokens are
// live. A token that verifies but has no record here has been revoked or
// superseded.
//
// All backends share one flat key layout with three sub-namespaces:
//
//	access_token:<token>       -> subject id
//	refresh_token:<token>      -> subject id
//	access_to_refresh:<token>  -> paired refresh token
//
// Absent or expired records are reported as common.ErrorNotFound. Any
// backend failure is wrapped in common.ErrStoreUnavailable.
package tokenstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

// Namespace selects a record family inside a Store.
type Namespace string

const (
	NamespaceAccess  Namespace = "access_token"
	NamespaceRefresh Namespace = "refresh_token"

	// NamespaceLink holds access->refresh links. It is written by Link and
	// Unlink; Get reads a link without removing it.
	NamespaceLink Namespace = "access_to_refresh"
)

// ErrInvalidTTL is returned by Put and Link for a non-positive ttl; such a
// record would never expire in some backends.
var ErrInvalidTTL = errors.New("ttl must be positive")

// Store is an expiring key-value association from token to subject, plus
// the access->refresh links used for cascade revocation.
type Store interface {
	// Put creates or overwrites the record for token, expiring after ttl.
	Put(ctx context.Context, ns Namespace, token, subjectID string, ttl time.Duration) error

	// Exists reports whether a live record for token exists.
	Exists(ctx context.Context, ns Namespace, token string) (bool, error)

	// Get returns the subject stored for token. In NamespaceLink it returns
	// the linked refresh token.
	Get(ctx context.Context, ns Namespace, token string) (string, error)

	// Delete removes the record and reports whether a live one was removed.
	Delete(ctx context.Context, ns Namespace, token string) (bool, error)

	// Link pairs an access token with its refresh token for ttl.
	Link(ctx context.Context, accessToken, refreshToken string, ttl time.Duration) error

	// Unlink atomically removes the pairing of accessToken and returns the
	// refresh token it pointed to.
	Unlink(ctx context.Context, accessToken string) (string, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases the backend connection.
	Close() error
}

// Sweeper is implemented by backends that do not expire records natively.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int64, error)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", common.ErrStoreUnavailable, op, err)
}

func checkTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTTL, ttl)
	}
	return nil
}
