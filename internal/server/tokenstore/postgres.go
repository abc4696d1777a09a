package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
)

// table describes where one namespace lives in the relational schema.
type table struct {
	name     string
	keyCol   string
	valueCol string
}

var tables = map[Namespace]table{
	NamespaceAccess:  {name: "access_tokens", keyCol: "token", valueCol: "subject_id"},
	NamespaceRefresh: {name: "refresh_tokens", keyCol: "token", valueCol: "subject_id"},
	NamespaceLink:    {name: "token_links", keyCol: "access_token", valueCol: "refresh_token"},
}

// PostgresStore keeps records in the tables created by the token
// migrations. Expired rows are invisible to reads and removed by Sweep.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewPostgresStore returns a store over db using the wall clock.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return NewPostgresStoreWithClock(db, time.Now)
}

// NewPostgresStoreWithClock returns a store over db that reads time from now.
func NewPostgresStoreWithClock(db *sql.DB, now func() time.Time) *PostgresStore {
	return &PostgresStore{db: db, now: now}
}

func tableOf(ns Namespace) (table, error) {
	t, ok := tables[ns]
	if !ok {
		return table{}, fmt.Errorf("%w: unknown namespace %q", common.ErrorValidation, ns)
	}
	return t, nil
}

func (s *PostgresStore) upsert(ctx context.Context, ns Namespace, key, value string, ttl time.Duration) error {
	if err := checkTTL(ttl); err != nil {
		return err
	}
	t, err := tableOf(ns)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %[1]s (%[2]s, %[3]s, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (%[2]s) DO UPDATE
		SET %[3]s = EXCLUDED.%[3]s, expires_at = EXCLUDED.expires_at
	`, t.name, t.keyCol, t.valueCol)

	if _, err := s.db.ExecContext(ctx, query, key, value, s.now().Add(ttl).UTC()); err != nil {
		return unavailable("put", err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, ns Namespace, token, subjectID string, ttl time.Duration) error {
	return s.upsert(ctx, ns, token, subjectID, ttl)
}

func (s *PostgresStore) Exists(ctx context.Context, ns Namespace, token string) (bool, error) {
	t, err := tableOf(ns)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf(`
		SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND expires_at > $2)
	`, t.name, t.keyCol)

	var ok bool
	if err := s.db.QueryRowContext(ctx, query, token, s.now().UTC()).Scan(&ok); err != nil {
		return false, unavailable("exists", err)
	}
	return ok, nil
}

func (s *PostgresStore) Get(ctx context.Context, ns Namespace, token string) (string, error) {
	t, err := tableOf(ns)
	if err != nil {
		return "", err
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s = $1 AND expires_at > $2
	`, t.valueCol, t.name, t.keyCol)

	var v string
	if err := s.db.QueryRowContext(ctx, query, token, s.now().UTC()).Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", common.ErrorNotFound
		}
		return "", unavailable("get", err)
	}
	return v, nil
}

// take deletes the row for key and returns its value if it was still live.
func (s *PostgresStore) take(ctx context.Context, op string, ns Namespace, key string) (string, bool, error) {
	t, err := tableOf(ns)
	if err != nil {
		return "", false, err
	}

	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE %s = $1
		RETURNING %s, expires_at
	`, t.name, t.keyCol, t.valueCol)

	var (
		v         string
		expiresAt time.Time
	)
	if err := s.db.QueryRowContext(ctx, query, key).Scan(&v, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, unavailable(op, err)
	}
	if !expiresAt.After(s.now()) {
		return "", false, nil
	}
	return v, true, nil
}

func (s *PostgresStore) Delete(ctx context.Context, ns Namespace, token string) (bool, error) {
	_, ok, err := s.take(ctx, "delete", ns, token)
	return ok, err
}

func (s *PostgresStore) Link(ctx context.Context, accessToken, refreshToken string, ttl time.Duration) error {
	return s.upsert(ctx, NamespaceLink, accessToken, refreshToken, ttl)
}

func (s *PostgresStore) Unlink(ctx context.Context, accessToken string) (string, error) {
	v, ok, err := s.take(ctx, "unlink", NamespaceLink, accessToken)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", common.ErrorNotFound
	}
	return v, nil
}

// Sweep deletes rows expired at now from every token table in a single
// transaction and returns the total number of rows removed.
func (s *PostgresStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	var total int64
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, ns := range []Namespace{NamespaceAccess, NamespaceRefresh, NamespaceLink} {
			t := tables[ns]
			n, err := dbx.ExecAffected(ctx, tx, fmt.Sprintf(`DELETE FROM %s WHERE expires_at <= $1`, t.name), now.UTC())
			if err != nil {
				return fmt.Errorf("sweep %s: %w", t.name, err)
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, unavailable("sweep", err)
	}
	return total, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close is a no-op; the database is shared with the user repositories and
// closed by whoever opened it.
func (s *PostgresStore) Close() error {
	return nil
}
