package tokenstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newPostgresWithMock(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStoreWithClock(db, func() time.Time { return fixedNow }), mock
}

func TestPostgresStore_Put(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	q := `(?s)^\s*INSERT\s+INTO\s+access_tokens\s+\(token,\s*subject_id,\s*expires_at\).*ON\s+CONFLICT\s+\(token\)\s+DO\s+UPDATE`
	mock.ExpectExec(q).
		WithArgs("a0", "42", fixedNow.Add(15*time.Minute)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Put(context.Background(), NamespaceAccess, "a0", "42", 15*time.Minute))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Put_InvalidTTL(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	err := s.Put(context.Background(), NamespaceAccess, "a0", "42", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Put_DBError(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+refresh_tokens`).
		WillReturnError(errors.New("db down"))

	err := s.Put(context.Background(), NamespaceRefresh, "r0", "42", time.Hour)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "db down")
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	q := `(?s)^\s*SELECT\s+subject_id\s+FROM\s+access_tokens\s+WHERE\s+token\s*=\s*\$1\s+AND\s+expires_at\s*>\s*\$2\s*$`
	mock.ExpectQuery(q).
		WithArgs("a0", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"subject_id"}).AddRow("42"))

	got, err := s.Get(context.Background(), NamespaceAccess, "a0")
	require.NoError(t, err)
	assert.Equal(t, "42", got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`SELECT\s+subject_id\s+FROM\s+refresh_tokens`).
		WithArgs("r0", fixedNow).
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), NamespaceRefresh, "r0")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgresStore_Get_DBError(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`SELECT\s+subject_id\s+FROM\s+access_tokens`).
		WillReturnError(errors.New("conn reset"))

	_, err := s.Get(context.Background(), NamespaceAccess, "a0")
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}

func TestPostgresStore_Exists(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`SELECT\s+EXISTS\s+\(SELECT\s+1\s+FROM\s+access_tokens\s+WHERE\s+token\s*=\s*\$1\s+AND\s+expires_at\s*>\s*\$2\)`).
		WithArgs("a0", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := s.Exists(context.Background(), NamespaceAccess, "a0")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPostgresStore_Delete(t *testing.T) {
	tests := []struct {
		name string
		rows *sqlmock.Rows
		err  error
		want bool
	}{
		{
			name: "live row",
			rows: sqlmock.NewRows([]string{"subject_id", "expires_at"}).AddRow("42", fixedNow.Add(time.Minute)),
			want: true,
		},
		{
			name: "expired row",
			rows: sqlmock.NewRows([]string{"subject_id", "expires_at"}).AddRow("42", fixedNow),
			want: false,
		},
		{
			name: "no row",
			err:  sql.ErrNoRows,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newPostgresWithMock(t)

			exp := mock.ExpectQuery(`(?s)DELETE\s+FROM\s+access_tokens\s+WHERE\s+token\s*=\s*\$1\s+RETURNING\s+subject_id,\s*expires_at`).
				WithArgs("a0")
			if tt.err != nil {
				exp.WillReturnError(tt.err)
			} else {
				exp.WillReturnRows(tt.rows)
			}

			got, err := s.Delete(context.Background(), NamespaceAccess, "a0")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresStore_LinkUnlink(t *testing.T) {
	s, mock := newPostgresWithMock(t)
	ctx := context.Background()

	mock.ExpectExec(`(?s)INSERT\s+INTO\s+token_links\s+\(access_token,\s*refresh_token,\s*expires_at\).*ON\s+CONFLICT\s+\(access_token\)`).
		WithArgs("a0", "r0", fixedNow.Add(time.Minute)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`(?s)DELETE\s+FROM\s+token_links\s+WHERE\s+access_token\s*=\s*\$1\s+RETURNING\s+refresh_token,\s*expires_at`).
		WithArgs("a0").
		WillReturnRows(sqlmock.NewRows([]string{"refresh_token", "expires_at"}).AddRow("r0", fixedNow.Add(time.Minute)))
	mock.ExpectQuery(`DELETE\s+FROM\s+token_links`).
		WithArgs("a0").
		WillReturnError(sql.ErrNoRows)

	require.NoError(t, s.Link(ctx, "a0", "r0", time.Minute))

	r, err := s.Unlink(ctx, "a0")
	require.NoError(t, err)
	assert.Equal(t, "r0", r)

	_, err = s.Unlink(ctx, "a0")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Unlink_DBError(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectQuery(`DELETE\s+FROM\s+token_links`).
		WillReturnError(errors.New("db down"))

	_, err := s.Unlink(context.Background(), "a0")
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestPostgresStore_UnknownNamespace(t *testing.T) {
	s, _ := newPostgresWithMock(t)

	_, err := s.Get(context.Background(), Namespace("bogus"), "x")
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestPostgresStore_Sweep(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE\s+FROM\s+access_tokens\s+WHERE\s+expires_at\s*<=\s*\$1`).
		WithArgs(fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+expires_at\s*<=\s*\$1`).
		WithArgs(fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE\s+FROM\s+token_links\s+WHERE\s+expires_at\s*<=\s*\$1`).
		WithArgs(fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	n, err := s.Sweep(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, int64(6), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Sweep_RollsBackOnError(t *testing.T) {
	s, mock := newPostgresWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE\s+FROM\s+access_tokens`).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`DELETE\s+FROM\s+refresh_tokens`).
		WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	n, err := s.Sweep(context.Background(), fixedNow)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
	assert.Zero(t, n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	s := NewPostgresStore(db)

	mock.ExpectPing()
	require.NoError(t, s.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("refused"))
	assert.ErrorIs(t, s.Ping(context.Background()), common.ErrStoreUnavailable)
}
