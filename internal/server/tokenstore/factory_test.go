package tokenstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Memory(t *testing.T) {
	for _, typ := range []string{"", TypeMemory} {
		s, err := New(context.Background(), Config{Type: typ}, nil, logging.Nop())
		require.NoError(t, err)
		assert.IsType(t, &MemoryStore{}, s)
	}
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(context.Background(), Config{Type: "etcd"}, nil, logging.Nop())
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestNew_PostgresNeedsDB(t *testing.T) {
	_, err := New(context.Background(), Config{Type: TypePostgres}, nil, logging.Nop())
	assert.ErrorIs(t, err, common.ErrorValidation)
}

func TestNew_Postgres(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	s, err := New(context.Background(), Config{Type: TypePostgres, ConnectAttempts: 1}, db, logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, &PostgresStore{}, s)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_Redis(t *testing.T) {
	mr := miniredis.RunT(t)

	s, err := New(context.Background(), Config{
		Type:  TypeRedis,
		Redis: RedisConfig{Addr: mr.Addr(), Prefix: "gophauth:"},
	}, nil, logging.Nop())
	require.NoError(t, err)
	defer s.Close()
	assert.IsType(t, &RedisStore{}, s)
}

func TestNew_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := New(context.Background(), Config{
		Type:             TypeRedis,
		Redis:            RedisConfig{Addr: addr, Timeout: 100 * time.Millisecond},
		ConnectAttempts:  2,
		ConnectBaseDelay: time.Millisecond,
	}, nil, logging.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrStoreUnavailable)
}

func TestWaitReady_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	p := PingFunc(func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})

	err := WaitReady(context.Background(), p, 5, time.Millisecond, logging.Nop())
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWaitReady_GivesUpAfterAttempts(t *testing.T) {
	calls := 0
	boom := errors.New("refused")
	p := PingFunc(func(ctx context.Context) error {
		calls++
		return boom
	})

	err := WaitReady(context.Background(), p, 3, time.Millisecond, logging.Nop())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestWaitReady_StopsOnCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	p := PingFunc(func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("refused")
	})

	err := WaitReady(ctx, p, 5, time.Hour, logging.Nop())
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}
