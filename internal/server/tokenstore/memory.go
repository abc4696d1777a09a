package tokenstore

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is a process-local Store. Records expire lazily on read and
// are dropped for good by Sweep.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]memoryEntry
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore using the wall clock.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithClock(time.Now)
}

// NewMemoryStoreWithClock returns an empty MemoryStore that reads time from now.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{records: make(map[string]memoryEntry), now: now}
}

func memoryKey(ns Namespace, token string) string {
	return string(ns) + ":" + token
}

// lookup must be called with mu held.
func (s *MemoryStore) lookup(key string) (memoryEntry, bool) {
	e, ok := s.records[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.records, key)
		return memoryEntry{}, false
	}
	return e, true
}

func (s *MemoryStore) set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return unavailable("put", err)
	}
	if err := checkTTL(ttl); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[key] = memoryEntry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemoryStore) Put(ctx context.Context, ns Namespace, token, subjectID string, ttl time.Duration) error {
	return s.set(ctx, memoryKey(ns, token), subjectID, ttl)
}

func (s *MemoryStore) Exists(ctx context.Context, ns Namespace, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable("exists", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.lookup(memoryKey(ns, token))
	return ok, nil
}

func (s *MemoryStore) Get(ctx context.Context, ns Namespace, token string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", unavailable("get", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(memoryKey(ns, token))
	if !ok {
		return "", common.ErrorNotFound
	}
	return e.value, nil
}

func (s *MemoryStore) Delete(ctx context.Context, ns Namespace, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable("delete", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey(ns, token)
	_, ok := s.lookup(key)
	delete(s.records, key)
	return ok, nil
}

func (s *MemoryStore) Link(ctx context.Context, accessToken, refreshToken string, ttl time.Duration) error {
	return s.set(ctx, memoryKey(NamespaceLink, accessToken), refreshToken, ttl)
}

func (s *MemoryStore) Unlink(ctx context.Context, accessToken string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", unavailable("unlink", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoryKey(NamespaceLink, accessToken)
	e, ok := s.lookup(key)
	if !ok {
		return "", common.ErrorNotFound
	}
	delete(s.records, key)
	return e.value, nil
}

// Sweep drops every record expired at now and returns how many were removed.
func (s *MemoryStore) Sweep(ctx context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, e := range s.records {
		if !now.Before(e.expiresAt) {
			delete(s.records, key)
			n++
		}
	}
	return n, nil
}

// Count returns the number of live records in ns.
func (s *MemoryStore) Count(ctx context.Context, ns Namespace) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := string(ns) + ":"
	now := s.now()
	var n int64
	for key, e := range s.records {
		if strings.HasPrefix(key, prefix) && now.Before(e.expiresAt) {
			n++
		}
	}
	return n, nil
}

// Len returns the number of records held, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
