package session

import "time"

const (
	DefaultAccessTTL    = 15 * time.Minute
	DefaultRefreshTTL   = 7 * 24 * time.Hour
	DefaultStoreTimeout = 2 * time.Second
)

// Config is built once at startup and is read-only afterwards.
type Config struct {
	SecretKey    []byte
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	StoreTimeout time.Duration
}

// DefaultConfig returns the default lifetimes with the given secret.
func DefaultConfig(secret []byte) Config {
	return Config{
		SecretKey:    secret,
		AccessTTL:    DefaultAccessTTL,
		RefreshTTL:   DefaultRefreshTTL,
		StoreTimeout: DefaultStoreTimeout,
	}
}
