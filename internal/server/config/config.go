// Package config handles configuration for the server component,
// including defaults, a JSON or YAML file overlay, environment overrides
// and command-line flags.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/session"
	"github.com/dmitrijs2005/gophauth/internal/server/tokenstore"
)

// Config holds runtime settings for the gophauth server. It is read-only
// once LoadConfig returns.
//
// Fields:
//   - EndpointAddrHTTP / EndpointAddrGRPC: bind addresses of the gateways.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use test defaults in prod.
//   - AccessTokenValidityDuration / RefreshTokenValidityDuration: token lifetimes.
//   - StoreType: token store backend, one of memory, redis, postgres.
//   - DatabaseDSN: PostgreSQL DSN (pgx); empty keeps users in memory.
//   - StoreTimeout: upper bound for a single token store call.
//   - SweepInterval: how often expired rows are purged from stores without native expiry.
type Config struct {
	EndpointAddrHTTP             string
	EndpointAddrGRPC             string
	LogLevel                     string
	SecretKey                    string
	AccessTokenValidityDuration  time.Duration
	RefreshTokenValidityDuration time.Duration
	StoreType                    string
	RedisAddr                    string
	RedisPassword                string
	RedisDB                      int
	RedisPrefix                  string
	DatabaseDSN                  string
	StoreTimeout                 time.Duration
	SweepInterval                time.Duration
	ConnectAttempts              int
	ConnectBaseDelay             time.Duration
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret is insecure for production and must be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.EndpointAddrGRPC = ":50051"
	c.LogLevel = "info"
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = session.DefaultAccessTTL
	c.RefreshTokenValidityDuration = session.DefaultRefreshTTL
	c.StoreType = tokenstore.TypeMemory
	c.RedisAddr = "localhost:6379"
	c.RedisPrefix = ""
	c.DatabaseDSN = ""
	c.StoreTimeout = session.DefaultStoreTimeout
	c.SweepInterval = time.Minute
	c.ConnectAttempts = tokenstore.DefaultConnectAttempts
	c.ConnectBaseDelay = tokenstore.DefaultConnectBaseDelay
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("%w: secret key is required", common.ErrorValidation)
	}
	if err := auth.CheckTTL(c.AccessTokenValidityDuration); err != nil {
		return fmt.Errorf("access token validity: %w", err)
	}
	if err := auth.CheckTTL(c.RefreshTokenValidityDuration); err != nil {
		return fmt.Errorf("refresh token validity: %w", err)
	}
	switch c.StoreType {
	case tokenstore.TypeMemory, tokenstore.TypeRedis:
	case tokenstore.TypePostgres:
		if c.DatabaseDSN == "" {
			return fmt.Errorf("%w: postgres store needs a database dsn", common.ErrorValidation)
		}
	default:
		return fmt.Errorf("%w: unknown store type %q", common.ErrorValidation, c.StoreType)
	}
	return nil
}

// Session returns the session manager configuration.
func (c *Config) Session() session.Config {
	return session.Config{
		SecretKey:    []byte(c.SecretKey),
		AccessTTL:    c.AccessTokenValidityDuration,
		RefreshTTL:   c.RefreshTokenValidityDuration,
		StoreTimeout: c.StoreTimeout,
	}
}

// TokenStore returns the token store factory configuration.
func (c *Config) TokenStore() tokenstore.Config {
	return tokenstore.Config{
		Type: c.StoreType,
		Redis: tokenstore.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   c.RedisPrefix,
			Timeout:  c.StoreTimeout,
		},
		ConnectAttempts:  c.ConnectAttempts,
		ConnectBaseDelay: c.ConnectBaseDelay,
	}
}

// Load builds a Config by applying defaults, then overlaying values from an
// optional config file, the environment and finally command-line flags.
// args excludes the program name.
func Load(args []string, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseFile(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, lookupEnv); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over os.Args and the process environment.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:], os.LookupEnv)
}
