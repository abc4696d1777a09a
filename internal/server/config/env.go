package config

import (
	"fmt"
	"strconv"
)

// Environment variables consulted after the config file. Secrets are
// usually passed this way.
const (
	EnvSecretKey     = "GOPHAUTH_SECRET_KEY"
	EnvDatabaseDSN   = "GOPHAUTH_DATABASE_DSN"
	EnvStoreType     = "GOPHAUTH_STORE_TYPE"
	EnvRedisAddr     = "GOPHAUTH_REDIS_ADDR"
	EnvRedisPassword = "GOPHAUTH_REDIS_PASSWORD"
	EnvRedisDB       = "GOPHAUTH_REDIS_DB"
)

func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}

	for name, dst := range map[string]*string{
		EnvSecretKey:     &config.SecretKey,
		EnvDatabaseDSN:   &config.DatabaseDSN,
		EnvStoreType:     &config.StoreType,
		EnvRedisAddr:     &config.RedisAddr,
		EnvRedisPassword: &config.RedisPassword,
	} {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup(EnvRedisDB); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRedisDB, err)
		}
		config.RedisDB = n
	}
	return nil
}
