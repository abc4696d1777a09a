package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

var knownFlags = []string{
	"-a", "-g", "-l", "-s", "-t", "-r", "-d",
	"-store", "-redis-addr", "-redis-password", "-redis-db", "-redis-prefix",
	"-store-timeout", "-sweep",
}

// parseFlags populates server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string            HTTP bind address (e.g. ":8080")
//	-g string            gRPC bind address (e.g. ":50051")
//	-l string            log level: debug, info, warn, error
//	-s string            JWT HMAC secret key
//	-t int               access token validity, minutes
//	-r int               refresh token validity, minutes
//	-d string            PostgreSQL DSN
//	-store string        token store: memory, redis, postgres
//	-redis-addr string   redis host:port
//	-redis-password      redis password
//	-redis-db int        redis database number
//	-redis-prefix        key prefix shared by all token records
//	-store-timeout dur   bound for one token store call (e.g. "2s")
//	-sweep dur           expired record sweep interval (e.g. "1m")
//
// args is first filtered with flagx.FilterArgs so that flags owned by other
// components (such as -c) do not cause a parse error.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, knownFlags)

	fs := flag.NewFlagSet("gophauth", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address and port to run server")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address and port to run server")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")

	accessTokenValidityDuration := fs.Int("t", int(config.AccessTokenValidityDuration.Minutes()), "access_token_validity_duration (in minutes)")
	refreshTokenValidityDuration := fs.Int("r", int(config.RefreshTokenValidityDuration.Minutes()), "refresh_token_validity_duration (in minutes)")

	fs.StringVar(&config.StoreType, "store", config.StoreType, "token store type")
	fs.StringVar(&config.RedisAddr, "redis-addr", config.RedisAddr, "redis address")
	fs.StringVar(&config.RedisPassword, "redis-password", config.RedisPassword, "redis password")
	fs.IntVar(&config.RedisDB, "redis-db", config.RedisDB, "redis database")
	fs.StringVar(&config.RedisPrefix, "redis-prefix", config.RedisPrefix, "redis key prefix")
	fs.DurationVar(&config.StoreTimeout, "store-timeout", config.StoreTimeout, "token store call timeout")
	fs.DurationVar(&config.SweepInterval, "sweep", config.SweepInterval, "expired record sweep interval")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	// Minute flags only replace durations that were given explicitly, so
	// sub-minute values from a file survive.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.AccessTokenValidityDuration = time.Duration(*accessTokenValidityDuration) * time.Minute
		case "r":
			config.RefreshTokenValidityDuration = time.Duration(*refreshTokenValidityDuration) * time.Minute
		}
	})
	return nil
}
