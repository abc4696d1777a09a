// Package config holds the runtime settings of the gophauth CLI.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// EnvServerURL overrides the default gateway address.
const EnvServerURL = "GOPHAUTH_SERVER_URL"

// Config holds runtime settings for the CLI.
//
// Fields:
//   - ServerURL: base URL of the HTTP gateway.
//   - TokenFile: where the issued tokens are kept between runs.
//   - Timeout: upper bound for a single request.
type Config struct {
	ServerURL string
	TokenFile string
	Timeout   time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.TokenFile = defaultTokenFile()
	c.Timeout = 10 * time.Second
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".gophauth-tokens.json"
	}
	return filepath.Join(dir, "gophauth", "tokens.json")
}

// Load applies defaults, the environment and then flags. It returns the
// arguments left after the flags, i.e. the command and its operands.
func Load(args []string, lookupEnv func(string) (string, bool)) (*Config, []string, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if lookupEnv != nil {
		if v, ok := lookupEnv(EnvServerURL); ok && v != "" {
			cfg.ServerURL = v
		}
	}
	rest, err := parseFlags(cfg, args)
	if err != nil {
		return nil, nil, err
	}
	return cfg, rest, nil
}
