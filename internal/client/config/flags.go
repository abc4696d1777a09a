package config

import (
	"flag"
	"io"
	"time"
)

// parseFlags populates Config from the flags that precede the command.
//
// Supported flags (short forms):
//
//	-a string   base URL of the gateway
//	-f string   token file path
//	-t int      request timeout (in seconds)
func parseFlags(cfg *Config, args []string) ([]string, error) {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "base URL of the gateway")
	fs.StringVar(&cfg.TokenFile, "f", cfg.TokenFile, "token file path")
	timeout := fs.Int("t", int(cfg.Timeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.Timeout = time.Duration(*timeout) * time.Second
	return fs.Args(), nil
}
