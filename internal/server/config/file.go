package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/flagx"
	"github.com/dmitrijs2005/gophauth/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk form of Config, read from JSON or YAML.
// Durations are written as strings like "15m" or as integer nanoseconds.
// Absent keys leave the current value untouched.
type FileConfig struct {
	EndpointAddrHTTP             string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	LogLevel                     string         `json:"log_level" yaml:"log_level"`
	SecretKey                    string         `json:"secret_key" yaml:"secret_key"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration" yaml:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration" yaml:"refresh_token_validity_duration"`
	StoreType                    string         `json:"store_type" yaml:"store_type"`
	Redis                        struct {
		Addr     string `json:"addr" yaml:"addr"`
		Password string `json:"password" yaml:"password"`
		DB       int    `json:"db" yaml:"db"`
		Prefix   string `json:"prefix" yaml:"prefix"`
	} `json:"redis" yaml:"redis"`
	DatabaseDSN      string         `json:"database_dsn" yaml:"database_dsn"`
	StoreTimeout     timex.Duration `json:"store_timeout" yaml:"store_timeout"`
	SweepInterval    timex.Duration `json:"sweep_interval" yaml:"sweep_interval"`
	ConnectAttempts  int            `json:"connect_attempts" yaml:"connect_attempts"`
	ConnectBaseDelay timex.Duration `json:"connect_base_delay" yaml:"connect_base_delay"`
}

// parseFile loads the file named by -c/-config, if any. The format is
// chosen by extension: .yaml and .yml are YAML, everything else JSON.
func parseFile(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)

	// nothing to load
	if path == "" {
		return nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, c)
	default:
		err = json.Unmarshal(b, c)
	}
	if err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	c.apply(config)
	return nil
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.StoreType, c.StoreType)
	setString(&config.RedisAddr, c.Redis.Addr)
	setString(&config.RedisPassword, c.Redis.Password)
	setString(&config.RedisPrefix, c.Redis.Prefix)
	setString(&config.DatabaseDSN, c.DatabaseDSN)

	if c.Redis.DB != 0 {
		config.RedisDB = c.Redis.DB
	}
	if c.ConnectAttempts != 0 {
		config.ConnectAttempts = c.ConnectAttempts
	}

	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setDuration(&config.RefreshTokenValidityDuration, c.RefreshTokenValidityDuration)
	setDuration(&config.StoreTimeout, c.StoreTimeout)
	setDuration(&config.SweepInterval, c.SweepInterval)
	setDuration(&config.ConnectBaseDelay, c.ConnectBaseDelay)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
