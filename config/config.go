// Package config loads AdGuard Home client settings from a TOML file.
//
// A minimal file:
//
//	host = "192.168.1.2"
//	username = "admin"
//	password = "secret"
//
// Keys that are not set keep the client defaults.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/adguardctl/adguardhome-go"
)

// Config holds the connection settings of one AdGuard Home instance.
type Config struct {
	Host           string    `toml:"host"`
	Port           *int      `toml:"port"`
	BasePath       string    `toml:"base_path"`
	Username       string    `toml:"username"`
	Password       string    `toml:"password"`
	TLS            *bool     `toml:"tls"`
	VerifyTLS      *bool     `toml:"verify_tls"`
	RequestTimeout *Duration `toml:"request_timeout"`
	UserAgent      string    `toml:"user_agent"`
}

// Duration type
type Duration struct {
	time.Duration
}

// UnmarshalText for duration type
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// Load loads the given config file.
func Load(path string) (*Config, error) {
	cfg := new(Config)
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("could not load config: %w", err)
	}
	return cfg, check(md, cfg)
}

// Parse parses a config document.
func Parse(data string) (*Config, error) {
	cfg := new(Config)
	md, err := toml.Decode(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}
	return cfg, check(md, cfg)
}

func check(md toml.MetaData, cfg *Config) error {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}
	if cfg.Host == "" {
		return fmt.Errorf("host is required")
	}
	return nil
}

// Options converts the config to client options.
func (c *Config) Options() []adguardhome.Option {
	var opts []adguardhome.Option
	if c.Port != nil {
		opts = append(opts, adguardhome.WithPort(*c.Port))
	}
	if c.BasePath != "" {
		opts = append(opts, adguardhome.WithBasePath(c.BasePath))
	}
	if c.Username != "" || c.Password != "" {
		opts = append(opts, adguardhome.WithBasicAuth(c.Username, c.Password))
	}
	if c.TLS != nil {
		opts = append(opts, adguardhome.WithTLS(*c.TLS))
	}
	if c.VerifyTLS != nil {
		opts = append(opts, adguardhome.WithVerifyTLS(*c.VerifyTLS))
	}
	if c.RequestTimeout != nil {
		opts = append(opts, adguardhome.WithTimeout(c.RequestTimeout.Duration))
	}
	if c.UserAgent != "" {
		opts = append(opts, adguardhome.WithUserAgent(c.UserAgent))
	}
	return opts
}

// NewClient creates a client from the config. Extra options are applied
// after the config's own.
func (c *Config) NewClient(opts ...adguardhome.Option) (*adguardhome.Client, error) {
	return adguardhome.New(c.Host, append(c.Options(), opts...)...)
}
