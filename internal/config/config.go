// Package config provides functionality for managing configuration options
// for the server using a YAML file, command-line flags and environment
// variables, applied in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Environment is the deployment profile.
type Environment string

const (
	// Development tolerates a missing cookie secret.
	Development Environment = "development"
	// Production requires every security setting to be explicit.
	Production Environment = "production"
)

// FallbackSecret signs cookies in development when no secret is configured.
const FallbackSecret = "default-secret"

// ErrMissingSecret is returned by Validate for production without a secret.
var ErrMissingSecret = errors.New("config: cookie secret is required in production")

// Options holds the configuration values for the server.
type Options struct {
	// Address defines the server's listening address (ip:port).
	Address string `yaml:"address"`

	// DatabaseDSN is a postgres:// URL or a SQLite file path.
	DatabaseDSN string `yaml:"database_dsn"`

	// Environment selects development or production behavior.
	Environment Environment `yaml:"environment"`

	// CookieSecret signs session cookies.
	CookieSecret string `yaml:"cookie_secret"`

	// RedisURL enables the board snapshot cache when set.
	RedisURL string `yaml:"redis_url"`

	// CacheTTL bounds the lifetime of a cached board snapshot.
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// LogLevel is the minimum zap level that gets written.
	LogLevel string `yaml:"log_level"`

	// Config is the path to the YAML config file.
	Config string `yaml:"-"`

	// SecretDefaulted reports that Validate fell back to FallbackSecret.
	SecretDefaulted bool `yaml:"-"`
}

// Defaults returns the built-in configuration.
func Defaults() *Options {
	return &Options{
		Address:     "localhost:8080",
		DatabaseDSN: "trellix.db",
		Environment: Development,
		CacheTTL:    5 * time.Minute,
		LogLevel:    "info",
		Config:      "config.yaml",
	}
}

// Parse builds Options from defaults, the YAML file, args and the process
// environment. args excludes the program name.
func Parse(args []string) (*Options, error) {
	return parse(args, os.LookupEnv)
}

func parse(args []string, lookupEnv func(string) (string, bool)) (*Options, error) {
	options := Defaults()

	flags := Defaults()
	fs := pflag.NewFlagSet("trellix", pflag.ContinueOnError)
	fs.StringVarP(&flags.Address, "address", "a", flags.Address, "run on ip:port server")
	fs.StringVarP(&flags.DatabaseDSN, "database-dsn", "d", flags.DatabaseDSN, "postgres URL or sqlite path")
	fs.StringVar((*string)(&flags.Environment), "env", string(flags.Environment), "development or production")
	fs.StringVar(&flags.CookieSecret, "cookie-secret", "", "secret used to sign session cookies")
	fs.StringVar(&flags.RedisURL, "redis-url", "", "redis URL for the board cache (empty disables it)")
	fs.DurationVar(&flags.CacheTTL, "cache-ttl", flags.CacheTTL, "lifetime of cached board snapshots")
	fs.StringVar(&flags.LogLevel, "log-level", flags.LogLevel, "debug, info, warn or error")
	fs.StringVarP(&flags.Config, "config", "c", flags.Config, "path to config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	options.Config = flags.Config
	if configPath, ok := lookupEnv("CONFIG"); ok && configPath != "" {
		options.Config = configPath
	}
	if err := loadFile(options.Config, options); err != nil {
		return nil, err
	}

	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "address":
			options.Address = flags.Address
		case "database-dsn":
			options.DatabaseDSN = flags.DatabaseDSN
		case "env":
			options.Environment = flags.Environment
		case "cookie-secret":
			options.CookieSecret = flags.CookieSecret
		case "redis-url":
			options.RedisURL = flags.RedisURL
		case "cache-ttl":
			options.CacheTTL = flags.CacheTTL
		case "log-level":
			options.LogLevel = flags.LogLevel
		}
	})

	envs := map[string]*string{
		"SERVER_ADDRESS": &options.Address,
		"DATABASE_DSN":   &options.DatabaseDSN,
		"COOKIE_SECRET":  &options.CookieSecret,
		"REDIS_URL":      &options.RedisURL,
		"LOG_LEVEL":      &options.LogLevel,
		"APP_ENV":        (*string)(&options.Environment),
	}
	for name, field := range envs {
		if v, ok := lookupEnv(name); ok && v != "" {
			*field = v
		}
	}

	return options, nil
}

// loadFile merges the YAML file at path into options. A missing file is
// not an error.
func loadFile(path string, options *Options) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, options); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Validate checks the options and fills in the development secret.
func (o *Options) Validate() error {
	o.Environment = Environment(strings.ToLower(string(o.Environment)))
	switch o.Environment {
	case Development, Production:
	case "":
		o.Environment = Development
	default:
		return fmt.Errorf("config: unknown environment %q", o.Environment)
	}

	if o.Address == "" {
		return errors.New("config: address is required")
	}
	if o.DatabaseDSN == "" {
		return errors.New("config: database dsn is required")
	}

	o.LogLevel = strings.ToLower(strings.TrimSpace(o.LogLevel))
	if o.LogLevel == "" {
		o.LogLevel = "info"
	}
	if _, err := zapcore.ParseLevel(o.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if o.CookieSecret == "" {
		if o.IsProduction() {
			return ErrMissingSecret
		}
		o.CookieSecret = FallbackSecret
		o.SecretDefaulted = true
	}
	return nil
}

// IsProduction reports whether the production profile is active.
func (o *Options) IsProduction() bool {
	return o.Environment == Production
}
