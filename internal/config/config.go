// Package config loads the server configuration from a YAML file,
// environment variables and command-line flags, in that order of
// increasing precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"net/url"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no config file is named; it may be absent.
const DefaultPath = "server.yaml"

// Config holds the values needed to start the server.
type Config struct {
	Database Database `yaml:"database" envPrefix:"DATABASE_"`
	Server   Server   `yaml:"server" envPrefix:"SERVER_"`
	Session  Session  `yaml:"session" envPrefix:"SESSION_"`
	Metrics  Metrics  `yaml:"metrics" envPrefix:"METRICS_"`
	LogLevel string   `yaml:"log_level" env:"LOG_LEVEL" validate:"required"`
}

// Database describes the PostgreSQL connection.
type Database struct {
	Host         string `yaml:"host" env:"HOST" validate:"required"`
	Port         int    `yaml:"port" env:"PORT" validate:"min=1,max=65535"`
	User         string `yaml:"user" env:"USER" validate:"required"`
	Password     string `yaml:"password" env:"PASSWORD" validate:"required"`
	DBName       string `yaml:"db_name" env:"DB_NAME" validate:"required"`
	SSLMode      string `yaml:"sslmode" env:"SSLMODE"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"MAX_OPEN_CONNS" validate:"min=0"`
}

// Server describes the API listener.
type Server struct {
	Host            string        `yaml:"host" env:"HOST" validate:"required"`
	Port            int           `yaml:"port" env:"PORT" validate:"required,min=1,max=65535"`
	AllowedOrigin   string        `yaml:"allowed_origin" env:"ALLOWED_ORIGIN" validate:"required"`
	CertFile        string        `yaml:"cert_file" env:"CERT_FILE" validate:"required_with=KeyFile"`
	KeyFile         string        `yaml:"key_file" env:"KEY_FILE" validate:"required_with=CertFile"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// Session controls token lifetime. A zero TTL keeps tokens until restart.
type Session struct {
	TTL          time.Duration `yaml:"ttl" env:"TTL" validate:"min=0"`
	ReapInterval time.Duration `yaml:"reap_interval" env:"REAP_INTERVAL" validate:"min=0"`
}

// Metrics controls the Prometheus listener; empty Addr disables it.
type Metrics struct {
	Addr string `yaml:"addr" env:"ADDR"`
}

// Default returns a Config with every optional value filled in. The
// required database credentials and server host/port are left empty, except
// for conventional ports.
func Default() *Config {
	return &Config{
		Database: Database{
			Port:         5432,
			SSLMode:      "disable",
			MaxOpenConns: 10,
		},
		Server: Server{
			AllowedOrigin:   "http://localhost:3000",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Session: Session{
			ReapInterval: time.Minute,
		},
		LogLevel: "info",
	}
}

// Load builds the configuration for a process started with args (without
// the program name). The config file is taken from -c/-config, then the
// CONFIG environment variable, then DefaultPath.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	var path, logLevel string
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (shorthand)")
	fs.StringVar(&logLevel, "l", "", "log level (overrides config)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" && path == "" {
		path = configPath
	}

	cfg := Default()
	if err := cfg.readFile(path); err != nil {
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string) error {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate reports every missing or out-of-range value by its YAML key.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	err := v.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	keys := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		_, key, _ := strings.Cut(fe.Namespace(), ".")
		keys = append(keys, key)
	}
	return fmt.Errorf("invalid configuration, check: %s", strings.Join(keys, ", "))
}

// DSN returns the lib/pq connection URL for the database section.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.Database.User, c.Database.Password),
		Host:   net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port)),
		Path:   "/" + c.Database.DBName,
	}
	if c.Database.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.Database.SSLMode}}.Encode()
	}
	return u.String()
}

// Addr returns the host:port the API listens on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// TLSEnabled reports whether both a certificate and a key are configured.
func (c *Config) TLSEnabled() bool {
	return c.Server.CertFile != "" && c.Server.KeyFile != ""
}
