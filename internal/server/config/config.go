// Package config handles configuration for the time-clock server,
// including defaults, JSON overlay, environment variables and command-line flags.
package config

import (
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// DatabaseConfig describes the primary PostgreSQL store.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Config holds runtime settings for the timekeeper server.
//
// Fields:
//   - HTTPAddr: bind address for the JSON API.
//   - Primary / DatabaseDSN: the primary store; a non-empty DSN wins over Primary.
//   - MirrorPath: SQLite file holding the user cache, local history and offline queue.
//   - HealthCheckInterval: how often the primary is probed.
//   - PrimaryTimeout: bound on connecting to and pinging the primary.
//   - ForceOnline: treat the primary as reachable without probing.
//   - SecretKey / TokenValidityDuration: HS256 token signing.
//   - TimeZone: reference zone for server-assigned punch timestamps.
//   - Admin*: the account seeded into the mirror on startup.
//   - S3*: optional object storage for archived reports; empty bucket disables it.
type Config struct {
	HTTPAddr              string
	Primary               DatabaseConfig
	DatabaseDSN           string
	MirrorPath            string
	HealthCheckInterval   time.Duration
	PrimaryTimeout        time.Duration
	ForceOnline           bool
	SecretKey             string
	TokenValidityDuration time.Duration
	TimeZone              string
	AdminMatricula        string
	AdminPassword         string
	AdminName             string
	LogLevel              string
	S3RootUser            string
	S3RootPassword        string
	S3Bucket              string
	S3Region              string
	S3BaseEndpoint        string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret and admin password must be overridden in production.
func (c *Config) LoadDefaults() {
	c.HTTPAddr = ":5005"
	c.Primary = DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "postgres",
		Password: "postgres",
		Name:     "timekeeper",
		SSLMode:  "disable",
	}
	c.DatabaseDSN = ""
	c.MirrorPath = "local.db"
	c.HealthCheckInterval = 10 * time.Second
	c.PrimaryTimeout = 3 * time.Second
	c.ForceOnline = false
	c.SecretKey = "secretKey"
	c.TokenValidityDuration = 24 * time.Hour
	c.TimeZone = "America/Sao_Paulo"
	c.AdminMatricula = "admin"
	c.AdminPassword = "admin"
	c.AdminName = "Administrador"
	c.LogLevel = "info"
	c.S3RootUser = ""
	c.S3RootPassword = ""
	c.S3Bucket = ""
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = ""
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

// PrimaryDSN returns the pgx connection string for the primary store. The
// connect timeout is derived from PrimaryTimeout so a dead primary costs at
// most that long per attempt.
func (c *Config) PrimaryDSN() string {
	if c.DatabaseDSN != "" {
		return c.DatabaseDSN
	}
	timeout := int(c.PrimaryTimeout / time.Second)
	if timeout < 1 {
		timeout = 1
	}
	q := url.Values{}
	q.Set("sslmode", c.Primary.SSLMode)
	q.Set("connect_timeout", strconv.Itoa(timeout))
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Primary.User, c.Primary.Password),
		Host:     fmt.Sprintf("%s:%d", c.Primary.Host, c.Primary.Port),
		Path:     "/" + c.Primary.Name,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Location resolves TimeZone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("invalid time zone %q: %w", c.TimeZone, err)
	}
	return loc, nil
}

// ArchiveEnabled reports whether reports should be copied to object storage.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Bucket != "" && c.S3BaseEndpoint != ""
}
