package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/timekeeper/internal/flagx"
	"github.com/dmitrijs2005/timekeeper/internal/timex"
)

// JsonConfig is the on-disk shape of the optional configuration file. Interval
// fields use timex.Duration, so both "10s" and integer nanoseconds are accepted.
// Fields left out of the file keep the values already in Config.
type JsonConfig struct {
	HTTPAddr              *string         `json:"http_addr"`
	DBServer              *string         `json:"db_server"`
	DBPort                *int            `json:"db_port"`
	DBName                *string         `json:"db_name"`
	DBUser                *string         `json:"db_user"`
	DBPassword            *string         `json:"db_password"`
	DatabaseDSN           *string         `json:"database_dsn"`
	MirrorPath            *string         `json:"sqlite_path"`
	HealthCheckInterval   *timex.Duration `json:"health_check_interval"`
	PrimaryTimeout        *timex.Duration `json:"primary_timeout"`
	ForceOnline           *bool           `json:"force_online"`
	SecretKey             *string         `json:"secret_key"`
	TokenValidityDuration *timex.Duration `json:"token_validity_duration"`
	TimeZone              *string         `json:"time_zone"`
	LogLevel              *string         `json:"log_level"`
	S3RootUser            *string         `json:"s3_root_user"`
	S3RootPassword        *string         `json:"s3_root_password"`
	S3Bucket              *string         `json:"s3_bucket"`
	S3Region              *string         `json:"s3_region"`
	S3BaseEndpoint        *string         `json:"s3_base_endpoint"`
}

// parseJson loads the file named by -c / -config into config. Without the
// flag nothing happens. An unreadable or malformed file panics: a broken
// configuration must stop startup.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.Primary.Host, c.DBServer)
	if c.DBPort != nil {
		config.Primary.Port = *c.DBPort
	}
	setString(&config.Primary.Name, c.DBName)
	setString(&config.Primary.User, c.DBUser)
	setString(&config.Primary.Password, c.DBPassword)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.MirrorPath, c.MirrorPath)
	if c.HealthCheckInterval != nil {
		config.HealthCheckInterval = c.HealthCheckInterval.Duration
	}
	if c.PrimaryTimeout != nil {
		config.PrimaryTimeout = c.PrimaryTimeout.Duration
	}
	if c.ForceOnline != nil {
		config.ForceOnline = *c.ForceOnline
	}
	setString(&config.SecretKey, c.SecretKey)
	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	setString(&config.TimeZone, c.TimeZone)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
