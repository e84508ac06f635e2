package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/timekeeper/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":5005")
//	-d string   primary PostgreSQL DSN (overrides DB_* settings)
//	-m string   mirror SQLite file path
//	-i int      health-check interval, seconds
//	-o          force online: treat the primary as reachable without probing
//	-s string   JWT HMAC secret key
//	-t int      token validity, hours
//	-z string   reference time zone (IANA name)
//	-l string   log level
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// Only the flags above are taken from os.Args (see flagx.FilterArgs).
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-m", "-i", "-o", "-s", "-t", "-z", "-l", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "primary database DSN")
	fs.StringVar(&config.MirrorPath, "m", config.MirrorPath, "mirror SQLite path")
	interval := fs.Int("i", int(config.HealthCheckInterval.Seconds()), "health check interval (in seconds)")
	fs.BoolVar(&config.ForceOnline, "o", config.ForceOnline, "treat primary as reachable")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	validity := fs.Int("t", int(config.TokenValidityDuration.Hours()), "token validity (in hours)")
	fs.StringVar(&config.TimeZone, "z", config.TimeZone, "reference time zone")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket for archived reports")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.HealthCheckInterval = time.Duration(*interval) * time.Second
	config.TokenValidityDuration = time.Duration(*validity) * time.Hour
}
