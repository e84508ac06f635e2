package config

import "github.com/dmitrijs2005/timekeeper/internal/flagx"

// parseEnv overlays settings from the process environment. Variable names
// follow the deployment scripts: DB_SERVER, DB_NAME, DB_USER, DB_PASSWORD,
// SQLITE_PATH, FORCE_ONLINE and friends.
func parseEnv(c *Config) {
	var port string
	flagx.EnvString(&port, "PORT")
	if port != "" {
		c.HTTPAddr = ":" + port
	}
	flagx.EnvString(&c.HTTPAddr, "HTTP_ADDR")

	flagx.EnvString(&c.Primary.Host, "DB_SERVER")
	flagx.EnvInt(&c.Primary.Port, "DB_PORT")
	flagx.EnvString(&c.Primary.Name, "DB_NAME")
	flagx.EnvString(&c.Primary.User, "DB_USER")
	flagx.EnvString(&c.Primary.Password, "DB_PASSWORD")
	flagx.EnvString(&c.Primary.SSLMode, "DB_SSLMODE")
	flagx.EnvString(&c.DatabaseDSN, "DATABASE_DSN")

	flagx.EnvString(&c.MirrorPath, "SQLITE_PATH")
	flagx.EnvDuration(&c.HealthCheckInterval, "HEALTH_CHECK_INTERVAL")
	flagx.EnvDuration(&c.PrimaryTimeout, "PRIMARY_TIMEOUT")
	flagx.EnvBool(&c.ForceOnline, "FORCE_ONLINE")

	flagx.EnvString(&c.SecretKey, "SECRET_KEY")
	flagx.EnvDuration(&c.TokenValidityDuration, "TOKEN_VALIDITY")
	flagx.EnvString(&c.TimeZone, "TIMEZONE")
	flagx.EnvString(&c.LogLevel, "LOG_LEVEL")

	flagx.EnvString(&c.AdminMatricula, "ADMIN_MATRICULA")
	flagx.EnvString(&c.AdminPassword, "ADMIN_PASSWORD")
	flagx.EnvString(&c.AdminName, "ADMIN_NAME")

	flagx.EnvString(&c.S3RootUser, "S3_ROOT_USER")
	flagx.EnvString(&c.S3RootPassword, "S3_ROOT_PASSWORD")
	flagx.EnvString(&c.S3Bucket, "S3_BUCKET")
	flagx.EnvString(&c.S3Region, "S3_REGION")
	flagx.EnvString(&c.S3BaseEndpoint, "S3_BASE_ENDPOINT")
}
