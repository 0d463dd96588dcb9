package config

import "fmt"

// DatabaseConfig holds PostgreSQL database configuration
type DatabaseConfig struct {
	Host     string `env:"SETTLE_PG_HOST" env-default:"localhost"`
	Port     uint16 `env:"SETTLE_PG_PORT" env-default:"5432"`
	Database string `env:"SETTLE_PG_DATABASE" env-default:"settle_space"`
	User     string `env:"SETTLE_PG_USER" env-default:"settle"`
	Password string `env:"SETTLE_PG_PASSWORD" env-default:"pwd"`
	SSLMode  string `env:"SETTLE_PG_SSLMODE" env-default:"disable"`
}

// ToDatabaseURL converts the config to a PostgreSQL connection URL
func (d DatabaseConfig) ToDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.SSLMode)
}

