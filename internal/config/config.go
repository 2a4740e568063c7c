// Package config provides centralized configuration management for the importer.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
//
// Every default reproduces a plain run: a local SQLite file, products.csv in the
// working directory, three workers and a cleared table.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Import   ImportConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds store connection settings.
type DatabaseConfig struct {
	// URL selects the backend by scheme: postgres:// or postgresql:// for
	// PostgreSQL, sqlite:<path> for SQLite (default: sqlite:demo.db).
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" default:"sqlite:demo.db"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// BusyTimeout is how long SQLite waits on a locked database (default: 5s)
	BusyTimeout time.Duration `env:"DB_BUSY_TIMEOUT" default:"5s"`
}

// ImportConfig holds settings for a single import run.
type ImportConfig struct {
	// File is the delimited input file (default: products.csv)
	File string `env:"IMPORT_FILE" default:"products.csv"`

	// Delimiter is the single-character field separator (default: ",")
	Delimiter string `env:"IMPORT_DELIMITER" default:","`

	// Workers is the number of concurrent import workers (default: 3)
	Workers int `env:"IMPORT_WORKERS" default:"3"`

	// Distribution is how records reach workers: queue or replicate (default: queue)
	Distribution string `env:"IMPORT_DISTRIBUTION" default:"queue"`

	// Clear removes all existing rows before ingestion (default: true)
	Clear bool `env:"IMPORT_CLEAR" default:"true"`

	// WriteSample writes the default catalog when File is missing (default: true)
	WriteSample bool `env:"IMPORT_WRITE_SAMPLE" default:"true"`

	// Timeout is the maximum duration for the whole run (default: 10m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"10m"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
