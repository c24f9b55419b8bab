package server

import (
	"os"
	"time"
)

// Config holds server configuration.
type Config struct {
	// Address is the listen address for the HTTP server.
	Address string

	// SecretKey signs bearer tokens. Override in production.
	SecretKey string

	// DBPath is the SQLite database file path.
	DBPath string

	// RegistrationToken gates user registration. Empty means open
	// registration: unknown identities presented with a displayable name
	// are materialized on first contact.
	RegistrationToken string

	// TokenTTL is the lifetime of issued bearer tokens.
	TokenTTL time.Duration

	// WebSocket buffer sizes passed to the upgrader.
	ReadBufferSize  int
	WriteBufferSize int

	// MaxMessageSize bounds a single inbound WebSocket message.
	MaxMessageSize int64

	// WriteTimeout bounds one frame write to one connection. A peer that
	// cannot drain a small frame within this window is treated as dead.
	WriteTimeout time.Duration

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration

	// S3Bucket enables the S3 media blob backend when non-empty;
	// media blobs live in SQLite otherwise.
	S3Bucket string
	S3Prefix string

	// Message garbage collection.
	GCInterval time.Duration
	GCMaxAge   time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":8000",
		SecretKey:         "cofly-dev-secret-key-change-in-prod-16543",
		DBPath:            "cofly.db",
		RegistrationToken: "cofly-registration-token-17754",
		TokenTTL:          7200 * time.Second,
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		MaxMessageSize:    1 << 20,
		WriteTimeout:      10 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		S3Prefix:          "media/",
		GCInterval:        time.Hour,
		GCMaxAge:          48 * time.Hour,
	}
}

// ConfigFromEnv returns the default configuration with environment
// overrides applied.
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()
	if v := os.Getenv("COFLY_ADDR"); v != "" {
		cfg.Address = v
	}
	if v := os.Getenv("COFLY_SECRET_KEY"); v != "" {
		cfg.SecretKey = v
	}
	if v := os.Getenv("COFLY_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v, ok := os.LookupEnv("COFLY_REGISTRATION_TOKEN"); ok {
		cfg.RegistrationToken = v
	}
	if v := os.Getenv("COFLY_S3_BUCKET"); v != "" {
		cfg.S3Bucket = v
	}
	if v := os.Getenv("COFLY_S3_PREFIX"); v != "" {
		cfg.S3Prefix = v
	}
	return cfg
}
