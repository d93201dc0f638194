package app

import (
	"errors"
	"fmt"
	"time"
)

// Config contains all runtime configuration loaded from environment variables.
//
// Everything downstream (stores, session tokens, mail) receives its settings
// from here explicitly; no other package reads process env.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL    string
	DBMaxConns     int32
	DBMinConns     int32
	MigrateOnStart bool

	// TokenIssuer and TokenSecret configure session token signing.
	// TokenSecret must be at least 32 bytes.
	TokenIssuer string
	TokenSecret []byte

	// SendGridAPIKey authenticates outbound mail. Required unless
	// MailDisabled is set, in which case account emails are skipped.
	SendGridAPIKey string
	MailDisabled   bool
	MailFromEmail  string
	MailFromName   string
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("TASKMAN_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("TASKMAN_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("TASKMAN_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("TASKMAN_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("TASKMAN_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("TASKMAN_HTTP_IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    EnvInt("TASKMAN_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL:    EnvString("TASKMAN_DATABASE_URL", ""),
		DBMaxConns:     EnvInt32("TASKMAN_DB_MAX_CONNS", 10),
		DBMinConns:     EnvInt32("TASKMAN_DB_MIN_CONNS", 0),
		MigrateOnStart: EnvBool("TASKMAN_DB_MIGRATE", true),

		TokenIssuer: EnvString("TASKMAN_TOKEN_ISSUER", "taskman"),
		TokenSecret: []byte(EnvString("TASKMAN_JWT_SECRET", "")),

		SendGridAPIKey: EnvString("TASKMAN_SENDGRID_API_KEY", ""),
		MailDisabled:   EnvBool("TASKMAN_MAIL_DISABLED", false),
		MailFromEmail:  EnvString("TASKMAN_MAIL_FROM_EMAIL", "no-reply@taskman.local"),
		MailFromName:   EnvString("TASKMAN_MAIL_FROM_NAME", "Task Manager"),
	}
}

// Validate rejects configurations the server must not start with.
// Failing here beats failing on the first login.
func (c Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("TASKMAN_DATABASE_URL is required")
	}
	if len(c.TokenSecret) < 32 {
		return fmt.Errorf("TASKMAN_JWT_SECRET must be at least 32 bytes, got %d", len(c.TokenSecret))
	}
	if c.SendGridAPIKey == "" && !c.MailDisabled {
		return errors.New("TASKMAN_SENDGRID_API_KEY is required (or set TASKMAN_MAIL_DISABLED=true)")
	}
	return nil
}
