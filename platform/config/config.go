// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetBrevoAPIKey() string
	GetBrevoBaseURL() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// SMTPConfig provides settings for delivery through a direct SMTP relay.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	IsSMTPEnabled() bool
}

// SMSConfig provides settings for the Twilio SMS client.
type SMSConfig interface {
	GetTwilioAccountSID() string
	GetTwilioAuthToken() string
	GetTwilioFromNumber() string
	GetTwilioBaseURL() string
	IsSMSEnabled() bool
}

// SchedulerConfig provides settings for the asynq scheduler.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// ControlTowerConfig provides settings for the Control Tower sync client.
type ControlTowerConfig interface {
	GetControlTowerURL() string
	GetControlTowerAPIKey() string
	GetControlTowerWebhookSecret() string
	IsControlTowerEnabled() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketMeetingAttachments() string
	IsMinIOEnabled() bool
}

// SchedulingConfig provides activator working hours and phone defaults.
type SchedulingConfig interface {
	GetWorkdayStart() string
	GetWorkdayEnd() string
	GetDefaultPhoneRegion() string
	GetFollowupDelay() time.Duration
}

// NotificationConfig provides settings for building links in notifications.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// CronConfig provides settings for externally triggered and in-process cron jobs.
type CronConfig interface {
	GetCronSecret() string
	GetFollowupSweepSpec() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                           string
	HTTPAddr                      string
	DatabaseURL                   string
	MigrationsEnabled             bool
	JWTAccessSecret               string
	CORSAllowAll                  bool
	CORSOrigins                   []string
	CORSAllowCreds                bool
	AppBaseURL                    string
	EmailEnabled                  bool
	BrevoAPIKey                   string
	BrevoBaseURL                  string
	EmailFromName                 string
	EmailFromAddress              string
	SMTPHost                      string
	SMTPPort                      int
	SMTPUsername                  string
	SMTPPassword                  string
	TwilioAccountSID              string
	TwilioAuthToken               string
	TwilioFromNumber              string
	TwilioBaseURL                 string
	RedisURL                      string
	RedisTLSInsecure              bool
	AsynqQueueName                string
	AsynqConcurrency              int
	ControlTowerURL               string
	ControlTowerAPIKey            string
	ControlTowerWebhookSecret     string
	MinIOEndpoint                 string
	MinIOAccessKey                string
	MinIOSecretKey                string
	MinIOUseSSL                   bool
	MinIOMaxFileSize              int64
	MinioBucketMeetingAttachments string
	WorkdayStart                  string
	WorkdayEnd                    string
	DefaultPhoneRegion            string
	FollowupDelay                 time.Duration
	CronSecret                    string
	FollowupSweepSpec             string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetBrevoAPIKey() string      { return c.BrevoAPIKey }
func (c *Config) GetBrevoBaseURL() string     { return c.BrevoBaseURL }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// SMTPConfig implementation
func (c *Config) GetSMTPHost() string     { return c.SMTPHost }
func (c *Config) GetSMTPPort() int        { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string { return c.SMTPPassword }
func (c *Config) IsSMTPEnabled() bool     { return c.SMTPHost != "" }

// SMSConfig implementation
func (c *Config) GetTwilioAccountSID() string { return c.TwilioAccountSID }
func (c *Config) GetTwilioAuthToken() string  { return c.TwilioAuthToken }
func (c *Config) GetTwilioFromNumber() string { return c.TwilioFromNumber }
func (c *Config) GetTwilioBaseURL() string    { return c.TwilioBaseURL }
func (c *Config) IsSMSEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFromNumber != ""
}

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// ControlTowerConfig implementation
func (c *Config) GetControlTowerURL() string           { return c.ControlTowerURL }
func (c *Config) GetControlTowerAPIKey() string        { return c.ControlTowerAPIKey }
func (c *Config) GetControlTowerWebhookSecret() string { return c.ControlTowerWebhookSecret }
func (c *Config) IsControlTowerEnabled() bool          { return c.ControlTowerURL != "" }

// MinIOConfig implementation
func (c *Config) GetMinIOEndpoint() string   { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string  { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string  { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool       { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64 { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketMeetingAttachments() string {
	return c.MinioBucketMeetingAttachments
}
func (c *Config) IsMinIOEnabled() bool { return c.MinIOEndpoint != "" }

// SchedulingConfig implementation
func (c *Config) GetWorkdayStart() string         { return c.WorkdayStart }
func (c *Config) GetWorkdayEnd() string           { return c.WorkdayEnd }
func (c *Config) GetDefaultPhoneRegion() string   { return c.DefaultPhoneRegion }
func (c *Config) GetFollowupDelay() time.Duration { return c.FollowupDelay }

// NotificationConfig implementation
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// CronConfig implementation
func (c *Config) GetCronSecret() string        { return c.CronSecret }
func (c *Config) GetFollowupSweepSpec() string { return c.FollowupSweepSpec }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	brevoAPIKey := getEnv("BREVO_API_KEY", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	cfg := &Config{
		Env:                           getEnv("APP_ENV", "development"),
		HTTPAddr:                      getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:                   getEnv("DATABASE_URL", ""),
		MigrationsEnabled:             strings.EqualFold(getEnv("MIGRATIONS_ENABLED", "true"), "true"),
		JWTAccessSecret:               getEnv("JWT_ACCESS_SECRET", ""),
		CORSAllowAll:                  corsAllowAll,
		CORSOrigins:                   corsOrigins,
		CORSAllowCreds:                strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:                    getEnv("APP_BASE_URL", "http://localhost:3000"),
		EmailEnabled:                  emailEnabled && brevoAPIKey != "",
		BrevoAPIKey:                   brevoAPIKey,
		BrevoBaseURL:                  getEnv("BREVO_BASE_URL", "https://api.brevo.com/v3"),
		EmailFromName:                 getEnv("EMAIL_FROM_NAME", "Activation Team"),
		EmailFromAddress:              getEnv("EMAIL_FROM_ADDRESS", ""),
		SMTPHost:                      getEnv("SMTP_HOST", ""),
		SMTPPort:                      mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:                  getEnv("SMTP_USERNAME", ""),
		SMTPPassword:                  getEnv("SMTP_PASSWORD", ""),
		TwilioAccountSID:              getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:               getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioFromNumber:              getEnv("TWILIO_FROM_NUMBER", ""),
		TwilioBaseURL:                 getEnv("TWILIO_BASE_URL", "https://api.twilio.com"),
		RedisURL:                      getEnv("REDIS_URL", ""),
		RedisTLSInsecure:              strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:                getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:              mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		ControlTowerURL:               getEnv("CONTROL_TOWER_URL", ""),
		ControlTowerAPIKey:            getEnv("CONTROL_TOWER_API_KEY", ""),
		ControlTowerWebhookSecret:     getEnv("CONTROL_TOWER_WEBHOOK_SECRET", ""),
		MinIOEndpoint:                 getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:                getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:                getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:                   strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:              mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "26214400")),
		MinioBucketMeetingAttachments: getEnv("MINIO_BUCKET_MEETING_ATTACHMENTS", "activation-meeting-attachments"),
		WorkdayStart:                  getEnv("WORKDAY_START", "09:00"),
		WorkdayEnd:                    getEnv("WORKDAY_END", "17:00"),
		DefaultPhoneRegion:            strings.ToUpper(getEnv("DEFAULT_PHONE_REGION", "US")),
		FollowupDelay:                 mustDuration(getEnv("FOLLOWUP_DELAY", "24h")),
		CronSecret:                    getEnv("CRON_SECRET", ""),
		FollowupSweepSpec:             getEnv("FOLLOWUP_SWEEP_SPEC", "*/15 * * * *"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if _, err := time.Parse("15:04", cfg.WorkdayStart); err != nil {
		return nil, fmt.Errorf("WORKDAY_START must be HH:MM: %w", err)
	}
	if _, err := time.Parse("15:04", cfg.WorkdayEnd); err != nil {
		return nil, fmt.Errorf("WORKDAY_END must be HH:MM: %w", err)
	}
	if cfg.FollowupDelay <= 0 {
		cfg.FollowupDelay = 24 * time.Hour
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
