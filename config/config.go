// Package config has the configuration file for the app
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment is the deployment stage the service runs in.
type Environment string

const (
	EnvDevelopment Environment = "dev"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
)

func (e Environment) String() string {
	return string(e)
}

// ParseEnvironment accepts the short names and their long aliases.
func ParseEnvironment(s string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dev", "development":
		return EnvDevelopment, nil
	case "staging":
		return EnvStaging, nil
	case "prod", "production":
		return EnvProduction, nil
	case "test":
		return EnvTest, nil
	}
	return EnvDevelopment, fmt.Errorf("ENV must be one of: [dev staging prod test], got: %s", s)
}

// Config holds all application configuration
type Config struct {
	Port              string
	Address           string
	Env               Environment
	LogLevel          string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
	MaxRequestBody    int64 // Maximum request body size in bytes
	MaxHeaderSize     int64 // Maximum header size in bytes

	// Matching
	CatalogPath      string   // CSV or XLSX file or http(s) URL; empty uses the built-in list
	CatalogReloadAt  []string // Daily reload times, HH:MM
	MatchThreshold   int
	TimingDelimiter  string
	BatchConcurrency int
	MaxBatch         int

	// Speech transcription
	TranscriberURL     string
	TranscriberTimeout time.Duration
	MaxAudioBytes      int64

	// Document storage
	StorageConnectionString string
	StorageContainer        string
	StoragePublicURL        string

	// WhatsApp delivery
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFrom       string
}

// LoadDotEnv loads variables from .env files without overriding ones
// already set. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	env, err := ParseEnvironment(getEnvWithDefault("ENV", "dev"))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: invalid ENV: %w", err)
	}

	cfg := &Config{
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               env,
		LogLevel:          strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
		MaxRequestBody:    getInt64EnvWithDefault("MAX_REQUEST_BODY", 1048576),    // 1MB default
		MaxHeaderSize:     getInt64EnvWithDefault("MAX_HEADER_SIZE", 1048576),     // 1MB default

		CatalogPath:      os.Getenv("CATALOG_PATH"),
		CatalogReloadAt:  splitList(getEnvWithDefault("CATALOG_RELOAD_AT", "06:00;18:00")),
		MatchThreshold:   getIntEnvWithDefault("MATCH_THRESHOLD", 70),
		TimingDelimiter:  getEnvWithDefault("TIMING_DELIMITER", ", "),
		BatchConcurrency: getIntEnvWithDefault("BATCH_CONCURRENCY", 8),
		MaxBatch:         getIntEnvWithDefault("MAX_BATCH", 100),

		TranscriberURL:     os.Getenv("TRANSCRIBER_URL"),
		TranscriberTimeout: getDurationEnvWithDefault("TRANSCRIBER_TIMEOUT", 30*time.Second),
		MaxAudioBytes:      getInt64EnvWithDefault("MAX_AUDIO_BYTES", 2097152), // 2MB default

		StorageConnectionString: os.Getenv("STORAGE_CONNECTION_STRING"),
		StorageContainer:        getEnvWithDefault("STORAGE_CONTAINER", "prescriptions"),
		StoragePublicURL:        os.Getenv("STORAGE_PUBLIC_URL"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFrom:       os.Getenv("TWILIO_FROM"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// TranscriptionEnabled reports whether a speech-to-text endpoint is set.
func (c *Config) TranscriptionEnabled() bool {
	return c.TranscriberURL != ""
}

// StorageEnabled reports whether document storage is set up.
func (c *Config) StorageEnabled() bool {
	return c.StorageConnectionString != ""
}

// DeliveryEnabled reports whether WhatsApp delivery is set up.
func (c *Config) DeliveryEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioFrom != ""
}

// validateConfig validates all configuration values
func validateConfig(cfg *Config) error {
	if err := validatePort(cfg.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(cfg.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxRequestBody, "MAX_REQUEST_BODY"); err != nil {
		return fmt.Errorf("invalid MAX_REQUEST_BODY: %w", err)
	}

	if err := validateSizeLimit(cfg.MaxHeaderSize, "MAX_HEADER_SIZE"); err != nil {
		return fmt.Errorf("invalid MAX_HEADER_SIZE: %w", err)
	}

	if err := validateLogRetentionWeeks(cfg.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(cfg.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	if err := validateReloadTimes(cfg.CatalogReloadAt); err != nil {
		return fmt.Errorf("invalid CATALOG_RELOAD_AT: %w", err)
	}

	if err := validateThreshold(cfg.MatchThreshold); err != nil {
		return fmt.Errorf("invalid MATCH_THRESHOLD: %w", err)
	}

	if cfg.TimingDelimiter == "" {
		return fmt.Errorf("invalid TIMING_DELIMITER: cannot be empty")
	}

	if err := validateRange(cfg.BatchConcurrency, 1, 256, "BATCH_CONCURRENCY"); err != nil {
		return fmt.Errorf("invalid BATCH_CONCURRENCY: %w", err)
	}

	if err := validateRange(cfg.MaxBatch, 1, 1000, "MAX_BATCH"); err != nil {
		return fmt.Errorf("invalid MAX_BATCH: %w", err)
	}

	if err := validateOptionalURL(cfg.TranscriberURL, "TRANSCRIBER_URL"); err != nil {
		return fmt.Errorf("invalid TRANSCRIBER_URL: %w", err)
	}

	if cfg.TranscriberTimeout <= 0 {
		return fmt.Errorf("invalid TRANSCRIBER_TIMEOUT: must be positive, got: %s", cfg.TranscriberTimeout)
	}

	if err := validateSizeLimit(cfg.MaxAudioBytes, "MAX_AUDIO_BYTES"); err != nil {
		return fmt.Errorf("invalid MAX_AUDIO_BYTES: %w", err)
	}

	if err := validateOptionalURL(cfg.StoragePublicURL, "STORAGE_PUBLIC_URL"); err != nil {
		return fmt.Errorf("invalid STORAGE_PUBLIC_URL: %w", err)
	}

	if err := validateTwilio(cfg); err != nil {
		return fmt.Errorf("invalid Twilio settings: %w", err)
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	// Listening on all interfaces is allowed; a specific public IP is not
	if !ip.IsUnspecified() && !ip.IsLoopback() && !ip.IsPrivate() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateLogLevel validates the LOG_LEVEL environment variable
func validateLogLevel(logLevel string) error {
	if logLevel == "" {
		return fmt.Errorf("LOG_LEVEL cannot be empty")
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	logLevel = strings.ToLower(logLevel)

	for _, level := range validLevels {
		if logLevel == level {
			return nil
		}
	}

	return fmt.Errorf("LOG_LEVEL must be one of: %v, got: %s", validLevels, logLevel)
}

// validateSizeLimit validates size limit configuration values
func validateSizeLimit(size int64, configName string) error {
	if size <= 0 {
		return fmt.Errorf("%s must be positive, got: %d", configName, size)
	}

	if size > 100*1024*1024 { // 100MB
		return fmt.Errorf("%s is too large (max 100MB), got: %d bytes", configName, size)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 { // 1 year maximum
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE must be positive, got: %d", size)
	}

	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// validateReloadTimes checks every entry is a 24h HH:MM clock time
func validateReloadTimes(times []string) error {
	if len(times) == 0 {
		return fmt.Errorf("CATALOG_RELOAD_AT needs at least one time")
	}

	for _, t := range times {
		if _, err := time.Parse("15:04", t); err != nil {
			return fmt.Errorf("CATALOG_RELOAD_AT entry %q must be HH:MM", t)
		}
	}

	return nil
}

// validateThreshold validates the MATCH_THRESHOLD environment variable
func validateThreshold(threshold int) error {
	if threshold < 0 || threshold > 100 {
		return fmt.Errorf("MATCH_THRESHOLD must be between 0 and 100, got: %d", threshold)
	}
	return nil
}

func validateRange(v, lo, hi int, configName string) error {
	if v < lo || v > hi {
		return fmt.Errorf("%s must be between %d and %d, got: %d", configName, lo, hi, v)
	}
	return nil
}

func validateOptionalURL(raw, configName string) error {
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", configName, err)
	}

	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got: %s", configName, raw)
	}

	return nil
}

// validateTwilio requires the three Twilio settings together or not at all
func validateTwilio(cfg *Config) error {
	set := 0
	for _, v := range []string{cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom} {
		if v != "" {
			set++
		}
	}

	if set != 0 && set != 3 {
		return fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_FROM must be set together")
	}

	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getDurationEnvWithDefault accepts Go durations ("45s") or plain seconds
func getDurationEnvWithDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' }) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
		"MAX_REQUEST_BODY",
		"MAX_HEADER_SIZE",
		"CATALOG_PATH",
		"CATALOG_RELOAD_AT",
		"MATCH_THRESHOLD",
		"TIMING_DELIMITER",
		"BATCH_CONCURRENCY",
		"MAX_BATCH",
		"TRANSCRIBER_URL",
		"TRANSCRIBER_TIMEOUT",
		"MAX_AUDIO_BYTES",
		"STORAGE_CONNECTION_STRING",
		"STORAGE_CONTAINER",
		"STORAGE_PUBLIC_URL",
		"TWILIO_ACCOUNT_SID",
		"TWILIO_AUTH_TOKEN",
		"TWILIO_FROM",
	}
}
