package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/climate-report/internal/domain"
)

// Report formats understood by the renderer.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Config holds all settings for a climate aggregation run, populated from
// environment variables.
type Config struct {
	LogLevel        string
	LogFormat       string
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// Aggregation limits.
	MaxLineLength int
	MaxRegions    int

	ReportFormat   string
	ReportLocation *time.Location

	// Kafka report publishing; disabled when KafkaBrokers is empty.
	KafkaBrokers     []string
	KafkaReportTopic string

	PushgatewayURL string
}

// KafkaEnabled reports whether region summaries should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	maxLine, err := parseNonNegativeInt("CLIMATE_MAX_LINE_BYTES", domain.DefaultMaxLineLength)
	if err != nil {
		return nil, err
	}
	if maxLine == 0 {
		return nil, errors.New("invalid CLIMATE_MAX_LINE_BYTES: must be positive")
	}

	maxRegions, err := parseNonNegativeInt("CLIMATE_MAX_REGIONS", 0)
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(sharedcfg.EnvOrDefault("REPORT_FORMAT", FormatText))
	if !ValidFormat(format) {
		return nil, fmt.Errorf("invalid REPORT_FORMAT %q: want text, json, or yaml", format)
	}

	loc := time.Local
	if tz := os.Getenv("REPORT_TIMEZONE"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid REPORT_TIMEZONE: %w", err)
		}
	}

	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = sharedcfg.ParseBrokers(raw)
	}

	cfg := &Config{
		LogLevel:         sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:        sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		HTTPAddr:         os.Getenv("HTTP_ADDR"),
		ShutdownTimeout:  shutdownTimeout,
		MaxLineLength:    maxLine,
		MaxRegions:       maxRegions,
		ReportFormat:     format,
		ReportLocation:   loc,
		KafkaBrokers:     brokers,
		KafkaReportTopic: sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "climate-region-summaries"),
		PushgatewayURL:   os.Getenv("PUSHGATEWAY_URL"),
	}

	if cfg.KafkaEnabled() && cfg.KafkaReportTopic == "" {
		return nil, errors.New("KAFKA_REPORT_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// ValidFormat reports whether f names a supported report format.
func ValidFormat(f string) bool {
	switch f {
	case FormatText, FormatJSON, FormatYAML:
		return true
	default:
		return false
	}
}

func parseNonNegativeInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}
