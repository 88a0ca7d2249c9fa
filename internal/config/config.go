package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host               string
	Port               string
	RequestTimeout     time.Duration
	ImageFetchTimeout  time.Duration
	AnalysisTimeout    time.Duration
	MaxRequestBodySize int64

	// Persistence. An empty DBPath keeps reports in memory.
	DBPath string

	// Image archive. Azure wins when both are configured.
	ArchiveDir        string
	AzureAccount      string
	AzureKey          string
	AzureContainer    string
	AzureServiceURL   string
	AllowedImageHosts []string
	HRICheck          bool
	HRILanguage       string
	CalibrationFile   string
	Calibration       Calibration
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               getEnvOrDefault("PORT", "8080"),
		RequestTimeout:     parseDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		ImageFetchTimeout:  parseDurationOrDefault("IMAGE_FETCH_TIMEOUT", 15*time.Second),
		AnalysisTimeout:    parseDurationOrDefault("ANALYSIS_TIMEOUT", 20*time.Second),
		MaxRequestBodySize: parseIntOrDefault("MAX_REQUEST_BODY_SIZE", 10*1024*1024), // 10MB
		DBPath:             os.Getenv("DB_PATH"),
		ArchiveDir:         os.Getenv("ARCHIVE_DIR"),
		AzureAccount:       os.Getenv("AZURE_STORAGE_ACCOUNT"),
		AzureKey:           os.Getenv("AZURE_STORAGE_KEY"),
		AzureContainer:     getEnvOrDefault("AZURE_CONTAINER", "verifier-uploads"),
		AzureServiceURL:    os.Getenv("AZURE_STORAGE_URL"),
		AllowedImageHosts:  parseListOrDefault("ALLOWED_IMAGE_HOSTS", nil),
		HRICheck:           parseBoolOrDefault("HRI_CHECK", false),
		HRILanguage:        getEnvOrDefault("HRI_LANGUAGE", "eng"),
		CalibrationFile:    os.Getenv("CALIBRATION_FILE"),
		Calibration:        calibrationFromEnv(),
	}

	if cfg.CalibrationFile != "" {
		if err := cfg.Calibration.MergeFile(cfg.CalibrationFile); err != nil {
			return nil, err
		}
	}

	p, err := strconv.Atoi(strings.TrimSpace(cfg.Port))
	if err != nil || p < 1 || p > 65535 {
		return nil, fmt.Errorf("invalid PORT: %q", cfg.Port)
	}
	if cfg.MaxRequestBodySize <= 0 {
		return nil, fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", cfg.MaxRequestBodySize)
	}
	if cfg.RequestTimeout <= 0 || cfg.ImageFetchTimeout <= 0 || cfg.AnalysisTimeout <= 0 {
		return nil, fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, analysis=%s)",
			cfg.RequestTimeout, cfg.ImageFetchTimeout, cfg.AnalysisTimeout)
	}
	if cfg.AzureAccount != "" && cfg.AzureKey == "" {
		return nil, fmt.Errorf("AZURE_STORAGE_KEY is required when AZURE_STORAGE_ACCOUNT is set")
	}
	if err := cfg.Calibration.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(strings.TrimSpace(value)); err == nil && duration > 0 {
			return duration
		}
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func parseFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(value), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
