package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Storage backends.
const (
	BackendFile  = "file"
	BackendS3    = "s3"
	BackendAzure = "azure"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	ReferenceYear int
	MatchYears    []int
	Severities    []string

	StorageBackend         string
	StorageRoot            string
	StoragePrefix          string
	AzureAccountURL        string
	AzureConnectionString  string
	InputKey               string
	InputSkipRows          int
	ReferencePeriodsKey    string
	ReferencePeriodColumns []string
	OutputName             string

	KafkaBrokers   []string
	KafkaSinkTopic string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	Schedule        string
	LoadRetries     int

	// Country name lookup configuration.
	CountryLookupEnabled   bool
	CountryLookupURL       string
	CountryLookupTimeout   time.Duration
	CountryLookupCacheSize int
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	referenceYear, err := parsePositiveInt("REFERENCE_YEAR", "2024")
	if err != nil {
		return nil, err
	}
	matchYears, err := ParseYears(sharedcfg.EnvOrDefault("MATCH_YEARS", "2024,2023,2022"))
	if err != nil {
		return nil, fmt.Errorf("invalid MATCH_YEARS: %w", err)
	}
	skipRows, err := parseNonNegativeInt("INPUT_SKIP_ROWS", "1")
	if err != nil {
		return nil, err
	}
	loadRetries, err := parseNonNegativeInt("LOAD_RETRIES", "3")
	if err != nil {
		return nil, err
	}

	lookupTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("COUNTRY_LOOKUP_TIMEOUT", "5s"))
	if err != nil || lookupTimeout <= 0 {
		return nil, errors.New("invalid COUNTRY_LOOKUP_TIMEOUT")
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		ReferenceYear: referenceYear,
		MatchYears:    matchYears,
		Severities:    SplitList(sharedcfg.EnvOrDefault("SEVERITIES", "3+,4,5")),

		StorageBackend:         strings.ToLower(sharedcfg.EnvOrDefault("STORAGE_BACKEND", BackendFile)),
		StorageRoot:            sharedcfg.EnvOrDefault("STORAGE_ROOT", "data"),
		StoragePrefix:          sharedcfg.EnvOrDefault("STORAGE_PREFIX", "ds-ufe-food-security"),
		AzureAccountURL:        os.Getenv("AZURE_STORAGE_ACCOUNT_URL"),
		AzureConnectionString:  os.Getenv("AZURE_STORAGE_CONNECTION_STRING"),
		InputKey:               sharedcfg.EnvOrDefault("INPUT_KEY", "ipc_global_national_long.csv"),
		InputSkipRows:          skipRows,
		ReferencePeriodsKey:    envOrDefaultAllowEmpty("REFERENCE_PERIODS_KEY", "lean_season_periods.csv"),
		ReferencePeriodColumns: SplitList(sharedcfg.EnvOrDefault("REFERENCE_PERIOD_COLUMNS", "period_long")),
		OutputName:             sharedcfg.EnvOrDefault("OUTPUT_NAME", "annualized_ipc_summary"),

		KafkaBrokers:   brokers,
		KafkaSinkTopic: sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "peak-hunger-summaries"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		Schedule:        sharedcfg.EnvOrDefault("SCHEDULE", "0 6 * * *"),
		LoadRetries:     loadRetries,

		CountryLookupEnabled:   os.Getenv("COUNTRY_LOOKUP_ENABLED") == "true",
		CountryLookupURL:       sharedcfg.EnvOrDefault("COUNTRY_LOOKUP_URL", "https://restcountries.com/v3.1"),
		CountryLookupTimeout:   lookupTimeout,
		CountryLookupCacheSize: parseCacheSize(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that flags may have overridden after Load.
func (c *Config) Validate() error {
	if c.ReferenceYear <= 0 {
		return errors.New("REFERENCE_YEAR must be positive")
	}
	if len(c.MatchYears) == 0 {
		return errors.New("MATCH_YEARS is required")
	}
	if len(c.Severities) == 0 {
		return errors.New("SEVERITIES is required")
	}
	switch c.StorageBackend {
	case BackendFile, BackendS3:
	case BackendAzure:
		if c.AzureAccountURL == "" && c.AzureConnectionString == "" {
			return errors.New("STORAGE_BACKEND=azure requires AZURE_STORAGE_ACCOUNT_URL or AZURE_STORAGE_CONNECTION_STRING")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	if c.StorageRoot == "" {
		return errors.New("STORAGE_ROOT is required")
	}
	if c.InputKey == "" {
		return errors.New("INPUT_KEY is required")
	}
	if c.OutputName == "" {
		return errors.New("OUTPUT_NAME is required")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaSinkTopic == "" {
		return errors.New("KAFKA_SINK_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

// KafkaEnabled reports whether summaries are also published to Kafka.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// ParseYears parses a comma-separated list of positive years.
func ParseYears(s string) ([]int, error) {
	parts := SplitList(s)
	years := make([]int, 0, len(parts))
	for _, p := range parts {
		y, err := strconv.Atoi(p)
		if err != nil || y <= 0 {
			return nil, fmt.Errorf("bad year %q", p)
		}
		years = append(years, y)
	}
	return years, nil
}

// SplitList splits a comma-separated list, trimming blanks.
func SplitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// envOrDefaultAllowEmpty distinguishes an unset variable from one set to "".
func envOrDefaultAllowEmpty(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func parsePositiveInt(key, def string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseNonNegativeInt(key, def string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, def))
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parseCacheSize() int {
	if s := os.Getenv("COUNTRY_LOOKUP_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 300
}
