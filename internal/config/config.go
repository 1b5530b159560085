// Package config reads the server configuration from the environment
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the server configuration
type Config struct {
	// DatabaseURL selects the Postgres stores; empty runs fully in memory
	DatabaseURL string `validate:"omitempty,url"`
	Port        string `validate:"required,numeric"`
	// CatalogFile is the YAML/JSON catalog used when no database is configured
	CatalogFile    string   `validate:"required_without=DatabaseURL"`
	MigrationsPath string   `validate:"required_with=DatabaseURL"`
	AutoMigrate    bool
	NameCategories []string `validate:"dive,required"`

	SessionIdleTimeout time.Duration `validate:"gte=1s"`
	SweepInterval      time.Duration `validate:"gte=1s"`
	// CatalogCacheTTL of 0 keeps the catalog until an explicit reload
	CatalogCacheTTL time.Duration `validate:"gte=0s"`

	LogLevel        string `validate:"omitempty,oneof=TRACE DEBUG INFO WARN WARNING ERROR FATAL"`
	ErrorSampleRate int    `validate:"gte=1"`
	OTELEnabled     bool
	ServiceName     string `validate:"required"`
}

// Defaults returns the configuration used for unset variables
func Defaults() Config {
	return Config{
		Port:               "8080",
		MigrationsPath:     "migrations",
		SessionIdleTimeout: 30 * time.Minute,
		SweepInterval:      time.Minute,
		LogLevel:           "INFO",
		ErrorSampleRate:    1,
		ServiceName:        "configbuilder",
	}
}

// Load reads the configuration from the process environment
func Load() (*Config, error) {
	return FromEnv(os.LookupEnv)
}

// FromEnv reads the configuration through lookup and validates it
func FromEnv(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Defaults()
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("DATABASE_URL", &cfg.DatabaseURL)
	str("PORT", &cfg.Port)
	str("CATALOG_FILE", &cfg.CatalogFile)
	str("MIGRATIONS_PATH", &cfg.MigrationsPath)
	boolean("AUTO_MIGRATE", &cfg.AutoMigrate)
	duration("SESSION_IDLE_TIMEOUT", &cfg.SessionIdleTimeout)
	duration("SESSION_SWEEP_INTERVAL", &cfg.SweepInterval)
	duration("CATALOG_CACHE_TTL", &cfg.CatalogCacheTTL)
	str("LOG_LEVEL", &cfg.LogLevel)
	boolean("OTEL_ENABLED", &cfg.OTELEnabled)
	str("OTEL_SERVICE_NAME", &cfg.ServiceName)

	if v, ok := lookup("NAME_CATEGORIES"); ok {
		cfg.NameCategories = splitList(v)
	}
	if v, ok := lookup("ERROR_SAMPLE_RATE"); ok && v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("ERROR_SAMPLE_RATE: %w", err))
		} else {
			cfg.ErrorSampleRate = rate
		}
	}

	cfg.LogLevel = strings.ToUpper(cfg.LogLevel)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the struct tags
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
