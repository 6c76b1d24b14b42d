package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissing is returned by Load when one or more required settings are unset.
var ErrMissing = errors.New("missing required configuration")

type Config struct {
	Addr        string
	CORSOrigins string
	LogLevel    string

	// StoreURL is the DSN of the hosted Postgres store. StoreKey is the
	// store's public key, used to verify and sign session tokens.
	StoreURL string
	StoreKey string

	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string

	DiagnosisTimeout time.Duration
	DiagnosisRPS     float64
	DiagnosisBurst   int
}

// Load reads configuration from the environment, after loading a .env file
// if one exists. Required settings have no fallback.
func Load() (Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from the given lookup function.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		Addr:             valueOr(getenv("PORTAL_ADDR"), ":8080"),
		CORSOrigins:      valueOr(getenv("CORS_ORIGINS"), "*"),
		LogLevel:         valueOr(getenv("LOG_LEVEL"), "info"),
		StoreURL:         strings.TrimSpace(getenv("STORE_URL")),
		StoreKey:         strings.TrimSpace(getenv("STORE_KEY")),
		OpenAIKey:        strings.TrimSpace(getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:    getenv("OPENAI_BASE_URL"),
		OpenAIModel:      valueOr(getenv("OPENAI_MODEL"), "gpt-3.5-turbo"),
		DiagnosisTimeout: 30 * time.Second,
		DiagnosisRPS:     0.2,
		DiagnosisBurst:   3,
	}

	var missing []string
	if cfg.StoreURL == "" {
		missing = append(missing, "STORE_URL")
	}
	if cfg.StoreKey == "" {
		missing = append(missing, "STORE_KEY")
	}
	if cfg.OpenAIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}

	if v := getenv("DIAGNOSIS_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("DIAGNOSIS_TIMEOUT: %w", err)
		}
		cfg.DiagnosisTimeout = d
	}
	if v := getenv("DIAGNOSIS_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return Config{}, fmt.Errorf("DIAGNOSIS_RPS: invalid value %q", v)
		}
		cfg.DiagnosisRPS = f
	}
	if v := getenv("DIAGNOSIS_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("DIAGNOSIS_BURST: invalid value %q", v)
		}
		cfg.DiagnosisBurst = n
	}

	return cfg, nil
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
