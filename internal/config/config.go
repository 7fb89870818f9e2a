package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/homme-x/PES-Tournament-Manager/internal/model"
	"github.com/joho/godotenv"
)

type Config struct {
	App            string
	Port           int
	LogLevel       slog.Level
	AllowedOrigins []string
	Lambda         bool

	Defaults model.Settings

	SQLitePath    string
	PostgresDSN   string
	MigrationsDir string

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
}

func (c Config) Prod() bool {
	return c.App == "prod"
}

// Load reads .env files when running outside Lambda, then the process
// environment.
func Load() (Config, error) {
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") == "" {
		_ = godotenv.Load(".env", ".env.local")
	}
	return parse(os.Getenv)
}

func parse(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return fallback
	}
	var err error
	atoi := func(key string, fallback int) int {
		raw := get(key, "")
		if raw == "" || err != nil {
			return fallback
		}
		n, convErr := strconv.Atoi(raw)
		if convErr != nil {
			err = fmt.Errorf("invalid %s: %w", key, convErr)
			return fallback
		}
		return n
	}

	defaults := model.DefaultSettings()
	cfg := Config{
		App:    strings.ToLower(get("APP", "dev")),
		Port:   atoi("PORT", 8080),
		Lambda: get("AWS_LAMBDA_FUNCTION_NAME", "") != "",
		Defaults: model.Settings{
			NumPools:          atoi("DEFAULT_NUM_POOLS", defaults.NumPools),
			PlayersPerPool:    atoi("DEFAULT_PLAYERS_PER_POOL", defaults.PlayersPerPool),
			QualifiersPerPool: atoi("DEFAULT_QUALIFIERS_PER_POOL", defaults.QualifiersPerPool),
			CurrentPhase:      model.PhaseGroup,
		},
		SQLitePath:        get("ARCHIVE_SQLITE_PATH", ""),
		PostgresDSN:       get("ARCHIVE_POSTGRES_DSN", ""),
		MigrationsDir:     get("ARCHIVE_MIGRATIONS_DIR", ""),
		S3Bucket:          get("ARCHIVE_S3_BUCKET", ""),
		S3Region:          get("ARCHIVE_S3_REGION", ""),
		S3Endpoint:        get("ARCHIVE_S3_ENDPOINT", ""),
		S3AccessKeyID:     get("ARCHIVE_S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: get("ARCHIVE_S3_SECRET_ACCESS_KEY", ""),
	}
	if err != nil {
		return Config{}, err
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.Port)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	for _, origin := range strings.Split(get("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}
	return cfg, nil
}
