package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/koreafit-backend/internal/data/db"
	"github.com/yungbote/koreafit-backend/internal/http/middleware"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	configPathEnv = "KOREAFIT_CONFIG"
)

type Config struct {
	LogMode string

	ServerAddr  string
	CORSOrigins []string

	DBDriver   string
	SQLitePath string
	Postgres   db.PostgresConfig

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string
	LockTTL       time.Duration

	JWTSecretKey string
	TokenTTL     time.Duration

	EnrichConcurrency int
	// EnrichSeed pins the trend random source; 0 seeds from the clock.
	EnrichSeed   int64
	EnrichOnRead bool

	VotesPerMinute int
	VotesBurst     int

	SeedOnStart bool

	CardFontPath string

	MetricsEnabled bool
	MetricsAddr    string

	OtelEnabled     bool
	OtelServiceName string
	OtelEndpoint    string
	OtelInsecure    bool
	OtelHeaders     string
	OtelSampleRatio float64
	Environment     string
}

// LoadConfig reads defaults, then the optional YAML file, then the
// environment. db.driver is read from DB_DRIVER.
func LoadConfig() (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if path := strings.TrimSpace(os.Getenv(configPathEnv)); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("error reading config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	cfg := Config{
		LogMode: v.GetString("log.mode"),

		ServerAddr:  v.GetString("server.addr"),
		CORSOrigins: splitList(v.GetStringSlice("server.cors_origins")),

		DBDriver:   strings.ToLower(strings.TrimSpace(v.GetString("db.driver"))),
		SQLitePath: v.GetString("db.sqlite_path"),
		Postgres: db.PostgresConfig{
			Host:     v.GetString("db.postgres.host"),
			Port:     v.GetInt("db.postgres.port"),
			User:     v.GetString("db.postgres.user"),
			Password: v.GetString("db.postgres.password"),
			Name:     v.GetString("db.postgres.name"),
			SSLMode:  v.GetString("db.postgres.sslmode"),
		},

		RedisAddr:     strings.TrimSpace(v.GetString("redis.addr")),
		RedisPassword: v.GetString("redis.password"),
		RedisDB:       v.GetInt("redis.db"),
		RedisChannel:  v.GetString("redis.channel"),
		LockTTL:       time.Duration(v.GetInt("redis.lock_ttl_seconds")) * time.Second,

		JWTSecretKey: v.GetString("auth.jwt_secret_key"),
		TokenTTL:     time.Duration(v.GetInt("auth.token_ttl_seconds")) * time.Second,

		EnrichConcurrency: v.GetInt("enrich.concurrency"),
		EnrichSeed:        v.GetInt64("enrich.seed"),
		EnrichOnRead:      v.GetBool("enrich.on_read"),

		VotesPerMinute: v.GetInt("votes.rate_per_minute"),
		VotesBurst:     v.GetInt("votes.burst"),

		SeedOnStart: v.GetBool("seed.on_start"),

		CardFontPath: v.GetString("card.font_path"),

		MetricsEnabled: v.GetBool("metrics.enabled"),
		MetricsAddr:    v.GetString("metrics.addr"),

		OtelEnabled:     v.GetBool("otel.enabled"),
		OtelServiceName: v.GetString("otel.service_name"),
		OtelEndpoint:    v.GetString("otel.endpoint"),
		OtelInsecure:    v.GetBool("otel.insecure"),
		OtelHeaders:     v.GetString("otel.headers"),
		OtelSampleRatio: v.GetFloat64("otel.sample_ratio"),
		Environment:     v.GetString("environment"),
	}
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.mode", "development")
	v.SetDefault("environment", "development")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.cors_origins", middleware.DefaultCORSOrigins)

	v.SetDefault("db.driver", DriverMemory)
	v.SetDefault("db.sqlite_path", "koreafit.db")
	v.SetDefault("db.postgres.host", "localhost")
	v.SetDefault("db.postgres.port", 5432)
	v.SetDefault("db.postgres.user", "postgres")
	v.SetDefault("db.postgres.password", "")
	v.SetDefault("db.postgres.name", "koreafit")
	v.SetDefault("db.postgres.sslmode", "disable")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "idea-events")
	v.SetDefault("redis.lock_ttl_seconds", 30)

	v.SetDefault("auth.jwt_secret_key", "defaultsecret")
	v.SetDefault("auth.token_ttl_seconds", 3600)

	v.SetDefault("enrich.concurrency", 4)
	v.SetDefault("enrich.seed", 0)
	v.SetDefault("enrich.on_read", true)

	v.SetDefault("votes.rate_per_minute", 30)
	v.SetDefault("votes.burst", 10)

	v.SetDefault("seed.on_start", true)

	v.SetDefault("card.font_path", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.service_name", "koreafit")
	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.insecure", true)
	v.SetDefault("otel.headers", "")
	v.SetDefault("otel.sample_ratio", 1.0)
}

func validate(cfg Config) error {
	switch cfg.DBDriver {
	case DriverMemory, DriverSQLite, DriverPostgres:
	default:
		return fmt.Errorf("db.driver must be one of memory|sqlite|postgres, got %q", cfg.DBDriver)
	}
	if cfg.DBDriver == DriverPostgres && strings.TrimSpace(cfg.Postgres.Host) == "" {
		return fmt.Errorf("db.postgres.host is required for the postgres driver")
	}
	if cfg.DBDriver == DriverSQLite && strings.TrimSpace(cfg.SQLitePath) == "" {
		return fmt.Errorf("db.sqlite_path is required for the sqlite driver")
	}
	if cfg.EnrichConcurrency < 1 {
		return fmt.Errorf("enrich.concurrency must be at least 1")
	}
	if strings.TrimSpace(cfg.JWTSecretKey) == "" {
		return fmt.Errorf("auth.jwt_secret_key is required")
	}
	return nil
}

// splitList accepts both YAML lists and a comma-separated env value.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
