package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Score table identifiers recognized by REMINDER_SCORE_TABLE.
const (
	ScoreTableStandard = "standard"
	ScoreTableLecture  = "lecture"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Reminder ReminderConfig
	Gateway  GatewayConfig
	Scores   ScoresConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ReminderConfig drives the expiry scan and reminder dispatch loop.
type ReminderConfig struct {
	Enabled         bool
	TickInterval    time.Duration
	Lookback        time.Duration
	Cooldown        time.Duration
	DispatchDelay   time.Duration
	DispatchTimeout time.Duration
	PassThreshold   int
	ScoreTable      string
}

// GatewayConfig holds outbound message gateway settings.
type GatewayConfig struct {
	BaseURL string
	Token   string
	Sender  string
}

// ScoresConfig tunes the cached score read endpoints.
type ScoresConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Reminder = ReminderConfig{
		Enabled:         v.GetBool("REMINDER_ENABLED"),
		TickInterval:    parseDuration(v.GetString("REMINDER_TICK_INTERVAL"), 5*time.Minute),
		Lookback:        parseDuration(v.GetString("REMINDER_LOOKBACK"), 10*time.Minute),
		Cooldown:        parseDuration(v.GetString("REMINDER_COOLDOWN"), 2*time.Hour),
		DispatchDelay:   parseDuration(v.GetString("REMINDER_DISPATCH_DELAY"), 250*time.Millisecond),
		DispatchTimeout: parseDuration(v.GetString("REMINDER_DISPATCH_TIMEOUT"), 10*time.Second),
		PassThreshold:   v.GetInt("REMINDER_PASS_THRESHOLD"),
		ScoreTable:      v.GetString("REMINDER_SCORE_TABLE"),
	}

	cfg.Gateway = GatewayConfig{
		BaseURL: v.GetString("GATEWAY_BASE_URL"),
		Token:   v.GetString("GATEWAY_TOKEN"),
		Sender:  v.GetString("GATEWAY_SENDER"),
	}

	cfg.Scores = ScoresConfig{
		CacheTTL: parseDuration(v.GetString("SCORES_CACHE_TTL"), 5*time.Minute),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects option combinations the reminder loop cannot run with.
func validate(cfg *Config) error {
	r := cfg.Reminder
	if r.TickInterval <= 0 {
		return fmt.Errorf("config: REMINDER_TICK_INTERVAL must be positive")
	}
	if r.Lookback <= r.TickInterval {
		return fmt.Errorf("config: REMINDER_LOOKBACK (%s) must exceed REMINDER_TICK_INTERVAL (%s) to avoid detection gaps", r.Lookback, r.TickInterval)
	}
	if r.PassThreshold < 0 || r.PassThreshold > 100 {
		return fmt.Errorf("config: REMINDER_PASS_THRESHOLD must be within [0,100]")
	}
	switch r.ScoreTable {
	case ScoreTableStandard, ScoreTableLecture:
	default:
		return fmt.Errorf("config: unknown REMINDER_SCORE_TABLE %q", r.ScoreTable)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "presensi_sma")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REMINDER_ENABLED", true)
	v.SetDefault("REMINDER_TICK_INTERVAL", "5m")
	v.SetDefault("REMINDER_LOOKBACK", "10m")
	v.SetDefault("REMINDER_COOLDOWN", "2h")
	v.SetDefault("REMINDER_DISPATCH_DELAY", "250ms")
	v.SetDefault("REMINDER_DISPATCH_TIMEOUT", "10s")
	v.SetDefault("REMINDER_PASS_THRESHOLD", 80)
	v.SetDefault("REMINDER_SCORE_TABLE", ScoreTableStandard)

	v.SetDefault("GATEWAY_BASE_URL", "")
	v.SetDefault("GATEWAY_TOKEN", "")
	v.SetDefault("GATEWAY_SENDER", "")

	v.SetDefault("SCORES_CACHE_TTL", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
