package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env        string
	Port       int
	APIPrefix  string
	EnableDocs bool

	Database     DatabaseConfig
	Redis        RedisConfig
	CORS         CORSConfig
	Log          LogConfig
	Risk         RiskConfig
	Intervention InterventionConfig
	Dashboard    DashboardConfig
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
	PingTimeout  time.Duration
}

type RedisConfig struct {
	Enabled     bool
	Host        string
	Port        int
	Password    string
	DB          int
	DialTimeout time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// RiskConfig holds the scoring policy. Thresholds are policy, not fact, so
// every constant of the estimator is tunable from the environment.
type RiskConfig struct {
	PassThreshold      float64
	HighTier           float64
	MediumTier         float64
	NoSessionPenalty   float64
	SessionBonus       float64
	SessionBonusCap    float64
	StrongSessionBonus float64
	RuleFloor          float64
	RuleCeiling        float64
	ModelFloor         float64
	ModelCeiling       float64
	ModelPath          string
	BatchConcurrency   int
}

// InterventionConfig describes the sessions created by the intervention guard.
type InterventionConfig struct {
	DurationMinutes int
	Modality        string
	TopicPrefix     string
}

// DashboardConfig tunes the tutor dashboard.
type DashboardConfig struct {
	RatingCacheTTL time.Duration
	DefaultRating  float64
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
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.EnableDocs = v.GetBool("ENABLE_DOCS")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		PingTimeout:  parseDuration(v.GetString("DB_PING_TIMEOUT"), 5*time.Second),
	}

	cfg.Redis = RedisConfig{
		Enabled:     v.GetBool("ENABLE_REDIS"),
		Host:        v.GetString("REDIS_HOST"),
		Port:        v.GetInt("REDIS_PORT"),
		Password:    v.GetString("REDIS_PASSWORD"),
		DB:          v.GetInt("REDIS_DB"),
		DialTimeout: parseDuration(v.GetString("REDIS_DIAL_TIMEOUT"), 5*time.Second),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Risk = RiskConfig{
		PassThreshold:      v.GetFloat64("RISK_PASS_THRESHOLD"),
		HighTier:           v.GetFloat64("RISK_HIGH_TIER"),
		MediumTier:         v.GetFloat64("RISK_MEDIUM_TIER"),
		NoSessionPenalty:   v.GetFloat64("RISK_NO_SESSION_PENALTY"),
		SessionBonus:       v.GetFloat64("RISK_SESSION_BONUS"),
		SessionBonusCap:    v.GetFloat64("RISK_SESSION_BONUS_CAP"),
		StrongSessionBonus: v.GetFloat64("RISK_STRONG_SESSION_BONUS"),
		RuleFloor:          v.GetFloat64("RISK_RULE_FLOOR"),
		RuleCeiling:        v.GetFloat64("RISK_RULE_CEILING"),
		ModelFloor:         v.GetFloat64("RISK_MODEL_FLOOR"),
		ModelCeiling:       v.GetFloat64("RISK_MODEL_CEILING"),
		ModelPath:          v.GetString("RISK_MODEL_PATH"),
		BatchConcurrency:   v.GetInt("RISK_BATCH_CONCURRENCY"),
	}

	cfg.Intervention = InterventionConfig{
		DurationMinutes: v.GetInt("INTERVENTION_DURATION_MINUTES"),
		Modality:        v.GetString("INTERVENTION_MODALITY"),
		TopicPrefix:     v.GetString("INTERVENTION_TOPIC_PREFIX"),
	}

	cfg.Dashboard = DashboardConfig{
		RatingCacheTTL: parseDuration(v.GetString("DASHBOARD_RATING_CACHE_TTL"), 10*time.Minute),
		DefaultRating:  v.GetFloat64("DASHBOARD_DEFAULT_RATING"),
	}

	return cfg, nil
}

// DefaultRisk returns the scoring policy used when nothing is configured.
func DefaultRisk() RiskConfig {
	return RiskConfig{
		PassThreshold:      7.0,
		HighTier:           70,
		MediumTier:         40,
		NoSessionPenalty:   15,
		SessionBonus:       6,
		SessionBonusCap:    30,
		StrongSessionBonus: 2,
		RuleFloor:          5,
		RuleCeiling:        99,
		ModelFloor:         5,
		ModelCeiling:       99.9,
		BatchConcurrency:   4,
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("ENABLE_DOCS", true)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tutorias")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_PING_TIMEOUT", "5s")

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	risk := DefaultRisk()
	v.SetDefault("RISK_PASS_THRESHOLD", risk.PassThreshold)
	v.SetDefault("RISK_HIGH_TIER", risk.HighTier)
	v.SetDefault("RISK_MEDIUM_TIER", risk.MediumTier)
	v.SetDefault("RISK_NO_SESSION_PENALTY", risk.NoSessionPenalty)
	v.SetDefault("RISK_SESSION_BONUS", risk.SessionBonus)
	v.SetDefault("RISK_SESSION_BONUS_CAP", risk.SessionBonusCap)
	v.SetDefault("RISK_STRONG_SESSION_BONUS", risk.StrongSessionBonus)
	v.SetDefault("RISK_RULE_FLOOR", risk.RuleFloor)
	v.SetDefault("RISK_RULE_CEILING", risk.RuleCeiling)
	v.SetDefault("RISK_MODEL_FLOOR", risk.ModelFloor)
	v.SetDefault("RISK_MODEL_CEILING", risk.ModelCeiling)
	v.SetDefault("RISK_MODEL_PATH", "")
	v.SetDefault("RISK_BATCH_CONCURRENCY", risk.BatchConcurrency)

	v.SetDefault("INTERVENTION_DURATION_MINUTES", 60)
	v.SetDefault("INTERVENTION_MODALITY", "virtual")
	v.SetDefault("INTERVENTION_TOPIC_PREFIX", "risk-intervention")

	v.SetDefault("DASHBOARD_RATING_CACHE_TTL", "10m")
	v.SetDefault("DASHBOARD_DEFAULT_RATING", 5.0)
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
