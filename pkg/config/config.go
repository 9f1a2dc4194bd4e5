package config

import (
	"errors"
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
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Auth        AuthConfig
	Attestation AttestationConfig
	Review      ReviewConfig
	Modules     ModulesConfig
	Geo         GeoConfig
	CORS        CORSConfig
	Log         LogConfig
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
	Issuer     string
}

// AuthConfig controls claims assembly policy.
type AuthConfig struct {
	SuperAdminBootstrap bool
}

// AttestationConfig holds the proximity attestation secret, lifetime and radii.
type AttestationConfig struct {
	Secret             string
	TTL                time.Duration
	OpenRadiusMeters   float64
	SubmitRadiusMeters float64
	RatePerMinute      int
	Burst              int
}

// ReviewConfig tunes the review workflow.
type ReviewConfig struct {
	RequireRejectRemark bool
	ConflictRetries     int
}

// ModulesConfig drives city/module synchronisation at startup.
type ModulesConfig struct {
	SyncOnStartup bool
	MigrateLegacy bool
	SyncWorkers   int
}

// GeoConfig governs geo tree caching.
type GeoConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
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

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Auth = AuthConfig{
		SuperAdminBootstrap: v.GetBool("AUTH_SUPERADMIN_BOOTSTRAP"),
	}

	cfg.Attestation = AttestationConfig{
		Secret:             v.GetString("ATTESTATION_SECRET"),
		TTL:                parseDuration(v.GetString("ATTESTATION_TTL"), 5*time.Minute),
		OpenRadiusMeters:   positiveFloat(v.GetFloat64("PROXIMITY_OPEN_RADIUS_METERS"), 50),
		SubmitRadiusMeters: positiveFloat(v.GetFloat64("PROXIMITY_SUBMIT_RADIUS_METERS"), 50),
		RatePerMinute:      v.GetInt("ATTESTATION_RATE_PER_MINUTE"),
		Burst:              v.GetInt("ATTESTATION_BURST"),
	}

	cfg.Review = ReviewConfig{
		RequireRejectRemark: v.GetBool("REVIEW_REQUIRE_REJECT_REMARK"),
		ConflictRetries:     v.GetInt("REVIEW_CONFLICT_RETRIES"),
	}

	cfg.Modules = ModulesConfig{
		SyncOnStartup: v.GetBool("MODULES_SYNC_ON_STARTUP"),
		MigrateLegacy: v.GetBool("MODULES_MIGRATE_LEGACY"),
		SyncWorkers:   v.GetInt("SYNC_WORKERS"),
	}

	cfg.Geo = GeoConfig{
		CacheEnabled: v.GetBool("ENABLE_GEO_CACHE"),
		CacheTTL:     parseDuration(v.GetString("GEO_CACHE_TTL"), 10*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "hms")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "1h")
	v.SetDefault("JWT_ISSUER", "hms-api")
	v.SetDefault("AUTH_SUPERADMIN_BOOTSTRAP", true)

	v.SetDefault("ATTESTATION_SECRET", "dev_attestation_secret")
	v.SetDefault("ATTESTATION_TTL", "5m")
	v.SetDefault("PROXIMITY_OPEN_RADIUS_METERS", 50)
	v.SetDefault("PROXIMITY_SUBMIT_RADIUS_METERS", 50)
	v.SetDefault("ATTESTATION_RATE_PER_MINUTE", 30)
	v.SetDefault("ATTESTATION_BURST", 5)

	v.SetDefault("REVIEW_REQUIRE_REJECT_REMARK", true)
	v.SetDefault("REVIEW_CONFLICT_RETRIES", 1)

	v.SetDefault("MODULES_SYNC_ON_STARTUP", true)
	v.SetDefault("MODULES_MIGRATE_LEGACY", false)
	v.SetDefault("SYNC_WORKERS", 2)

	v.SetDefault("ENABLE_GEO_CACHE", true)
	v.SetDefault("GEO_CACHE_TTL", "10m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
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

func positiveFloat(value, fallback float64) float64 {
	if value <= 0 {
		return fallback
	}
	return value
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
