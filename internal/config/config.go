package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	DBMaxOpenConns         int
	DBMaxIdleConns         int
	DBConnMaxLifetime      time.Duration
	DBSlowQuery            time.Duration
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	CORSAllowOrigins       string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	PolicyCacheTTL         time.Duration
	DashboardCacheTTL      time.Duration
	NotificationChannel    string
	NotificationKeepAlive  time.Duration
	AutoDecideThreshold    float64
	HighSimilarityAlert    float64
	OpenAIAPIKey           string
	ScoringModel           string
	ScoringBaseURL         string
	PDFTimeout             time.Duration
	RateLimitMax           int
	RateLimitWindow        time.Duration
	SeedEnabled            bool
	SeedToken              string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	cfg, err := read()
	if err != nil {
		return Config{}, err
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	return cfg, nil
}

// LoadTooling reads the same settings as Load for offline commands, which never verify tokens.
func LoadTooling() (Config, error) {
	return read()
}

func read() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PROPOSAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Proposal Review API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.slow_query", "500ms")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("cloudinary.folder", "proposals/archive")
	v.SetDefault("policy.cache_ttl", "5m")
	v.SetDefault("dashboard.cache_ttl", "30s")
	v.SetDefault("notifications.channel", "proposal")
	v.SetDefault("notifications.keepalive", "30s")
	v.SetDefault("review.auto_decide_threshold", 70)
	v.SetDefault("review.high_similarity_alert", 70)
	v.SetDefault("scoring.model", "text-embedding-3-small")
	v.SetDefault("pdf.timeout", "30s")
	v.SetDefault("rate_limit.max", 20)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("seed.enabled", false)

	durations := map[string]time.Duration{}
	for _, key := range []string{"database.conn_max_lifetime", "database.slow_query", "policy.cache_ttl", "dashboard.cache_ttl", "notifications.keepalive", "pdf.timeout", "rate_limit.window"} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", key, err)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		DBMaxOpenConns:         v.GetInt("database.max_open_conns"),
		DBMaxIdleConns:         v.GetInt("database.max_idle_conns"),
		DBConnMaxLifetime:      durations["database.conn_max_lifetime"],
		DBSlowQuery:            durations["database.slow_query"],
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		CORSAllowOrigins:       v.GetString("cors.allow_origins"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		PolicyCacheTTL:         durations["policy.cache_ttl"],
		DashboardCacheTTL:      durations["dashboard.cache_ttl"],
		NotificationChannel:    v.GetString("notifications.channel"),
		NotificationKeepAlive:  durations["notifications.keepalive"],
		AutoDecideThreshold:    v.GetFloat64("review.auto_decide_threshold"),
		HighSimilarityAlert:    v.GetFloat64("review.high_similarity_alert"),
		OpenAIAPIKey:           v.GetString("openai_api_key"),
		ScoringModel:           v.GetString("scoring.model"),
		ScoringBaseURL:         v.GetString("scoring.base_url"),
		PDFTimeout:             durations["pdf.timeout"],
		RateLimitMax:           v.GetInt("rate_limit.max"),
		RateLimitWindow:        durations["rate_limit.window"],
		SeedEnabled:            v.GetBool("seed.enabled"),
		SeedToken:              v.GetString("seed.token"),
	}

	if cfg.AutoDecideThreshold < 0 || cfg.AutoDecideThreshold > 100 {
		return Config{}, fmt.Errorf("review.auto_decide_threshold must be within [0,100]")
	}

	if cfg.SeedEnabled && cfg.SeedToken == "" {
		return Config{}, fmt.Errorf("seed.token must be provided when seeding is enabled")
	}

	return cfg, nil
}

// IsProduction reports whether the service runs with production hardening.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// CloudinaryConfigured reports whether archive uploads can be enabled.
func (c Config) CloudinaryConfigured() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}
