package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all runtime configuration for the server and the CLI tools
type Config struct {
	DatabaseURL string
	Port        string

	JWTSecret string
	JWTTTL    time.Duration

	LogLevel  string
	LogFormat string

	// Location used to bucket reports into calendar days
	Location *time.Location

	SMTPTimeout time.Duration

	// Redis is optional; an empty URL disables the dashboard cache
	RedisURL          string
	DashboardCacheTTL time.Duration

	FirebaseCredentialsBase64 string
	FirebaseCredentialsFile   string

	CORSAllowedOrigins []string
	SeedDemoData       bool

	// EnvFileLoaded reports whether a .env file was found
	EnvFileLoaded bool
}

// Load reads .env (if present), an optional config.yaml and the process environment
func Load() (*Config, error) {
	envLoaded := godotenv.Load() == nil

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/cartrack/")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.AutomaticEnv()

	return fromViper(v, envLoaded)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("jwt_ttl_hours", 168)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("timezone", "UTC")
	v.SetDefault("smtp_timeout_seconds", 30)
	v.SetDefault("dashboard_cache_ttl_seconds", 60)
	v.SetDefault("firebase_credentials_file", "./firebase-service-account.json")
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("seed_demo_data", false)
}

func fromViper(v *viper.Viper, envLoaded bool) (*Config, error) {
	loc, err := time.LoadLocation(v.GetString("timezone"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", v.GetString("timezone"), err)
	}

	origins := []string{}
	for _, o := range strings.Split(v.GetString("cors_allowed_origins"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}

	return &Config{
		DatabaseURL:               v.GetString("database_url"),
		Port:                      v.GetString("port"),
		JWTSecret:                 v.GetString("app_jwt_secret"),
		JWTTTL:                    time.Duration(v.GetInt("jwt_ttl_hours")) * time.Hour,
		LogLevel:                  v.GetString("log_level"),
		LogFormat:                 v.GetString("log_format"),
		Location:                  loc,
		SMTPTimeout:               time.Duration(v.GetInt("smtp_timeout_seconds")) * time.Second,
		RedisURL:                  v.GetString("redis_url"),
		DashboardCacheTTL:         time.Duration(v.GetInt("dashboard_cache_ttl_seconds")) * time.Second,
		FirebaseCredentialsBase64: v.GetString("firebase_credentials_base64"),
		FirebaseCredentialsFile:   v.GetString("firebase_credentials_file"),
		CORSAllowedOrigins:        origins,
		SeedDemoData:              v.GetBool("seed_demo_data"),
		EnvFileLoaded:             envLoaded,
	}, nil
}

// Validate checks the keys the server cannot start without
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.JWTSecret == "" {
		missing = append(missing, "APP_JWT_SECRET")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL_HOURS must be positive")
	}
	return nil
}
