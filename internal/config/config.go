package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	FeedCacheTTL        time.Duration
	FeedDefaultPageSize int
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	cacheTTL := viper.GetInt("FEED_CACHE_TTL_SECONDS")
	if cacheTTL <= 0 {
		cacheTTL = 30
	}
	pageSize := viper.GetInt("FEED_DEFAULT_PAGE_SIZE")
	if pageSize <= 0 {
		pageSize = 20
	}

	return &Config{
		Env:                 env,
		Port:                port,
		DatabaseURL:         viper.GetString("DATABASE_URL"),
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		FeedCacheTTL:        time.Duration(cacheTTL) * time.Second,
		FeedDefaultPageSize: pageSize,
	}, nil
}
