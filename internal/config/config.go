/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the payout-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort              string `mapstructure:"SERVER_PORT"`
	DatabaseURL             string `mapstructure:"DATABASE_URL"`
	RedisURL                string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix    string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL             string `mapstructure:"RABBITMQ_URL"`
	CheckoutEventQueue      string `mapstructure:"CHECKOUT_EVENT_QUEUE"`
	StripeAPIBaseURL        string `mapstructure:"STRIPE_API_BASE_URL"`
	StripeAPIKey            string `mapstructure:"STRIPE_API_KEY"`
	ClerkJWKSURL            string `mapstructure:"CLERK_JWKS_URL"`
	CronSecret              string `mapstructure:"CRON_SECRET"`
	CronRateLimitPerMinute  int    `mapstructure:"CRON_RATE_LIMIT_PER_MINUTE"`
	AdminRateLimitPerMinute int    `mapstructure:"ADMIN_RATE_LIMIT_PER_MINUTE"`
	PayoutRunSchedule       string `mapstructure:"PAYOUT_RUN_SCHEDULE"`
	PayoutCurrency          string `mapstructure:"PAYOUT_CURRENCY"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("CHECKOUT_EVENT_QUEUE", "payout_service.checkout_events")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "retreatbase:rate_limit")
	viper.SetDefault("CRON_RATE_LIMIT_PER_MINUTE", 5)
	viper.SetDefault("ADMIN_RATE_LIMIT_PER_MINUTE", 10)
	viper.SetDefault("PAYOUT_CURRENCY", "usd")

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "PAYOUT_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("CHECKOUT_EVENT_QUEUE")
	_ = viper.BindEnv("STRIPE_API_BASE_URL")
	_ = viper.BindEnv("STRIPE_API_KEY", "STRIPE_API_KEY", "STRIPE_SECRET_KEY")
	_ = viper.BindEnv("CLERK_JWKS_URL")
	_ = viper.BindEnv("CRON_SECRET")
	_ = viper.BindEnv("CRON_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("ADMIN_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("PAYOUT_RUN_SCHEDULE")
	_ = viper.BindEnv("PAYOUT_CURRENCY")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "retreatbase:rate_limit"
	}
	config.CronSecret = strings.TrimSpace(config.CronSecret)
	config.PayoutRunSchedule = strings.TrimSpace(config.PayoutRunSchedule)

	if config.CronRateLimitPerMinute <= 0 {
		config.CronRateLimitPerMinute = 5
	}
	if config.AdminRateLimitPerMinute <= 0 {
		config.AdminRateLimitPerMinute = 10
	}
	config.PayoutCurrency = strings.ToLower(strings.TrimSpace(config.PayoutCurrency))
	if config.PayoutCurrency == "" {
		config.PayoutCurrency = "usd"
	}

	return
}
