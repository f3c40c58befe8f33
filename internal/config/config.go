// Package config provides configuration management for the application.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Broker     BrokerConfig     `mapstructure:"broker"`
	WhatsApp   WhatsAppConfig   `mapstructure:"whatsapp"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`
}

type ServerConfig struct {
	Port         string `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type BrokerConfig struct {
	URL           string `mapstructure:"url"`
	Exchange      string `mapstructure:"exchange"`
	DispatchQueue string `mapstructure:"dispatch_queue"`
	Prefetch      int    `mapstructure:"prefetch"`
}

type WhatsAppConfig struct {
	BaseURL        string               `mapstructure:"base_url"`
	AccessToken    string               `mapstructure:"access_token"`
	PhoneNumberID  string               `mapstructure:"phone_number_id"`
	VerifyToken    string               `mapstructure:"verify_token"`
	Timeout        int                  `mapstructure:"timeout"`
	CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"`
}

type CircuitBreakerConfig struct {
	MaxRequests      uint32  `mapstructure:"max_requests"`
	Interval         int     `mapstructure:"interval"`
	Timeout          int     `mapstructure:"timeout"`
	FailureRatio     float64 `mapstructure:"failure_ratio"`
	ConsecutiveFails uint32  `mapstructure:"consecutive_fails"`
}

type AuthConfig struct {
	JWTSecret       string `mapstructure:"jwt_secret"`
	Issuer          string `mapstructure:"issuer"`
	AccessTTLMin    int    `mapstructure:"access_ttl_minutes"`
	RefreshTTLHours int    `mapstructure:"refresh_ttl_hours"`
}

type SchedulerConfig struct {
	IntervalMinutes int `mapstructure:"interval_minutes"`
}

type MiddlewareConfig struct {
	RateLimit      int      `mapstructure:"rate_limit"`
	RateLimitBurst int      `mapstructure:"rate_limit_burst"`
	EnableCORS     bool     `mapstructure:"enable_cors"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.read_timeout", 10)
	viper.SetDefault("server.write_timeout", 10)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("broker.exchange", "commhub")
	viper.SetDefault("broker.dispatch_queue", "campaign.dispatch")
	viper.SetDefault("broker.prefetch", 8)
	viper.SetDefault("whatsapp.base_url", "https://graph.facebook.com/v18.0")
	viper.SetDefault("whatsapp.timeout", 30)
	viper.SetDefault("whatsapp.circuit_breaker.max_requests", 3)
	viper.SetDefault("whatsapp.circuit_breaker.interval", 60)
	viper.SetDefault("whatsapp.circuit_breaker.timeout", 60)
	viper.SetDefault("whatsapp.circuit_breaker.failure_ratio", 0.6)
	viper.SetDefault("whatsapp.circuit_breaker.consecutive_fails", 5)
	viper.SetDefault("auth.issuer", "commhub")
	viper.SetDefault("auth.access_ttl_minutes", 30)
	viper.SetDefault("auth.refresh_ttl_hours", 168)
	viper.SetDefault("scheduler.interval_minutes", 1)
	viper.SetDefault("middleware.rate_limit", 100)
	viper.SetDefault("middleware.rate_limit_burst", 1000)
	viper.SetDefault("middleware.enable_cors", true)
	viper.SetDefault("middleware.allowed_origins", []string{"*"})

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// GetDSN returns PostgreSQL connection string.
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}
