package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	SMTP     SMTPConfig     `mapstructure:"smtp"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type SMTPConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	ReplyTo     string `mapstructure:"reply_to"`
}

type RedisConfig struct {
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type PipelineConfig struct {
	BatchLimit       int           `mapstructure:"batch_limit"`
	DispatchInterval time.Duration `mapstructure:"dispatch_interval"`
	ScanHour         int           `mapstructure:"scan_hour"`
	BusinessTimezone string        `mapstructure:"business_timezone"`
	MaxAttempts      int           `mapstructure:"max_attempts"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	TemplateCacheTTL time.Duration `mapstructure:"template_cache_ttl"`
	TrackingPrefix   string        `mapstructure:"tracking_prefix"`
}

type LogConfig struct {
	Level   string `mapstructure:"level"`
	Console bool   `mapstructure:"console"`
}

// secrets are never read from the yaml file; they overlay it from the
// environment (NOTIFIER_DB_PASSWORD, NOTIFIER_SMTP_PASSWORD,
// NOTIFIER_REDIS_URL).
type secrets struct {
	DBPassword   string `envconfig:"DB_PASSWORD"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`
	RedisURL     string `envconfig:"REDIS_URL"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var sec secrets
	if err := envconfig.Process("NOTIFIER", &sec); err != nil {
		return nil, fmt.Errorf("failed to read env secrets: %w", err)
	}
	if sec.DBPassword != "" {
		cfg.Database.Password = sec.DBPassword
	}
	if sec.SMTPPassword != "" {
		cfg.SMTP.Password = sec.SMTPPassword
	}
	if sec.RedisURL != "" {
		cfg.Redis.URL = sec.RedisURL
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeout_seconds", 30)
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("smtp.port", 587)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("pipeline.batch_limit", 50)
	viper.SetDefault("pipeline.dispatch_interval", 10*time.Minute)
	viper.SetDefault("pipeline.scan_hour", 8)
	viper.SetDefault("pipeline.business_timezone", "America/Sao_Paulo")
	viper.SetDefault("pipeline.max_attempts", 0)
	viper.SetDefault("pipeline.operation_timeout", 15*time.Second)
	viper.SetDefault("pipeline.template_cache_ttl", 5*time.Minute)
	viper.SetDefault("pipeline.tracking_prefix", "NG")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.console", true)
}
