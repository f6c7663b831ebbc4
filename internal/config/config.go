// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Database struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"database"`
	Server struct {
		Port         string        `mapstructure:"port"`
		ReadTimeout  time.Duration `mapstructure:"read_timeout"`
		WriteTimeout time.Duration `mapstructure:"write_timeout"`
	} `mapstructure:"server"`
	JWT struct {
		Secret       string        `mapstructure:"secret"`
		ExpiryPeriod time.Duration `mapstructure:"expiry_period"`
	} `mapstructure:"jwt"`
	Auth struct {
		ArgonTime    uint32 `mapstructure:"argon_time"`
		ArgonMemory  uint32 `mapstructure:"argon_memory"`
		ArgonThreads uint8  `mapstructure:"argon_threads"`
		ArgonKeyLen  uint32 `mapstructure:"argon_key_len"`
	} `mapstructure:"auth"`
	Realtime struct {
		Channel string `mapstructure:"channel"`
	} `mapstructure:"realtime"`
	Invitations struct {
		TTL time.Duration `mapstructure:"ttl"`
	} `mapstructure:"invitations"`
	Sendgrid struct {
		APIKey string `mapstructure:"api_key"`
		From   string `mapstructure:"from"`
	} `mapstructure:"sendgrid"`
	SMTP struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
		From     string `mapstructure:"from"`
	} `mapstructure:"smtp"`
	Cache struct {
		TTL         time.Duration `mapstructure:"ttl"`
		CleanupFreq time.Duration `mapstructure:"cleanup_freq"`
	} `mapstructure:"cache"`
	BaseURL string `mapstructure:"base_url"`
}

// Load reads configuration from environment variables and an optional yaml
// file (CONFIG_FILE, or ./config.yaml).
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("liminal")
	v.AutomaticEnv()

	v.SetDefault("database.url", "postgres://postgres@localhost:5432/liminal?sslmode=disable")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry_period", 24*time.Hour)
	v.SetDefault("auth.argon_time", 1)
	v.SetDefault("auth.argon_memory", 64*1024)
	v.SetDefault("auth.argon_threads", 4)
	v.SetDefault("auth.argon_key_len", 32)
	v.SetDefault("realtime.channel", "liminal_changes")
	v.SetDefault("invitations.ttl", 7*24*time.Hour)
	v.SetDefault("sendgrid.api_key", "")
	v.SetDefault("sendgrid.from", "")
	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("cache.ttl", 5*time.Minute)
	v.SetDefault("cache.cleanup_freq", time.Minute)
	v.SetDefault("base_url", "http://localhost:8080")

	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(c *Config) error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return errors.New("database.url must be set")
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		return errors.New("jwt.secret must be set")
	}
	return nil
}
