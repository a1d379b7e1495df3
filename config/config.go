package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	LogLevel       string   `mapstructure:"log_level"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`

	// Operator API. Clients of the relay are never authenticated.
	JWTSecret     string `mapstructure:"jwt_secret"`
	AdminPassword string `mapstructure:"admin_password"`

	MaxTagLength int `mapstructure:"max_tag_length"`

	// WebSocket transport
	ReadLimit  int64         `mapstructure:"read_limit"`
	SendBuffer int           `mapstructure:"send_buffer"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`

	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig configures the optional presence mirror. An empty Addr
// disables it.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

func (c RedisConfig) Enabled() bool { return c.Addr != "" }

func (c *Config) IsProduction() bool { return c.Environment == "production" }

// Load reads configuration from the environment (PORT, REDIS_ADDR, ...) and,
// when CONFIG_FILE is set, from that YAML file. Environment wins.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})
	v.SetDefault("jwt_secret", defaultJWTSecret)
	v.SetDefault("admin_password", "")
	v.SetDefault("max_tag_length", 64)
	v.SetDefault("read_limit", 64*1024)
	v.SetDefault("send_buffer", 256)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "24h")

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	if c.MaxTagLength <= 0 {
		errs = append(errs, fmt.Errorf("max_tag_length must be positive, got %d", c.MaxTagLength))
	}
	if c.ReadLimit <= 0 {
		errs = append(errs, fmt.Errorf("read_limit must be positive, got %d", c.ReadLimit))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, fmt.Errorf("send_buffer must be positive, got %d", c.SendBuffer))
	}
	if c.PingPeriod <= 0 || c.PingPeriod >= c.PongWait {
		errs = append(errs, fmt.Errorf("ping_period (%s) must be positive and shorter than pong_wait (%s)", c.PingPeriod, c.PongWait))
	}
	if c.WriteWait <= 0 {
		errs = append(errs, fmt.Errorf("write_wait must be positive, got %s", c.WriteWait))
	}
	if c.IsProduction() && c.AdminPassword != "" && c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("jwt_secret must be changed in production when the admin API is enabled"))
	}
	return errors.Join(errs...)
}
