// Package config loads portal settings from defaults, an optional YAML
// file, LOANPORTAL_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "LOANPORTAL"

// MinBaseRate keeps the cheapest offer non-negative: the best score band
// takes 1 point off the base rate and the featured offer another 0.5.
const MinBaseRate = 1.5

type ServerConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CacheConfig struct {
	Driver        string `mapstructure:"driver"`
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	KeyPrefix     string `mapstructure:"key_prefix"`
	SQLitePath    string `mapstructure:"sqlite_path"`
}

type AuthConfig struct {
	Secret       string        `mapstructure:"secret"`
	Issuer       string        `mapstructure:"issuer"`
	Expiration   time.Duration `mapstructure:"expiration"`
	SeedDemoUser bool          `mapstructure:"seed_demo_user"`
}

type RateLimitConfig struct {
	Capacity int           `mapstructure:"capacity"`
	Refill   time.Duration `mapstructure:"refill"`
}

type MockConfig struct {
	LatencyMin time.Duration `mapstructure:"latency_min"`
	LatencyMax time.Duration `mapstructure:"latency_max"`
	Seed       uint64        `mapstructure:"seed"`
}

type LendingConfig struct {
	BaseRate          float64 `mapstructure:"base_rate"`
	EligibilityPolicy string  `mapstructure:"eligibility_policy"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Mock      MockConfig      `mapstructure:"mock"`
	Lending   LendingConfig   `mapstructure:"lending"`
}

// SetDefaults registers the default of every setting on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.key_prefix", "loanportal:")
	v.SetDefault("cache.sqlite_path", "loanportal.db")

	v.SetDefault("auth.secret", "")
	v.SetDefault("auth.issuer", "loan-portal")
	v.SetDefault("auth.expiration", 24*time.Hour)
	v.SetDefault("auth.seed_demo_user", true)

	v.SetDefault("rate_limit.capacity", 30)
	v.SetDefault("rate_limit.refill", time.Minute)

	v.SetDefault("mock.latency_min", 500*time.Millisecond)
	v.SetDefault("mock.latency_max", 1500*time.Millisecond)
	v.SetDefault("mock.seed", 0)

	v.SetDefault("lending.base_rate", 5.99)
	v.SetDefault("lending.eligibility_policy", "standard")
}

// Load reads configuration into a Config. cfgFile may be empty, in which
// case config.yaml is looked up in the working directory and
// $HOME/.config/loanportal; a missing file is not an error.
func Load(v *viper.Viper, cfgFile string) (Config, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "loanportal"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the portal cannot start with.
func (c Config) Validate() error {
	switch c.Cache.Driver {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("invalid cache driver %q (want memory, redis or sqlite)", c.Cache.Driver)
	}
	if c.Mock.LatencyMin < 0 || c.Mock.LatencyMax < c.Mock.LatencyMin {
		return fmt.Errorf("invalid mock latency range [%s, %s]", c.Mock.LatencyMin, c.Mock.LatencyMax)
	}
	if c.RateLimit.Capacity <= 0 || c.RateLimit.Refill <= 0 {
		return fmt.Errorf("rate limit capacity and refill must be positive")
	}
	if c.Lending.BaseRate < MinBaseRate {
		return fmt.Errorf("lending base rate must be at least %.2f, got %.2f", MinBaseRate, c.Lending.BaseRate)
	}
	if c.Auth.Expiration <= 0 {
		return fmt.Errorf("auth expiration must be positive")
	}
	return nil
}
