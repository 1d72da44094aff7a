// Package config loads engine settings. Built-in defaults are overridden by an
// optional config.yaml, and TWIN_ environment variables override both.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server struct {
		Addr            string        `mapstructure:"addr"`
		ReadTimeout     time.Duration `mapstructure:"read_timeout"`
		WriteTimeout    time.Duration `mapstructure:"write_timeout"`
		IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Log struct {
		Level string `mapstructure:"level"`
		Path  string `mapstructure:"path"`
	} `mapstructure:"log"`
	Storage struct {
		// Backend is one of memory, sqlite or redis.
		Backend       string `mapstructure:"backend"`
		Dir           string `mapstructure:"dir"`
		RedisAddr     string `mapstructure:"redis_addr"`
		WarmStartRows int    `mapstructure:"warm_start_rows"`
	} `mapstructure:"storage"`
	Kafka struct {
		Brokers []string `mapstructure:"brokers"`
		Topic   string   `mapstructure:"topic"`
	} `mapstructure:"kafka"`
	Thermal struct {
		Period        time.Duration `mapstructure:"period"`
		WindowSize    int           `mapstructure:"window_size"`
		MinSamples    int           `mapstructure:"min_samples"`
		Contamination float64       `mapstructure:"contamination"`
		Seed          uint64        `mapstructure:"seed"`
	} `mapstructure:"thermal"`
	Plant struct {
		Period time.Duration `mapstructure:"period"`
		Seed   uint64        `mapstructure:"seed"`
	} `mapstructure:"plant"`
	Factory struct {
		Period      time.Duration `mapstructure:"period"`
		Speed       float64       `mapstructure:"speed"`
		EnergyLimit float64       `mapstructure:"energy_limit"`
		Seed        uint64        `mapstructure:"seed"`
	} `mapstructure:"factory"`
}

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.path", "")

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.dir", "data")
	v.SetDefault("storage.redis_addr", "localhost:6379")
	v.SetDefault("storage.warm_start_rows", 500)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "twin-telemetry")

	v.SetDefault("thermal.period", "1s")
	v.SetDefault("thermal.window_size", 50)
	v.SetDefault("thermal.min_samples", 20)
	v.SetDefault("thermal.contamination", 0.1)
	v.SetDefault("thermal.seed", 0)

	v.SetDefault("plant.period", "1s")
	v.SetDefault("plant.seed", 0)

	v.SetDefault("factory.period", "1s")
	v.SetDefault("factory.speed", 1.0)
	v.SetDefault("factory.energy_limit", 12.0)
	v.SetDefault("factory.seed", 0)
}

// Load reads config.yaml from dir if present. A missing file is not an error.
func Load(dir string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	}
	v.SetEnvPrefix("TWIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendSQLite, BackendRedis:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Thermal.Period <= 0 || c.Plant.Period <= 0 || c.Factory.Period <= 0 {
		return errors.New("tick periods must be positive")
	}
	if c.Thermal.WindowSize < 1 {
		return errors.New("thermal.window_size must be at least 1")
	}
	return nil
}
