package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `yaml:"server"`
	MySQL  MySQLConfig  `yaml:"mysql"`
	Redis  RedisConfig  `yaml:"redis"`
	Bus    BusConfig    `yaml:"bus"`
	Client ClientConfig `yaml:"client"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type MySQLConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Addr string `yaml:"addr"`
}

type BusConfig struct {
	// Driver selects the event bus: "redis" (multi-node) or "memory"
	// (single process).
	Driver  string `yaml:"driver"`
	Channel string `yaml:"channel"`
}

type ClientConfig struct {
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080"},
		MySQL: MySQLConfig{
			DSN:             "root:root@tcp(localhost:3306)/inventory?parseTime=true",
			MaxOpenConns:    50,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		Bus:    BusConfig{Driver: "redis", Channel: "inventory.events"},
		Client: ClientConfig{ReconnectDelay: 3 * time.Second},
	}
}

// Load reads the yaml file at path over the defaults, then applies
// environment overrides. A missing file is fine; env-only deployments
// are common.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if dsn := os.Getenv("MYSQL_DSN"); dsn != "" {
		cfg.MySQL.DSN = dsn
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if driver := os.Getenv("BUS_DRIVER"); driver != "" {
		cfg.Bus.Driver = driver
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql dsn is required")
	}
	switch c.Bus.Driver {
	case "redis", "memory":
	default:
		return fmt.Errorf("unknown bus driver %q (want redis or memory)", c.Bus.Driver)
	}
	if c.Bus.Driver == "redis" && c.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required for the redis bus")
	}
	return nil
}
