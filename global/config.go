package global

import (
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"PRelay/tools/ids"
)

type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type NatsConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type Config struct {
	Listen        string        `yaml:"listen"`
	NodeID        string        `yaml:"node_id"`
	SendQueueSize int           `yaml:"send_queue_size"`
	Backend       BackendConfig `yaml:"backend"`
	Redis         RedisConfig   `yaml:"redis"`
	Nats          NatsConfig    `yaml:"nats"`
}

func defaults() *Config {
	return &Config{
		Listen:        ":8090",
		NodeID:        "relay-1",
		SendQueueSize: 256,
		Backend: BackendConfig{
			BaseURL: "http://127.0.0.1:8000/api",
			Timeout: 15 * time.Second,
		},
		Redis: RedisConfig{
			TTL: 2 * time.Minute,
		},
		Nats: NatsConfig{
			Subject: "relay.fanout",
		},
	}
}

// Load reads the yaml config at path (missing file falls back to defaults)
// and applies env overrides on top.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(raw, cfg); err != nil {
				return nil, errors.Wrapf(err, "parse config %s", path)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	if v := os.Getenv("RELAY_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("RELAY_NODE_ID"); v != "" {
		cfg.NodeID = v
	}
	if v := os.Getenv("BACKEND_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		cfg.Nats.URL = v
	}
	if v := os.Getenv("RELAY_SEND_QUEUE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SendQueueSize = n
		}
	}

	return cfg, nil
}

// ConfigIds seeds the snowflake node component so connection IDs from
// different relay nodes cannot collide.
func ConfigIds(node int64) {
	ids.SetNodeID(node)
}
