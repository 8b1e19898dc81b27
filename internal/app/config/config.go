package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zoneflow/zonebridge/internal/adapters/mqtt"
	"github.com/zoneflow/zonebridge/internal/decode"
	"github.com/zoneflow/zonebridge/internal/ports"
)

type Config struct {
	MQTT      mqtt.Config           `yaml:"mqtt"`
	Routes    []decode.Route        `yaml:"routes"`
	Reconnect ports.ReconnectPolicy `yaml:"reconnect"`
	API       APIConfig             `yaml:"api"`
	Metrics   MetricsConfig         `yaml:"metrics"`
}

type APIConfig struct {
	Addr string `yaml:"addr"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Reconnect.InitialBackoff == 0 {
		c.Reconnect.InitialBackoff = time.Second
	}
	if c.Reconnect.MaxBackoff == 0 {
		c.Reconnect.MaxBackoff = 30 * time.Second
	}
	if c.Reconnect.Multiplier == 0 {
		c.Reconnect.Multiplier = 2.0
	}
	if c.API.Addr == "" {
		c.API.Addr = ":8080"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9100"
	}

	c.MQTT.ApplyDefaults()
}

func (c *Config) Validate() error {
	if err := c.MQTT.Validate(); err != nil {
		return fmt.Errorf("mqtt config: %w", err)
	}
	if len(c.Routes) == 0 {
		return fmt.Errorf("at least one route must be configured")
	}
	if _, err := decode.NewDecoder(c.Routes); err != nil {
		return fmt.Errorf("routes: %w", err)
	}
	if c.Reconnect.InitialBackoff < 0 || c.Reconnect.MaxBackoff < 0 {
		return fmt.Errorf("reconnect backoff must not be negative")
	}
	if c.Reconnect.Multiplier < 1 {
		return fmt.Errorf("reconnect.multiplier must be >= 1, got %g", c.Reconnect.Multiplier)
	}
	if c.Reconnect.MaxAttempts < 0 {
		return fmt.Errorf("reconnect.max_attempts must not be negative")
	}
	return nil
}
