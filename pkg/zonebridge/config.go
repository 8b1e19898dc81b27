package zonebridge

import (
	"github.com/zoneflow/zonebridge/internal/adapters/mqtt"
	"github.com/zoneflow/zonebridge/internal/app/config"
	"github.com/zoneflow/zonebridge/internal/decode"
	"github.com/zoneflow/zonebridge/internal/ports"
)

// Config re-exports the root configuration struct so downstream projects
// can construct or modify it programmatically.
type Config = config.Config

type (
	// MQTTConfig holds broker connection details.
	MQTTConfig = mqtt.Config
	// Route maps one topic to its decode behavior.
	Route = decode.Route
	// ReconnectPolicy bounds reconnect retries.
	ReconnectPolicy = ports.ReconnectPolicy
	// APIConfig configures the HTTP query server.
	APIConfig = config.APIConfig
	// MetricsConfig configures the metrics HTTP server.
	MetricsConfig = config.MetricsConfig
)

// Decode modes accepted in a Route.
const (
	ModeStructured = decode.ModeStructured
	ModeScalar     = decode.ModeScalar
)

// LoadConfig loads YAML from disk using the internal config reader.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}
