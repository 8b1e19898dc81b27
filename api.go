package zonebridge

import (
	base "github.com/zoneflow/zonebridge/pkg/zonebridge"
)

// Type aliases so consumers can import github.com/zoneflow/zonebridge directly.
type (
	Config          = base.Config
	MQTTConfig      = base.MQTTConfig
	Route           = base.Route
	ReconnectPolicy = base.ReconnectPolicy
	APIConfig       = base.APIConfig
	MetricsConfig   = base.MetricsConfig
	Runtime         = base.Runtime
	Option          = base.Option
	Reading         = base.Reading
	RoutingKey      = base.RoutingKey
	Update          = base.Update
	UpdateFunc      = base.UpdateFunc

	Transport         = base.Transport
	ReadingStore      = base.ReadingStore
	Observability     = base.Observability
	Entry             = base.Entry
	MessageHandler    = base.MessageHandler
	DisconnectHandler = base.DisconnectHandler
)

// Decode modes accepted in a Route.
const (
	ModeStructured = base.ModeStructured
	ModeScalar     = base.ModeScalar
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Runtime construction.
func New(cfg *Config, opts ...Option) (*Runtime, error) {
	return base.New(cfg, opts...)
}

// Conf loads YAML from disk and builds a Runtime in one step.
func Conf(path string, opts ...Option) (*Runtime, error) {
	return base.Conf(path, opts...)
}

// Runtime options.
func WithTransport(tr base.Transport) Option {
	return base.WithTransport(tr)
}

func WithStore(st base.ReadingStore) Option {
	return base.WithStore(st)
}

func WithObservability(obs base.Observability) Option {
	return base.WithObservability(obs)
}

func WithOnUpdate(fn UpdateFunc) Option {
	return base.WithOnUpdate(fn)
}

// Update observers.
func NewChannelObserver(buffer int) (UpdateFunc, <-chan Update, func()) {
	return base.NewChannelObserver(buffer)
}
