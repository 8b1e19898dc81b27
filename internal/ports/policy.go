package ports

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ReconnectPolicy bounds how the ingestion loop retries after a broker
// disconnect. Capped exponential backoff: each attempt waits the previous
// delay times Multiplier, never exceeding MaxBackoff. MaxAttempts of zero
// means retry forever.
type ReconnectPolicy struct {
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier"`
	MaxAttempts    int           `yaml:"max_attempts"`
}

// UnmarshalYAML accepts Go duration strings ("1s", "30s") for the backoff
// fields, which yaml cannot decode into time.Duration on its own.
func (p *ReconnectPolicy) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		InitialBackoff string  `yaml:"initial_backoff"`
		MaxBackoff     string  `yaml:"max_backoff"`
		Multiplier     float64 `yaml:"multiplier"`
		MaxAttempts    int     `yaml:"max_attempts"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	p.Multiplier = raw.Multiplier
	p.MaxAttempts = raw.MaxAttempts

	var err error
	if p.InitialBackoff, err = parseDuration(raw.InitialBackoff, "initial_backoff"); err != nil {
		return err
	}
	if p.MaxBackoff, err = parseDuration(raw.MaxBackoff, "max_backoff"); err != nil {
		return err
	}
	return nil
}

func parseDuration(s, name string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}
