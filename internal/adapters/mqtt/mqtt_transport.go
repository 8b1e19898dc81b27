package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/zoneflow/zonebridge/internal/ports"
)

// Config captures the runtime details required to open an MQTT session.
type Config struct {
	BrokerURL      string        `yaml:"broker_url"`
	ClientID       string        `yaml:"client_id"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	KeepAlive      time.Duration `yaml:"keepalive"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	QoS            byte          `yaml:"qos"`
}

// UnmarshalYAML accepts Go duration strings ("60s", "1m") for the keepalive
// and connect_timeout fields, which yaml cannot decode into time.Duration
// on its own.
func (c *Config) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		BrokerURL      string `yaml:"broker_url"`
		ClientID       string `yaml:"client_id"`
		Username       string `yaml:"username"`
		Password       string `yaml:"password"`
		KeepAlive      string `yaml:"keepalive"`
		ConnectTimeout string `yaml:"connect_timeout"`
		QoS            byte   `yaml:"qos"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	c.BrokerURL = raw.BrokerURL
	c.ClientID = raw.ClientID
	c.Username = raw.Username
	c.Password = raw.Password
	c.QoS = raw.QoS

	var err error
	if c.KeepAlive, err = parseDuration(raw.KeepAlive, "keepalive"); err != nil {
		return err
	}
	if c.ConnectTimeout, err = parseDuration(raw.ConnectTimeout, "connect_timeout"); err != nil {
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

func (c *Config) ApplyDefaults() {
	if c.ClientID == "" {
		c.ClientID = "zonebridge-" + uuid.NewString()[:8]
	}
	if c.KeepAlive <= 0 {
		c.KeepAlive = 60 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
}

func (c *Config) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker_url is required")
	}
	if !strings.Contains(c.BrokerURL, "://") {
		return fmt.Errorf("broker_url %q must include a scheme (tcp://, ssl://, ws://)", c.BrokerURL)
	}
	if c.QoS > 2 {
		return fmt.Errorf("qos must be 0, 1, or 2, got %d", c.QoS)
	}
	return nil
}

// ConnectError reports a failed broker handshake, preserving the broker's
// reason. Recoverable: the caller owns retry.
type ConnectError struct {
	Broker string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("mqtt connect %s: %v", e.Broker, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// Client implements ports.Transport over paho. Reconnect is deliberately
// left to the caller: auto-reconnect is disabled so the ingestion loop's
// backoff policy is the only retry path.
type Client struct {
	cfg Config

	mu           sync.Mutex
	client       pahomqtt.Client
	subscribed   map[string]struct{}
	onMessage    ports.MessageHandler
	onDisconnect ports.DisconnectHandler
}

func NewClient(cfg Config) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{
		cfg:        cfg,
		subscribed: make(map[string]struct{}),
	}, nil
}

func (c *Client) OnMessage(h ports.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = h
}

func (c *Client) OnDisconnect(h ports.DisconnectHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onDisconnect = h
}

func (c *Client) Connect(ctx context.Context) error {
	opts := pahomqtt.NewClientOptions().
		AddBroker(c.cfg.BrokerURL).
		SetClientID(c.cfg.ClientID).
		SetKeepAlive(c.cfg.KeepAlive).
		SetConnectTimeout(c.cfg.ConnectTimeout).
		SetAutoReconnect(false).
		SetCleanSession(true).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			c.mu.Lock()
			handler := c.onDisconnect
			c.subscribed = make(map[string]struct{})
			c.mu.Unlock()
			if handler != nil {
				handler(err)
			}
		})
	if c.cfg.Username != "" {
		opts.SetUsername(c.cfg.Username)
		opts.SetPassword(c.cfg.Password)
	}

	client := pahomqtt.NewClient(opts)

	timeout := c.cfg.ConnectTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until < timeout {
			timeout = until
		}
	}

	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return &ConnectError{Broker: c.cfg.BrokerURL, Err: context.DeadlineExceeded}
	}
	if err := token.Error(); err != nil {
		return &ConnectError{Broker: c.cfg.BrokerURL, Err: err}
	}

	c.mu.Lock()
	c.client = client
	c.subscribed = make(map[string]struct{})
	c.mu.Unlock()
	return nil
}

func (c *Client) Subscribe(topics []string) error {
	c.mu.Lock()
	client := c.client
	handler := c.onMessage
	pending := make([]string, 0, len(topics))
	for _, t := range topics {
		if _, ok := c.subscribed[t]; ok {
			continue
		}
		pending = append(pending, t)
	}
	c.mu.Unlock()

	if client == nil {
		return errors.New("mqtt: subscribe before connect")
	}

	deliver := func(_ pahomqtt.Client, msg pahomqtt.Message) {
		if handler != nil {
			handler(msg.Topic(), msg.Payload())
		}
	}

	for _, t := range pending {
		token := client.Subscribe(t, c.cfg.QoS, deliver)
		if !token.WaitTimeout(c.cfg.ConnectTimeout) {
			return fmt.Errorf("mqtt subscribe %q: timeout", t)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt subscribe %q: %w", t, err)
		}
		c.mu.Lock()
		c.subscribed[t] = struct{}{}
		c.mu.Unlock()
	}
	return nil
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	client := c.client
	c.client = nil
	c.subscribed = make(map[string]struct{})
	c.mu.Unlock()

	if client != nil && client.IsConnected() {
		client.Disconnect(250)
	}
}

var _ ports.Transport = (*Client)(nil)
