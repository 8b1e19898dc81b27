// Package ingest wires transport, decoder, and store together and owns the
// process-wide lifecycle of the subscription.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoneflow/zonebridge/internal/decode"
	"github.com/zoneflow/zonebridge/internal/domain"
	"github.com/zoneflow/zonebridge/internal/ports"
)

// State of the subscription lifecycle.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateActive
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateActive:
		return "active"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// UpdateHook observes each stored update. It runs on the transport's
// delivery goroutine and must not block.
type UpdateHook func(key domain.RoutingKey, entry ports.Entry)

// Option customizes a Loop.
type Option func(*Loop)

// WithClock overrides the clock used to stamp received_at.
func WithClock(now func() time.Time) Option {
	return func(l *Loop) {
		l.now = now
	}
}

// WithUpdateHook registers a callback invoked after every store write.
func WithUpdateHook(h UpdateHook) Option {
	return func(l *Loop) {
		l.onUpdate = h
	}
}

// Loop receives messages on the transport's delivery goroutine, decodes
// them, and writes the result into the store. The store is the only state
// it shares with the query side; the transport handle is owned here
// exclusively. Decode failures are counted and dropped, never fatal.
type Loop struct {
	tr    ports.Transport
	dec   *decode.Decoder
	store ports.ReadingStore
	pol   ports.ReconnectPolicy
	obs   ports.Observability

	now      func() time.Time
	onUpdate UpdateHook

	state       atomic.Int32
	reconnectCh chan struct{}
	stopCh      chan struct{}
	doneCh      chan struct{}
	stopOnce    sync.Once

	mu      sync.Mutex
	started bool
}

func New(tr ports.Transport, dec *decode.Decoder, store ports.ReadingStore, pol ports.ReconnectPolicy, obs ports.Observability, opts ...Option) *Loop {
	l := &Loop{
		tr:          tr,
		dec:         dec,
		store:       store,
		pol:         pol,
		obs:         obs,
		now:         time.Now,
		reconnectCh: make(chan struct{}, 1),
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	return l
}

// Start connects, subscribes to every configured topic, and begins
// processing deliveries. The first connect is attempted once; its error is
// returned so the caller decides whether a misconfigured broker is fatal.
// Disconnects after a successful start are retried per the reconnect policy.
func (l *Loop) Start(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return errors.New("ingest loop already started")
	}
	l.started = true
	l.mu.Unlock()

	l.tr.OnMessage(l.handleMessage)
	l.tr.OnDisconnect(l.handleDisconnect)

	// Stop waits on doneCh; when Start fails the supervisor never launches,
	// so doneCh must be closed here.
	l.state.Store(int32(StateConnecting))
	if err := l.tr.Connect(ctx); err != nil {
		l.state.Store(int32(StateDisconnected))
		close(l.doneCh)
		return err
	}
	if err := l.tr.Subscribe(l.dec.Topics()); err != nil {
		l.tr.Disconnect()
		l.state.Store(int32(StateDisconnected))
		close(l.doneCh)
		return err
	}

	l.state.Store(int32(StateActive))
	l.obs.SetGauge("zonebridge_connected", 1)
	l.obs.LogInfo("subscription_active", ports.Field{Key: "topics", Value: len(l.dec.Topics())})

	go l.supervise()
	return nil
}

// Stop ends the subscription: no further messages are accepted, the
// transport is released, and the store keeps serving its last-known values.
func (l *Loop) Stop(ctx context.Context) error {
	l.stopOnce.Do(func() {
		l.state.Store(int32(StateStopped))
		close(l.stopCh)
		l.tr.Disconnect()
		l.obs.SetGauge("zonebridge_connected", 0)
	})

	l.mu.Lock()
	started := l.started
	l.mu.Unlock()
	if !started {
		return nil
	}

	select {
	case <-l.doneCh:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State reports the current lifecycle state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Connected reports whether the subscription is live.
func (l *Loop) Connected() bool {
	return l.State() == StateActive
}

func (l *Loop) handleMessage(topic string, payload []byte) {
	if l.State() == StateStopped {
		return
	}
	start := time.Now()
	l.obs.IncCounter("zonebridge_messages_received_total", 1)

	upd, err := l.dec.Decode(topic, payload)
	if err != nil {
		if errors.Is(err, decode.ErrUnknownTopic) {
			l.obs.IncCounter("zonebridge_unknown_topic_total", 1)
		} else {
			l.obs.IncCounter("zonebridge_decode_errors_total", 1)
		}
		l.obs.LogError("message_dropped", err, ports.Field{Key: "topic", Value: topic})
		return
	}

	now := l.now()
	if upd.Reading != nil {
		l.store.Put(upd.Key, *upd.Reading, now)
	} else {
		l.store.Merge(upd.Key, *upd.Patch, now)
	}

	l.obs.IncCounter("zonebridge_readings_stored_total", 1)
	l.obs.SetGauge("zonebridge_store_keys", float64(l.store.Len()))
	l.obs.ObserveLatency("zonebridge_handle_seconds", time.Since(start).Seconds())

	if l.onUpdate != nil {
		if entry, ok := l.store.Get(upd.Key); ok {
			l.onUpdate(upd.Key, entry)
		}
	}
}

func (l *Loop) handleDisconnect(err error) {
	if l.State() == StateStopped {
		return
	}
	l.state.Store(int32(StateDisconnected))
	l.obs.SetGauge("zonebridge_connected", 0)
	l.obs.LogError("broker_disconnected", err)

	select {
	case l.reconnectCh <- struct{}{}:
	default:
	}
}

func (l *Loop) supervise() {
	defer close(l.doneCh)
	for {
		select {
		case <-l.stopCh:
			return
		case <-l.reconnectCh:
			l.reconnect()
		}
	}
}

// reconnect retries per the policy: capped exponential backoff, optionally
// bounded by MaxAttempts. Exhausting the budget leaves the loop
// disconnected; the query side keeps serving last-known values.
func (l *Loop) reconnect() {
	l.state.Store(int32(StateConnecting))
	delay := l.pol.InitialBackoff

	for attempt := 1; ; attempt++ {
		select {
		case <-l.stopCh:
			return
		default:
		}

		l.obs.IncCounter("zonebridge_reconnects_total", 1)
		err := l.tr.Connect(context.Background())
		if err == nil {
			if err = l.tr.Subscribe(l.dec.Topics()); err == nil {
				l.state.Store(int32(StateActive))
				l.obs.SetGauge("zonebridge_connected", 1)
				l.obs.LogInfo("reconnected", ports.Field{Key: "attempt", Value: attempt})
				return
			}
			l.tr.Disconnect()
		}
		l.obs.LogError("reconnect_failed", err, ports.Field{Key: "attempt", Value: attempt})

		if l.pol.MaxAttempts > 0 && attempt >= l.pol.MaxAttempts {
			l.state.Store(int32(StateDisconnected))
			l.obs.LogCritical("reconnect_exhausted", err, ports.Field{Key: "attempts", Value: attempt})
			return
		}

		select {
		case <-l.stopCh:
			return
		case <-time.After(delay):
		}
		delay = nextDelay(delay, l.pol)
	}
}

func nextDelay(current time.Duration, pol ports.ReconnectPolicy) time.Duration {
	mult := pol.Multiplier
	if mult < 1 {
		mult = 2
	}
	next := time.Duration(float64(current) * mult)
	if pol.MaxBackoff > 0 && next > pol.MaxBackoff {
		next = pol.MaxBackoff
	}
	if next <= 0 {
		next = pol.MaxBackoff
	}
	return next
}
