package zonebridge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/zoneflow/zonebridge/internal/adapters/mqtt"
	"github.com/zoneflow/zonebridge/internal/adapters/observability"
	"github.com/zoneflow/zonebridge/internal/adapters/store"
	"github.com/zoneflow/zonebridge/internal/app/ingest"
	"github.com/zoneflow/zonebridge/internal/app/query"
	"github.com/zoneflow/zonebridge/internal/decode"
	"github.com/zoneflow/zonebridge/internal/domain"
	"github.com/zoneflow/zonebridge/internal/gateway"
	"github.com/zoneflow/zonebridge/internal/ports"
)

// Reading is one complete telemetry sample, re-exported for embedders.
type Reading = domain.Reading

// RoutingKey identifies one logical telemetry stream.
type RoutingKey = domain.RoutingKey

// Update is delivered to update observers after each store write.
type Update struct {
	Key        RoutingKey
	Reading    Reading
	ReceivedAt time.Time
}

// UpdateFunc observes stored updates. It runs on the transport's delivery
// goroutine and must not block.
type UpdateFunc func(Update)

// Option customizes the dependencies used by Runtime.
type Option func(*overrides)

type overrides struct {
	transport     ports.Transport
	store         ports.ReadingStore
	observability ports.Observability
	onUpdate      UpdateFunc
	clock         func() time.Time
}

// WithTransport injects a custom transport implementation (simulators,
// alternative brokers, in-process fakes).
func WithTransport(tr ports.Transport) Option {
	return func(o *overrides) {
		o.transport = tr
	}
}

// WithStore injects a custom reading store.
func WithStore(st ports.ReadingStore) Option {
	return func(o *overrides) {
		o.store = st
	}
}

// WithObservability plugs in a custom observability backend.
func WithObservability(obs ports.Observability) Option {
	return func(o *overrides) {
		o.observability = obs
	}
}

// WithOnUpdate registers a callback invoked after every stored update.
func WithOnUpdate(fn UpdateFunc) Option {
	return func(o *overrides) {
		o.onUpdate = fn
	}
}

// WithClock overrides the clock used to stamp received_at. Intended for
// tests and simulations.
func WithClock(now func() time.Time) Option {
	return func(o *overrides) {
		o.clock = now
	}
}

// Runtime wires transport → decoder → store → query API and exposes simple
// lifecycle hooks for embedding zonebridge inside any Go service.
type Runtime struct {
	cfg *Config
	obs ports.Observability

	transport ports.Transport
	store     ports.ReadingStore
	decoder   *decode.Decoder
	loop      *ingest.Loop
	svc       *query.Service

	api        *gateway.Server
	metricsSrv *http.Server

	gaugeStopCh   chan struct{}
	gaugeStopOnce sync.Once
}

// New bootstraps the default adapters (MQTT transport, in-memory store,
// Prometheus observability). Options override any dependency.
func New(cfg *Config, opts ...Option) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	var o overrides
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	obs := o.observability
	if obs == nil {
		obs = observability.NewPromObs()
	}

	dec, err := decode.NewDecoder(cfg.Routes)
	if err != nil {
		return nil, fmt.Errorf("routes: %w", err)
	}

	st := o.store
	if st == nil {
		st = store.NewMemStore()
	}

	tr := o.transport
	if tr == nil {
		tr, err = mqtt.NewClient(cfg.MQTT)
		if err != nil {
			return nil, err
		}
	}

	loopOpts := []ingest.Option{}
	if o.clock != nil {
		loopOpts = append(loopOpts, ingest.WithClock(o.clock))
	}
	if o.onUpdate != nil {
		fn := o.onUpdate
		loopOpts = append(loopOpts, ingest.WithUpdateHook(func(key domain.RoutingKey, entry ports.Entry) {
			fn(Update{Key: key, Reading: entry.Reading, ReceivedAt: entry.ReceivedAt})
		}))
	}

	loop := ingest.New(tr, dec, st, cfg.Reconnect, obs, loopOpts...)
	svc := query.NewService(st)

	rt := &Runtime{
		cfg:       cfg,
		obs:       obs,
		transport: tr,
		store:     st,
		decoder:   dec,
		loop:      loop,
		svc:       svc,
	}
	rt.api = gateway.NewServer(cfg.API.Addr, svc, gateway.Info{
		Broker:    cfg.MQTT.BrokerURL,
		Topics:    dec.Topics(),
		Connected: loop.Connected,
	})
	return rt, nil
}

// Query returns the query service for in-process callers that bypass HTTP.
func (r *Runtime) Query() *query.Service {
	return r.svc
}

// Start connects the subscription and launches the HTTP servers. It
// returns immediately; call Run to block on a context instead.
func (r *Runtime) Start(ctx context.Context) error {
	if r == nil {
		return fmt.Errorf("runtime is nil")
	}
	if err := r.loop.Start(ctx); err != nil {
		return err
	}

	go func() {
		if err := r.api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("api server exited: %v", err)
		}
	}()

	r.startMetrics()
	return nil
}

// Run starts the runtime and blocks until the context is cancelled or a
// server fails, then attempts a graceful shutdown.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.loop.Start(ctx); err != nil {
		return err
	}
	r.startMetricsCollector()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return r.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// Shutdown stops the ingestion loop and both HTTP servers. The store keeps
// its last-known values; in-process queries keep working.
func (r *Runtime) Shutdown(ctx context.Context) error {
	var errs []error

	// Run's shutdown goroutine and a user-invoked Shutdown may race here.
	if r.gaugeStopCh != nil {
		r.gaugeStopOnce.Do(func() { close(r.gaugeStopCh) })
	}

	if err := r.loop.Stop(ctx); err != nil {
		errs = append(errs, err)
	}
	if r.api != nil {
		if err := r.api.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}
	if r.metricsSrv != nil {
		if err := r.metricsSrv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (r *Runtime) startMetrics() {
	r.startMetricsCollector()
	go func() {
		if err := r.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("metrics server exited: %v", err)
		}
	}()
}

func (r *Runtime) startMetricsCollector() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	r.metricsSrv = &http.Server{
		Addr:              r.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.gaugeStopCh = make(chan struct{})
	go r.recordResourceGauges(r.gaugeStopCh, time.Second)
}

func (r *Runtime) recordResourceGauges(stop <-chan struct{}, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			r.obs.SetGauge("zonebridge_store_keys", float64(r.store.Len()))
		}
	}
}

// Conf loads YAML from disk and builds a Runtime in one step.
func Conf(path string, opts ...Option) (*Runtime, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}
