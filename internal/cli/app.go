// ABOUTME: Process wiring: substrate, catalog, signals and metrics
// ABOUTME: Shared by the serve and seed commands
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/nainya/howcatalog/internal/config"
	"github.com/nainya/howcatalog/internal/logger"
	"github.com/nainya/howcatalog/internal/metrics"
	"github.com/nainya/howcatalog/pkg/catalog"
	"github.com/nainya/howcatalog/pkg/signal"
	"github.com/nainya/howcatalog/pkg/substrate"
)

// App holds the long-lived components of a howcatalog process
type App struct {
	Node     *substrate.Node
	Catalog  *catalog.Catalog
	Bus      *signal.Bus
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry

	// StorePath is the database directory, or "memory"
	StorePath string

	redis redis.UniversalClient
	log   *logger.Logger
}

// NewApp opens storage and wires the catalog according to cfg
func NewApp(cfg *config.Config, log *logger.Logger) (*App, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(reg)

	node, err := substrate.Open(substrateConfig(cfg.Storage, log))
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	app := &App{
		Node:     node,
		Bus:      signal.NewBus(cfg.Signals.BusBuffer),
		Metrics:  m,
		Registry: reg,
		log:      log,

		StorePath: cfg.Storage.Path,
	}
	if cfg.Storage.InMemory {
		app.StorePath = "memory"
	}

	var emitter signal.Emitter = app.Bus
	if cfg.Signals.Redis.Enabled {
		app.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Signals.Redis.Addr,
			Password: cfg.Signals.Redis.Password,
			DB:       cfg.Signals.Redis.DB,
		})
		emitter = signal.Multi{app.Bus, signal.NewRedisPublisher(app.redis, cfg.Signals.Redis.Channel)}
	}

	app.Catalog = catalog.New(node, emitter,
		catalog.WithLogger(log.Component("catalog").Zerolog()),
		catalog.WithRecorder(m),
	)

	log.Info("storage opened").
		Str("agent", node.Agent().String()).
		Bool("in_memory", cfg.Storage.InMemory).
		Str("path", cfg.Storage.Path).
		Bool("redis_signals", cfg.Signals.Redis.Enabled).
		Send()

	return app, nil
}

func substrateConfig(s config.StorageConfig, log *logger.Logger) substrate.Config {
	return substrate.Config{
		Path:              s.Path,
		InMemory:          s.InMemory,
		SyncWrites:        s.SyncWrites,
		CompressThreshold: s.CompressThreshold,
		FetchConcurrency:  s.FetchConcurrency,
		Logger:            log.Component("badger").Zerolog(),
	}
}

// Ready reports whether every backing service answers
func (a *App) Ready(ctx context.Context) error {
	if a.redis == nil {
		return nil
	}
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return nil
}

// LogSignals logs every bus signal at debug level until ctx is done
func (a *App) LogSignals(ctx context.Context) {
	ch, cancel := a.Bus.Subscribe()
	defer cancel()
	log := a.log.Component("signals")
	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-ch:
			if !ok {
				return
			}
			log.Debug("signal").
				Str("type", s.Message.Type).
				Str("hash", s.Hash.String()).
				Send()
		}
	}
}

// Close releases storage and the redis client
func (a *App) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	errs = append(errs, a.Node.Close())
	return errors.Join(errs...)
}
