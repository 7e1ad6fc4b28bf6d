package repository

import (
	"context"
	"fmt"
	"time"

	"cantiere/internal/gantt"
	"cantiere/pkg/circuitbreaker"
	"cantiere/pkg/config"
	"cantiere/pkg/db"
	"cantiere/pkg/metrics"
	redisclient "cantiere/pkg/redis"

	"go.uber.org/zap"
)

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Backend is a gantt.Slot that can also drop a key and report its health.
type Backend interface {
	gantt.Slot
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Driver() string
	Close() error
}

// Open builds the backend named by cfg.Storage.Driver. Remote backends are put
// behind a circuit breaker.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Backend, error) {
	var (
		backend Backend
		err     error
	)

	switch cfg.Storage.Driver {
	case DriverMemory:
		backend = NewMemorySlotRepository()
	case DriverFile, "":
		backend, err = NewFileSlotRepository(cfg.Storage.Dir)
	case DriverSQLite:
		backend, err = NewSQLiteSlotRepository(ctx, cfg.Storage.SQLitePath)
	case DriverRedis:
		rdb, rerr := redisclient.NewRedisClient(ctx, cfg.Redis, logger)
		if rerr != nil {
			return nil, rerr
		}
		backend = NewGuardedBackend(NewRedisSlotRepository(rdb), circuitbreaker.New(cfg.Breaker))
	case DriverPostgres:
		pool, perr := db.NewConnection(ctx, cfg.DB, logger)
		if perr != nil {
			return nil, perr
		}
		pg := NewPostgresSlotRepository(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		backend = NewGuardedBackend(pg, circuitbreaker.New(cfg.Breaker))
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("Schedule storage ready", zap.String("driver", backend.Driver()))
	return Observe(backend, logger), nil
}

// observed logs and measures every slot call of the wrapped backend.
type observed struct {
	Backend
	logger *zap.Logger
}

func Observe(b Backend, logger *zap.Logger) Backend {
	return &observed{Backend: b, logger: logger.With(zap.String("driver", b.Driver()))}
}

func (o *observed) Load(ctx context.Context, key string) ([]byte, error) {
	o.logger.Debug("Loading schedule slot", zap.String("slot_key", key))
	start := time.Now()
	value, err := o.Backend.Load(ctx, key)
	metrics.RecordSlotOperation(o.Driver(), "load", err, time.Since(start))
	if err != nil {
		o.logger.Error("Failed to load schedule slot", zap.String("slot_key", key), zap.Error(err))
		return nil, err
	}
	o.logger.Debug("Schedule slot loaded",
		zap.String("slot_key", key),
		zap.Bool("found", value != nil),
		zap.Int("payload_size", len(value)),
	)
	return value, nil
}

func (o *observed) Save(ctx context.Context, key string, value []byte) error {
	o.logger.Debug("Saving schedule slot", zap.String("slot_key", key), zap.Int("payload_size", len(value)))
	start := time.Now()
	err := o.Backend.Save(ctx, key, value)
	metrics.RecordSlotOperation(o.Driver(), "save", err, time.Since(start))
	if err != nil {
		o.logger.Error("Failed to save schedule slot", zap.String("slot_key", key), zap.Error(err))
		return err
	}
	return nil
}

func (o *observed) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := o.Backend.Delete(ctx, key)
	metrics.RecordSlotOperation(o.Driver(), "delete", err, time.Since(start))
	if err != nil {
		o.logger.Error("Failed to delete schedule slot", zap.String("slot_key", key), zap.Error(err))
		return err
	}
	o.logger.Info("Schedule slot deleted", zap.String("slot_key", key))
	return nil
}

// GuardedBackend fails fast while the remote store keeps erroring.
type GuardedBackend struct {
	Backend
	breaker *circuitbreaker.Breaker
}

func NewGuardedBackend(b Backend, breaker *circuitbreaker.Breaker) *GuardedBackend {
	return &GuardedBackend{Backend: b, breaker: breaker}
}

func (g *GuardedBackend) Load(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		value, err = g.Backend.Load(ctx, key)
		return err
	})
	return value, err
}

func (g *GuardedBackend) Save(ctx context.Context, key string, value []byte) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.Backend.Save(ctx, key, value)
	})
}

func (g *GuardedBackend) Delete(ctx context.Context, key string) error {
	return g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.Backend.Delete(ctx, key)
	})
}

func (g *GuardedBackend) BreakerState() circuitbreaker.State {
	return g.breaker.State()
}
