package runtime

import (
	"context"
	"errors"
	"time"

	cfgpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/config"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/delivery"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/fanout"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/ledger"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/longpoll"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/metrics"
	pebblestore "github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/storage/pebble"
	"github.com/SaanjSulthana/hospitality-management-platform-sub005/internal/tenant"
	logpkg "github.com/SaanjSulthana/hospitality-management-platform-sub005/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Logger        logpkg.Logger
}

// Runtime owns the storage handle and the delivery engine's components.
type Runtime struct {
	db     *pebblestore.DB
	config cfgpkg.Config

	cursors  *ledger.Registry
	pool     *fanout.Registry
	fallback *longpoll.Buffer
	delivery *delivery.Service
}

// Open initializes storage and builds the component graph.
func Open(opts Options) (*Runtime, error) {
	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Metrics:       metrics.StoreHook{},
	})
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	rt := &Runtime{db: db, config: opts.Config}
	rt.cursors = ledger.NewRegistry(db, opts.Config.Retention, logger.With(logpkg.Component("ledger")))
	rt.pool = fanout.NewRegistry(opts.Config.Fanout, logger.With(logpkg.Component("fanout")))
	rt.fallback = longpoll.NewBuffer(opts.Config.LongPoll, logger.With(logpkg.Component("longpoll")))
	rt.delivery = delivery.NewService(opts.Config, db, rt.cursors, rt.pool, rt.fallback, logger.With(logpkg.Component("delivery")))
	return rt, nil
}

// RunSweeps drives the periodic retention and idle-eviction sweeps until ctx
// is cancelled.
func (r *Runtime) RunSweeps(ctx context.Context) {
	go r.cursors.Run(ctx)
	go r.fallback.Run(ctx)
	go r.delivery.RunSweep(ctx)
}

// Close drains the engine and releases storage.
func (r *Runtime) Close() error {
	if r.delivery != nil {
		r.delivery.Close()
	}
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple storage probe.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	return nil
}

// EnsureTenant creates a tenant record if absent.
func (r *Runtime) EnsureTenant(name string) (tenant.Meta, error) {
	return tenant.Ensure(r.db, name)
}

// SetTenantMaxConnections updates a tenant's connection cap.
func (r *Runtime) SetTenantMaxConnections(name string, max int) (tenant.Meta, error) {
	return tenant.SetMaxConnections(r.db, name, max)
}

// Delivery returns the subscription router.
func (r *Runtime) Delivery() *delivery.Service { return r.delivery }

// DB exposes the underlying store for internal use.
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }
