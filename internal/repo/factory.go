// Package repo implements the persistence layer for tenant stores, backed by
// GORM. This file provides the Factory, which maps chat ids to TenantStores.
//
// Layout on disk:
//
//	<root>/<tenant_id>/storage.db
//
// The path is derived from the tenant id alone, so a restart reopens the same
// store. Stores are created lazily on first use and cached for the lifetime of
// the process; at most one *TenantStore (and one pool) exists per tenant.
package repo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// TenantDBFile is the database file name inside each tenant directory.
const TenantDBFile = "storage.db"

// FactoryOptions configures a Factory.
type FactoryOptions struct {
	Root           string        // base directory holding one directory per tenant
	MaxConnections int           // pool size per tenant
	Retention      time.Duration // retention window shared by every tenant
	Tracing        bool          // attach GORM tracing to every pool
	CreateTimeout  time.Duration // bound on opening + migrating one store (default 30s)

	// Now overrides the clock (tests). Defaults to time.Now.
	Now func() time.Time
}

// Factory creates, caches and enumerates tenant stores. It is safe for
// concurrent use.
type Factory struct {
	opts FactoryOptions

	mu     sync.RWMutex
	stores map[int64]*TenantStore
	closed bool

	creating singleflight.Group
}

// NewFactory validates the storage root (creating it when missing) and
// returns an empty Factory. Errors wrap ErrConfiguration and are meant to be
// fatal at startup.
func NewFactory(opts FactoryOptions) (*Factory, error) {
	if strings.TrimSpace(opts.Root) == "" {
		return nil, fmt.Errorf("%w: empty storage root", ErrConfiguration)
	}
	if opts.MaxConnections < 1 {
		return nil, fmt.Errorf("%w: max connections must be >= 1, got %d", ErrConfiguration, opts.MaxConnections)
	}
	if opts.Retention <= 0 {
		return nil, fmt.Errorf("%w: retention must be > 0", ErrConfiguration)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CreateTimeout <= 0 {
		opts.CreateTimeout = 30 * time.Second
	}
	if err := os.MkdirAll(opts.Root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create storage root: %v", ErrConfiguration, err)
	}
	if err := probeWritable(opts.Root); err != nil {
		return nil, fmt.Errorf("%w: storage root not writable: %v", ErrConfiguration, err)
	}
	return &Factory{opts: opts, stores: make(map[int64]*TenantStore)}, nil
}

// TenantPath returns the database file of tenantID under the factory root.
func (f *Factory) TenantPath(tenantID int64) string {
	return filepath.Join(f.opts.Root, strconv.FormatInt(tenantID, 10), TenantDBFile)
}

// GetOrCreate returns the cached store for tenantID, creating it on first
// use. Concurrent first calls for the same tenant share one creation; a failed
// creation leaves no cache entry behind, so the next call retries cleanly.
// Waiting callers give up when ctx is done. The creation itself is bounded by
// CreateTimeout rather than by the first caller's ctx, so one impatient caller
// cannot fail the others; the cache is only written once the pool and schema
// are fully ready.
func (f *Factory) GetOrCreate(ctx context.Context, tenantID int64) (*TenantStore, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s, ok, err := f.cached(tenantID); ok || err != nil {
		return s, err
	}

	ch := f.creating.DoChan(strconv.FormatInt(tenantID, 10), func() (interface{}, error) {
		// Another flight may have finished between the fast path and here.
		if s, ok, err := f.cached(tenantID); ok || err != nil {
			return s, err
		}
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), f.opts.CreateTimeout)
		defer cancel()
		return f.create(cctx, tenantID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*TenantStore), nil
	}
}

func (f *Factory) cached(tenantID int64) (*TenantStore, bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, false, fmt.Errorf("%w: factory closed", ErrConfiguration)
	}
	s, ok := f.stores[tenantID]
	return s, ok, nil
}

func (f *Factory) create(ctx context.Context, tenantID int64) (*TenantStore, error) {
	start := time.Now()
	path := f.TenantPath(tenantID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storageErr("create tenant dir", tenantID, err)
	}

	db, err := OpenSQLite(path, PoolOptions{MaxOpenConns: f.opts.MaxConnections, Tracing: f.opts.Tracing})
	if err != nil {
		return nil, storageErr("open pool", tenantID, fmt.Errorf("%w: %v", ErrConfiguration, err))
	}
	if err := AutoMigrate(db.WithContext(ctx)); err != nil {
		closeGorm(db)
		return nil, storageErr("migrate", tenantID, err)
	}
	store := newTenantStore(tenantID, db, f.opts.Retention, f.opts.Now)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		closeGorm(db)
		return nil, fmt.Errorf("%w: factory closed", ErrConfiguration)
	}
	f.stores[tenantID] = store
	n := len(f.stores)
	f.mu.Unlock()

	tenantStoresOpen.Set(float64(n))
	tenantStoresCreated.Inc()
	log.Info().
		Int64("tenant_id", tenantID).
		Str("path", path).
		Dur("took", time.Since(start)).
		Msg("tenant store opened")
	return store, nil
}

// ListKnownTenants scans the storage root and returns the id of every tenant
// that has a database on disk, in no particular order. Non-tenant entries are
// skipped; directories whose name is not a tenant id are logged and skipped.
// The cache is neither consulted nor modified.
func (f *Factory) ListKnownTenants(ctx context.Context) ([]int64, error) {
	entries, err := os.ReadDir(f.opts.Root)
	if err != nil {
		return nil, storageErr("list tenants", 0, err)
	}

	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if !e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if _, err := os.Stat(filepath.Join(f.opts.Root, name, TenantDBFile)); err != nil {
			continue
		}
		id, err := parseTenantDir(name)
		if err != nil {
			log.Warn().Err(err).Str("entry", name).Msg("skipping storage entry")
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Cached returns how many tenant stores are currently open.
func (f *Factory) Cached() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.stores)
}

// Close closes every cached store. Subsequent GetOrCreate calls fail.
func (f *Factory) Close() error {
	f.mu.Lock()
	stores := f.stores
	f.stores = make(map[int64]*TenantStore)
	f.closed = true
	f.mu.Unlock()

	var errs []error
	for _, s := range stores {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	tenantStoresOpen.Set(0)
	return errors.Join(errs...)
}

// parseTenantDir accepts only the canonical form TenantPath produces, so
// names like "+5" or "007" never alias another tenant's directory.
func parseTenantDir(name string) (int64, error) {
	id, err := strconv.ParseInt(name, 10, 64)
	if err != nil || strconv.FormatInt(id, 10) != name {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTenantPath, name)
	}
	return id, nil
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
