package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper defaults.
const (
	DefaultSweepInterval = 24 * time.Hour
	DefaultTenantTimeout = time.Minute
)

// SweepReport summarizes one pass over all known tenants.
type SweepReport struct {
	Tenants  int
	Purged   int64
	Failed   int
	Duration time.Duration
}

// Sweeper periodically purges expired records from every tenant found on
// disk. A failing tenant is logged and skipped; the pass continues with the
// rest. At most one pass runs at a time.
type Sweeper struct {
	Stores        TenantProvider
	Interval      time.Duration
	TenantTimeout time.Duration

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSweeper returns a sweeper with defaults applied to zero durations.
func NewSweeper(stores TenantProvider, interval, tenantTimeout time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if tenantTimeout <= 0 {
		tenantTimeout = DefaultTenantTimeout
	}
	return &Sweeper{Stores: stores, Interval: interval, TenantTimeout: tenantTimeout}
}

// Start runs a pass immediately and then every Interval until ctx is done or
// Stop is called. Calling Start on a started sweeper is a no-op.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		t := time.NewTicker(s.Interval)
		defer t.Stop()
		for {
			s.runLogged(ctx)
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
		}
	}(s.done)
	log.Info().Dur("interval", s.Interval).Msg("retention sweeper started")
}

// Stop cancels the loop and waits for an in-flight pass to return.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
	log.Info().Msg("retention sweeper stopped")
}

func (s *Sweeper) runLogged(ctx context.Context) {
	rep, err := s.RunOnce(ctx)
	ev := log.Info()
	if err != nil {
		ev = log.Warn().Err(err)
	}
	ev.Int("tenants", rep.Tenants).
		Int64("purged", rep.Purged).
		Int("failed", rep.Failed).
		Dur("took", rep.Duration).
		Msg("retention sweep")
}

// RunOnce performs a single pass. It returns ErrSweepInProgress if a pass is
// already running, and the joined per-tenant errors otherwise.
func (s *Sweeper) RunOnce(ctx context.Context) (SweepReport, error) {
	if !s.running.CompareAndSwap(false, true) {
		sweepRuns.WithLabelValues("skipped").Inc()
		return SweepReport{}, ErrSweepInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	var rep SweepReport
	defer func() {
		rep.Duration = time.Since(start)
		sweepDuration.Observe(rep.Duration.Seconds())
	}()

	ids, err := s.Stores.ListKnownTenants(ctx)
	if err != nil {
		sweepRuns.WithLabelValues("failed").Inc()
		return rep, fmt.Errorf("list tenants: %w", err)
	}
	rep.Tenants = len(ids)

	var errs []error
	for _, id := range ids {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		n, err := s.sweepTenant(ctx, id)
		if err != nil {
			rep.Failed++
			sweepTenantFailures.Inc()
			log.Warn().Err(err).Int64("tenant_id", id).Msg("tenant purge failed")
			errs = append(errs, fmt.Errorf("tenant %d: %w", id, err))
			continue
		}
		rep.Purged += n
	}
	sweepPurged.Add(float64(rep.Purged))

	if len(errs) > 0 {
		sweepRuns.WithLabelValues("partial").Inc()
		return rep, errors.Join(errs...)
	}
	sweepRuns.WithLabelValues("ok").Inc()
	return rep, nil
}

func (s *Sweeper) sweepTenant(ctx context.Context, id int64) (int64, error) {
	timeout := s.TenantTimeout
	if timeout <= 0 {
		timeout = DefaultTenantTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	store, err := s.Stores.GetOrCreate(ctx, id)
	if err != nil {
		return 0, err
	}
	return store.PurgeExpired(ctx)
}
