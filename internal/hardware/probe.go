// Package hardware discovers the GPU inventory of the host through an ordered
// chain of strategies and keeps the last good snapshot as a fallback.
package hardware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"profiled/pkg/types"
)

const defaultStrategyTimeout = 30 * time.Second

// ErrUnavailable is matched by errors returned when neither a live probe nor
// a cached snapshot is available.
var ErrUnavailable = errors.New("hardware probe unavailable")

// UnavailableError lists why each strategy failed.
type UnavailableError struct {
	Failures []error
}

func (e *UnavailableError) Error() string {
	if len(e.Failures) == 0 {
		return ErrUnavailable.Error() + ": no strategies configured"
	}
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}
	return ErrUnavailable.Error() + ": " + strings.Join(msgs, "; ")
}

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

// Result is a probe outcome. Cached marks a snapshot served from the cache.
type Result struct {
	Snapshot types.HardwareSnapshot
	Cached   bool
}

// Config for New. Zero values take package defaults.
type Config struct {
	Strategies      []Strategy
	StrategyTimeout time.Duration
	Logger          *zerolog.Logger
	Now             func() time.Time
}

// Prober runs the strategy chain. Safe for concurrent use; concurrent Probe
// calls share one run of the chain.
type Prober struct {
	strategies []Strategy
	timeout    time.Duration
	log        zerolog.Logger
	now        func() time.Time

	group singleflight.Group
	mu    sync.RWMutex
	cache *types.HardwareSnapshot
}

// New constructs a Prober from cfg.
func New(cfg Config) *Prober {
	p := &Prober{
		strategies: cfg.Strategies,
		timeout:    cfg.StrategyTimeout,
		log:        zerolog.Nop(),
		now:        cfg.Now,
	}
	if p.timeout <= 0 {
		p.timeout = defaultStrategyTimeout
	}
	if cfg.Logger != nil {
		p.log = cfg.Logger.With().Str("component", "hardware").Logger()
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Probe returns a fresh snapshot from the first succeeding strategy, else the
// cached snapshot, else an *UnavailableError.
func (p *Prober) Probe(ctx context.Context) (Result, error) {
	// Shared runs must not die with whichever caller started them.
	runCtx := context.WithoutCancel(ctx)
	ch := p.group.DoChan("probe", func() (any, error) { return p.run(runCtx) })
	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return Result{}, r.Err
		}
		res := r.Val.(Result)
		res.Snapshot.GPUs = append([]types.Accelerator(nil), res.Snapshot.GPUs...)
		return res, nil
	}
}

func (p *Prober) run(ctx context.Context) (Result, error) {
	var failures []error
	for _, s := range p.strategies {
		sctx, cancel := context.WithTimeout(ctx, p.timeout)
		gpus, err := s.Query(sctx)
		cancel()
		if err != nil {
			failures = append(failures, fmt.Errorf("%s: %w", s.Name(), err))
			probeTotal.WithLabelValues(s.Name(), "error").Inc()
			p.log.Warn().Str("strategy", s.Name()).Err(err).Msg("probe strategy failed")
			continue
		}
		snap := types.NewHardwareSnapshot(gpus, s.Name(), p.now())
		p.store(snap)
		probeTotal.WithLabelValues(s.Name(), "ok").Inc()
		p.log.Debug().Str("strategy", s.Name()).Int("gpus", snap.GPUCount).Float64("available_vram_gb", snap.AvailableVRAMGB).Msg("probe ok")
		return Result{Snapshot: snap}, nil
	}
	if snap, ok := p.Cached(); ok {
		probeTotal.WithLabelValues("cache", "ok").Inc()
		p.log.Info().Time("probed_at", snap.ProbedAt).Msg("live probes failed, serving cached hardware snapshot")
		return Result{Snapshot: snap, Cached: true}, nil
	}
	probeTotal.WithLabelValues("none", "unavailable").Inc()
	err := &UnavailableError{Failures: failures}
	p.log.Error().Err(err).Msg("hardware probe unavailable")
	return Result{}, err
}

// store replaces the cache unless it already holds a newer snapshot.
func (p *Prober) store(snap types.HardwareSnapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cache != nil && snap.ProbedAt.Before(p.cache.ProbedAt) {
		return
	}
	p.cache = &snap
}

// Cached returns the last good snapshot, if any.
func (p *Prober) Cached() (types.HardwareSnapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.cache == nil {
		return types.HardwareSnapshot{}, false
	}
	s := *p.cache
	s.GPUs = append([]types.Accelerator(nil), s.GPUs...)
	return s, true
}
