package manager

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"profiled/internal/catalog"
	"profiled/internal/hardware"
	"profiled/internal/workload"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultReadyTimeout = workload.DefaultReadyTimeout
)

// Prober supplies hardware snapshots. *hardware.Prober implements it.
type Prober interface {
	Probe(ctx context.Context) (hardware.Result, error)
}

// StatusSource observes the live workload. *workload.Reconciler implements it.
type StatusSource interface {
	Reconcile(ctx context.Context) workload.Reconciliation
}

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Catalog to start from. When nil the catalog is loaded from
	// ProfilesPath (falling back to the built-in default profile).
	Catalog      *catalog.Catalog
	ProfilesPath string

	Prober     Prober
	Controller workload.Controller
	Reconciler StatusSource

	// ReadyTimeout bounds WaitUntilReady during a switch.
	ReadyTimeout time.Duration

	Publisher EventPublisher
	Logger    *zerolog.Logger
	// BaseContext is the manager lifetime parent; Close cancels a child of it.
	BaseContext context.Context
	Now         func() time.Time
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	m := &Manager{
		state:        StateStopped,
		cat:          cfg.Catalog,
		profilesPath: cfg.ProfilesPath,
		prober:       cfg.Prober,
		ctrl:         cfg.Controller,
		recon:        cfg.Reconciler,
		readyTimeout: cfg.ReadyTimeout,
		publisher:    cfg.Publisher,
		log:          zerolog.Nop(),
		now:          cfg.Now,
	}
	if cfg.Logger != nil {
		m.log = cfg.Logger.With().Str("component", "manager").Logger()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if m.readyTimeout <= 0 {
		m.readyTimeout = defaultReadyTimeout
	}
	if m.cat == nil {
		c, err := catalog.LoadOrFallback(m.profilesPath)
		if err != nil {
			m.log.Warn().Err(err).Str("path", m.profilesPath).Msg("profile document unusable, using built-in default profile")
		}
		m.cat = c
	}
	m.current = m.cat.DefaultID()
	base := cfg.BaseContext
	if base == nil {
		base = context.Background()
	}
	m.baseCtx, m.cancel = context.WithCancel(base)
	m.startTime = m.now()
	setStateGauge(m.state)
	return m
}
