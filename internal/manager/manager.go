package manager

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"profiled/internal/catalog"
	"profiled/internal/workload"
	"profiled/pkg/types"
)

type Manager struct {
	mu           sync.RWMutex
	state        State
	current      string
	switchingTo  string
	switching    bool
	lastErr      string
	errSrc       errSource
	closed       bool
	cat          *catalog.Catalog
	profilesPath string

	prober       Prober
	ctrl         workload.Controller
	recon        StatusSource
	readyTimeout time.Duration
	publisher    EventPublisher
	log          zerolog.Logger
	now          func() time.Time
	startTime    time.Time

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New constructs a Manager over an already loaded catalog.
func New(cat *catalog.Catalog, prober Prober, ctrl workload.Controller, recon StatusSource) *Manager {
	return NewWithConfig(ManagerConfig{
		Catalog:    cat,
		Prober:     prober,
		Controller: ctrl,
		Reconciler: recon,
	})
}

// SetPublisher installs an EventPublisher. Not safe to call concurrently
// with manager operations.
func (m *Manager) SetPublisher(p EventPublisher) {
	if p == nil {
		p = noopPublisher{}
	}
	m.publisher = p
}

// Ready reports whether a profile is running.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateRunning && m.current != ""
}

// Snapshot returns a read-only view of the manager state.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{State: m.state, CurrentProfile: m.current, SwitchingTo: m.switchingTo, Err: m.lastErr}
}

// Catalog returns the active catalog.
func (m *Manager) Catalog() *catalog.Catalog {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cat
}

// ListProfiles returns catalog profiles in order with the current profile id.
func (m *Manager) ListProfiles() types.ProfilesResponse {
	m.mu.RLock()
	cat, cur := m.cat, m.current
	m.mu.RUnlock()
	return types.ProfilesResponse{
		Profiles:       cat.List(),
		CurrentProfile: cur,
		DefaultProfile: cat.DefaultID(),
	}
}

// Close aborts an in-flight background switch and waits for it to finish.
// The workload itself is left running. Close is idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()
	m.wg.Wait()
	return nil
}

// bind derives a context that is also cancelled when the manager closes.
func (m *Manager) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(m.baseCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (m *Manager) publish(e Event) {
	m.publisher.Publish(e)
}
