package manager

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"profiled/internal/catalog"
	"profiled/internal/hardware"
	"profiled/internal/workload"
	"profiled/pkg/types"
)

type fakeProber struct {
	mu    sync.Mutex
	snap  types.HardwareSnapshot
	err   error
	calls atomic.Int32
}

func (f *fakeProber) Probe(ctx context.Context) (hardware.Result, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return hardware.Result{}, f.err
	}
	return hardware.Result{Snapshot: f.snap}, nil
}

func (f *fakeProber) set(snap types.HardwareSnapshot, err error) {
	f.mu.Lock()
	f.snap, f.err = snap, err
	f.mu.Unlock()
}

type fakeController struct {
	mu       sync.Mutex
	calls    []string
	stopErr  error
	startErr error
	waitErr  error
	// gate, when set, blocks WaitUntilReady until closed or ctx is done.
	gate    chan struct{}
	waiting chan struct{}
}

func (f *fakeController) record(s string) {
	f.mu.Lock()
	f.calls = append(f.calls, s)
	f.mu.Unlock()
}

func (f *fakeController) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeController) Stop(ctx context.Context) error {
	f.record("stop")
	return f.stopErr
}

func (f *fakeController) Start(ctx context.Context, p types.Profile) error {
	f.record("start:" + p.ID)
	return f.startErr
}

func (f *fakeController) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	f.record("wait")
	if f.waiting != nil {
		close(f.waiting)
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return f.waitErr
}

type fakeRecon struct {
	mu  sync.Mutex
	rec workload.Reconciliation
}

func (f *fakeRecon) Reconcile(ctx context.Context) workload.Reconciliation {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rec
}

func (f *fakeRecon) serving(ids ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(ids) == 0 {
		f.rec = workload.Reconciliation{}
		return
	}
	models := make([]types.ModelRef, 0, len(ids))
	for _, id := range ids {
		models = append(models, types.ModelRef{ID: id})
	}
	f.rec = workload.Reconciliation{Running: true, Models: models}
}

// oneGPU is a single 24GB accelerator with all memory free.
func oneGPU() types.HardwareSnapshot {
	return types.NewHardwareSnapshot([]types.Accelerator{{Name: "RTX 4090", TotalMB: 24576, FreeMB: 24576}}, "test", time.Now())
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	doc := `
default_profile: p1
model_profiles:
  p1:
    name: Small
    model_id: org/small
    hardware_requirements:
      min_vram_gb: 8
      recommended_vram_gb: 16
  p2:
    name: Large
    model_id: org/large
    tensor_parallel_size: 2
    hardware_requirements:
      min_vram_gb: 40
      min_gpus: 2
  p3:
    name: Medium
    model_id: org/medium
    hardware_requirements:
      min_vram_gb: 16
      recommended_vram_gb: 32
`
	c, err := catalog.Parse([]byte(doc), "yaml")
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return c
}

type harness struct {
	m      *Manager
	prober *fakeProber
	ctrl   *fakeController
	recon  *fakeRecon
	events *MemoryPublisher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		prober: &fakeProber{snap: oneGPU()},
		ctrl:   &fakeController{},
		recon:  &fakeRecon{},
		events: NewMemoryPublisher(),
	}
	h.m = NewWithConfig(ManagerConfig{
		Catalog:      testCatalog(t),
		Prober:       h.prober,
		Controller:   h.ctrl,
		Reconciler:   h.recon,
		ReadyTimeout: time.Second,
		Publisher:    h.events,
	})
	t.Cleanup(func() { _ = h.m.Close() })
	return h
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func waitForState(t *testing.T, m *Manager, want State) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		s := m.Snapshot()
		if s.State == want && s.SwitchingTo == "" {
			return s
		}
		if time.Now().After(deadline) {
			t.Fatalf("state %q not reached, last snapshot %+v", want, s)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func hasEvent(p *MemoryPublisher, name string) bool {
	for _, n := range p.Names() {
		if n == name {
			return true
		}
	}
	return false
}
