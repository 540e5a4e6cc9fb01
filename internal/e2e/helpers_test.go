package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"profiled/internal/hardware"
	"profiled/internal/httpapi"
	"profiled/internal/manager"
	"profiled/internal/workload"
	"profiled/pkg/types"
)

const profilesYAML = `
default_profile: small
model_profiles:
  small:
    name: Small
    model_id: acme/small-7b
    hardware_requirements:
      min_vram_gb: 8
      min_gpus: 1
  medium:
    name: Medium
    model_id: acme/medium-14b
    tensor_parallel_size: 2
    hardware_requirements:
      min_vram_gb: 30
      recommended_vram_gb: 40
      min_gpus: 2
  huge:
    name: Huge
    model_id: acme/huge-70b
    tensor_parallel_size: 4
    hardware_requirements:
      min_vram_gb: 160
      min_gpus: 4
`

// gpuStrategy reports a fixed set of accelerators.
type gpuStrategy struct{ gpus []types.Accelerator }

func (gpuStrategy) Name() string { return "fake" }

func (s gpuStrategy) Query(ctx context.Context) ([]types.Accelerator, error) {
	return s.gpus, nil
}

func twoGPUs() []types.Accelerator {
	g := types.Accelerator{Name: "NVIDIA A10", TotalMB: 24576, UsedMB: 0, FreeMB: 24576}
	return []types.Accelerator{g, g}
}

// engine stands in for docker compose plus the engine's OpenAI endpoint:
// "up" serves MODEL_ID from the environment and "stop" serves nothing.
type engine struct {
	mu       sync.Mutex
	serving  string
	commands []string
	failUp   bool
}

func (e *engine) Run(ctx context.Context, c workload.Command) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands = append(e.commands, c.String())
	for _, a := range c.Args {
		switch a {
		case "stop":
			e.serving = ""
			return "", nil
		case "up":
			if e.failUp {
				return "no such image", errors.New("exit status 1")
			}
			for _, kv := range c.Env {
				if v, ok := strings.CutPrefix(kv, "MODEL_ID="); ok {
					e.serving = v
				}
			}
			return "", nil
		}
	}
	return "", nil
}

func (e *engine) setServing(model string) {
	e.mu.Lock()
	e.serving = model
	e.mu.Unlock()
}

func (e *engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/models" {
		http.NotFound(w, r)
		return
	}
	e.mu.Lock()
	model := e.serving
	e.mu.Unlock()
	data := []map[string]string{}
	if model != "" {
		data = append(data, map[string]string{"id": model, "object": "model"})
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data})
}

type stack struct {
	srv     *httptest.Server
	mgr     *manager.Manager
	engine  *engine
	profile string
}

func newStack(t *testing.T, gpus []types.Accelerator) *stack {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "profiles.yaml")
	if err := os.WriteFile(path, []byte(profilesYAML), 0o644); err != nil {
		t.Fatalf("write profiles: %v", err)
	}

	eng := &engine{}
	upstream := httptest.NewServer(eng)
	t.Cleanup(upstream.Close)

	ep := workload.NewEndpoint(workload.EndpointConfig{BaseURL: upstream.URL, Timeout: time.Second})
	ctrl := workload.NewComposeController(workload.ComposeConfig{
		StopGrace: -1,
		Runner:    eng,
		Waiter:    workload.NewWaiter(ep, 10*time.Millisecond, nil),
	})
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		ProfilesPath: path,
		Prober:       hardware.New(hardware.Config{Strategies: []hardware.Strategy{gpuStrategy{gpus: gpus}}}),
		Controller:   ctrl,
		Reconciler:   workload.NewReconciler(ep, time.Second),
		ReadyTimeout: 2 * time.Second,
	})
	t.Cleanup(func() { _ = mgr.Close() })

	srv := httptest.NewServer(httpapi.NewMux(mgr))
	t.Cleanup(srv.Close)
	return &stack{srv: srv, mgr: mgr, engine: eng, profile: path}
}

func (s *stack) get(t *testing.T, path string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(s.srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func (s *stack) post(t *testing.T, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	resp, err := http.Post(s.srv.URL+path, "application/json", &buf)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp, b
}

func (s *stack) status(t *testing.T) types.StatusResponse {
	t.Helper()
	resp, b := s.get(t, "/models/status")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: %d %s", resp.StatusCode, b)
	}
	var st types.StatusResponse
	if err := json.Unmarshal(b, &st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	return st
}

// waitStatus polls /models/status until cond holds or the deadline passes.
func (s *stack) waitStatus(t *testing.T, cond func(types.StatusResponse) bool) types.StatusResponse {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	var st types.StatusResponse
	for time.Now().Before(deadline) {
		st = s.status(t)
		if cond(st) {
			return st
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not met; last status %+v", st)
	return st
}
