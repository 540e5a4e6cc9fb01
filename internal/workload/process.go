package workload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"profiled/pkg/types"
)

var errExitedEarly = errors.New("engine exited before ready")

// ProcessConfig configures a ProcessController.
type ProcessConfig struct {
	Bin       string // default "vllm"
	Host      string // default 127.0.0.1
	Port      int    // default 8000
	ExtraArgs []string
	// Args overrides the argument builder.
	Args      func(p types.Profile) []string
	StopGrace time.Duration
	Waiter    *Waiter
	Logger    *zerolog.Logger
}

// ProcessController runs the engine as a direct child process.
type ProcessController struct {
	cfg ProcessConfig
	log zerolog.Logger

	mu   sync.Mutex
	proc *engineProc
}

type engineProc struct {
	cmd     *exec.Cmd
	profile string
	stderr  *tailBuffer
	done    chan struct{}
	exitErr error
}

func NewProcessController(cfg ProcessConfig) *ProcessController {
	if cfg.Bin == "" {
		cfg.Bin = "vllm"
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.StopGrace <= 0 {
		cfg.StopGrace = DefaultStopGrace
	}
	pc := &ProcessController{cfg: cfg, log: zerolog.Nop()}
	if cfg.Logger != nil {
		pc.log = cfg.Logger.With().Str("component", "process").Logger()
	}
	return pc
}

func (c *ProcessController) args(p types.Profile) []string {
	if c.cfg.Args != nil {
		return c.cfg.Args(p)
	}
	args := []string{
		"serve", p.ModelID,
		"--host", c.cfg.Host,
		"--port", strconv.Itoa(c.cfg.Port),
		"--max-model-len", strconv.Itoa(p.MaxModelLen),
		"--tensor-parallel-size", strconv.Itoa(p.TensorParallelSize),
		"--gpu-memory-utilization", strconv.FormatFloat(p.GPUMemoryUtilization, 'f', -1, 64),
		"--swap-space", strconv.Itoa(p.SwapSpaceGB),
	}
	if p.DType != "" {
		args = append(args, "--dtype", p.DType)
	}
	return append(args, c.cfg.ExtraArgs...)
}

// Start spawns the engine for p. A previously started engine is stopped
// first. The child outlives ctx; only Stop terminates it.
func (c *ProcessController) Start(ctx context.Context, p types.Profile) error {
	if err := c.Stop(ctx); err != nil {
		return err
	}
	cmd := exec.Command(c.cfg.Bin, c.args(p)...)
	stderr := newTailBuffer(stderrTailBytes)
	cmd.Stdout = io.Discard
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return &ControlError{Op: "start", Err: err}
	}
	ep := &engineProc{cmd: cmd, profile: p.ID, stderr: stderr, done: make(chan struct{})}
	go func() {
		ep.exitErr = cmd.Wait()
		close(ep.done)
	}()
	c.mu.Lock()
	c.proc = ep
	c.mu.Unlock()
	c.log.Info().Str("profile", p.ID).Int("pid", cmd.Process.Pid).Msg("engine started")
	return nil
}

// Stop terminates the engine with SIGTERM, killing it after the grace period.
func (c *ProcessController) Stop(ctx context.Context) error {
	c.mu.Lock()
	ep := c.proc
	c.proc = nil
	c.mu.Unlock()
	if ep == nil {
		return nil
	}
	select {
	case <-ep.done:
		return nil
	default:
	}
	_ = ep.cmd.Process.Signal(syscall.SIGTERM)
	t := time.NewTimer(c.cfg.StopGrace)
	defer t.Stop()
	select {
	case <-ep.done:
	case <-t.C:
		c.log.Warn().Int("pid", ep.cmd.Process.Pid).Msg("engine ignored SIGTERM, killing")
		_ = ep.cmd.Process.Kill()
		<-ep.done
	case <-ctx.Done():
		_ = ep.cmd.Process.Kill()
		<-ep.done
		return ctx.Err()
	}
	c.log.Info().Str("profile", ep.profile).Msg("engine stopped")
	return nil
}

// WaitUntilReady waits on the listing endpoint and fails fast when the engine
// exits before becoming ready.
func (c *ProcessController) WaitUntilReady(ctx context.Context, timeout time.Duration) error {
	c.mu.Lock()
	ep := c.proc
	c.mu.Unlock()
	if ep == nil {
		return &ControlError{Op: "start", Err: errors.New("engine not started")}
	}
	if c.cfg.Waiter == nil {
		return nil
	}
	wctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	go func() {
		select {
		case <-ep.done:
			cancel(errExitedEarly)
		case <-wctx.Done():
		}
	}()
	err := c.cfg.Waiter.WaitUntilReady(wctx, timeout)
	if err != nil && ctx.Err() == nil && errors.Is(context.Cause(wctx), errExitedEarly) {
		return &ControlError{Op: "start", Err: fmt.Errorf("%w: %v", errExitedEarly, ep.exitErr), Stderr: ep.stderr.String()}
	}
	return err
}

// Running reports whether a started engine is still alive.
func (c *ProcessController) Running() bool {
	c.mu.Lock()
	ep := c.proc
	c.mu.Unlock()
	if ep == nil {
		return false
	}
	select {
	case <-ep.done:
		return false
	default:
		return true
	}
}
