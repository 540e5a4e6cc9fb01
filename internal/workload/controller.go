// Package workload controls the inference workload process and observes it
// through its model listing endpoint.
package workload

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"profiled/pkg/types"
)

// Controller starts, stops and waits on the inference workload. Stop is
// always issued before Start, and Start before WaitUntilReady.
type Controller interface {
	Stop(ctx context.Context) error
	Start(ctx context.Context, p types.Profile) error
	WaitUntilReady(ctx context.Context, timeout time.Duration) error
}

// ControlError reports a failed stop or start command.
type ControlError struct {
	Op     string // "stop" or "start"
	Err    error
	Stderr string
}

func (e *ControlError) Error() string {
	msg := fmt.Sprintf("workload %s failed: %v", e.Op, e.Err)
	if e.Stderr != "" {
		msg += "; stderr tail: " + e.Stderr
	}
	return msg
}

func (e *ControlError) Unwrap() error { return e.Err }

// Command is one external invocation.
type Command struct {
	Name string
	Args []string
	// Env is appended to the process environment when non-empty.
	Env []string
	Dir string
}

func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// CommandRunner runs a command to completion and returns its stderr.
type CommandRunner interface {
	Run(ctx context.Context, c Command) (stderr string, err error)
}

// ExecRunner is the os/exec CommandRunner.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) (string, error) {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(cmd.Environ(), c.Env...)
	}
	stderr := newTailBuffer(stderrTailBytes)
	cmd.Stderr = stderr
	err := cmd.Run()
	return stderr.String(), err
}

const stderrTailBytes = 4096

// tailBuffer keeps the last max bytes written to it. Safe for concurrent use
// since exec copies stderr on its own goroutine.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf bytes.Buffer
}

func newTailBuffer(max int) *tailBuffer { return &tailBuffer{max: max} }

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, _ := t.buf.Write(p)
	if over := t.buf.Len() - t.max; over > 0 {
		t.buf.Next(over)
	}
	return n, nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(t.buf.String())
}

// sleepCtx waits d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
