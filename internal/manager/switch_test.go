package manager

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"profiled/internal/hardware"
	"profiled/internal/workload"
)

func TestSwitchProfile_Success(t *testing.T) {
	h := newHarness(t)
	if err := h.m.SwitchProfile(testCtx(t), "p3"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	s := h.m.Snapshot()
	if s.State != StateRunning || s.CurrentProfile != "p3" || s.Err != "" {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	if diff := cmp.Diff([]string{"stop", "start:p3", "wait"}, h.ctrl.Calls()); diff != "" {
		t.Fatalf("controller calls (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{EventSwitchStart, EventSwitchReady}, h.events.Names()); diff != "" {
		t.Fatalf("events (-want +got):\n%s", diff)
	}
	if !h.m.Ready() {
		t.Fatalf("expected Ready after successful switch")
	}
}

func TestSwitchProfile_AlreadyActiveIsNoop(t *testing.T) {
	h := newHarness(t)
	if err := h.m.SwitchProfile(testCtx(t), "p1"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	before := len(h.ctrl.Calls())
	probes := h.prober.calls.Load()
	if err := h.m.SwitchProfile(testCtx(t), "p1"); err != nil {
		t.Fatalf("second switch: %v", err)
	}
	if len(h.ctrl.Calls()) != before || h.prober.calls.Load() != probes {
		t.Fatalf("no-op switch touched the workload or probe")
	}
}

func TestSwitchProfile_NotFound(t *testing.T) {
	h := newHarness(t)
	err := h.m.SwitchProfile(testCtx(t), "nope")
	if !IsProfileNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if len(h.ctrl.Calls()) != 0 {
		t.Fatalf("unexpected controller calls %v", h.ctrl.Calls())
	}
}

func TestSwitchProfile_IncompatibleHardware(t *testing.T) {
	h := newHarness(t)
	if err := h.m.SwitchProfile(testCtx(t), "p1"); err != nil {
		t.Fatalf("switch p1: %v", err)
	}
	calls := len(h.ctrl.Calls())

	err := h.m.SwitchProfile(testCtx(t), "p2")
	if !IsIncompatibleHardware(err) {
		t.Fatalf("expected incompatible hardware, got %v", err)
	}
	if !strings.Contains(err.Error(), "requires at least 2 GPU(s), 1 available") {
		t.Fatalf("unexpected reason: %v", err)
	}
	if len(h.ctrl.Calls()) != calls {
		t.Fatalf("incompatible switch must not stop or start the workload")
	}
	s := h.m.Snapshot()
	if s.State != StateRunning || s.CurrentProfile != "p1" {
		t.Fatalf("state changed after rejected switch: %+v", s)
	}
}

func TestSwitchProfile_ProbeUnavailable(t *testing.T) {
	h := newHarness(t)
	h.prober.set(oneGPU(), &hardware.UnavailableError{Failures: []error{errors.New("nvidia-smi: not found")}})
	err := h.m.SwitchProfile(testCtx(t), "p1")
	if !IsProbeUnavailable(err) {
		t.Fatalf("expected probe unavailable, got %v", err)
	}
	if len(h.ctrl.Calls()) != 0 {
		t.Fatalf("unexpected controller calls %v", h.ctrl.Calls())
	}
	if s := h.m.Snapshot(); s.State != StateStopped {
		t.Fatalf("expected state untouched, got %+v", s)
	}
	// The guard is released: a later switch can proceed.
	h.prober.set(oneGPU(), nil)
	if err := h.m.SwitchProfile(testCtx(t), "p1"); err != nil {
		t.Fatalf("switch after probe recovery: %v", err)
	}
}

func TestSwitchProfile_StopErrorIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.ctrl.stopErr = &workload.ControlError{Op: "stop", Err: errors.New("no such service")}
	if err := h.m.SwitchProfile(testCtx(t), "p1"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if !hasEvent(h.events, EventStopError) {
		t.Fatalf("expected stop_error event, got %v", h.events.Names())
	}
}

func TestSwitchProfile_StartFailure(t *testing.T) {
	h := newHarness(t)
	h.ctrl.startErr = &workload.ControlError{Op: "start", Err: errors.New("exit status 1"), Stderr: "pull access denied"}
	err := h.m.SwitchProfile(testCtx(t), "p1")
	if !IsControlError(err) {
		t.Fatalf("expected control error, got %v", err)
	}
	s := h.m.Snapshot()
	if s.State != StateError || !strings.Contains(s.Err, "pull access denied") {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	if diff := cmp.Diff([]string{"stop", "start:p1"}, h.ctrl.Calls()); diff != "" {
		t.Fatalf("controller calls (-want +got):\n%s", diff)
	}
	if !hasEvent(h.events, EventStartError) {
		t.Fatalf("expected start_error event")
	}
}

func TestSwitchProfile_ReadinessTimeout(t *testing.T) {
	h := newHarness(t)
	h.ctrl.waitErr = &workload.ReadinessTimeoutError{Timeout: time.Second, Attempts: 1}
	err := h.m.SwitchProfile(testCtx(t), "p1")
	if !IsReadinessTimeout(err) {
		t.Fatalf("expected readiness timeout, got %v", err)
	}
	if s := h.m.Snapshot(); s.State != StateError || s.CurrentProfile == "p3" {
		t.Fatalf("unexpected snapshot %+v", s)
	}
	if !hasEvent(h.events, EventReadyTimeout) {
		t.Fatalf("expected ready_timeout event")
	}
	// A later successful switch clears the error.
	h.ctrl.waitErr = nil
	if err := h.m.SwitchProfile(testCtx(t), "p3"); err != nil {
		t.Fatalf("recovery switch: %v", err)
	}
	if s := h.m.Snapshot(); s.State != StateRunning || s.Err != "" {
		t.Fatalf("error not cleared: %+v", s)
	}
}

func TestSwitchProfile_MutualExclusion(t *testing.T) {
	h := newHarness(t)
	h.ctrl.gate = make(chan struct{})
	h.ctrl.waiting = make(chan struct{})

	resp, err := h.m.Switch(testCtx(t), "p1")
	if err != nil || !resp.Success || resp.OperationID == "" || resp.SwitchingTo != "p1" {
		t.Fatalf("async switch: resp=%+v err=%v", resp, err)
	}
	<-h.ctrl.waiting

	if err := h.m.SwitchProfile(testCtx(t), "p3"); !IsSwitchInProgress(err) {
		t.Fatalf("expected switch in progress, got %v", err)
	}
	if _, err := h.m.Switch(testCtx(t), "p1"); !IsSwitchInProgress(err) {
		t.Fatalf("same target while switching must also be rejected, got %v", err)
	}
	if s := h.m.Snapshot(); s.State != StateSwitching || s.SwitchingTo != "p1" {
		t.Fatalf("unexpected snapshot during switch %+v", s)
	}

	close(h.ctrl.gate)
	s := waitForState(t, h.m, StateRunning)
	if s.CurrentProfile != "p1" {
		t.Fatalf("unexpected current profile %q", s.CurrentProfile)
	}
	if got := strings.Count(strings.Join(h.ctrl.Calls(), ","), "start:"); got != 1 {
		t.Fatalf("expected exactly one start, got %d (%v)", got, h.ctrl.Calls())
	}
}

func TestSwitch_AsyncValidationIsSynchronous(t *testing.T) {
	h := newHarness(t)
	if _, err := h.m.Switch(testCtx(t), "missing"); !IsProfileNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	resp, err := h.m.Switch(testCtx(t), "p2")
	if !IsIncompatibleHardware(err) || resp.Success {
		t.Fatalf("expected incompatible rejection, got resp=%+v err=%v", resp, err)
	}
}

func TestSwitch_AlreadyActive(t *testing.T) {
	h := newHarness(t)
	if err := h.m.SwitchProfile(testCtx(t), "p1"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	resp, err := h.m.Switch(testCtx(t), "p1")
	if err != nil || !resp.Success || resp.OperationID != "" || resp.CurrentProfile != "p1" {
		t.Fatalf("unexpected no-op response %+v err=%v", resp, err)
	}
}

func TestClose_AbortsInFlightSwitch(t *testing.T) {
	h := newHarness(t)
	h.ctrl.gate = make(chan struct{})
	h.ctrl.waiting = make(chan struct{})
	if _, err := h.m.Switch(testCtx(t), "p1"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	<-h.ctrl.waiting

	done := make(chan struct{})
	go func() {
		_ = h.m.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Close did not return")
	}
	s := h.m.Snapshot()
	if s.State != StateError || !strings.Contains(s.Err, "aborted") {
		t.Fatalf("expected aborted error state, got %+v", s)
	}
	if !hasEvent(h.events, EventSwitchAborted) {
		t.Fatalf("expected switch_aborted event, got %v", h.events.Names())
	}
	if err := h.m.SwitchProfile(testCtx(t), "p3"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after Close, got %v", err)
	}
}
