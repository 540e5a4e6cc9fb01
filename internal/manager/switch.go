package manager

import (
	"context"
	"fmt"
	"time"

	"profiled/internal/compat"
	"profiled/pkg/types"
)

// SwitchProfile transitions the workload to profile id and returns once it is
// ready or the transition failed. Switching to the running profile is a no-op.
func (m *Manager) SwitchProfile(ctx context.Context, id string) error {
	p, noop, err := m.begin(ctx, id)
	if err != nil || noop {
		return err
	}
	return m.execute(ctx, p, "")
}

// begin validates the request and claims the switching guard. On success the
// caller owns the guard and must hand it to execute.
func (m *Manager) begin(ctx context.Context, id string) (types.Profile, bool, error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return types.Profile{}, false, ErrClosed
	}
	p, ok := m.cat.Get(id)
	if !ok {
		m.mu.Unlock()
		switchTotal.WithLabelValues("not_found").Inc()
		return types.Profile{}, false, ErrProfileNotFound(id)
	}
	if m.state == StateRunning && m.current == id && !m.switching {
		m.mu.Unlock()
		switchTotal.WithLabelValues("noop").Inc()
		return p, true, nil
	}
	if m.switching {
		target := m.switchingTo
		m.mu.Unlock()
		switchTotal.WithLabelValues("busy").Inc()
		return types.Profile{}, false, switchInProgressError{target: target}
	}
	m.switching = true
	m.switchingTo = id
	m.wg.Add(1)
	m.mu.Unlock()

	res, err := m.prober.Probe(ctx)
	if err != nil {
		m.release()
		if ctx.Err() != nil {
			return types.Profile{}, false, ctx.Err()
		}
		switchTotal.WithLabelValues("probe_unavailable").Inc()
		m.publish(Event{Name: EventProbeError, ProfileID: id, Fields: map[string]any{"error": err.Error()}})
		return types.Profile{}, false, probeUnavailableError{err: err}
	}
	if r := compat.Check(p, res.Snapshot); !r.Compatible {
		m.release()
		switchTotal.WithLabelValues("incompatible").Inc()
		return types.Profile{}, false, &IncompatibleHardwareError{ProfileID: id, Reason: r.Reason}
	}
	return p, false, nil
}

// release drops the guard without touching state.
func (m *Manager) release() {
	m.mu.Lock()
	m.switching = false
	m.switchingTo = ""
	m.mu.Unlock()
	m.wg.Done()
}

// execute runs stop, start and readiness for p. The guard claimed by begin is
// released on every path.
func (m *Manager) execute(ctx context.Context, p types.Profile, opID string) error {
	defer m.wg.Done()
	ctx, stop := m.bind(ctx)
	defer stop()
	started := m.now()
	log := m.log.With().Str("profile", p.ID).Str("model", p.ModelID).Logger()
	if opID != "" {
		log = log.With().Str("op", opID).Logger()
	}

	m.mu.Lock()
	prev := m.current
	m.state = StateSwitching
	m.lastErr = ""
	m.errSrc = errNone
	m.mu.Unlock()
	setStateGauge(StateSwitching)
	log.Info().Str("from", prev).Msg("switch started")
	m.publish(Event{Name: EventSwitchStart, ProfileID: p.ID, Fields: map[string]any{"from": prev, "op": opID}})

	if err := m.ctrl.Stop(ctx); err != nil {
		if ctx.Err() != nil {
			return m.fail(p, started, EventSwitchAborted, "aborted", fmt.Errorf("switch to %s aborted: %w", p.ID, ctx.Err()))
		}
		// The old workload may already be gone; a failed stop does not block start.
		log.Warn().Err(err).Msg("stop failed, continuing")
		m.publish(Event{Name: EventStopError, ProfileID: p.ID, Fields: map[string]any{"error": err.Error()}})
	}
	if err := m.ctrl.Start(ctx, p); err != nil {
		if ctx.Err() != nil {
			return m.fail(p, started, EventSwitchAborted, "aborted", fmt.Errorf("switch to %s aborted: %w", p.ID, ctx.Err()))
		}
		return m.fail(p, started, EventStartError, "start_error", fmt.Errorf("start %s: %w", p.ID, err))
	}
	if err := m.ctrl.WaitUntilReady(ctx, m.readyTimeout); err != nil {
		if ctx.Err() != nil {
			return m.fail(p, started, EventSwitchAborted, "aborted", fmt.Errorf("switch to %s aborted: %w", p.ID, ctx.Err()))
		}
		if IsControlError(err) {
			return m.fail(p, started, EventStartError, "start_error", fmt.Errorf("start %s: %w", p.ID, err))
		}
		return m.fail(p, started, EventReadyTimeout, "ready_timeout", fmt.Errorf("profile %s: %w", p.ID, err))
	}

	m.mu.Lock()
	m.current = p.ID
	m.state = StateRunning
	m.switching = false
	m.switchingTo = ""
	m.mu.Unlock()
	setStateGauge(StateRunning)
	elapsed := m.now().Sub(started)
	switchTotal.WithLabelValues("ok").Inc()
	switchDuration.Observe(elapsed.Seconds())
	log.Info().Dur("elapsed", elapsed).Msg("switch complete")
	m.publish(Event{Name: EventSwitchReady, ProfileID: p.ID, Fields: map[string]any{"elapsed_ms": elapsed.Milliseconds(), "op": opID}})
	return nil
}

func (m *Manager) fail(p types.Profile, started time.Time, event, result string, err error) error {
	m.mu.Lock()
	m.state = StateError
	m.lastErr = err.Error()
	m.errSrc = errSwitch
	m.switching = false
	m.switchingTo = ""
	m.mu.Unlock()
	setStateGauge(StateError)
	switchTotal.WithLabelValues(result).Inc()
	switchDuration.Observe(m.now().Sub(started).Seconds())
	m.log.Error().Err(err).Str("profile", p.ID).Str("result", result).Msg("switch failed")
	m.publish(Event{Name: event, ProfileID: p.ID, Fields: map[string]any{"error": err.Error()}})
	return err
}
