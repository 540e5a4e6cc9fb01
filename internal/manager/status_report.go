package manager

import (
	"context"

	"profiled/internal/hardware"
	"profiled/internal/workload"
	"profiled/pkg/types"
)

// Status reconciles believed state against the workload endpoint, probes the
// hardware and reports both. While a switch is in flight the state is
// reported but not mutated. Status never fails; probe failures surface as
// StateError with the probe message.
func (m *Manager) Status(ctx context.Context) types.StatusResponse {
	var rec workload.Reconciliation
	if m.recon != nil {
		rec = m.recon.Reconcile(ctx)
	}
	hw, herr := m.prober.Probe(ctx)
	aborted := ctx.Err() != nil

	var discovered []types.Profile
	m.mu.Lock()
	if !m.switching && !aborted {
		discovered = m.observeLocked(rec)
		m.observeProbeLocked(herr)
	}
	state := m.state
	resp := types.StatusResponse{
		CurrentProfile: m.current,
		Status:         string(state),
		SwitchingTo:    m.switchingTo,
		Message:        m.messageLocked(rec),
		UptimeSeconds:  int64(m.now().Sub(m.startTime).Seconds()),
		ServerTimeUnix: m.now().Unix(),
	}
	cat := m.cat
	m.mu.Unlock()
	setStateGauge(state)

	for _, p := range discovered {
		m.log.Info().Str("profile", p.ID).Str("model", p.ModelID).Msg("discovered running model, added synthesized profile")
		m.publish(Event{Name: EventProfileDiscovered, ProfileID: p.ID, Fields: map[string]any{"model": p.ModelID}})
	}
	if herr != nil && !aborted {
		m.log.Warn().Err(herr).Msg("hardware probe failed")
		m.publish(Event{Name: EventProbeError, Fields: map[string]any{"error": herr.Error()}})
	}

	profiles := cat.List()
	resp.AvailableProfiles = make(map[string]types.Profile, len(profiles))
	resp.ProfileOrder = make([]string, 0, len(profiles))
	for _, p := range profiles {
		resp.AvailableProfiles[p.ID] = p
		resp.ProfileOrder = append(resp.ProfileOrder, p.ID)
	}
	if herr == nil {
		snap := hw.Snapshot
		resp.HardwareInfo = &snap
		resp.HardwareCached = hw.Cached
	}
	return resp
}

// observeLocked applies a reconciliation and returns newly synthesized
// profiles. Caller holds m.mu.
func (m *Manager) observeLocked(rec workload.Reconciliation) []types.Profile {
	if !rec.Running {
		// A failed switch stays visible until something is observed running.
		if m.errSrc != errSwitch {
			m.state = StateStopped
		}
		return nil
	}
	var added []types.Profile
	var first string
	for i, mdl := range rec.Models {
		p, created := m.cat.AddDiscovered(mdl.ID)
		if created {
			added = append(added, p)
		}
		if i == 0 {
			first = p.ID
		}
	}
	// Several profiles may serve the same model; keep the believed one.
	if cur, ok := m.cat.Get(m.current); !ok || cur.ModelID != rec.Models[0].ID {
		m.current = first
	}
	m.state = StateRunning
	if m.errSrc == errSwitch {
		m.errSrc = errNone
		m.lastErr = ""
	}
	return added
}

// observeProbeLocked folds a probe outcome into the state. Caller holds m.mu.
func (m *Manager) observeProbeLocked(err error) {
	if err != nil {
		m.state = StateError
		m.lastErr = probeUnavailableError{err: err}.Error()
		m.errSrc = errProbe
		return
	}
	if m.errSrc == errProbe {
		m.errSrc = errNone
		m.lastErr = ""
		if m.state == StateError {
			m.state = StateStopped
		}
	}
}

func (m *Manager) messageLocked(rec workload.Reconciliation) string {
	switch m.state {
	case StateError:
		return m.lastErr
	case StateSwitching:
		return "switching to " + m.switchingTo
	case StateRunning:
		if len(rec.Models) > 0 {
			return "serving " + rec.Models[0].ID
		}
		return "running " + m.current
	default:
		if rec.Err != nil {
			return "workload not reachable: " + rec.Err.Error()
		}
		return "no model is being served"
	}
}

// compile-time check that the concrete collaborators satisfy the interfaces.
var (
	_ Prober       = (*hardware.Prober)(nil)
	_ StatusSource = (*workload.Reconciler)(nil)
)
