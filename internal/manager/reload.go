package manager

import (
	"fmt"

	"profiled/internal/catalog"
	"profiled/pkg/types"
)

// ReloadProfiles re-reads the profile document. A broken document falls back
// to the built-in default profile. Status is untouched. A running or
// switching profile missing from the new document is carried over; otherwise
// a current id the new document no longer defines moves to its default.
func (m *Manager) ReloadProfiles() types.ReloadResponse {
	if m.profilesPath == "" {
		cat := m.Catalog()
		return types.ReloadResponse{
			Success:  false,
			Message:  "no profile document configured",
			Profiles: cat.List(),
		}
	}
	next, err := catalog.LoadOrFallback(m.profilesPath)

	m.mu.Lock()
	live := m.state == StateRunning || m.state == StateSwitching
	if cur, ok := m.cat.Get(m.current); ok && live {
		if next.Upsert(cur) {
			m.log.Info().Str("profile", cur.ID).Msg("active profile missing from reloaded document, keeping it")
		}
	}
	if _, ok := next.Get(m.current); !ok {
		m.current = next.DefaultID()
	}
	m.cat = next
	m.mu.Unlock()

	profiles := next.List()
	if err != nil {
		m.log.Error().Err(err).Str("path", m.profilesPath).Msg("profile reload failed, using built-in default profile")
		return types.ReloadResponse{
			Success:  false,
			Message:  fmt.Sprintf("reload failed, using built-in default profile: %v", err),
			Profiles: profiles,
		}
	}
	m.log.Info().Int("profiles", len(profiles)).Str("path", m.profilesPath).Msg("profiles reloaded")
	return types.ReloadResponse{
		Success:  true,
		Message:  fmt.Sprintf("loaded %d profiles from %s", len(profiles), m.profilesPath),
		Profiles: profiles,
	}
}
