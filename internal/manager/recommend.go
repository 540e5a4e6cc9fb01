package manager

import (
	"context"

	"profiled/internal/compat"
	"profiled/pkg/types"
)

// RecommendProfiles probes the hardware and splits the catalog into
// recommended, compatible and incompatible profiles.
func (m *Manager) RecommendProfiles(ctx context.Context) (types.RecommendationsResponse, error) {
	res, err := m.prober.Probe(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return types.RecommendationsResponse{}, ctx.Err()
		}
		return types.RecommendationsResponse{}, probeUnavailableError{err: err}
	}
	rec := compat.Recommend(m.Catalog().List(), res.Snapshot)
	return types.RecommendationsResponse{
		CurrentHardware:      res.Snapshot,
		HardwareCached:       res.Cached,
		RecommendedProfiles:  verdicts(rec.Recommended),
		CompatibleProfiles:   verdicts(rec.Compatible),
		IncompatibleProfiles: verdicts(rec.Incompatible),
	}, nil
}

func verdicts(vs []compat.Verdict) []types.ProfileCompatibility {
	out := make([]types.ProfileCompatibility, 0, len(vs))
	for _, v := range vs {
		out = append(out, types.ProfileCompatibility{
			ProfileID:   v.Profile.ID,
			Name:        v.Profile.Name,
			Description: v.Profile.Description,
			Compatible:  v.Result.Compatible,
			Reason:      v.Result.Reason,
		})
	}
	return out
}
