// Package compat decides whether a profile can run on a hardware snapshot.
// Everything here is pure: no probing, no I/O.
package compat

import (
	"fmt"

	"profiled/pkg/types"
)

// Result of a compatibility check. Reason is set only when incompatible.
type Result struct {
	Compatible bool   `json:"compatible"`
	Reason     string `json:"reason,omitempty"`
}

// Check evaluates p against h. Rules run in order and the first failure wins:
// GPU count, free VRAM, then tensor parallelism. Boundaries are inclusive.
func Check(p types.Profile, h types.HardwareSnapshot) Result {
	req := p.HardwareRequirements
	if h.GPUCount < req.MinGPUs {
		return Result{Reason: fmt.Sprintf("requires at least %d GPU(s), %d available", req.MinGPUs, h.GPUCount)}
	}
	if h.AvailableVRAMGB < req.MinVRAMGB {
		return Result{Reason: fmt.Sprintf("requires at least %.1fGB free VRAM, %.1fGB available", req.MinVRAMGB, h.AvailableVRAMGB)}
	}
	if p.TensorParallelSize > h.GPUCount {
		return Result{Reason: fmt.Sprintf("tensor_parallel_size %d exceeds available GPU count %d", p.TensorParallelSize, h.GPUCount)}
	}
	return Result{Compatible: true}
}

// Recommendation groups profiles by how well they fit a snapshot.
type Recommendation struct {
	Recommended  []Verdict
	Compatible   []Verdict
	Incompatible []Verdict
}

// Verdict pairs a profile with its check result.
type Verdict struct {
	Profile types.Profile
	Result  Result
}

// Recommend checks every profile. Compatible profiles whose recommended VRAM
// fits the free VRAM are also listed as recommended.
func Recommend(profiles []types.Profile, h types.HardwareSnapshot) Recommendation {
	var rec Recommendation
	for _, p := range profiles {
		v := Verdict{Profile: p, Result: Check(p, h)}
		if !v.Result.Compatible {
			rec.Incompatible = append(rec.Incompatible, v)
			continue
		}
		rec.Compatible = append(rec.Compatible, v)
		if p.HardwareRequirements.RecommendedVRAMGB <= h.AvailableVRAMGB {
			rec.Recommended = append(rec.Recommended, v)
		}
	}
	return rec
}
