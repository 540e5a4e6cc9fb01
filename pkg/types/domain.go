package types

import "time"

// HardwareRequirements are the resources a profile needs on the host.
// Absent fields are resolved to defaults when the profile is loaded.
type HardwareRequirements struct {
	// Minimum free VRAM across all GPUs, in GB.
	// example: 8
	MinVRAMGB float64 `json:"min_vram_gb" example:"8"`
	// Free VRAM above which the profile is recommended, in GB.
	// example: 24
	RecommendedVRAMGB float64 `json:"recommended_vram_gb" example:"24"`
	// Minimum number of GPUs.
	// example: 1
	MinGPUs int `json:"min_gpus" example:"1"`
}

// Profile describes one inference workload configuration.
type Profile struct {
	// Stable identifier, unique within a catalog.
	// example: qwen-14b
	ID string `json:"id" example:"qwen-14b"`
	// Human-friendly name.
	// example: Qwen 14B (R1 distill)
	Name string `json:"name" example:"Qwen 14B (R1 distill)"`
	Description string `json:"description,omitempty"`
	// Model artifact served by the workload.
	// example: deepseek-ai/DeepSeek-R1-Distill-Qwen-14B
	ModelID string `json:"model_id" example:"deepseek-ai/DeepSeek-R1-Distill-Qwen-14B"`
	// example: 8192
	MaxModelLen int `json:"max_model_len" example:"8192"`
	// Number of GPU shards the workload requires.
	// example: 2
	TensorParallelSize int `json:"tensor_parallel_size" example:"2"`
	// Fraction of GPU memory the engine may claim, in (0, 1].
	// example: 0.85
	GPUMemoryUtilization float64 `json:"gpu_memory_utilization" example:"0.85"`
	// example: float16
	DType string `json:"dtype" example:"float16"`
	// CPU swap space in GB.
	// example: 4
	SwapSpaceGB int `json:"swap_space" example:"4"`
	HardwareRequirements HardwareRequirements `json:"hardware_requirements"`
	// True when the profile was created from a model discovered on the
	// workload endpoint rather than loaded from the profile document.
	Synthesized bool `json:"synthesized,omitempty"`
}

// Accelerator is one GPU as reported by the management tool.
type Accelerator struct {
	// example: NVIDIA GeForce RTX 3090
	Name string `json:"name" example:"NVIDIA GeForce RTX 3090"`
	// example: 24576
	TotalMB int `json:"memory_total_mb" example:"24576"`
	// example: 512
	UsedMB int `json:"memory_used_mb" example:"512"`
	// example: 24064
	FreeMB int `json:"memory_free_mb" example:"24064"`
}

// HardwareSnapshot is an immutable view of the GPU inventory at ProbedAt.
type HardwareSnapshot struct {
	GPUs []Accelerator `json:"gpus"`
	// example: 2
	GPUCount int `json:"gpu_count" example:"2"`
	// example: 48
	TotalVRAMGB float64 `json:"total_vram_gb" example:"48"`
	// example: 47
	AvailableVRAMGB float64 `json:"available_vram_gb" example:"47"`
	ProbedAt        time.Time `json:"probed_at"`
	// Strategy that produced the snapshot (e.g. nvidia-smi, docker).
	Source string `json:"source,omitempty"`
}

// NewHardwareSnapshot aggregates accelerator lines into a snapshot.
func NewHardwareSnapshot(gpus []Accelerator, source string, at time.Time) HardwareSnapshot {
	s := HardwareSnapshot{
		GPUs:     append([]Accelerator(nil), gpus...),
		GPUCount: len(gpus),
		ProbedAt: at,
		Source:   source,
	}
	var total, free int
	for _, g := range gpus {
		total += g.TotalMB
		free += g.FreeMB
	}
	s.TotalVRAMGB = float64(total) / 1024
	s.AvailableVRAMGB = float64(free) / 1024
	return s
}

// ModelRef is a model reported by the workload listing endpoint.
type ModelRef struct {
	ID string `json:"id"`
}
