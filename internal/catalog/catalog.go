// Package catalog holds the set of workload profiles the orchestrator can
// switch between. A catalog is loaded from a profile document and may grow at
// runtime when models are discovered on the workload endpoint.
package catalog

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"profiled/pkg/types"
)

// Defaults resolved into profiles when the document omits a field.
const (
	DefaultMaxModelLen          = 4096
	DefaultTensorParallelSize   = 1
	DefaultGPUMemoryUtilization = 0.85
	DefaultDType                = "float16"
	DefaultSwapSpaceGB          = 4
	DefaultMinVRAMGB            = 8
	DefaultRecommendedVRAMGB    = 0
	DefaultMinGPUs              = 1
)

// FallbackProfileID is the id of the built-in profile used when the profile
// document cannot be loaded.
const FallbackProfileID = "default"

// Catalog is an insertion-ordered set of profiles. Safe for concurrent use.
type Catalog struct {
	mu        sync.RWMutex
	order     []string
	profiles  map[string]types.Profile
	hardware  map[string]any
	defaultID string
	source    string
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{profiles: make(map[string]types.Profile)}
}

// Fallback returns a catalog holding only the built-in default profile.
func Fallback() *Catalog {
	c := New()
	c.insert(types.Profile{
		ID:                   FallbackProfileID,
		Name:                 "Default Model",
		Description:          "built-in fallback profile",
		ModelID:              "deepseek-ai/DeepSeek-R1-Distill-Qwen-14B",
		MaxModelLen:          8192,
		TensorParallelSize:   2,
		GPUMemoryUtilization: DefaultGPUMemoryUtilization,
		DType:                DefaultDType,
		SwapSpaceGB:          DefaultSwapSpaceGB,
		HardwareRequirements: types.HardwareRequirements{
			MinVRAMGB:         DefaultMinVRAMGB,
			RecommendedVRAMGB: DefaultRecommendedVRAMGB,
			MinGPUs:           DefaultMinGPUs,
		},
	})
	c.defaultID = FallbackProfileID
	c.source = "builtin"
	return c
}

func (c *Catalog) insert(p types.Profile) {
	if _, ok := c.profiles[p.ID]; !ok {
		c.order = append(c.order, p.ID)
	}
	c.profiles[p.ID] = p
}

// Get returns the profile with the given id.
func (c *Catalog) Get(id string) (types.Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.profiles[id]
	return p, ok
}

// List returns all profiles in insertion order.
func (c *Catalog) List() []types.Profile {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]types.Profile, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.profiles[id])
	}
	return out
}

// IDs returns profile ids in insertion order.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// DefaultID is the document's default_profile when it names a known profile.
func (c *Catalog) DefaultID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.defaultID
}

// Source is the path the catalog was loaded from, or "builtin".
func (c *Catalog) Source() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.source
}

// HardwareProfiles returns the opaque hardware_profiles section.
func (c *Catalog) HardwareProfiles() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.hardware))
	for k, v := range c.hardware {
		out[k] = v
	}
	return out
}

// FindByModel returns the first profile (in catalog order) serving modelID.
func (c *Catalog) FindByModel(modelID string) (types.Profile, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, id := range c.order {
		if p := c.profiles[id]; p.ModelID == modelID {
			return p, true
		}
	}
	return types.Profile{}, false
}

// Upsert inserts p when its id is absent. Existing entries are never
// overwritten. Reports whether p was inserted.
func (c *Catalog) Upsert(p types.Profile) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.profiles[p.ID]; ok {
		return false
	}
	c.insert(p)
	return true
}

// AddDiscovered ensures a profile serving modelID exists, synthesizing one
// when needed. The synthesized id is made unique against existing ids.
func (c *Catalog) AddDiscovered(modelID string) (types.Profile, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range c.order {
		if p := c.profiles[id]; p.ModelID == modelID {
			return p, false
		}
	}
	p := Synthesize(modelID)
	base := p.ID
	for n := 2; ; n++ {
		if _, taken := c.profiles[p.ID]; !taken {
			break
		}
		p.ID = fmt.Sprintf("%s-%d", base, n)
	}
	c.insert(p)
	return p, true
}

var unsafeIDChars = regexp.MustCompile(`[^a-z0-9._-]+`)

// Synthesize builds a conservative profile for a model that is running but
// unknown to the catalog.
func Synthesize(modelID string) types.Profile {
	name := strings.TrimSpace(modelID)
	if i := strings.LastIndex(name, "/"); i >= 0 && i < len(name)-1 {
		name = name[i+1:]
	}
	if name == "" {
		name = "discovered"
	}
	id := strings.Trim(unsafeIDChars.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if id == "" {
		id = "discovered"
	}
	return types.Profile{
		ID:                   id,
		Name:                 name,
		Description:          "discovered on the workload endpoint",
		ModelID:              modelID,
		MaxModelLen:          DefaultMaxModelLen,
		TensorParallelSize:   DefaultTensorParallelSize,
		GPUMemoryUtilization: DefaultGPUMemoryUtilization,
		DType:                "auto",
		SwapSpaceGB:          DefaultSwapSpaceGB,
		HardwareRequirements: types.HardwareRequirements{
			MinVRAMGB:         DefaultMinVRAMGB,
			RecommendedVRAMGB: DefaultRecommendedVRAMGB,
			MinGPUs:           DefaultMinGPUs,
		},
		Synthesized: true,
	}
}
