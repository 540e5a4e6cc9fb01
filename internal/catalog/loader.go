package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"profiled/internal/common/fsutil"
	"profiled/pkg/types"
)

// LoadError reports a profile document that could not be used.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return "load profiles: " + e.Err.Error()
	}
	return fmt.Sprintf("load profiles %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

type rawRequirements struct {
	MinVRAMGB         *float64 `yaml:"min_vram_gb" json:"min_vram_gb" toml:"min_vram_gb"`
	RecommendedVRAMGB *float64 `yaml:"recommended_vram_gb" json:"recommended_vram_gb" toml:"recommended_vram_gb"`
	MinGPUs           *int     `yaml:"min_gpus" json:"min_gpus" toml:"min_gpus"`
}

type rawProfile struct {
	Name                 string           `yaml:"name" json:"name" toml:"name"`
	ModelID              string           `yaml:"model_id" json:"model_id" toml:"model_id"`
	Description          string           `yaml:"description" json:"description" toml:"description"`
	MaxModelLen          *int             `yaml:"max_model_len" json:"max_model_len" toml:"max_model_len"`
	TensorParallelSize   *int             `yaml:"tensor_parallel_size" json:"tensor_parallel_size" toml:"tensor_parallel_size"`
	GPUMemoryUtilization *float64         `yaml:"gpu_memory_utilization" json:"gpu_memory_utilization" toml:"gpu_memory_utilization"`
	DType                string           `yaml:"dtype" json:"dtype" toml:"dtype"`
	SwapSpace            *int             `yaml:"swap_space" json:"swap_space" toml:"swap_space"`
	HardwareRequirements *rawRequirements `yaml:"hardware_requirements" json:"hardware_requirements" toml:"hardware_requirements"`
}

// yamlDocument keeps model_profiles as a node so document order survives.
type yamlDocument struct {
	ModelProfiles    yaml.Node      `yaml:"model_profiles"`
	HardwareProfiles map[string]any `yaml:"hardware_profiles"`
	DefaultProfile   string         `yaml:"default_profile"`
}

type mapDocument struct {
	ModelProfiles    map[string]rawProfile `json:"model_profiles" toml:"model_profiles"`
	HardwareProfiles map[string]any        `json:"hardware_profiles" toml:"hardware_profiles"`
	DefaultProfile   string                `json:"default_profile" toml:"default_profile"`
}

type namedProfile struct {
	id  string
	raw rawProfile
}

// Load reads a profile document. The format follows the file extension:
// .json, .toml, anything else is read as YAML. A directory is merged with
// LoadDir.
func Load(path string) (*Catalog, error) {
	abs, err := fsutil.ResolvePath(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if abs == "" {
		return nil, &LoadError{Err: errors.New("empty profiles path")}
	}
	if fi, err := os.Stat(abs); err == nil && fi.IsDir() {
		return LoadDir(abs)
	}
	return loadFile(abs)
}

func loadFile(abs string) (*Catalog, error) {
	b, err := os.ReadFile(abs)
	if err != nil {
		return nil, &LoadError{Path: abs, Err: err}
	}
	c, err := Parse(b, formatOf(abs))
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.Path = abs
		}
		return nil, err
	}
	c.source = abs
	return c, nil
}

// LoadOrFallback loads path and falls back to the built-in catalog on any
// error. The error is still returned so callers can report it.
func LoadOrFallback(path string) (*Catalog, error) {
	c, err := Load(path)
	if err != nil {
		return Fallback(), err
	}
	return c, nil
}

func formatOf(path string) string {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		return "json"
	case ".toml":
		return "toml"
	default:
		return "yaml"
	}
}

// Parse builds a catalog from a profile document in the given format
// ("yaml", "json" or "toml").
func Parse(data []byte, format string) (*Catalog, error) {
	var (
		entries   []namedProfile
		hardware  map[string]any
		defaultID string
	)
	switch format {
	case "json", "toml":
		var doc mapDocument
		var err error
		if format == "json" {
			err = json.Unmarshal(data, &doc)
		} else {
			err = toml.Unmarshal(data, &doc)
		}
		if err != nil {
			return nil, &LoadError{Err: err}
		}
		ids := make([]string, 0, len(doc.ModelProfiles))
		for id := range doc.ModelProfiles {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			entries = append(entries, namedProfile{id: id, raw: doc.ModelProfiles[id]})
		}
		hardware, defaultID = doc.HardwareProfiles, doc.DefaultProfile
	case "yaml", "":
		var doc yamlDocument
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, &LoadError{Err: err}
		}
		var err error
		if entries, err = yamlEntries(&doc.ModelProfiles); err != nil {
			return nil, &LoadError{Err: err}
		}
		hardware, defaultID = doc.HardwareProfiles, doc.DefaultProfile
	default:
		return nil, &LoadError{Err: fmt.Errorf("unsupported profile format: %s", format)}
	}

	if len(entries) == 0 {
		return nil, &LoadError{Err: errors.New("no model_profiles defined")}
	}
	c := New()
	var errs []error
	for _, e := range entries {
		p, err := resolve(e.id, e.raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.insert(p)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, &LoadError{Err: err}
	}
	c.hardware = hardware
	if _, ok := c.profiles[defaultID]; ok {
		c.defaultID = defaultID
	}
	return c, nil
}

func yamlEntries(n *yaml.Node) ([]namedProfile, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("model_profiles must be a mapping (line %d)", n.Line)
	}
	out := make([]namedProfile, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		id := n.Content[i].Value
		var rp rawProfile
		if err := n.Content[i+1].Decode(&rp); err != nil {
			return nil, fmt.Errorf("profile %q: %w", id, err)
		}
		out = append(out, namedProfile{id: id, raw: rp})
	}
	return out, nil
}

// resolve validates a raw profile and fills in defaults.
func resolve(id string, r rawProfile) (types.Profile, error) {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("profile %q: "+format, append([]any{id}, args...)...))
	}
	if strings.TrimSpace(id) == "" {
		bad("empty profile id")
	}
	p := types.Profile{
		ID:                   id,
		Name:                 strings.TrimSpace(r.Name),
		Description:          r.Description,
		ModelID:              strings.TrimSpace(r.ModelID),
		MaxModelLen:          DefaultMaxModelLen,
		TensorParallelSize:   DefaultTensorParallelSize,
		GPUMemoryUtilization: DefaultGPUMemoryUtilization,
		DType:                DefaultDType,
		SwapSpaceGB:          DefaultSwapSpaceGB,
		HardwareRequirements: types.HardwareRequirements{
			MinVRAMGB:         DefaultMinVRAMGB,
			RecommendedVRAMGB: DefaultRecommendedVRAMGB,
			MinGPUs:           DefaultMinGPUs,
		},
	}
	if p.ModelID == "" {
		bad("model_id is required")
	}
	if p.Name == "" {
		p.Name = id
	}
	if r.DType != "" {
		p.DType = r.DType
	}
	if r.MaxModelLen != nil {
		if *r.MaxModelLen <= 0 {
			bad("max_model_len must be positive, got %d", *r.MaxModelLen)
		}
		p.MaxModelLen = *r.MaxModelLen
	}
	if r.TensorParallelSize != nil {
		if *r.TensorParallelSize <= 0 {
			bad("tensor_parallel_size must be positive, got %d", *r.TensorParallelSize)
		}
		p.TensorParallelSize = *r.TensorParallelSize
	}
	if r.GPUMemoryUtilization != nil {
		if u := *r.GPUMemoryUtilization; u <= 0 || u > 1 {
			bad("gpu_memory_utilization must be in (0, 1], got %.2f", u)
		}
		p.GPUMemoryUtilization = *r.GPUMemoryUtilization
	}
	if r.SwapSpace != nil {
		if *r.SwapSpace < 0 {
			bad("swap_space must be >= 0, got %d", *r.SwapSpace)
		}
		p.SwapSpaceGB = *r.SwapSpace
	}
	if hr := r.HardwareRequirements; hr != nil {
		if hr.MinVRAMGB != nil {
			if *hr.MinVRAMGB < 0 {
				bad("min_vram_gb must be >= 0, got %.1f", *hr.MinVRAMGB)
			}
			p.HardwareRequirements.MinVRAMGB = *hr.MinVRAMGB
		}
		if hr.RecommendedVRAMGB != nil {
			if *hr.RecommendedVRAMGB < 0 {
				bad("recommended_vram_gb must be >= 0, got %.1f", *hr.RecommendedVRAMGB)
			}
			p.HardwareRequirements.RecommendedVRAMGB = *hr.RecommendedVRAMGB
		}
		if hr.MinGPUs != nil {
			if *hr.MinGPUs < 0 {
				bad("min_gpus must be >= 0, got %d", *hr.MinGPUs)
			}
			p.HardwareRequirements.MinGPUs = *hr.MinGPUs
		}
	}
	if len(errs) > 0 {
		return types.Profile{}, errors.Join(errs...)
	}
	return p, nil
}
