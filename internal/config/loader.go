// Package config loads the daemon configuration file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Backends accepted in Config.Backend.
const (
	BackendCompose = "compose"
	BackendProcess = "process"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	ProfilesPath string `json:"profiles_path" yaml:"profiles_path" toml:"profiles_path"`
	Backend      string `json:"backend" yaml:"backend" toml:"backend"`

	EndpointURL     string `json:"endpoint_url" yaml:"endpoint_url" toml:"endpoint_url"`
	EndpointAPIKey  string `json:"endpoint_api_key" yaml:"endpoint_api_key" toml:"endpoint_api_key"`
	EndpointRetries int    `json:"endpoint_retries" yaml:"endpoint_retries" toml:"endpoint_retries"`

	ReadyTimeoutSeconds  int `json:"ready_timeout_seconds" yaml:"ready_timeout_seconds" toml:"ready_timeout_seconds"`
	ReadyIntervalSeconds int `json:"ready_interval_seconds" yaml:"ready_interval_seconds" toml:"ready_interval_seconds"`
	StatusTimeoutSeconds int `json:"status_timeout_seconds" yaml:"status_timeout_seconds" toml:"status_timeout_seconds"`
	StopGraceSeconds     int `json:"stop_grace_seconds" yaml:"stop_grace_seconds" toml:"stop_grace_seconds"`

	Compose  ComposeConfig  `json:"compose" yaml:"compose" toml:"compose"`
	Process  ProcessConfig  `json:"process" yaml:"process" toml:"process"`
	Hardware HardwareConfig `json:"hardware" yaml:"hardware" toml:"hardware"`
	CORS     CORSConfig     `json:"cors" yaml:"cors" toml:"cors"`

	MaxBodyBytes int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
}

type ComposeConfig struct {
	File       string `json:"file" yaml:"file" toml:"file"`
	ProjectDir string `json:"project_dir" yaml:"project_dir" toml:"project_dir"`
	Service    string `json:"service" yaml:"service" toml:"service"`
	DockerBin  string `json:"docker_bin" yaml:"docker_bin" toml:"docker_bin"`
}

type ProcessConfig struct {
	Bin       string   `json:"bin" yaml:"bin" toml:"bin"`
	Host      string   `json:"host" yaml:"host" toml:"host"`
	Port      int      `json:"port" yaml:"port" toml:"port"`
	ExtraArgs []string `json:"extra_args" yaml:"extra_args" toml:"extra_args"`
}

type HardwareConfig struct {
	SMIBin string `json:"smi_bin" yaml:"smi_bin" toml:"smi_bin"`
	// DisableContainerProbe turns off the docker nvidia-smi fallback.
	DisableContainerProbe bool   `json:"disable_container_probe" yaml:"disable_container_probe" toml:"disable_container_probe"`
	CUDAImage             string `json:"cuda_image" yaml:"cuda_image" toml:"cuda_image"`
	TimeoutSeconds        int    `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
}

type CORSConfig struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
