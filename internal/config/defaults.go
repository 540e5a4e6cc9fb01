package config

import (
	"fmt"
	"strings"
)

// Defaults filled in by WithDefaults.
const (
	DefaultAddr                 = ":8080"
	DefaultProfilesPath         = "config/model_profiles.yaml"
	DefaultEndpointURL          = "http://localhost:8000"
	DefaultReadyTimeoutSeconds  = 300
	DefaultReadyIntervalSeconds = 5
	DefaultStatusTimeoutSeconds = 3
	DefaultStopGraceSeconds     = 5
	DefaultHardwareTimeout      = 30
)

// WithDefaults returns a copy of c with unset fields filled in.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.ProfilesPath == "" {
		c.ProfilesPath = DefaultProfilesPath
	}
	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	if c.Backend == "" {
		c.Backend = BackendCompose
	}
	if c.EndpointURL == "" {
		c.EndpointURL = DefaultEndpointURL
	}
	if c.ReadyTimeoutSeconds <= 0 {
		c.ReadyTimeoutSeconds = DefaultReadyTimeoutSeconds
	}
	if c.ReadyIntervalSeconds <= 0 {
		c.ReadyIntervalSeconds = DefaultReadyIntervalSeconds
	}
	if c.StatusTimeoutSeconds <= 0 {
		c.StatusTimeoutSeconds = DefaultStatusTimeoutSeconds
	}
	if c.StopGraceSeconds <= 0 {
		c.StopGraceSeconds = DefaultStopGraceSeconds
	}
	if c.Compose.Service == "" {
		c.Compose.Service = "vllm"
	}
	if c.Compose.DockerBin == "" {
		c.Compose.DockerBin = "docker"
	}
	if c.Process.Bin == "" {
		c.Process.Bin = "vllm"
	}
	if c.Process.Host == "" {
		c.Process.Host = "127.0.0.1"
	}
	if c.Process.Port == 0 {
		c.Process.Port = 8000
	}
	if c.Hardware.SMIBin == "" {
		c.Hardware.SMIBin = "nvidia-smi"
	}
	if c.Hardware.CUDAImage == "" {
		c.Hardware.CUDAImage = "nvidia/cuda:12.1-runtime-ubuntu22.04"
	}
	if c.Hardware.TimeoutSeconds <= 0 {
		c.Hardware.TimeoutSeconds = DefaultHardwareTimeout
	}
	return c
}

// Validate reports settings WithDefaults cannot repair.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendCompose, BackendProcess:
	default:
		return fmt.Errorf("unknown backend %q (want %s or %s)", c.Backend, BackendCompose, BackendProcess)
	}
	if c.EndpointRetries < 0 {
		return fmt.Errorf("endpoint_retries must be >= 0, got %d", c.EndpointRetries)
	}
	if c.Process.Port < 0 || c.Process.Port > 65535 {
		return fmt.Errorf("process.port out of range: %d", c.Process.Port)
	}
	return nil
}
