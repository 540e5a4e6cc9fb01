package types

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: profile not found: qwen-14b
	Error string `json:"error" example:"profile not found: qwen-14b"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// StatusResponse is returned by GET /models/status.
type StatusResponse struct {
	// Profile currently believed active, if any.
	// example: qwen-14b
	CurrentProfile string `json:"current_profile,omitempty" example:"qwen-14b"`
	// Orchestrator status: stopped, switching, running or error.
	// example: running
	Status string `json:"status" example:"running"`
	// Target of an in-flight switch.
	SwitchingTo string `json:"switching_to,omitempty"`
	// All known profiles keyed by id.
	AvailableProfiles map[string]Profile `json:"available_profiles"`
	// Profile ids in catalog order.
	ProfileOrder []string `json:"profile_order"`
	// Human-readable status message; carries the last error in error status.
	Message string `json:"message,omitempty"`
	// Hardware snapshot; absent when no probe data is available.
	HardwareInfo *HardwareSnapshot `json:"hardware_info,omitempty"`
	// True when HardwareInfo was served from the probe cache.
	HardwareCached bool `json:"hardware_cached,omitempty"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}

// ProfilesResponse is returned by GET /models/profiles.
type ProfilesResponse struct {
	Profiles       []Profile `json:"profiles"`
	CurrentProfile string    `json:"current_profile,omitempty"`
	DefaultProfile string    `json:"default_profile,omitempty"`
}

// SwitchRequest is the body of POST /models/switch.
type SwitchRequest struct {
	// example: qwen-14b
	ProfileID string `json:"profile_id" example:"qwen-14b"`
}

// SwitchResponse is returned by POST /models/switch.
type SwitchResponse struct {
	Success bool `json:"success"`
	// example: switching to Qwen 14B (R1 distill)
	Message        string `json:"message" example:"switching to Qwen 14B (R1 distill)"`
	CurrentProfile string `json:"current_profile,omitempty"`
	SwitchingTo    string `json:"switching_to,omitempty"`
	// Identifier of the background switch operation.
	OperationID string `json:"operation_id,omitempty"`
}

// ProfileCompatibility is one entry of a recommendation list.
type ProfileCompatibility struct {
	ProfileID   string `json:"profile_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Compatible  bool   `json:"compatible"`
	Reason      string `json:"reason,omitempty"`
}

// RecommendationsResponse is returned by GET /models/hardware-recommendations.
type RecommendationsResponse struct {
	CurrentHardware      HardwareSnapshot       `json:"current_hardware"`
	HardwareCached       bool                   `json:"hardware_cached,omitempty"`
	RecommendedProfiles  []ProfileCompatibility `json:"recommended_profiles"`
	CompatibleProfiles   []ProfileCompatibility `json:"compatible_profiles"`
	IncompatibleProfiles []ProfileCompatibility `json:"incompatible_profiles"`
}

// ReloadResponse is returned by POST /models/reload.
type ReloadResponse struct {
	Success  bool      `json:"success"`
	Message  string    `json:"message"`
	Profiles []Profile `json:"profiles"`
}
