package manager

// State is the lifecycle state of the managed workload.
type State string

const (
	StateStopped   State = "stopped"
	StateSwitching State = "switching"
	StateRunning   State = "running"
	StateError     State = "error"
)

var allStates = []State{StateStopped, StateSwitching, StateRunning, StateError}

// errSource records what put the manager into StateError; it decides what
// clears it.
type errSource int

const (
	errNone errSource = iota
	errSwitch
	errProbe
)

// Snapshot is a read-only projection of the manager state.
type Snapshot struct {
	State          State
	CurrentProfile string
	SwitchingTo    string
	Err            string
}
