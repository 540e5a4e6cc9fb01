// Package manager orchestrates which workload profile is active on the host.
// It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, Close and simple getters.
//   - config.go: ManagerConfig, collaborator interfaces and package defaults.
//   - types.go: State and the Snapshot projection.
//   - errors.go: error types and helpers (IsProfileNotFound, IsSwitchInProgress, ...).
//   - switch.go: the synchronous profile transition (SwitchProfile).
//   - ops.go: the asynchronous Switch used by the HTTP layer.
//   - status_report.go: Status, which reconciles believed state with the endpoint.
//   - recommend.go, reload.go: hardware recommendations and catalog reload.
//   - events.go, eventpub_memory.go: lifecycle events.
//   - metrics.go: prometheus collectors.
//
// Blocking work (hardware probe, workload control, endpoint listing) never
// runs under the manager mutex. A single switching guard, claimed under the
// mutex, keeps at most one transition in flight.
package manager
