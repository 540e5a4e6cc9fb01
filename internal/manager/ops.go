package manager

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"profiled/pkg/types"
)

// Switch validates and claims the transition synchronously, then runs it in
// the background bound to the manager lifetime. Callers poll Status to
// observe progress. Errors are those of SwitchProfile's validation steps.
func (m *Manager) Switch(ctx context.Context, id string) (types.SwitchResponse, error) {
	p, noop, err := m.begin(ctx, id)
	if err != nil {
		return types.SwitchResponse{Success: false, Message: err.Error(), CurrentProfile: m.Snapshot().CurrentProfile}, err
	}
	if noop {
		return types.SwitchResponse{
			Success:        true,
			Message:        fmt.Sprintf("profile %s is already active", id),
			CurrentProfile: id,
		}, nil
	}
	opID := uuid.NewString()
	cur := m.Snapshot().CurrentProfile
	// Background work must survive the request; Close still aborts it.
	bg := context.WithoutCancel(ctx)
	go func() {
		_ = m.execute(bg, p, opID)
	}()
	name := p.Name
	if name == "" {
		name = p.ID
	}
	return types.SwitchResponse{
		Success:        true,
		Message:        "switching to " + name,
		CurrentProfile: cur,
		SwitchingTo:    p.ID,
		OperationID:    opID,
	}, nil
}
