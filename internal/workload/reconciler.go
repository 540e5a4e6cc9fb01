package workload

import (
	"context"
	"time"

	"profiled/pkg/types"
)

const DefaultReconcileTimeout = 3 * time.Second

// Reconciliation is the observed workload state.
type Reconciliation struct {
	Running bool
	Models  []types.ModelRef
	Err     error
}

// Reconciler observes whether the workload is serving.
type Reconciler struct {
	lister  ModelLister
	timeout time.Duration
}

func NewReconciler(l ModelLister, timeout time.Duration) *Reconciler {
	if timeout <= 0 {
		timeout = DefaultReconcileTimeout
	}
	return &Reconciler{lister: l, timeout: timeout}
}

// Reconcile lists models with a short deadline. Listing failure or an empty
// listing reports Running=false.
func (r *Reconciler) Reconcile(ctx context.Context) Reconciliation {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	models, err := r.lister.ListModels(ctx)
	if err != nil {
		return Reconciliation{Err: err}
	}
	return Reconciliation{Running: len(models) > 0, Models: models}
}
