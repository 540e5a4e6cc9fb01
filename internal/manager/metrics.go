package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	switchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "profiled",
			Name:      "switch_total",
			Help:      "Profile switch attempts by result",
		},
		[]string{"result"},
	)
	switchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "profiled",
			Name:      "switch_duration_seconds",
			Help:      "Duration of profile transitions from stop to ready or failure",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)
	managerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "profiled",
			Name:      "manager_state",
			Help:      "1 for the current manager state, 0 otherwise",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(switchTotal, switchDuration, managerState)
}

func setStateGauge(s State) {
	for _, st := range allStates {
		v := 0.0
		if st == s {
			v = 1
		}
		managerState.WithLabelValues(string(st)).Set(v)
	}
}
