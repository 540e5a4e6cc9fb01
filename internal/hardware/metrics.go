package hardware

import "github.com/prometheus/client_golang/prometheus"

var probeTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "profiled",
		Subsystem: "hardware",
		Name:      "probe_total",
		Help:      "Hardware probe attempts by source and result",
	},
	[]string{"source", "result"},
)

func init() {
	prometheus.MustRegister(probeTotal)
}
