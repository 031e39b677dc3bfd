package dumper

import "github.com/prometheus/client_golang/prometheus"

const (
	resultDumped  = "dumped"
	resultSkipped = "skipped"
	resultFailed  = "failed"
)

type Metrics struct {
	Modules       *prometheus.CounterVec
	StageFailures *prometheus.CounterVec
	CapturedBytes prometheus.Counter
}

// NewMetrics creates the run counters and registers them on reg unless it is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Modules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moddump_modules_total",
			Help: "Total number of configured modules processed, by result",
		}, []string{"result"}),
		StageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moddump_stage_failures_total",
			Help: "Total number of module dumps that failed, by the stage that failed",
		}, []string{"stage"}),
		CapturedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "moddump_captured_bytes_total",
			Help: "Total number of bytes read out of the target process",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Modules,
			m.StageFailures,
			m.CapturedBytes,
		)
	}
	return m
}
