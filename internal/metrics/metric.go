// Package metrics exposes prometheus collectors for transaction builds.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Build outcome labels.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

func fqn(name string) string {
	return prometheus.BuildFQName("ordinals", "builder", name)
}

var (
	BuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: fqn("builds_total"),
			Help: "Transaction builds by operation and outcome",
		},
		[]string{"op", "status"},
	)

	FundingInputs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fqn("funding_inputs"),
			Help:    "Payment inputs appended by the funding loop per successful build",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 100},
		},
		[]string{"op"},
	)

	FeeSatoshis = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    fqn("fee_satoshis"),
			Help:    "Fee paid per successful build",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		},
		[]string{"op"},
	)
)

// ObserveBuild records the outcome of one builder call. Inputs and fee are
// only observed for successful builds.
func ObserveBuild(op string, err error, inputs int, fee uint64) {
	if err != nil {
		BuildsTotal.WithLabelValues(op, StatusError).Inc()
		return
	}
	BuildsTotal.WithLabelValues(op, StatusOK).Inc()
	FundingInputs.WithLabelValues(op).Observe(float64(inputs))
	FeeSatoshis.WithLabelValues(op).Observe(float64(fee))
}

// Register adds the build collectors to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{BuildsTotal, FundingInputs, FeeSatoshis} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// WriteTextfile dumps every collector in the default registry to path in
// the node exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}

func init() {
	prometheus.MustRegister(BuildsTotal, FundingInputs, FeeSatoshis)
}
