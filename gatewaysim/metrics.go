package gatewaysim

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	registry    *prometheus.Registry
	submissions *prometheus.CounterVec
	retrievals  *prometheus.CounterVec
	blobBytes   prometheus.Counter
	epoch       prometheus.Gauge
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radup_gatewaysim_submissions_total",
				Help: "Transaction submissions by outcome",
			},
			[]string{"result"},
		),
		retrievals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "radup_gatewaysim_retrievals_total",
				Help: "get_file calls by outcome",
			},
			[]string{"result"},
		),
		blobBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "radup_gatewaysim_stored_bytes_total",
			Help: "Bytes of file content committed",
		}),
		epoch: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "radup_gatewaysim_epoch",
			Help: "Current simulated epoch",
		}),
	}
	m.registry.MustRegister(m.submissions, m.retrievals, m.blobBytes, m.epoch)
	return m
}
