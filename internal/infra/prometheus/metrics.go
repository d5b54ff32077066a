package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Domain counters exposed on /metrics. Registered once at init via promauto.
var (
	ScansRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrgenerator_scans_recorded_total",
		Help: "Scan events successfully recorded.",
	})

	ScanRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "qrgenerator_scan_rejections_total",
		Help: "Resolutions rejected by policy, by reason.",
	}, []string{"reason"})

	CodesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "qrgenerator_codes_created_total",
		Help: "QR codes registered.",
	})
)
