package scheduler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var metricProbe = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "unreadmail_probe_duration_seconds",
		Help:    "Duration of unread count probes by result.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	},
	[]string{"result"},
)
