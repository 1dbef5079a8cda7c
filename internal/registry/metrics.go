package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricUnread = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "unreadmail_unread_messages",
			Help: "Last known number of unseen messages per account.",
		},
		[]string{"account"},
	)
	metricPrepare = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unreadmail_account_prepare_total",
			Help: "Account preparations by result: ok, auth, no_password, error.",
		},
		[]string{"result"},
	)
)
