package bot

import "github.com/prometheus/client_golang/prometheus"

var (
	// updates counts inbound messages by route (command|forward|link|ignored).
	updates = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slowpoke_updates_total",
			Help: "Inbound Telegram messages by handling route.",
		},
		[]string{"route"},
	)

	repliesThrottled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "slowpoke_replies_throttled_total",
			Help: "Duplicate replies dropped by the per-chat limiter.",
		},
	)
)

func init() {
	prometheus.MustRegister(updates, repliesThrottled)
}
