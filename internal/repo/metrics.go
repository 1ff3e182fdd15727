package repo

import "github.com/prometheus/client_golang/prometheus"

var (
	// tenantStoresOpen gauges the number of cached tenant stores (open pools).
	tenantStoresOpen = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "slowpoke_tenant_stores_open",
			Help: "Number of tenant stores currently open.",
		},
	)

	// tenantStoresCreated counts successful store creations.
	tenantStoresCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "slowpoke_tenant_stores_created_total",
			Help: "Total number of tenant stores opened since start.",
		},
	)
)

func init() {
	prometheus.MustRegister(tenantStoresOpen, tenantStoresCreated)
}
