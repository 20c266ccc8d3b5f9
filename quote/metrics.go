package quote

import "github.com/prometheus/client_golang/prometheus"

var (
	quotesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tonroute_quotes_created_total",
		Help: "Number of quotes issued.",
	})
	quotesConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tonroute_quotes_consumed_total",
		Help: "Number of quotes consumed for execution.",
	})
	quotesSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tonroute_quotes_swept_total",
		Help: "Number of expired quote records reclaimed.",
	})
	quotesLive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tonroute_quotes_live",
		Help: "Number of quote records currently held.",
	})
)

func init() {
	prometheus.MustRegister(quotesCreated, quotesConsumed, quotesSwept, quotesLive)
}
