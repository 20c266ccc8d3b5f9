package execution

import "github.com/prometheus/client_golang/prometheus"

var (
	executed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tonroute_executions_total",
		Help: "Number of quotes settled on chain.",
	})
	slippageRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tonroute_slippage_rejections_total",
		Help: "Number of executions rejected by the slippage gate.",
	})
	settlementFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tonroute_settlement_failures_total",
		Help: "Number of consumed quotes whose settlement failed or timed out.",
	})
)

func init() {
	prometheus.MustRegister(executed, slippageRejections, settlementFailures)
}
