package api

import "github.com/prometheus/client_golang/prometheus"

var (
	routesFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tonroute_routes_found_total",
		Help: "Number of quote requests for which a route was found.",
	})
	routesMissed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tonroute_routes_missed_total",
		Help: "Number of quote requests for which no route exists.",
	})
)

func init() {
	prometheus.MustRegister(routesFound, routesMissed)
}
