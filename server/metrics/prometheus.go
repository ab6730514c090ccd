package metrics

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const MetricsPath = "/prometheus"

var totalRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Number of requests",
	}, []string{"path", "method"})

var responseStatus = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "response_status",
		Help: "Status of HTTP response",
	},
	[]string{"status"},
)

var httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name: "http_response_time_seconds",
	Help: "Duration of HTTP requests.",
}, []string{"path"})

// PrometheusMiddleware counts requests by route template, so /api/benchmarks/{group}/run is one series.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := routeTemplate(r)
		timer := prometheus.NewTimer(httpDuration.WithLabelValues(path))
		ww := newStatusWriter(w)

		next.ServeHTTP(ww, r)

		timer.ObserveDuration()
		totalRequests.WithLabelValues(path, r.Method).Inc()
		responseStatus.WithLabelValues(strconv.Itoa(ww.status)).Inc()
	})
}

func RegisterDefaultMetrics() {
	RegisterMetrics(prometheus.DefaultRegisterer)
}

// RegisterMetrics registers the http collectors, ignoring ones already registered.
func RegisterMetrics(reg prometheus.Registerer) {
	for _, c := range []prometheus.Collector{totalRequests, responseStatus, httpDuration} {
		_ = reg.Register(c)
	}
}

func AddMetricsEndpoint(router *mux.Router) {
	router.Path(MetricsPath).Handler(promhttp.Handler())
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
