package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultHit     = "hit"
	ResultMiss    = "miss"
)

var (
	// Membership metrics
	MemberMutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairmeasure_member_mutations_total",
			Help: "Total number of roster mutations by operation and result",
		},
		[]string{"operation", "result"},
	)

	UserSearchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairmeasure_user_searches_total",
			Help: "Total number of user directory searches by cache result",
		},
		[]string{"cache"},
	)

	RealtimeBroadcastsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "fairmeasure_realtime_broadcasts_total",
			Help: "Total number of membership events broadcast to websocket rooms",
		},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fairmeasure_api_requests_total",
			Help: "Total number of API requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fairmeasure_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func init() {
	prometheus.MustRegister(MemberMutationsTotal)
	prometheus.MustRegister(UserSearchesTotal)
	prometheus.MustRegister(RealtimeBroadcastsTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveMutation записывает исход операции над составом.
func ObserveMutation(operation string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	MemberMutationsTotal.WithLabelValues(operation, result).Inc()
}

// Middleware считает запросы по шаблону маршрута chi, а не по сырому пути,
// чтобы идентификаторы не раздували кардинальность.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		APIRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		APIRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
