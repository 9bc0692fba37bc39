package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dataset pipeline metrics.
var (
	FetchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labkit",
			Name:      "fetch_requests_total",
			Help:      "Total dataset downloads by outcome",
		},
		[]string{"dataset", "status"},
	)

	FetchBytesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labkit",
			Name:      "fetch_bytes_total",
			Help:      "Total bytes downloaded from dataset sources",
		},
		[]string{"dataset"},
	)

	ExtractRowsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labkit",
			Name:      "extract_rows_total",
			Help:      "Total table rows extracted",
		},
		[]string{"dataset"},
	)

	ExtractErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labkit",
			Name:      "extract_errors_total",
			Help:      "Total extraction failures",
		},
		[]string{"dataset", "error_type"},
	)

	BundleSavesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labkit",
			Name:      "bundle_saves_total",
			Help:      "Total bundle writes by sink and outcome",
		},
		[]string{"driver", "status"},
	)
)

// Chat gateway metrics.
var (
	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labkit",
			Name:      "chat_requests_total",
			Help:      "Total chat completion requests",
		},
		[]string{"model", "status"},
	)

	ChatRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "labkit",
			Name:      "chat_request_duration_seconds",
			Help:      "Chat completion duration in seconds, retries included",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"model"},
	)

	ChatTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labkit",
			Name:      "chat_tokens_total",
			Help:      "Total chat tokens consumed",
		},
		[]string{"model", "type"},
	)

	ChatRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "labkit",
			Name:      "chat_retries_total",
			Help:      "Total HTTP retries issued by the gateway client",
		},
		[]string{"model"},
	)
)

var registerOnce sync.Once

// Register registers all collectors with the default registry. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			FetchRequestsTotal, FetchBytesTotal,
			ExtractRowsTotal, ExtractErrorsTotal,
			BundleSavesTotal,
			ChatRequestsTotal, ChatRequestDuration, ChatTokensTotal, ChatRetriesTotal,
			httpRequestDuration, httpRequestsTotal,
		)
	})
}

// Serve starts a scrape endpoint for one-shot commands.
func Serve(addr string, onError func(error)) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed && onError != nil {
			onError(err)
		}
	}()

	return srv
}
