// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Indexer metrics
	IndexerQueryLatency *prometheus.HistogramVec
	IndexerQueryErrors  *prometheus.CounterVec

	// Chain metrics
	RPCCallLatency *prometheus.HistogramVec
	RPCCallErrors  *prometheus.CounterVec
	HighestBlock   prometheus.Gauge

	// Gateway metrics
	GatewayFetchLatency prometheus.Histogram
	GatewayFetchErrors  *prometheus.CounterVec

	// Storefront metrics
	PageRenders   *prometheus.CounterVec
	CardFallbacks *prometheus.CounterVec

	// Mint metrics
	MintSubmissions *prometheus.CounterVec
	MintResolutions *prometheus.CounterVec
	PendingMints    prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "record_storefront"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		IndexerQueryLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "query_latency_seconds",
			Help:      "GraphQL indexer query latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"query"}),
		IndexerQueryErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "query_errors_total",
			Help:      "Total number of failed indexer queries",
		}, []string{"query"}),

		RPCCallLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_latency_seconds",
			Help:      "JSON-RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		RPCCallErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "rpc_call_errors_total",
			Help:      "Total number of failed JSON-RPC calls",
		}, []string{"method"}),
		HighestBlock: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "highest_block_seen",
			Help:      "Highest block number seen by the head subscription",
		}),

		GatewayFetchLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "fetch_latency_seconds",
			Help:      "IPFS gateway metadata fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
		GatewayFetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gateway",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed gateway fetches by reason",
		}, []string{"reason"}),

		PageRenders: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storefront",
			Name:      "page_renders_total",
			Help:      "Total number of rendered pages by page and view state",
		}, []string{"page", "state"}),
		CardFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storefront",
			Name:      "card_fallbacks_total",
			Help:      "Total number of record cards that fell back to the static image",
		}, []string{"kind"}),

		MintSubmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "submissions_total",
			Help:      "Total number of mint submissions by outcome",
		}, []string{"outcome"}),
		MintResolutions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "resolutions_total",
			Help:      "Total number of submitted mints resolved by receipt status",
		}, []string{"status"}),
		PendingMints: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "mint",
			Name:      "awaiting_signature",
			Help:      "Number of mint submissions currently awaiting a signature",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("", nil)

// RecordIndexerQuery records indexer query latency and failures.
func RecordIndexerQuery(query string, seconds float64, err error) {
	DefaultMetrics.IndexerQueryLatency.WithLabelValues(query).Observe(seconds)
	if err != nil {
		DefaultMetrics.IndexerQueryErrors.WithLabelValues(query).Inc()
	}
}

// RecordRPCCall records JSON-RPC call latency and failures.
func RecordRPCCall(method string, seconds float64, err error) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
	if err != nil {
		DefaultMetrics.RPCCallErrors.WithLabelValues(method).Inc()
	}
}

// UpdateHighestBlock updates the highest block seen gauge.
func UpdateHighestBlock(block uint64) {
	DefaultMetrics.HighestBlock.Set(float64(block))
}

// RecordGatewayFetch records a gateway fetch. An empty reason means success.
func RecordGatewayFetch(seconds float64, reason string) {
	DefaultMetrics.GatewayFetchLatency.Observe(seconds)
	if reason != "" {
		DefaultMetrics.GatewayFetchErrors.WithLabelValues(reason).Inc()
	}
}

// RecordPageRender counts a rendered page in the given view state.
func RecordPageRender(page, state string) {
	DefaultMetrics.PageRenders.WithLabelValues(page, state).Inc()
}

// RecordCardFallback counts a card that showed the fallback image.
func RecordCardFallback(kind string) {
	DefaultMetrics.CardFallbacks.WithLabelValues(kind).Inc()
}

// RecordMintSubmission counts a mint submission outcome.
func RecordMintSubmission(outcome string) {
	DefaultMetrics.MintSubmissions.WithLabelValues(outcome).Inc()
}

// RecordMintResolution counts a submitted mint resolved by its receipt.
func RecordMintResolution(status string) {
	DefaultMetrics.MintResolutions.WithLabelValues(status).Inc()
}

// SetPendingMints sets the number of mints awaiting signature.
func SetPendingMints(n int) {
	DefaultMetrics.PendingMints.Set(float64(n))
}
