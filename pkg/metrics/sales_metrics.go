// Package metrics holds the Prometheus collectors of the sales server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sales"

// Registry is the registry served on /metrics.
var Registry = prometheus.NewRegistry()

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by route and status class",
		},
		[]string{"method", "route", "status"},
	)

	httpLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	chatTurns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Chat turns by mode and primary emotion",
		},
		[]string{"mode", "emotion"},
	)

	salesStages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "sales_stage_total",
			Help:      "Chat turns by derived sales stage",
		},
		[]string{"stage"},
	)

	llmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Language model call latency",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
		},
		[]string{"outcome"},
	)

	llmFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "fallback_total",
			Help:      "Replies served from the templated fallback",
		},
	)

	tokensDebited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "tokens_debited_total",
			Help:      "Tokens debited by transaction type",
		},
		[]string{"type"},
	)

	paymentRequired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "insufficient_total",
			Help:      "Paid actions refused for insufficient balance",
		},
		[]string{"type"},
	)

	leadsCaptured = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "leads",
			Name:      "captured_total",
			Help:      "Leads extracted and stored from chat messages",
		},
	)

	memoryPrunes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "memory",
			Name:      "prune_total",
			Help:      "Chat histories pruned after exceeding the memory ceiling",
		},
	)

	catalogCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "cache_total",
			Help:      "Catalog cache lookups by result",
		},
		[]string{"result"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests, httpLatency,
		chatTurns, salesStages,
		llmLatency, llmFallbacks,
		tokensDebited, paymentRequired,
		leadsCaptured, memoryPrunes, catalogCache,
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// ChatTurn records a completed chat turn.
func ChatTurn(demo bool, emotion, stage string) {
	mode := "live"
	if demo {
		mode = "demo"
	}
	chatTurns.WithLabelValues(mode, emotion).Inc()
	salesStages.WithLabelValues(stage).Inc()
}

// LLMCall records the latency of a language model call.
func LLMCall(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	llmLatency.WithLabelValues(outcome).Observe(d.Seconds())
}

// LLMFallback counts a templated fallback reply.
func LLMFallback() { llmFallbacks.Inc() }

// TokensDebited counts tokens taken from a balance.
func TokensDebited(txType string, amount int64) {
	tokensDebited.WithLabelValues(txType).Add(float64(amount))
}

// PaymentRequired counts a refused paid action.
func PaymentRequired(txType string) { paymentRequired.WithLabelValues(txType).Inc() }

// LeadCaptured counts a stored lead.
func LeadCaptured() { leadsCaptured.Inc() }

// MemoryPruned counts a history prune.
func MemoryPruned() { memoryPrunes.Inc() }

// CatalogCache counts a catalog cache hit or miss.
func CatalogCache(hit bool) {
	if hit {
		catalogCache.WithLabelValues("hit").Inc()
		return
	}
	catalogCache.WithLabelValues("miss").Inc()
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
