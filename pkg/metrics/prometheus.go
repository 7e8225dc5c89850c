// Package metrics provides Prometheus metrics for the scrape and export pipeline.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values shared with callers.
const (
	CacheHit  = "hit"
	CacheMiss = "miss"
	CacheSkip = "skip"

	FlattenOK      = "ok"
	FlattenSkipped = "skipped"

	StageLeague   = "league"
	StageSummoner = "summoner"
	StageMatchIDs = "match_ids"
	StageMatch    = "match"
)

// Manager owns every Prometheus collector of the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         *prometheus.Registry

	// Cache
	cacheLookups *prometheus.CounterVec
	cacheWrites  *prometheus.CounterVec
	cachePurged  prometheus.Counter

	// Upstream API
	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	// Crawler
	crawlSummoners prometheus.Counter
	crawlMatchIDs  prometheus.Counter
	crawlFailures  *prometheus.CounterVec

	// Export and load
	flattenFiles *prometheus.CounterVec
	tableRows    *prometheus.GaugeVec

	lastRun *prometheus.GaugeVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry without default Go collectors

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager. Collectors are registered on the
// configured registry, a private one unless WithPrometheusRegistry is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tft",
		subsystem:        "pipeline",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.cacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cache_lookups_total",
		Help:        "Response cache lookups by partition and result (hit, miss, skip)",
		ConstLabels: m.constLabels,
	}, []string{"partition", "result"})

	m.cacheWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cache_writes_total",
		Help:        "Responses written to the cache by partition",
		ConstLabels: m.constLabels,
	}, []string{"partition"})

	m.cachePurged = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "cache_purged_total",
		Help:        "Cache entries removed by purge",
		ConstLabels: m.constLabels,
	})

	m.upstreamRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "upstream_requests_total",
		Help:        "Upstream API requests by partition and HTTP status (\"error\" for transport failures)",
		ConstLabels: m.constLabels,
	}, []string{"partition", "status"})

	m.upstreamLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "upstream_request_duration_seconds",
		Help:        "Upstream API request latency in seconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"partition"})

	m.crawlSummoners = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "crawl_summoners_total",
		Help:        "Summoners visited by the crawler",
		ConstLabels: m.constLabels,
	})

	m.crawlMatchIDs = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "crawl_match_ids_total",
		Help:        "Match ids discovered by the crawler",
		ConstLabels: m.constLabels,
	})

	m.crawlFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "crawl_failures_total",
		Help:        "Crawler failures by stage (league, summoner, match_ids, match)",
		ConstLabels: m.constLabels,
	}, []string{"stage"})

	m.flattenFiles = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "flatten_files_total",
		Help:        "Cached match files flattened, by result (ok, skipped)",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.tableRows = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "table_rows",
		Help:        "Rows in the last written or loaded table",
		ConstLabels: m.constLabels,
	}, []string{"table"})

	m.lastRun = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "last_run_timestamp_seconds",
		Help:        "Unix time a command last finished",
		ConstLabels: m.constLabels,
	}, []string{"command"})
}

// RecordCacheLookup counts a cache lookup outcome.
func (m *Manager) RecordCacheLookup(partition, result string) {
	m.cacheLookups.WithLabelValues(partition, result).Inc()
}

// RecordCacheWrite counts a cache write.
func (m *Manager) RecordCacheWrite(partition string) {
	m.cacheWrites.WithLabelValues(partition).Inc()
}

// RecordCachePurged adds n purged entries.
func (m *Manager) RecordCachePurged(n int) {
	m.cachePurged.Add(float64(n))
}

// RecordUpstreamRequest counts an upstream call and observes its latency.
func (m *Manager) RecordUpstreamRequest(partition string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = fmt.Sprintf("%d", status)
	}
	m.upstreamRequests.WithLabelValues(partition, label).Inc()
	m.upstreamLatency.WithLabelValues(partition).Observe(elapsed.Seconds())
}

// RecordSummoner counts a visited summoner.
func (m *Manager) RecordSummoner() {
	m.crawlSummoners.Inc()
}

// RecordMatchIDs adds discovered match ids.
func (m *Manager) RecordMatchIDs(n int) {
	m.crawlMatchIDs.Add(float64(n))
}

// RecordCrawlFailure counts a crawler failure at stage.
func (m *Manager) RecordCrawlFailure(stage string) {
	m.crawlFailures.WithLabelValues(stage).Inc()
}

// RecordFlattenFile counts a flattened or skipped cache file.
func (m *Manager) RecordFlattenFile(result string) {
	m.flattenFiles.WithLabelValues(result).Inc()
}

// UpdateTableRows sets the row count of a table.
func (m *Manager) UpdateTableRows(table string, rows int) {
	m.tableRows.WithLabelValues(table).Set(float64(rows))
}

// MarkRun stamps the completion time of a command.
func (m *Manager) MarkRun(command string, at time.Time) {
	m.lastRun.WithLabelValues(command).Set(float64(at.Unix()))
}

// Registry returns the registry the manager's collectors live on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Package-level helpers bound to the global manager.

// RecordCacheLookup counts a cache lookup outcome.
func RecordCacheLookup(partition, result string) { globalManager.RecordCacheLookup(partition, result) }

// RecordCacheWrite counts a cache write.
func RecordCacheWrite(partition string) { globalManager.RecordCacheWrite(partition) }

// RecordCachePurged adds n purged entries.
func RecordCachePurged(n int) { globalManager.RecordCachePurged(n) }

// RecordUpstreamRequest counts an upstream call and observes its latency.
func RecordUpstreamRequest(partition string, status int, elapsed time.Duration) {
	globalManager.RecordUpstreamRequest(partition, status, elapsed)
}

// RecordSummoner counts a visited summoner.
func RecordSummoner() { globalManager.RecordSummoner() }

// RecordMatchIDs adds discovered match ids.
func RecordMatchIDs(n int) { globalManager.RecordMatchIDs(n) }

// RecordCrawlFailure counts a crawler failure at stage.
func RecordCrawlFailure(stage string) { globalManager.RecordCrawlFailure(stage) }

// RecordFlattenFile counts a flattened or skipped cache file.
func RecordFlattenFile(result string) { globalManager.RecordFlattenFile(result) }

// UpdateTableRows sets the row count of a table.
func UpdateTableRows(table string, rows int) { globalManager.UpdateTableRows(table, rows) }

// MarkRun stamps the completion time of a command.
func MarkRun(command string) { globalManager.MarkRun(command, time.Now()) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// Handler serves the custom registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(customRegistry, promhttp.HandlerOpts{})
}

// WriteTextfile dumps the custom registry to path for the node_exporter
// textfile collector. The write is atomic.
func WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, customRegistry); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrWriteTextfile, path, err)
	}
	return nil
}
