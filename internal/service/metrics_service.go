package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/report-compliance-api/internal/models"
	"github.com/noah-isme/report-compliance-api/pkg/jobs"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	tablesLoad        *prometheus.HistogramVec
	dataIssues        *prometheus.GaugeVec
	exportJobs        *prometheus.CounterVec
	noticesDispatched prometheus.Counter

	queuesMu sync.RWMutex
	queues   map[string]func() jobs.Stats

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	tablesLoadCount      uint64
	tablesLoadTotal      uint64
	dataIssueCount       int64
	exportsFinished      uint64
	exportsFailed        uint64
	noticeCount          uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	tablesLoad := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "compliance_tables_load_seconds",
		Help:    "Time spent loading the schools, reports and submissions tables",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	dataIssues := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "compliance_data_issues",
		Help: "Integrity issues tolerated in the last loaded tables, by kind",
	}, []string{"kind"})

	exportJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "compliance_export_jobs_total",
		Help: "Compliance export jobs by format and outcome",
	}, []string{"format", "status"})

	noticesDispatched := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "overdue_notices_dispatched_total",
		Help: "Overdue notice emails handed to the dispatcher",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, tablesLoad, dataIssues, exportJobs, noticesDispatched, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		tablesLoad:        tablesLoad,
		dataIssues:        dataIssues,
		exportJobs:        exportJobs,
		noticesDispatched: noticesDispatched,
		queues:            make(map[string]func() jobs.Stats),
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveTablesLoad records how long loading the raw tables took; source is "cache" or "database".
func (m *MetricsService) ObserveTablesLoad(source string, duration time.Duration) {
	if m == nil {
		return
	}
	m.tablesLoad.WithLabelValues(source).Observe(duration.Seconds())
	atomic.AddUint64(&m.tablesLoadCount, 1)
	atomic.AddUint64(&m.tablesLoadTotal, uint64(duration.Nanoseconds()))
}

// SetDataIssues publishes the per-kind integrity issue counts of the latest load.
func (m *MetricsService) SetDataIssues(counts map[string]int) {
	if m == nil {
		return
	}
	m.dataIssues.Reset()
	total := 0
	for kind, n := range counts {
		m.dataIssues.WithLabelValues(kind).Set(float64(n))
		total += n
	}
	atomic.StoreInt64(&m.dataIssueCount, int64(total))
}

// RecordExportJob counts a finished or failed export.
func (m *MetricsService) RecordExportJob(format models.ExportFormat, status models.ExportStatus) {
	if m == nil {
		return
	}
	m.exportJobs.WithLabelValues(string(format), string(status)).Inc()
	switch status {
	case models.ExportStatusFinished:
		atomic.AddUint64(&m.exportsFinished, 1)
	case models.ExportStatusFailed:
		atomic.AddUint64(&m.exportsFailed, 1)
	}
}

// RecordNoticesDispatched counts notice emails handed off for delivery.
func (m *MetricsService) RecordNoticesDispatched(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.noticesDispatched.Add(float64(n))
	atomic.AddUint64(&m.noticeCount, uint64(n))
}

// TrackQueue exports a worker queue's counters under the queue label.
func (m *MetricsService) TrackQueue(name string, stats func() jobs.Stats) {
	if m == nil || stats == nil {
		return
	}
	labels := prometheus.Labels{"queue": name}
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name:        "job_queue_depth",
			Help:        "Jobs waiting for a worker",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().Depth) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "job_queue_processed_total",
			Help:        "Jobs handled without error",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().Processed) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "job_queue_failures_total",
			Help:        "Handler failures, retried or not",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().Failed) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Name:        "job_queue_dropped_total",
			Help:        "Jobs abandoned after exhausting retries",
			ConstLabels: labels,
		}, func() float64 { return float64(stats().GaveUp) }),
	)

	m.queuesMu.Lock()
	m.queues[name] = stats
	m.queuesMu.Unlock()
}

// Snapshot returns aggregated metrics suitable for API consumption.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	loads := atomic.LoadUint64(&m.tablesLoadCount)

	m.queuesMu.RLock()
	queues := make(map[string]jobs.Stats, len(m.queues))
	for name, stats := range m.queues {
		queues[name] = stats()
	}
	m.queuesMu.RUnlock()

	var cacheRatio float64
	if hits+misses > 0 {
		cacheRatio = float64(hits) / float64(hits+misses)
	}

	return models.SystemMetrics{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: averageMillis(atomic.LoadUint64(&m.requestDurationTotal), requests),
		TablesLoads:              loads,
		AverageTablesLoadMs:      averageMillis(atomic.LoadUint64(&m.tablesLoadTotal), loads),
		DataIssues:               int(atomic.LoadInt64(&m.dataIssueCount)),
		ExportsFinished:          atomic.LoadUint64(&m.exportsFinished),
		ExportsFailed:            atomic.LoadUint64(&m.exportsFailed),
		NoticesDispatched:        atomic.LoadUint64(&m.noticeCount),
		Queues:                   queues,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func averageMillis(totalNanos, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(totalNanos) / float64(count) / float64(time.Millisecond)
}
