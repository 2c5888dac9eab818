package models

import (
	"time"

	"github.com/noah-isme/report-compliance-api/pkg/jobs"
)

// SystemMetrics is a point-in-time snapshot of the service's instrumentation.
type SystemMetrics struct {
	CacheHitRatio            float64               `json:"cache_hit_ratio"`
	CacheHits                uint64                `json:"cache_hits"`
	CacheMisses              uint64                `json:"cache_misses"`
	RequestsTotal            uint64                `json:"requests_total"`
	AverageRequestDurationMs float64               `json:"average_request_duration_ms"`
	TablesLoads              uint64                `json:"tables_loads"`
	AverageTablesLoadMs      float64               `json:"average_tables_load_ms"`
	DataIssues               int                   `json:"data_issues"`
	ExportsFinished          uint64                `json:"exports_finished"`
	ExportsFailed            uint64                `json:"exports_failed"`
	NoticesDispatched        uint64                `json:"notices_dispatched"`
	Queues                   map[string]jobs.Stats `json:"queues"`
	Goroutines               int                   `json:"goroutines"`
	GeneratedAt              time.Time             `json:"generated_at"`
}
