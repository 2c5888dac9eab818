package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/report-compliance-api/internal/compliance"
	"github.com/noah-isme/report-compliance-api/internal/models"
	appErrors "github.com/noah-isme/report-compliance-api/pkg/errors"
)

const (
	tablesCacheKey     = "compliance:tables"
	tablesCachePattern = "compliance:*"
)

type schoolTable interface {
	ListAll(ctx context.Context) ([]models.School, error)
}

type reportTable interface {
	ListAll(ctx context.Context) ([]models.Report, error)
}

type submissionTable interface {
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
}

// TablesService loads the three raw tables every compliance view is derived from.
// Only the raw rows are cached; statuses are recomputed against the current date on every read.
type TablesService struct {
	schools     schoolTable
	reports     reportTable
	submissions submissionTable
	cache       *CacheService
	metrics     *MetricsService
	logger      *zap.Logger
	ttl         time.Duration
}

// TablesServiceParams groups constructor dependencies.
type TablesServiceParams struct {
	Schools     schoolTable
	Reports     reportTable
	Submissions submissionTable
	Cache       *CacheService
	Metrics     *MetricsService
	Logger      *zap.Logger
	CacheTTL    time.Duration
}

// NewTablesService constructs a TablesService.
func NewTablesService(params TablesServiceParams) *TablesService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TablesService{
		schools:     params.Schools,
		reports:     params.Reports,
		submissions: params.Submissions,
		cache:       params.Cache,
		metrics:     params.Metrics,
		logger:      logger,
		ttl:         params.CacheTTL,
	}
}

// Load returns the current tables and whether they came from the cache.
func (s *TablesService) Load(ctx context.Context) (compliance.Tables, bool, error) {
	start := time.Now()
	var cached compliance.Tables
	if s.cache.Get(ctx, tablesCacheKey, &cached) {
		s.metrics.ObserveTablesLoad("cache", time.Since(start))
		return cached, true, nil
	}

	schools, err := s.schools.ListAll(ctx)
	if err != nil {
		return compliance.Tables{}, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schools")
	}
	reports, err := s.reports.ListAll(ctx)
	if err != nil {
		return compliance.Tables{}, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load reports")
	}
	submissions, err := s.submissions.List(ctx, models.SubmissionFilter{})
	if err != nil {
		return compliance.Tables{}, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submissions")
	}
	tables := compliance.Tables{Schools: schools, Reports: reports, Submissions: submissions}
	s.metrics.ObserveTablesLoad("database", time.Since(start))

	s.report(compliance.Validate(tables))
	s.cache.Set(ctx, tablesCacheKey, tables, s.ttl)
	return tables, false, nil
}

// Invalidate drops the cached snapshot. Writers call it after every successful change.
func (s *TablesService) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, tablesCachePattern); err != nil {
		s.logger.Warn("tables snapshot may be stale until it expires", zap.Duration("ttl", s.ttl), zap.Error(err))
	}
}

func (s *TablesService) report(issues []compliance.Issue) {
	counts := make(map[string]int)
	for _, issue := range issues {
		counts[string(issue.Kind)]++
		s.logger.Warn("tolerating inconsistent compliance data",
			zap.String("kind", string(issue.Kind)),
			zap.String("school_id", issue.SchoolID),
			zap.String("report_id", issue.ReportID),
			zap.String("detail", issue.Detail),
		)
	}
	s.metrics.SetDataIssues(counts)
}
