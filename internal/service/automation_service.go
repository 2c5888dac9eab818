package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/report-compliance-api/internal/compliance"
	"github.com/noah-isme/report-compliance-api/internal/dto"
	"github.com/noah-isme/report-compliance-api/internal/models"
	appErrors "github.com/noah-isme/report-compliance-api/pkg/errors"
	"github.com/noah-isme/report-compliance-api/pkg/jobs"
	"github.com/noah-isme/report-compliance-api/pkg/storage"
)

// NoticeJobType tags overdue-notice jobs on the dispatch queue.
const NoticeJobType = "overdue_notice"

// NoticeQueuedMessage is returned once a confirmed dispatch has been queued.
const NoticeQueuedMessage = "Overdue notices have been successfully queued for sending."

type complianceEvaluator interface {
	Evaluate(ctx context.Context) (*compliance.Result, bool, error)
}

type schoolUserLister interface {
	ListActiveSchoolUsers(ctx context.Context) ([]models.User, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type jobDispatcher interface {
	Enqueue(job jobs.Job) error
}

// batchDispatcher queues a whole batch or nothing.
type batchDispatcher interface {
	EnqueueAll(batch []jobs.Job) error
}

// confirmationLedger records used confirmation tokens so each one dispatches once.
type confirmationLedger interface {
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// NoticeMessage is the payload of one overdue-notice job: a single school and its recipients.
type NoticeMessage struct {
	SchoolID     string   `json:"schoolId"`
	SchoolName   string   `json:"schoolName"`
	Recipients   []string `json:"recipients"`
	ReportIDs    []string `json:"reportIds"`
	ReportTitles []string `json:"reportTitles"`
}

// AutomationServiceParams groups constructor dependencies.
type AutomationServiceParams struct {
	Compliance        complianceEvaluator
	Users             schoolUserLister
	Queue             batchDispatcher
	Signer            *storage.TokenSigner
	Confirmations     confirmationLedger
	Audit             auditRecorder
	Metrics           *MetricsService
	Logger            *zap.Logger
	SchedulerInterval time.Duration
}

// AutomationService runs the email automation dry run and the confirmed manual
// overdue-notice dispatch. It never delivers mail itself.
type AutomationService struct {
	compliance complianceEvaluator
	users      schoolUserLister
	queue      batchDispatcher
	signer     *storage.TokenSigner
	confirmed  confirmationLedger
	audit      auditRecorder
	metrics    *MetricsService
	logger     *zap.Logger
	interval   time.Duration
}

// NewAutomationService constructs an AutomationService.
func NewAutomationService(params AutomationServiceParams) *AutomationService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AutomationService{
		compliance: params.Compliance,
		users:      params.Users,
		queue:      params.Queue,
		signer:     params.Signer,
		confirmed:  params.Confirmations,
		audit:      params.Audit,
		metrics:    params.Metrics,
		logger:     logger,
		interval:   params.SchedulerInterval,
	}
}

// Simulate reports which reminder and summary emails today's schedule would send.
func (s *AutomationService) Simulate(ctx context.Context) (*compliance.Simulation, error) {
	res, users, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sim := compliance.SimulateEmails(res, users)
	return &sim, nil
}

// PreviewOverdueNotices plans a manual dispatch and, when there is something to
// send, issues a short-lived token that binds the confirmation to this exact plan.
func (s *AutomationService) PreviewOverdueNotices(ctx context.Context, actorID string) (*dto.NoticePreviewResponse, error) {
	res, users, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	plan := compliance.PlanOverdueNotices(res, users)
	if plan.Empty() {
		return &dto.NoticePreviewResponse{Plan: plan, Message: plan.EmptyMessage()}, nil
	}

	digest, err := planDigest(plan)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fingerprint notice plan")
	}
	token, expiresAt, err := s.signer.Generate(actorID, digest)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue confirmation token")
	}
	return &dto.NoticePreviewResponse{
		Plan:              plan,
		Message:           plan.ConfirmationMessage(),
		ConfirmationToken: token,
		ExpiresAt:         &expiresAt,
	}, nil
}

// DispatchOverdueNotices queues one job per school of a previewed plan, all of
// them or none. The caller must confirm explicitly and present the preview's
// token, which is good for a single dispatch; if the overdue set changed since
// the preview the dispatch is refused.
func (s *AutomationService) DispatchOverdueNotices(ctx context.Context, actorID string, req dto.NoticeDispatchRequest, meta models.LoginRequest) (*dto.NoticeDispatchResponse, error) {
	if !req.Confirm {
		return nil, appErrors.Clone(appErrors.ErrConfirmationRequired, "dispatch was not confirmed")
	}
	subject, digest, expiresAt, err := s.signer.Parse(req.ConfirmationToken, false)
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrConfirmationRequired, "confirmation expired, preview the notices again")
		}
		return nil, appErrors.Clone(appErrors.ErrConfirmationRequired, "invalid confirmation token")
	}
	if subject != actorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "confirmation was issued to another user")
	}

	res, users, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	plan := compliance.PlanOverdueNotices(res, users)
	current, err := planDigest(plan)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fingerprint notice plan")
	}
	if current != digest {
		return nil, appErrors.Clone(appErrors.ErrConflict, "overdue reports changed since the preview, preview the notices again")
	}

	key := confirmationKey(req.ConfirmationToken)
	if err := s.claimConfirmation(ctx, key, expiresAt); err != nil {
		return nil, err
	}

	emails := 0
	batch := make([]jobs.Job, 0, len(plan.Batches))
	for _, school := range plan.Batches {
		batch = append(batch, jobs.Job{
			ID:   uuid.NewString(),
			Type: NoticeJobType,
			Payload: NoticeMessage{
				SchoolID:     school.SchoolID,
				SchoolName:   school.SchoolName,
				Recipients:   school.Recipients,
				ReportIDs:    school.ReportIDs,
				ReportTitles: school.ReportTitles,
			},
		})
		emails += len(school.Recipients)
	}
	if err := s.queue.EnqueueAll(batch); err != nil {
		if relErr := s.confirmed.Release(ctx, key); relErr != nil {
			s.logger.Warn("confirmation stays used after failed dispatch", zap.Error(relErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "An error occurred while sending notices. Please try again.")
	}
	s.metrics.RecordNoticesDispatched(emails)
	s.recordAudit(ctx, actorID, plan, emails, meta)

	return &dto.NoticeDispatchResponse{
		Schools:        len(plan.Batches),
		Emails:         emails,
		Reports:        plan.TotalReports,
		SkippedSchools: plan.SkippedSchools,
		Message:        NoticeQueuedMessage,
	}, nil
}

// StartScheduler runs the dry run on a fixed interval and logs its output.
func (s *AutomationService) StartScheduler(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runScheduled(ctx)
			}
		}
	}()
}

func (s *AutomationService) runScheduled(ctx context.Context) {
	sim, err := s.Simulate(ctx)
	if err != nil {
		s.logger.Warn("scheduled email automation failed", zap.Error(err))
		return
	}
	for _, line := range sim.Log {
		if line == "" {
			continue
		}
		s.logger.Info(line, zap.String("component", "email_automation"), zap.String("date", sim.Date.String()))
	}
}

func (s *AutomationService) load(ctx context.Context) (*compliance.Result, []models.User, error) {
	res, _, err := s.compliance.Evaluate(ctx)
	if err != nil {
		return nil, nil, err
	}
	users, err := s.users.ListActiveSchoolUsers(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load school users")
	}
	return res, users, nil
}

func (s *AutomationService) recordAudit(ctx context.Context, actorID string, plan compliance.NoticePlan, emails int, meta models.LoginRequest) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"schools": len(plan.Batches),
		"reports": plan.TotalReports,
		"emails":  emails,
		"skipped": plan.SkippedSchools,
	})
	if err := s.audit.CreateAuditLog(ctx, &models.AuditLog{
		UserID:    &actorID,
		Action:    models.AuditActionNoticeDispatch,
		Resource:  "overdue_notices",
		NewValues: payload,
		IPAddress: meta.IP,
		UserAgent: meta.UserAgent,
	}); err != nil {
		s.logger.Warn("failed to record notice dispatch audit log", zap.Error(err))
	}
}

// claimConfirmation spends a confirmation token. Without a ledger nothing can
// prove the token unused, so dispatch is refused.
func (s *AutomationService) claimConfirmation(ctx context.Context, key string, expiresAt time.Time) error {
	if s.confirmed == nil {
		return appErrors.Clone(appErrors.ErrUnavailable, "notice dispatch is unavailable")
	}
	ttl := time.Until(expiresAt)
	if ttl < time.Second {
		ttl = time.Second
	}
	claimed, err := s.confirmed.Claim(ctx, key, ttl)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrUnavailable.Code, appErrors.ErrUnavailable.Status, "cannot record the confirmation right now, try again shortly")
	}
	if !claimed {
		return appErrors.Clone(appErrors.ErrConflict, "this confirmation was already used, preview the notices again")
	}
	return nil
}

func confirmationKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return "notices:confirmation:" + hex.EncodeToString(sum[:])
}

func planDigest(plan compliance.NoticePlan) (string, error) {
	payload, err := json.Marshal(plan)
	if err != nil {
		return "", fmt.Errorf("marshal notice plan: %w", err)
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// NoticeWorker consumes overdue-notice jobs. Delivery is out of scope, so each
// job is logged as the email it would send.
type NoticeWorker struct {
	logger *zap.Logger
}

// NewNoticeWorker constructs a worker.
func NewNoticeWorker(logger *zap.Logger) *NoticeWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoticeWorker{logger: logger}
}

// Handle processes a queue job.
func (w *NoticeWorker) Handle(ctx context.Context, job jobs.Job) error {
	msg, ok := job.Payload.(NoticeMessage)
	if !ok {
		return fmt.Errorf("notice job %s: unexpected payload %T", job.ID, job.Payload)
	}
	for _, to := range msg.Recipients {
		w.logger.Info("overdue notice prepared",
			zap.String("job_id", job.ID),
			zap.String("to", to),
			zap.String("school", msg.SchoolName),
			zap.Strings("reports", msg.ReportTitles),
		)
	}
	return nil
}
