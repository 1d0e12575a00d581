package service

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"investor_onboarding/internal/messaging"
	"investor_onboarding/internal/metrics"
	"investor_onboarding/internal/model"
	"investor_onboarding/internal/ratelimit"
	"investor_onboarding/internal/repository"
	"investor_onboarding/internal/validation"
)

// Request is one ingestion attempt as seen by the transport.
type Request struct {
	// Origin заголовок Origin, FormOrigin параметр формы origin
	Origin     string
	FormOrigin string
	// FormData is the formData form field; Body is used when it is empty.
	FormData  string
	Body      []byte
	ClientIP  string
	UserAgent string
}

type Result struct {
	SubmissionID    string
	Documents       []model.StoredDocument
	FailedDocuments []model.DocumentKind
}

type Config struct {
	AllowedOrigins []string
	EnforceOrigin  bool
	SecretToken    string
	LockTimeout    time.Duration
	StageTimeout   time.Duration
	MinInvestment  decimal.Decimal
	// StrictFormat отклоняет телефон и DUI неполной длины
	StrictFormat   bool
}

type IngestionService interface {
	Ingest(ctx context.Context, req *Request) (*Result, error)
	OriginAllowed(origin string) bool
	HandleNotificationDelivered(ctx context.Context, delivered *model.NotificationDelivered)
}

// Deps внешние зависимости сервиса приёма
type Deps struct {
	Limiter   ratelimit.Limiter
	Records   repository.RecordStore
	Documents repository.DocumentStore
	Audit     repository.AuditLog
	Events    messaging.Publisher
	Metrics   metrics.Recorder
}

type ingestionService struct {
	cfg       Config
	deps      Deps
	lock      *semaphore.Weighted
	validator *validation.Validator
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewIngestionService(cfg Config, deps Deps, logger *zap.Logger) IngestionService {
	mode := validation.ModeClient
	if cfg.StrictFormat {
		mode = validation.ModeServer
	}
	return &ingestionService{
		cfg:       cfg,
		deps:      deps,
		lock:      semaphore.NewWeighted(1),
		validator: validation.New(mode, cfg.MinInvestment),
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}
}

// Ingest runs the gates in order: lock, origin, rate, parse, secret, validation, persistence.
// Exactly one ingestion holds the lock at a time and it is released on every path.
func (s *ingestionService) Ingest(ctx context.Context, req *Request) (*Result, error) {
	start := s.now()
	requestID := uuid.New().String()
	log := s.logger.With(zap.String("request_id", requestID))

	res, err := s.ingest(ctx, req, requestID, log)

	s.deps.Metrics.ObserveIngest(Outcome(err), s.now().Sub(start))
	if err != nil {
		log.Info("submission rejected", zap.String("outcome", Outcome(err)), zap.Error(err))
	}
	return res, err
}

func (s *ingestionService) ingest(ctx context.Context, req *Request, requestID string, log *zap.Logger) (*Result, error) {
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.LockTimeout)
	err := s.lock.Acquire(lockCtx, 1)
	cancel()
	if err != nil {
		log.Warn("failed to acquire ingestion lock", zap.Duration("timeout", s.cfg.LockTimeout), zap.Error(err))
		return nil, ErrLockTimeout
	}
	defer s.lock.Release(1)

	origin := req.Origin
	if origin == "" {
		origin = req.FormOrigin
	}
	raw := req.FormData
	via := "formData"
	if strings.TrimSpace(raw) == "" {
		raw = string(req.Body)
		via = "body"
	}
	if origin == "" {
		origin = peekOrigin(raw)
	}

	s.audit(ctx, model.AuditRequestReceived, "", requestID, "origin=%s via=%s", origin, via)

	if !s.OriginAllowed(origin) {
		if s.cfg.EnforceOrigin {
			s.audit(ctx, model.AuditOriginDenied, "", requestID, "origin=%s", origin)
			return nil, fmt.Errorf("%w: %q", ErrOriginDenied, origin)
		}
		log.Warn("origin not allow-listed, enforcement disabled", zap.String("origin", origin))
	}

	fingerprint := ratelimit.Fingerprint(req.ClientIP, req.UserAgent)
	decision, err := s.deps.Limiter.Allow(ctx, fingerprint)
	switch {
	case err != nil:
		// Лимит рекомендательный: при недоступном хранилище пропускаем запрос
		log.Warn("rate limiter unavailable, admitting request", zap.Error(err))
	case !decision.Allowed:
		s.audit(ctx, model.AuditRateLimited, "", requestID, "client=%s requests=%d", fingerprint[:12], decision.Count)
		return nil, ErrRateLimited
	}

	if strings.TrimSpace(raw) == "" {
		s.audit(ctx, model.AuditPayloadRejected, "", requestID, "no data received")
		return nil, fmt.Errorf("%w: no data received", ErrInvalidInput)
	}

	var env model.Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		s.audit(ctx, model.AuditPayloadRejected, "", requestID, "malformed payload via %s", via)
		return nil, fmt.Errorf("%w: malformed payload: %v", ErrInvalidInput, err)
	}

	if subtle.ConstantTimeCompare([]byte(env.SecretToken), []byte(s.cfg.SecretToken)) != 1 {
		s.audit(ctx, model.AuditTokenRejected, "", requestID, "invalid token")
		return nil, ErrInvalidToken
	}
	// Токен и origin дальше не передаются
	payload := env.SubmissionPayload

	payload.Sanitize()
	if err := s.validator.Validate(&payload); err != nil {
		s.audit(ctx, model.AuditValidationFailed, "", requestID, "%v", err)
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	return s.persist(ctx, &payload, requestID, log)
}

func (s *ingestionService) persist(ctx context.Context, payload *model.SubmissionPayload, requestID string, log *zap.Logger) (*Result, error) {
	res := &Result{SubmissionID: s.newID()}
	record := &model.SubmissionRecord{
		SubmissionID: res.SubmissionID,
		ReceivedAt:   s.now().UTC(),
		Payload:      *payload,
		Locators:     make(map[model.DocumentKind]string, len(model.DocumentOrder)),
	}
	log = log.With(zap.String("submission_id", res.SubmissionID))

	// Документы сохраняются последовательно, чтобы порядок в журнале был стабильным
	for _, kind := range model.DocumentOrder {
		data := payload.Image(kind)
		if data == "" {
			continue
		}

		stageCtx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
		doc, err := s.deps.Documents.Store(stageCtx, kind, data, res.SubmissionID, payload.FullName)
		cancel()
		if err != nil {
			s.deps.Metrics.ObserveDocument(string(kind), "failed")
			res.FailedDocuments = append(res.FailedDocuments, kind)
			continue
		}

		s.deps.Metrics.ObserveDocument(string(kind), "stored")
		record.Locators[kind] = doc.URL
		res.Documents = append(res.Documents, *doc)
	}

	stageCtx, cancel := context.WithTimeout(ctx, s.cfg.StageTimeout)
	err := s.deps.Records.Append(stageCtx, record)
	cancel()
	if err != nil {
		log.Error("failed to append submission record", zap.Error(err))
		s.audit(ctx, model.AuditRecordFailed, res.SubmissionID, requestID, "%v", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	s.audit(ctx, model.AuditRecordAppended, res.SubmissionID, requestID,
		"documents=%d failed=%v", len(res.Documents), res.FailedDocuments)

	event := &model.SubmissionEvent{
		SubmissionID:     res.SubmissionID,
		ReceivedAt:       record.ReceivedAt,
		FullName:         payload.FullName,
		Email:            payload.Email,
		InvestmentAmount: payload.InvestmentAmount.StringFixed(2),
		Documents:        len(res.Documents),
		FailedDocuments:  res.FailedDocuments,
	}
	if err := s.deps.Events.PublishSubmissionCreated(ctx, event); err != nil {
		log.Warn("failed to publish submission event", zap.Error(err))
	}

	log.Info("submission persisted",
		zap.Int("documents", len(res.Documents)),
		zap.Int("failed_documents", len(res.FailedDocuments)))
	return res, nil
}

func (s *ingestionService) OriginAllowed(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range s.cfg.AllowedOrigins {
		if strings.EqualFold(strings.TrimRight(allowed, "/"), strings.TrimRight(origin, "/")) {
			return true
		}
	}
	return false
}

// HandleNotificationDelivered records the e-mail channel confirmation for a submission.
func (s *ingestionService) HandleNotificationDelivered(ctx context.Context, delivered *model.NotificationDelivered) {
	action := model.AuditNotificationConfirmed
	details := "channel=" + delivered.Channel
	if delivered.Error != "" {
		action = model.AuditNotificationFailed
		details += " error=" + delivered.Error
	}
	s.deps.Audit.Record(ctx, model.AuditEntry{
		Timestamp:    s.now().UTC(),
		Action:       action,
		SubmissionID: delivered.SubmissionID,
		Details:      details,
	})
}

func (s *ingestionService) audit(ctx context.Context, action model.AuditAction, submissionID, requestID, format string, args ...any) {
	s.deps.Audit.Record(ctx, model.AuditEntry{
		Timestamp:    s.now().UTC(),
		Action:       action,
		SubmissionID: submissionID,
		Details:      "request_id=" + requestID + " " + fmt.Sprintf(format, args...),
	})
}

// peekOrigin достаёт поле origin из тела без полной проверки
func peekOrigin(raw string) string {
	var probe struct {
		Origin string `json:"origin"`
	}
	if json.Unmarshal([]byte(raw), &probe) != nil {
		return ""
	}
	return probe.Origin
}
