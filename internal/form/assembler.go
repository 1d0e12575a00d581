package form

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"investor_onboarding/internal/draft"
	"investor_onboarding/internal/model"
)

var (
	ErrNotLastStep = errors.New("submission is only possible from the last step")
	ErrRejected    = errors.New("submission rejected by the server")
)

// Notifier is the secondary e-mail channel; delivery is best-effort.
type Notifier interface {
	PublishNotificationRequest(ctx context.Context, req *model.NotificationRequest) error
}

type AssemblerConfig struct {
	Endpoint    string
	SecretToken string
	Origin      string
	// FormEncoded sends the payload as the formData field of an urlencoded form instead of a raw JSON body.
	FormEncoded bool
}

// Receipt describes a dispatched submission.
type Receipt struct {
	SubmissionID string
	Message      string
	// Confirmed is false when the response body could not be read as an ingestion result.
	Confirmed bool
	Status    int
}

// Assembler packages the controller state and sends it to the ingestion endpoint.
type Assembler struct {
	cfg      AssemblerConfig
	client   *http.Client
	drafts   draft.Store
	notifier Notifier
	logger   *zap.Logger
}

// NewAssembler builds an Assembler. notifier may be nil.
func NewAssembler(cfg AssemblerConfig, client *http.Client, drafts draft.Store, notifier Notifier, logger *zap.Logger) *Assembler {
	if client == nil {
		client = http.DefaultClient
	}
	return &Assembler{
		cfg:      cfg,
		client:   client,
		drafts:   drafts,
		notifier: notifier,
		logger:   logger,
	}
}

// Submit validates the whole application and posts it once. Nothing is sent when validation fails.
// After a dispatched submission the drafts are cleared and the controller is reset.
func (a *Assembler) Submit(ctx context.Context, c *Controller) (*Receipt, error) {
	if c.Step() != StepInvestment {
		return nil, ErrNotLastStep
	}

	payload := c.Payload()
	for _, kind := range model.DocumentOrder {
		if payload.Image(kind) != "" {
			continue
		}
		if e, ok := a.drafts.Load(kind); ok {
			payload.SetImage(kind, e.DataURL)
		}
	}

	if err := c.validator.Validate(&payload); err != nil {
		a.logger.Info("submission blocked by validation", zap.Error(err))
		return nil, err
	}

	req, err := a.newRequest(ctx, &payload)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Error("failed to send submission", zap.String("endpoint", a.cfg.Endpoint), zap.Error(err))
		return nil, fmt.Errorf("failed to send submission: %w", err)
	}
	defer resp.Body.Close()

	receipt, err := a.readResponse(resp)
	if err != nil {
		return nil, err
	}

	a.notify(ctx, &payload, receipt.SubmissionID)

	draft.ClearAll(a.drafts)
	c.Reset()

	a.logger.Info("submission dispatched",
		zap.String("submission_id", receipt.SubmissionID),
		zap.Bool("confirmed", receipt.Confirmed),
		zap.Int("status", receipt.Status))
	return receipt, nil
}

func (a *Assembler) newRequest(ctx context.Context, payload *model.SubmissionPayload) (*http.Request, error) {
	data, err := json.Marshal(model.Envelope{
		SubmissionPayload: *payload,
		SecretToken:       a.cfg.SecretToken,
		Origin:            a.cfg.Origin,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submission: %w", err)
	}

	var (
		body        io.Reader
		contentType string
	)
	if a.cfg.FormEncoded {
		body = strings.NewReader(url.Values{"formData": {string(data)}}.Encode())
		contentType = "application/x-www-form-urlencoded"
	} else {
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.Endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build submission request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if a.cfg.Origin != "" {
		req.Header.Set("Origin", a.cfg.Origin)
	}
	return req, nil
}

// Тело ответа может быть не JSON: такой ответ при 2xx считаем принятым без подтверждения
func (a *Assembler) readResponse(resp *http.Response) (*Receipt, error) {
	receipt := &Receipt{Status: resp.StatusCode}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		a.logger.Warn("failed to read ingestion response", zap.Error(err))
	}

	var out model.IngestResponse
	if err == nil && json.Unmarshal(raw, &out) == nil && (out.Message != "" || out.Success) {
		receipt.Confirmed = true
		receipt.Message = out.Message
		receipt.SubmissionID = out.SubmissionID
		if !out.Success {
			return nil, fmt.Errorf("%w: %s (status %d)", ErrRejected, out.Message, resp.StatusCode)
		}
		return receipt, nil
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	a.logger.Warn("ingestion response not understood, assuming success", zap.Int("status", resp.StatusCode))
	return receipt, nil
}

func (a *Assembler) notify(ctx context.Context, p *model.SubmissionPayload, submissionID string) {
	if a.notifier == nil {
		return
	}
	err := a.notifier.PublishNotificationRequest(ctx, &model.NotificationRequest{
		FullName:         p.FullName,
		Email:            p.Email,
		Phone:            p.Phone,
		BankName:         p.ResolvedBankName(),
		InvestmentAmount: p.InvestmentAmount.StringFixed(2),
		Comments:         p.Comments,
		SubmissionID:     submissionID,
	})
	if err != nil {
		a.logger.Warn("failed to send notification", zap.String("submission_id", submissionID), zap.Error(err))
	}
}
