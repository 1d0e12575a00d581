package form

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"

	"go.uber.org/zap/zaptest"

	"investor_onboarding/internal/model"
	"investor_onboarding/internal/validation"
)

type mockNotifier struct {
	publishFunc func(ctx context.Context, req *model.NotificationRequest) error
	calls       int
}

func (m *mockNotifier) PublishNotificationRequest(ctx context.Context, req *model.NotificationRequest) error {
	m.calls++
	if m.publishFunc != nil {
		return m.publishFunc(ctx, req)
	}
	return nil
}

// captured последний запрос, полученный тестовым сервером
type captured struct {
	contentType string
	origin      string
	envelope    model.Envelope
}

func newIngestServer(t *testing.T, status int, body string, hits *int32, got *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		got.contentType = r.Header.Get("Content-Type")
		got.origin = r.Header.Get("Origin")

		raw, _ := io.ReadAll(r.Body)
		data := raw
		if got.contentType == "application/x-www-form-urlencoded" {
			values, err := url.ParseQuery(string(raw))
			if err != nil {
				t.Errorf("failed to parse form body: %v", err)
			}
			data = []byte(values.Get("formData"))
		}
		if err := json.Unmarshal(data, &got.envelope); err != nil {
			t.Errorf("failed to decode submitted payload: %v", err)
		}

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSubmit(t *testing.T) {
	tests := []struct {
		name            string
		formEncoded     bool
		status          int
		body            string
		expectedError   error
		expectedConfirm bool
		expectedID      string
	}{
		{
			name:            "form_encoded_confirmed",
			formEncoded:     true,
			status:          http.StatusOK,
			body:            `{"success":true,"message":"stored","submissionId":"sub-1"}`,
			expectedConfirm: true,
			expectedID:      "sub-1",
		},
		{
			name:            "raw_json_confirmed",
			status:          http.StatusOK,
			body:            `{"success":true,"message":"stored","submissionId":"sub-2"}`,
			expectedConfirm: true,
			expectedID:      "sub-2",
		},
		{
			name:        "opaque_html_response",
			formEncoded: true,
			status:      http.StatusOK,
			body:        "<html><body><h1>Datos guardados</h1></body></html>",
		},
		{
			name:          "rejected_by_server",
			status:        http.StatusUnauthorized,
			body:          `{"success":false,"message":"invalid token"}`,
			expectedError: ErrRejected,
		},
		{
			name:          "opaque_error_response",
			status:        http.StatusBadGateway,
			body:          "bad gateway",
			expectedError: ErrRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			var got captured
			srv := newIngestServer(t, tt.status, tt.body, &hits, &got)

			c, drafts := newTestController(t)
			fillValid(t, c)
			notifier := &mockNotifier{}
			a := NewAssembler(AssemblerConfig{
				Endpoint:    srv.URL,
				SecretToken: "s3cret",
				Origin:      "http://localhost:5173",
				FormEncoded: tt.formEncoded,
			}, srv.Client(), drafts, notifier, zaptest.NewLogger(t))

			receipt, err := a.Submit(context.Background(), c)

			if hits != 1 {
				t.Fatalf("expected exactly one request, but got %d", hits)
			}
			if got.envelope.SecretToken != "s3cret" || got.envelope.Origin != "http://localhost:5173" {
				t.Errorf("expected secret and origin in payload, but got '%s' / '%s'", got.envelope.SecretToken, got.envelope.Origin)
			}
			if got.origin != "http://localhost:5173" {
				t.Errorf("expected Origin header, but got '%s'", got.origin)
			}
			if got.envelope.FullName != "Ana María López" || got.envelope.SignatureImage != testImage {
				t.Errorf("unexpected payload %+v", got.envelope.SubmissionPayload)
			}

			if tt.expectedError != nil {
				if !errors.Is(err, tt.expectedError) {
					t.Errorf("expected error '%v', but got '%v'", tt.expectedError, err)
				}
				if c.Step() != StepInvestment {
					t.Error("expected controller state to be kept after a rejection")
				}
				if _, ok := drafts.Load(model.DocumentSignature); !ok {
					t.Error("expected drafts to be kept after a rejection")
				}
				if notifier.calls != 0 {
					t.Errorf("expected no notification, but got %d", notifier.calls)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if receipt.Confirmed != tt.expectedConfirm || receipt.SubmissionID != tt.expectedID {
				t.Errorf("unexpected receipt %+v", receipt)
			}
			if notifier.calls != 1 {
				t.Errorf("expected one notification, but got %d", notifier.calls)
			}
			for _, kind := range model.DocumentOrder {
				if _, ok := drafts.Load(kind); ok {
					t.Errorf("expected draft '%s' to be cleared", kind)
				}
			}
			if c.Step() != StepPersonal || c.Payload().FullName != "" {
				t.Error("expected controller to be reset")
			}
		})
	}
}

func TestSubmitInvalidPayloadSendsNothing(t *testing.T) {
	var hits int32
	var got captured
	srv := newIngestServer(t, http.StatusOK, `{"success":true}`, &hits, &got)

	c, drafts := newTestController(t)
	fillValid(t, c)
	if err := c.SetField("email", "not-an-email"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a := NewAssembler(AssemblerConfig{Endpoint: srv.URL, SecretToken: "s3cret"}, srv.Client(), drafts, nil, zaptest.NewLogger(t))
	_, err := a.Submit(context.Background(), c)

	var verrs *validation.Errors
	if !errors.As(err, &verrs) || !verrs.Has("email") {
		t.Fatalf("expected email validation error, but got %v", err)
	}
	if hits != 0 {
		t.Errorf("expected no network call, but got %d", hits)
	}
}

func TestSubmitSendsPartialPhone(t *testing.T) {
	var hits int32
	var got captured
	srv := newIngestServer(t, http.StatusOK, `{"success":true,"message":"ok","submissionId":"sub-7"}`, &hits, &got)

	c, drafts := newTestController(t)
	fillValid(t, c)
	if err := c.SetField("phone", "7012345"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a := NewAssembler(AssemblerConfig{Endpoint: srv.URL, SecretToken: "s3cret"}, srv.Client(), drafts, nil, zaptest.NewLogger(t))
	if _, err := a.Submit(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hits != 1 {
		t.Fatalf("expected one request, but got %d", hits)
	}
	if got.envelope.Phone != "7012-345" {
		t.Errorf("expected phone '7012-345', but got '%s'", got.envelope.Phone)
	}
}

func TestSubmitResolvesImagesFromDrafts(t *testing.T) {
	var hits int32
	var got captured
	srv := newIngestServer(t, http.StatusOK, `{"success":true,"message":"ok"}`, &hits, &got)

	c, drafts := newTestController(t)
	fillValid(t, c)

	// Документ есть только в черновиках, как после перезапуска клиента
	c.payload.UtilityReceiptImage = ""
	drafts.Save(model.DocumentUtilityReceipt, testImage, "receipt.jpg")

	a := NewAssembler(AssemblerConfig{Endpoint: srv.URL}, srv.Client(), drafts, nil, zaptest.NewLogger(t))
	if _, err := a.Submit(context.Background(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.envelope.UtilityReceiptImage != testImage {
		t.Error("expected utility receipt to be taken from drafts")
	}
}

func TestSubmitNotLastStep(t *testing.T) {
	c, drafts := newTestController(t)
	a := NewAssembler(AssemblerConfig{Endpoint: "http://127.0.0.1:1"}, nil, drafts, nil, zaptest.NewLogger(t))

	if _, err := a.Submit(context.Background(), c); !errors.Is(err, ErrNotLastStep) {
		t.Errorf("expected ErrNotLastStep, but got %v", err)
	}
}

func TestSubmitNotifierFailureIsIgnored(t *testing.T) {
	var hits int32
	var got captured
	srv := newIngestServer(t, http.StatusOK, `{"success":true,"message":"ok","submissionId":"sub-9"}`, &hits, &got)

	c, drafts := newTestController(t)
	fillValid(t, c)
	notifier := &mockNotifier{publishFunc: func(ctx context.Context, req *model.NotificationRequest) error {
		if req.SubmissionID != "sub-9" || req.InvestmentAmount != "1500.00" {
			t.Errorf("unexpected notification %+v", req)
		}
		return errors.New("nats: no responders")
	}}

	a := NewAssembler(AssemblerConfig{Endpoint: srv.URL}, srv.Client(), drafts, notifier, zaptest.NewLogger(t))
	receipt, err := a.Submit(context.Background(), c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.SubmissionID != "sub-9" || notifier.calls != 1 {
		t.Errorf("unexpected receipt %+v / calls %d", receipt, notifier.calls)
	}
}
