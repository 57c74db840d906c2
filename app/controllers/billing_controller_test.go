package controllers

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/MartinHaas/LokalMarkt/internal/pkg/billing"
)

// stubProcessor lets the endpoint tests script every pipeline outcome.
type stubProcessor struct {
	parseErr   error
	processErr error
	outcome    billing.Outcome
	history    []billing.BillingHistoryEntry
	historyErr error
}

func (s *stubProcessor) ParseEvent(body []byte, signatureHeader string) (*billing.Event, error) {
	if s.parseErr != nil {
		return nil, s.parseErr
	}
	return &billing.Event{ID: "evt_1", Type: "invoice.payment_succeeded"}, nil
}

func (s *stubProcessor) ProcessEvent(ev *billing.Event) (billing.Result, error) {
	if s.processErr != nil {
		return billing.Result{Outcome: billing.OutcomeFailed}, s.processErr
	}
	return billing.Result{Outcome: s.outcome, EventID: ev.ID, EventType: ev.Type}, nil
}

func (s *stubProcessor) BillingHistory(userID uint, limit int) ([]billing.BillingHistoryEntry, error) {
	return s.history, s.historyErr
}

func newWebhookTestApp(p *stubProcessor) *fiber.App {
	InitializeBillingController(p)
	app := fiber.New()
	app.Post("/webhooks/stripe", HandleStripeWebhook)
	app.Get("/api/v1/billing/events/:userID", HandleListBillingEvents)
	return app
}

func postWebhook(t *testing.T, app *fiber.App, body string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhooks/stripe", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")

	resp, err := app.Test(req)
	assert.NoError(t, err)
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(raw)
}

func TestHandleStripeWebhookStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		stub       *stubProcessor
		wantStatus int
		wantBody   string
	}{
		{
			name:       "processed",
			stub:       &stubProcessor{outcome: billing.OutcomeProcessed},
			wantStatus: fiber.StatusOK,
			wantBody:   `"ok":true`,
		},
		{
			name:       "duplicate",
			stub:       &stubProcessor{outcome: billing.OutcomeDuplicate},
			wantStatus: fiber.StatusOK,
			wantBody:   `"duplicate":true`,
		},
		{
			name:       "ignored",
			stub:       &stubProcessor{outcome: billing.OutcomeIgnored},
			wantStatus: fiber.StatusOK,
			wantBody:   `"ignored":true`,
		},
		{
			name:       "handler failure still acknowledged",
			stub:       &stubProcessor{outcome: billing.OutcomeFailed},
			wantStatus: fiber.StatusOK,
			wantBody:   `"ok":true`,
		},
		{
			name:       "bad signature",
			stub:       &stubProcessor{parseErr: billing.ErrAuthentication},
			wantStatus: fiber.StatusUnauthorized,
			wantBody:   "invalid_signature",
		},
		{
			name:       "malformed payload",
			stub:       &stubProcessor{parseErr: billing.ErrMalformedPayload},
			wantStatus: fiber.StatusBadRequest,
			wantBody:   "invalid_payload",
		},
		{
			name:       "admission failure",
			stub:       &stubProcessor{processErr: errors.New("db gone")},
			wantStatus: fiber.StatusInternalServerError,
			wantBody:   "webhook_persist_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newWebhookTestApp(tt.stub)
			status, body := postWebhook(t, app, `{"id":"evt_1"}`)
			assert.Equal(t, tt.wantStatus, status)
			assert.Contains(t, body, tt.wantBody)
		})
	}
}

func TestHandleListBillingEventsValidatesUserID(t *testing.T) {
	app := newWebhookTestApp(&stubProcessor{})

	req := httptest.NewRequest("GET", "/api/v1/billing/events/abc", nil)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/v1/billing/events/0", nil)
	resp, err = app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandleListBillingEventsReturnsTrail(t *testing.T) {
	app := newWebhookTestApp(&stubProcessor{
		history: []billing.BillingHistoryEntry{
			{ID: 2, EventType: "subscription_extended"},
			{ID: 1, EventType: "payment_succeeded"},
		},
	})

	req := httptest.NewRequest("GET", "/api/v1/billing/events/7?limit=10", nil)
	resp, err := app.Test(req)
	assert.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(raw), "subscription_extended")
	assert.Contains(t, string(raw), `"user_id":7`)
}
