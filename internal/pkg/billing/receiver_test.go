package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload builds a provider signature header over the raw body, the
// same scheme the verifier checks: HMAC-SHA256 over "<t>.<body>".
func signPayload(payload []byte, secret string, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", at.Unix())))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func newReceiverService() *Service {
	return NewService(nil, nil, nil, Config{WebhookSecret: testWebhookSecret})
}

func TestParseEventAcceptsValidSignature(t *testing.T) {
	svc := newReceiverService()
	body := []byte(`{"id":"evt_100","type":"invoice.payment_succeeded","data":{"object":{"id":"in_1","customer":"cus_1"}}}`)

	ev, err := svc.ParseEvent(body, signPayload(body, testWebhookSecret, time.Now()))
	if err != nil {
		t.Fatalf("ParseEvent failed: %v", err)
	}
	if ev.ID != "evt_100" {
		t.Fatalf("event id = %q, want evt_100", ev.ID)
	}
	if ev.Type != "invoice.payment_succeeded" {
		t.Fatalf("event type = %q, want invoice.payment_succeeded", ev.Type)
	}
	if len(ev.Payload) == 0 {
		t.Fatalf("expected payload to carry the provider object")
	}
}

func TestParseEventRejectsTamperedBody(t *testing.T) {
	svc := newReceiverService()
	body := []byte(`{"id":"evt_101","type":"invoice.payment_succeeded","data":{"object":{}}}`)
	header := signPayload(body, testWebhookSecret, time.Now())

	tampered := []byte(`{"id":"evt_999","type":"invoice.payment_succeeded","data":{"object":{}}}`)
	if _, err := svc.ParseEvent(tampered, header); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
}

func TestParseEventRejectsWrongSecret(t *testing.T) {
	svc := newReceiverService()
	body := []byte(`{"id":"evt_102","type":"invoice.payment_succeeded","data":{"object":{}}}`)

	header := signPayload(body, "whsec_other_secret", time.Now())
	if _, err := svc.ParseEvent(body, header); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
}

func TestParseEventRejectsMissingHeader(t *testing.T) {
	svc := newReceiverService()
	body := []byte(`{"id":"evt_103","type":"invoice.payment_succeeded","data":{"object":{}}}`)

	if _, err := svc.ParseEvent(body, ""); !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
}

func TestParseEventRejectsUndecodableBody(t *testing.T) {
	svc := newReceiverService()
	body := []byte(`{"id":"evt_104",`)

	header := signPayload(body, testWebhookSecret, time.Now())
	if _, err := svc.ParseEvent(body, header); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestParseEventUnverifiedRequiresEnvelopeFields(t *testing.T) {
	svc := NewService(nil, nil, nil, Config{SkipSignatureVerify: true})

	if _, err := svc.ParseEvent([]byte(`{"type":"invoice.payment_succeeded"}`), ""); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload for missing id, got %v", err)
	}
	if _, err := svc.ParseEvent([]byte(`{"id":"evt_105"}`), ""); !errors.Is(err, ErrMalformedPayload) {
		t.Fatalf("expected ErrMalformedPayload for missing type, got %v", err)
	}

	ev, err := svc.ParseEvent([]byte(`{"id":"evt_106","type":"invoice.payment_succeeded","data":{"object":{}}}`), "")
	if err != nil {
		t.Fatalf("ParseEvent failed: %v", err)
	}
	if ev.ID != "evt_106" {
		t.Fatalf("event id = %q, want evt_106", ev.ID)
	}
}
