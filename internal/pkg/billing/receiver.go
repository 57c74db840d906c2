package billing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
	stripe "github.com/stripe/stripe-go/v83"
)

// ParseEvent verifies the webhook signature and converts the delivery
// into the canonical Event. Verification failures come back wrapped in
// ErrAuthentication, undecodable bodies in ErrMalformedPayload; the
// controller maps those to 401 and 400.
func (s *Service) ParseEvent(body []byte, signatureHeader string) (*Event, error) {
	if s.cfg.SkipSignatureVerify {
		log.Warn("[Billing] Signature verification disabled, accepting unverified webhook")
		return s.parseEventUnverified(body)
	}

	if strings.TrimSpace(signatureHeader) == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrAuthentication)
	}

	stripeEvent, err := stripe.ConstructEvent(body, signatureHeader, s.cfg.WebhookSecret, stripe.WithIgnoreAPIVersionMismatch())
	if err != nil {
		if !json.Valid(body) {
			return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	return s.eventFromStripe(&stripeEvent)
}

// parseEventUnverified decodes the envelope without a signature check.
// Development only.
func (s *Service) parseEventUnverified(body []byte) (*Event, error) {
	var stripeEvent stripe.Event
	if err := json.Unmarshal(body, &stripeEvent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return s.eventFromStripe(&stripeEvent)
}

func (s *Service) eventFromStripe(ev *stripe.Event) (*Event, error) {
	if ev.ID == "" {
		return nil, fmt.Errorf("%w: event missing id", ErrMalformedPayload)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("%w: event missing type", ErrMalformedPayload)
	}

	var payload json.RawMessage
	if ev.Data != nil {
		payload = ev.Data.Raw
	}

	return &Event{
		ID:         ev.ID,
		Type:       string(ev.Type),
		Payload:    payload,
		ReceivedAt: s.now().UTC(),
	}, nil
}
