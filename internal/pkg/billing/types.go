package billing

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/MartinHaas/LokalMarkt/internal/pkg/env"
)

// Event is the canonical, provider-neutral webhook event handed from the
// receiver to the pipeline. Payload is the provider object (data.object),
// decoded per event type by the handlers.
type Event struct {
	ID         string
	Type       string
	Payload    json.RawMessage
	ReceivedAt time.Time
}

// Config carries the billing settings. It is built once at startup and
// threaded through the service instead of being read from the
// environment at call time.
type Config struct {
	WebhookSecret string
	AdminEmail    string
	TrialDays     int
	// SkipSignatureVerify disables signature verification. Only honored
	// in development; NewConfigFromEnv never sets it outside APP_ENV=dev.
	SkipSignatureVerify bool
}

// NewConfigFromEnv materializes the billing configuration from the
// environment.
func NewConfigFromEnv() Config {
	trialDays := 7
	if raw := strings.TrimSpace(env.GetEnv("BILLING_TRIAL_DAYS", "")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			trialDays = n
		}
	}

	return Config{
		WebhookSecret:       strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		AdminEmail:          strings.TrimSpace(env.GetEnv("BILLING_ADMIN_EMAIL", "")),
		TrialDays:           trialDays,
		SkipSignatureVerify: env.IsDev() && env.GetEnv("STRIPE_SKIP_SIGNATURE_VERIFY", "false") == "true",
	}
}

// checkoutSessionPayload is the subset of checkout.session.completed we
// consume. Customer and the customer e-mail are required to attach a
// local account.
type checkoutSessionPayload struct {
	ID              string `json:"id"`
	Customer        string `json:"customer"`
	Subscription    string `json:"subscription"`
	CustomerDetails struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	} `json:"customer_details"`
}

func parseCheckoutSession(raw []byte) (*checkoutSessionPayload, error) {
	var p checkoutSessionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(p.Customer) == "" {
		return nil, fmt.Errorf("%w: checkout session missing customer", ErrMalformedPayload)
	}
	if strings.TrimSpace(p.CustomerDetails.Email) == "" {
		return nil, fmt.Errorf("%w: checkout session missing customer email", ErrMalformedPayload)
	}
	return &p, nil
}

type invoiceLine struct {
	Amount int64 `json:"amount"`
	Period struct {
		Start int64 `json:"start"`
		End   int64 `json:"end"`
	} `json:"period"`
}

// invoicePayload covers invoice.payment_succeeded and
// invoice.payment_failed.
type invoicePayload struct {
	ID            string `json:"id"`
	Customer      string `json:"customer"`
	Subscription  string `json:"subscription"`
	BillingReason string `json:"billing_reason"`
	AmountPaid    int64  `json:"amount_paid"`
	AttemptCount  int64  `json:"attempt_count"`
	Lines         struct {
		Data []invoiceLine `json:"data"`
	} `json:"lines"`
}

func parseInvoice(raw []byte) (*invoicePayload, error) {
	var p invoicePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(p.Customer) == "" {
		return nil, fmt.Errorf("%w: invoice missing customer", ErrMalformedPayload)
	}
	return &p, nil
}

// firstLinePeriodEnd returns the period end of the first invoice line,
// if any line carries one.
func (p *invoicePayload) firstLinePeriodEnd() *time.Time {
	for _, line := range p.Lines.Data {
		if line.Period.End > 0 {
			return unixTime(line.Period.End)
		}
	}
	return nil
}

// subscriptionPayload covers customer.subscription.updated/deleted.
type subscriptionPayload struct {
	ID                  string `json:"id"`
	Customer            string `json:"customer"`
	Status              string `json:"status"`
	TrialEnd            int64  `json:"trial_end"`
	CanceledAt          int64  `json:"canceled_at"`
	CancellationDetails struct {
		Reason  string `json:"reason"`
		Comment string `json:"comment"`
	} `json:"cancellation_details"`
}

func parseSubscription(raw []byte) (*subscriptionPayload, error) {
	var p subscriptionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(p.Customer) == "" {
		return nil, fmt.Errorf("%w: subscription missing customer", ErrMalformedPayload)
	}
	if strings.TrimSpace(p.Status) == "" {
		return nil, fmt.Errorf("%w: subscription missing status", ErrMalformedPayload)
	}
	return &p, nil
}

// setupIntentPayload covers setup_intent.requires_action, .setup_failed
// and .canceled.
type setupIntentPayload struct {
	ID             string `json:"id"`
	Customer       string `json:"customer"`
	LastSetupError struct {
		Message string `json:"message"`
	} `json:"last_setup_error"`
}

func parseSetupIntent(raw []byte) (*setupIntentPayload, error) {
	var p setupIntentPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(p.ID) == "" {
		return nil, fmt.Errorf("%w: setup intent missing id", ErrMalformedPayload)
	}
	if strings.TrimSpace(p.Customer) == "" {
		return nil, fmt.Errorf("%w: setup intent missing customer", ErrMalformedPayload)
	}
	return &p, nil
}

// disputePayload covers charge.dispute.created. Customer is required so
// the audit record can be attributed to a local user.
type disputePayload struct {
	ID       string `json:"id"`
	Charge   string `json:"charge"`
	Customer string `json:"customer"`
	Amount   int64  `json:"amount"`
	Reason   string `json:"reason"`
}

func parseDispute(raw []byte) (*disputePayload, error) {
	var p disputePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if strings.TrimSpace(p.ID) == "" {
		return nil, fmt.Errorf("%w: dispute missing id", ErrMalformedPayload)
	}
	if strings.TrimSpace(p.Customer) == "" {
		return nil, fmt.Errorf("%w: dispute missing customer", ErrMalformedPayload)
	}
	return &p, nil
}

// unixTime converts a provider unix timestamp to UTC; zero and negative
// values map to nil (absent).
func unixTime(ts int64) *time.Time {
	if ts <= 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

// formatTimePtr renders an optional timestamp for audit details.
func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
