package controllers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/MartinHaas/LokalMarkt/internal/pkg/billing"
)

// BillingProcessor is the slice of the billing service the webhook
// endpoint needs. Kept as an interface so controller tests can stub it.
type BillingProcessor interface {
	ParseEvent(body []byte, signatureHeader string) (*billing.Event, error)
	ProcessEvent(ev *billing.Event) (billing.Result, error)
	BillingHistory(userID uint, limit int) ([]billing.BillingHistoryEntry, error)
}

var billingProcessor BillingProcessor

// InitializeBillingController injects the billing service. Must run
// before the routes are installed.
func InitializeBillingController(p BillingProcessor) {
	billingProcessor = p
}

// HandleStripeWebhook receives provider webhook deliveries.
//
// Response contract: 401 on a bad signature, 400 on an undecodable
// payload, 500 only when the dedup record could not be persisted (the
// provider retries those). Everything else is 200, including duplicate
// deliveries, unhandled event types and handler failures after
// admission.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))

	ev, err := billingProcessor.ParseEvent(rawBody, signature)
	if err != nil {
		if errors.Is(err, billing.ErrAuthentication) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
		}
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}

	result, err := billingProcessor.ProcessEvent(ev)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_persist_failed"})
	}

	switch result.Outcome {
	case billing.OutcomeDuplicate:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	case billing.OutcomeIgnored:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	default:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	}
}

// HandleListBillingEvents serves the audit trail of one user for
// support tooling. Auth sits in the router (basic auth on /api/v1).
func HandleListBillingEvents(c *fiber.Ctx) error {
	userID, err := strconv.ParseUint(c.Params("userID"), 10, 32)
	if err != nil || userID == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "invalid user id"})
	}

	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	entries, err := billingProcessor.BillingHistory(uint(userID), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "billing_history_failed"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"user_id": userID,
		"events":  entries,
	})
}
