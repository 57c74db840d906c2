package billing

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/MartinHaas/LokalMarkt/app/models"
	"github.com/MartinHaas/LokalMarkt/internal/pkg/entitlements"
)

// handleCheckoutCompleted provisions the premium listing after checkout.
// Unknown customer e-mails get a fresh inactive account plus a setup
// token mail. The trial is reserved for accounts that have not finished
// setup yet; a known, confirmed customer who checks out again goes
// straight to a paid period, and the period end never moves backwards.
func (s *Service) handleCheckoutCompleted(ev *Event) error {
	payload, err := parseCheckoutSession(ev.Payload)
	if err != nil {
		return err
	}

	now := s.now().UTC()

	user, err := s.userForCheckout(payload)
	if err != nil {
		return err
	}

	sub, err := s.subscriptionForCustomer(payload.Customer)
	if err != nil {
		return err
	}
	if sub == nil {
		sub = &models.Subscription{CustomerID: payload.Customer}
	}

	sub.UserID = user.ID
	sub.ProviderSubscriptionID = payload.Subscription
	sub.CanceledAt = nil
	sub.CancellationReason = ""
	sub.CancellationComment = ""

	if s.cfg.TrialDays > 0 && !user.IsActive() {
		trialEnd := now.Add(time.Duration(s.cfg.TrialDays) * 24 * time.Hour)
		sub.Status = models.SubscriptionStatusTrialing
		sub.TrialEnd = &trialEnd
		if sub.PeriodEnd == nil || trialEnd.After(*sub.PeriodEnd) {
			sub.PeriodEnd = &trialEnd
		}
	} else {
		periodEnd := AddCalendarMonths(now, 1)
		sub.Status = models.SubscriptionStatusActive
		sub.TrialEnd = nil
		if sub.PeriodEnd == nil || periodEnd.After(*sub.PeriodEnd) {
			sub.PeriodEnd = &periodEnd
		}
	}

	if err := s.repo.SaveSubscription(sub); err != nil {
		return err
	}

	if err := s.reconcilePlan(user, sub.Status); err != nil {
		return err
	}

	event := models.NewBillingEvent(user.ID, models.BillingEventCheckoutCompleted, now, map[string]interface{}{
		"checkout_session":        payload.ID,
		"customer_id":             payload.Customer,
		"provider_subscription":   payload.Subscription,
		"subscription_status":     sub.Status,
		"subscription_period_end": formatTimePtr(sub.PeriodEnd),
	})
	if err := s.repo.AppendBillingEvent(event); err != nil {
		return err
	}

	if !user.IsActive() {
		s.notifier.Send("Willkommen bei LokalMarkt Premium", "account_setup", user.Email, map[string]string{
			"name":        user.Name,
			"setup_token": user.SetupToken,
		})
	}

	return nil
}

// userForCheckout resolves the checkout to a local account, creating an
// inactive one with a setup token when the e-mail is unknown. Known but
// still unconfirmed accounts get a setup token issued on demand.
func (s *Service) userForCheckout(payload *checkoutSessionPayload) (*models.User, error) {
	user, err := s.directory.GetUserByEmail(payload.CustomerDetails.Email)
	if err == nil {
		if !user.IsActive() && user.SetupToken == "" {
			if err := user.GenerateSetupToken(); err != nil {
				return nil, fmt.Errorf("failed to generate setup token: %w", err)
			}
			if err := s.directory.SaveUser(user); err != nil {
				return nil, err
			}
		}
		return user, nil
	}
	if !IsNotFound(err) {
		return nil, fmt.Errorf("failed to look up user %s: %w", payload.CustomerDetails.Email, err)
	}

	name := payload.CustomerDetails.Name
	if len(name) < 3 {
		name = payload.CustomerDetails.Email
	}

	user, err = models.CreateUser(name, payload.CustomerDetails.Email, uuid.NewString())
	if err != nil {
		return nil, fmt.Errorf("failed to build user for %s: %w", payload.CustomerDetails.Email, err)
	}
	if err := user.GenerateSetupToken(); err != nil {
		return nil, fmt.Errorf("failed to generate setup token: %w", err)
	}
	if err := s.directory.CreateUser(user); err != nil {
		return nil, err
	}

	log.Infof("[Billing] Created account %s for checkout customer %s", user.Email, payload.Customer)
	return user, nil
}

// handleInvoicePaymentSucceeded processes renewals. Zero-amount invoices
// on a trialing subscription only refresh the trial window; paid
// invoices extend the period by one calendar month, debounced so retried
// deliveries within the window extend exactly once.
func (s *Service) handleInvoicePaymentSucceeded(ev *Event) error {
	payload, err := parseInvoice(ev.Payload)
	if err != nil {
		return err
	}

	sub, err := s.subscriptionForCustomer(payload.Customer)
	if err != nil || sub == nil {
		return err
	}
	if sub.IsCanceled() {
		log.Warnf("[Billing] Ignoring invoice %s for canceled subscription of customer %s", payload.ID, payload.Customer)
		return nil
	}

	now := s.now().UTC()

	// Trial invoices are zero-amount; they carry the trial window in the
	// line period, not a paid billing cycle.
	if sub.Status == models.SubscriptionStatusTrialing && payload.AmountPaid == 0 {
		return s.refreshTrialWindow(sub, payload, now)
	}

	event := models.NewBillingEvent(sub.UserID, models.BillingEventPaymentSucceeded, now, map[string]interface{}{
		"invoice":        payload.ID,
		"customer_id":    payload.Customer,
		"amount_paid":    payload.AmountPaid,
		"billing_reason": payload.BillingReason,
	})
	if err := s.repo.AppendBillingEvent(event); err != nil {
		return err
	}

	recent, err := s.repo.HasRecentBillingEvent(sub.UserID, models.BillingEventSubscriptionExtended, now.Add(-ExtensionDebounceWindow))
	if err != nil {
		return err
	}
	if recent {
		log.Infof("[Billing] Skipping extension for customer %s, already extended within %s", payload.Customer, ExtensionDebounceWindow)
		return nil
	}

	// A paid invoice only extends the period. Status transitions,
	// including past_due recovery and trial conversion, arrive separately
	// via subscription updates.
	oldPeriodEnd := sub.PeriodEnd
	newPeriodEnd := NextPeriodEnd(sub.PeriodEnd, now)

	sub.PeriodEnd = &newPeriodEnd
	if err := s.repo.SaveSubscription(sub); err != nil {
		return err
	}

	extension := models.NewBillingEvent(sub.UserID, models.BillingEventSubscriptionExtended, now, map[string]interface{}{
		"invoice":        payload.ID,
		"old_period_end": formatTimePtr(oldPeriodEnd),
		"new_period_end": newPeriodEnd.Format(time.RFC3339),
	})
	return s.repo.AppendBillingEvent(extension)
}

// refreshTrialWindow advances the trial end from the invoice line
// period. The stored period end only ever moves forward.
func (s *Service) refreshTrialWindow(sub *models.Subscription, payload *invoicePayload, now time.Time) error {
	lineEnd := payload.firstLinePeriodEnd()
	if lineEnd == nil {
		log.Warnf("[Billing] Trial invoice %s without line period, keeping current trial window", payload.ID)
		return nil
	}

	if sub.TrialEnd == nil || lineEnd.After(*sub.TrialEnd) {
		sub.TrialEnd = lineEnd
	}
	if sub.PeriodEnd == nil || lineEnd.After(*sub.PeriodEnd) {
		sub.PeriodEnd = lineEnd
	}
	if err := s.repo.SaveSubscription(sub); err != nil {
		return err
	}

	event := models.NewBillingEvent(sub.UserID, models.BillingEventTrialPeriodUpdated, now, map[string]interface{}{
		"invoice":   payload.ID,
		"trial_end": formatTimePtr(sub.TrialEnd),
	})
	return s.repo.AppendBillingEvent(event)
}

// handleInvoicePaymentFailed records the failed charge and alerts the
// operator. Status changes (past_due, canceled) arrive separately via
// customer.subscription.updated.
func (s *Service) handleInvoicePaymentFailed(ev *Event) error {
	payload, err := parseInvoice(ev.Payload)
	if err != nil {
		return err
	}

	sub, err := s.subscriptionForCustomer(payload.Customer)
	if err != nil || sub == nil {
		return err
	}

	now := s.now().UTC()
	event := models.NewBillingEvent(sub.UserID, models.BillingEventPaymentFailed, now, map[string]interface{}{
		"invoice":       payload.ID,
		"customer_id":   payload.Customer,
		"attempt_count": payload.AttemptCount,
	})
	if err := s.repo.AppendBillingEvent(event); err != nil {
		return err
	}

	s.notifier.Send("Zahlung fehlgeschlagen", "payment_failed", s.cfg.AdminEmail, map[string]string{
		"customer_id":   payload.Customer,
		"invoice":       payload.ID,
		"attempt_count": fmt.Sprintf("%d", payload.AttemptCount),
	})

	return nil
}

// handleSubscriptionUpdated mirrors the provider-side status into the
// local subscription row.
func (s *Service) handleSubscriptionUpdated(ev *Event) error {
	payload, err := parseSubscription(ev.Payload)
	if err != nil {
		return err
	}

	sub, err := s.subscriptionForCustomer(payload.Customer)
	if err != nil || sub == nil {
		return err
	}

	now := s.now().UTC()

	switch payload.Status {
	case models.SubscriptionStatusTrialing:
		sub.Status = models.SubscriptionStatusTrialing
		if trialEnd := unixTime(payload.TrialEnd); trialEnd != nil {
			sub.TrialEnd = trialEnd
			if sub.PeriodEnd == nil || trialEnd.After(*sub.PeriodEnd) {
				sub.PeriodEnd = trialEnd
			}
		}
	case models.SubscriptionStatusActive:
		sub.Status = models.SubscriptionStatusActive
		sub.TrialEnd = nil
	case models.SubscriptionStatusPastDue:
		sub.Status = models.SubscriptionStatusPastDue
	case models.SubscriptionStatusCanceled:
		return s.cancelSubscription(sub, payload, now)
	default:
		log.Warnf("[Billing] Unhandled subscription status %q for customer %s", payload.Status, payload.Customer)
		return nil
	}

	sub.ProviderSubscriptionID = payload.ID
	if err := s.repo.SaveSubscription(sub); err != nil {
		return err
	}

	return s.reconcilePlanByID(sub.UserID, sub.Status)
}

// handleSubscriptionDeleted is the terminal cancellation. Already
// canceled subscriptions are left untouched so a late deleted event
// cannot overwrite the recorded cancellation details.
func (s *Service) handleSubscriptionDeleted(ev *Event) error {
	payload, err := parseSubscription(ev.Payload)
	if err != nil {
		return err
	}

	sub, err := s.subscriptionForCustomer(payload.Customer)
	if err != nil || sub == nil {
		return err
	}
	if sub.IsCanceled() {
		log.Infof("[Billing] Subscription of customer %s already canceled", payload.Customer)
		return nil
	}

	return s.cancelSubscription(sub, payload, s.now().UTC())
}

// cancelSubscription performs the terminal transition: status, timestamp
// and cancellation details on the row, plan downgrade, audit record.
func (s *Service) cancelSubscription(sub *models.Subscription, payload *subscriptionPayload, now time.Time) error {
	canceledAt := unixTime(payload.CanceledAt)
	if canceledAt == nil {
		canceledAt = &now
	}

	sub.Status = models.SubscriptionStatusCanceled
	sub.CanceledAt = canceledAt
	sub.CancellationReason = payload.CancellationDetails.Reason
	sub.CancellationComment = payload.CancellationDetails.Comment
	if err := s.repo.SaveSubscription(sub); err != nil {
		return err
	}

	if err := s.reconcilePlanByID(sub.UserID, sub.Status); err != nil {
		return err
	}

	event := models.NewBillingEvent(sub.UserID, models.BillingEventSubscriptionCanceled, now, map[string]interface{}{
		"customer_id": sub.CustomerID,
		"canceled_at": formatTimePtr(canceledAt),
		"reason":      payload.CancellationDetails.Reason,
		"comment":     payload.CancellationDetails.Comment,
	})
	return s.repo.AppendBillingEvent(event)
}

// handleSetupIntentRequiresAction asks the customer to confirm their
// payment method and copies the operator in.
func (s *Service) handleSetupIntentRequiresAction(ev *Event) error {
	payload, err := parseSetupIntent(ev.Payload)
	if err != nil {
		return err
	}

	sub, err := s.subscriptionForCustomer(payload.Customer)
	if err != nil || sub == nil {
		return err
	}

	now := s.now().UTC()
	event := models.NewBillingEvent(sub.UserID, models.BillingEventSetupIntentRequiresAction, now, map[string]interface{}{
		"setup_intent": payload.ID,
		"customer_id":  payload.Customer,
	})
	if err := s.repo.AppendBillingEvent(event); err != nil {
		return err
	}

	if user, err := s.directory.GetUserByID(sub.UserID); err == nil {
		s.notifier.Send("Bestätigung Ihrer Zahlungsmethode erforderlich", "setup_intent_action", user.Email, map[string]string{
			"name": user.Name,
		})
	} else {
		log.Errorf("[Billing] Failed to load user %d for setup intent notification: %v", sub.UserID, err)
	}

	s.notifier.Send("Setup-Intent wartet auf Kundenaktion", "setup_intent_action_admin", s.cfg.AdminEmail, map[string]string{
		"customer_id":  payload.Customer,
		"setup_intent": payload.ID,
	})

	return nil
}

// handleSetupIntentFailed covers failed and canceled payment method
// setups.
func (s *Service) handleSetupIntentFailed(ev *Event) error {
	payload, err := parseSetupIntent(ev.Payload)
	if err != nil {
		return err
	}

	sub, err := s.subscriptionForCustomer(payload.Customer)
	if err != nil || sub == nil {
		return err
	}

	now := s.now().UTC()
	event := models.NewBillingEvent(sub.UserID, models.BillingEventPaymentMethodSetupFailed, now, map[string]interface{}{
		"setup_intent": payload.ID,
		"customer_id":  payload.Customer,
		"error":        payload.LastSetupError.Message,
	})
	if err := s.repo.AppendBillingEvent(event); err != nil {
		return err
	}

	s.notifier.Send("Einrichtung der Zahlungsmethode fehlgeschlagen", "setup_intent_failed", s.cfg.AdminEmail, map[string]string{
		"customer_id":  payload.Customer,
		"setup_intent": payload.ID,
		"error":        payload.LastSetupError.Message,
	})

	return nil
}

// handleChargeDisputeCreated always alerts the operator, even when the
// customer cannot be attributed locally; the audit record needs a user
// and is only written for known customers.
func (s *Service) handleChargeDisputeCreated(ev *Event) error {
	payload, err := parseDispute(ev.Payload)
	if err != nil {
		return err
	}

	s.notifier.Send("[DRINGEND] Zahlungsstreitfall eröffnet", "charge_dispute", s.cfg.AdminEmail, map[string]string{
		"dispute":     payload.ID,
		"charge":      payload.Charge,
		"customer_id": payload.Customer,
		"amount":      fmt.Sprintf("%d", payload.Amount),
		"reason":      payload.Reason,
	})

	sub, err := s.subscriptionForCustomer(payload.Customer)
	if err != nil || sub == nil {
		return err
	}

	now := s.now().UTC()
	event := models.NewBillingEvent(sub.UserID, models.BillingEventChargeDisputeCreated, now, map[string]interface{}{
		"dispute":     payload.ID,
		"charge":      payload.Charge,
		"customer_id": payload.Customer,
		"amount":      payload.Amount,
		"reason":      payload.Reason,
	})
	return s.repo.AppendBillingEvent(event)
}

// subscriptionForCustomer loads the subscription for a provider
// customer. An unknown customer is a warn-and-skip, not an error; the
// provider may replay events from before this system existed.
func (s *Service) subscriptionForCustomer(customerID string) (*models.Subscription, error) {
	sub, err := s.repo.GetSubscriptionByCustomerID(customerID)
	if err != nil {
		if IsNotFound(err) {
			log.Warnf("[Billing] No subscription for customer %s, skipping", customerID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load subscription for customer %s: %w", customerID, err)
	}
	return sub, nil
}

// reconcilePlan aligns the user's plan with the subscription status.
func (s *Service) reconcilePlan(user *models.User, status string) error {
	plan := string(entitlements.ForStatus(status))
	if user.Plan == plan {
		return nil
	}
	user.Plan = plan
	if err := s.directory.SaveUser(user); err != nil {
		return err
	}
	log.Infof("[Billing] User %d plan set to %s", user.ID, plan)
	return nil
}

// reconcilePlanByID is reconcilePlan for callers that only hold the ID.
func (s *Service) reconcilePlanByID(userID uint, status string) error {
	user, err := s.directory.GetUserByID(userID)
	if err != nil {
		return fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return s.reconcilePlan(user, status)
}
