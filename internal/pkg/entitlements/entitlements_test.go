package entitlements

import "testing"

func TestIsEntitlingStatus(t *testing.T) {
	for _, status := range []string{"active", "trialing", "past_due", " ACTIVE "} {
		if !IsEntitlingStatus(status) {
			t.Fatalf("expected status %q to be entitling", status)
		}
	}
	for _, status := range []string{"canceled", "none", "incomplete", ""} {
		if IsEntitlingStatus(status) {
			t.Fatalf("expected status %q to be non-entitling", status)
		}
	}
}

func TestForStatus(t *testing.T) {
	if got := ForStatus("active"); got != PlanPremium {
		t.Fatalf("ForStatus(active) = %q, want premium", got)
	}
	if got := ForStatus("canceled"); got != PlanFree {
		t.Fatalf("ForStatus(canceled) = %q, want free", got)
	}
}
