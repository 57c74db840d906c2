package billing

import (
	"testing"
	"time"
)

func TestAddCalendarMonthsClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "plain month",
			in:   time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC),
			want: time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC),
		},
		{
			name: "jan 31 clamps to feb 28",
			in:   time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "jan 31 clamps to feb 29 in leap year",
			in:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "mar 31 clamps to apr 30",
			in:   time.Date(2025, 3, 31, 23, 59, 0, 0, time.UTC),
			want: time.Date(2025, 4, 30, 23, 59, 0, 0, time.UTC),
		},
		{
			name: "december rolls into next year",
			in:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
			want: time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		if got := AddCalendarMonths(tt.in, 1); !got.Equal(tt.want) {
			t.Fatalf("%s: AddCalendarMonths(%v, 1) = %v, want %v", tt.name, tt.in, got, tt.want)
		}
	}
}

func TestNextPeriodEndExtendsFutureEnd(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	current := time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC)

	got := NextPeriodEnd(&current, now)
	want := time.Date(2025, 7, 20, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("NextPeriodEnd = %v, want %v", got, want)
	}
}

func TestNextPeriodEndRebasesExpiredEnd(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	expired := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)

	got := NextPeriodEnd(&expired, now)
	want := time.Date(2025, 7, 10, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("NextPeriodEnd = %v, want %v", got, want)
	}
	if !got.After(now) || !got.After(expired) {
		t.Fatalf("period end %v must be after now and the old end", got)
	}
}

func TestNextPeriodEndWithoutCurrent(t *testing.T) {
	now := time.Date(2025, 1, 31, 8, 0, 0, 0, time.UTC)

	got := NextPeriodEnd(nil, now)
	want := time.Date(2025, 2, 28, 8, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("NextPeriodEnd = %v, want %v", got, want)
	}
}
