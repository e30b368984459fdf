package retention

import (
	"testing"
	"time"

	"github.com/relicmirror/relicmirror/internal/buildlist"
)

func TestResolveDate_CreatedAtWins(t *testing.T) {
	rec := buildlist.Record{
		BuildNumber: "2024-05-01",
		CreatedAt:   "2024-05-02T15:04:05Z",
	}

	got, ok := ResolveDate(rec)
	if !ok {
		t.Fatal("ResolveDate() ok = false, want true")
	}
	want := time.Date(2024, 5, 2, 15, 4, 5, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ResolveDate() = %v, want %v", got, want)
	}
}

func TestResolveDate_BuildNumberFallback(t *testing.T) {
	tests := []struct {
		name        string
		buildNumber string
		createdAt   string
		wantDate    string // empty means no date resolves
	}{
		{"plain date", "2024-05-01", "", "2024-05-01"},
		{"suffixed date", "2024-05-01-v2", "", "2024-05-01"},
		{"garbage created_at falls back", "2024-05-01", "not-a-timestamp", "2024-05-01"},
		{"impossible calendar date", "2024-13-40", "", ""},
		{"no date anywhere", "experimental-foo", "", ""},
		{"date not at the start", "v2-2024-05-01", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := buildlist.Record{BuildNumber: tt.buildNumber, CreatedAt: tt.createdAt}
			got, ok := ResolveDate(rec)

			if tt.wantDate == "" {
				if ok {
					t.Errorf("ResolveDate() = %v, want no date", got)
				}
				return
			}
			if !ok {
				t.Fatal("ResolveDate() ok = false, want true")
			}
			want, _ := time.Parse("2006-01-02", tt.wantDate)
			if !got.Equal(want) {
				t.Errorf("ResolveDate() = %v, want %v (UTC midnight)", got, want)
			}
		})
	}
}

func TestDayKey_SameDayRegardlessOfTime(t *testing.T) {
	morning := time.Date(2024, 6, 15, 0, 0, 1, 0, time.UTC)
	evening := time.Date(2024, 6, 15, 23, 59, 59, 0, time.UTC)

	if DayKey(morning) != DayKey(evening) {
		t.Errorf("DayKey() differs within one UTC day: %d vs %d", DayKey(morning), DayKey(evening))
	}
	if DayKey(morning) == DayKey(morning.AddDate(0, 0, 1)) {
		t.Error("DayKey() equal across consecutive days")
	}
}

func TestDayKey_KnownValue(t *testing.T) {
	// 2024-06-15 is 19889 days after the epoch.
	got := DayKey(time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC))
	if got != 19889 {
		t.Errorf("DayKey(2024-06-15) = %d, want 19889", got)
	}
}

func TestAgeDays_ClampsFutureDates(t *testing.T) {
	if got := AgeDays(100, 105); got != 0 {
		t.Errorf("AgeDays(100, 105) = %d, want 0", got)
	}
	if got := AgeDays(100, 60); got != 40 {
		t.Errorf("AgeDays(100, 60) = %d, want 40", got)
	}
	if got := AgeDays(100, 100); got != 0 {
		t.Errorf("AgeDays(100, 100) = %d, want 0", got)
	}
}
