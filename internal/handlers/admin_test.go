package handlers

import (
	"testing"
	"time"

	"github.com/solenne-institute/booking/internal/schedule"
)

func TestAllDayBoundsCoversWholeCivilDay(t *testing.T) {
	r := schedule.NewResolver(time.UTC)
	start := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	end := time.Date(2026, 3, 2, 15, 0, 0, 0, time.UTC)

	gotStart, gotEnd := allDayBounds(r, start, end)
	if !gotStart.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v, want midnight", gotStart)
	}
	if !gotEnd.Equal(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %v, want next midnight", gotEnd)
	}
}

func TestAllDayBoundsSpansMultipleDays(t *testing.T) {
	r := schedule.NewResolver(time.UTC)
	start := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 4, 1, 0, 0, 0, time.UTC)

	gotStart, gotEnd := allDayBounds(r, start, end)
	if !gotStart.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start = %v", gotStart)
	}
	if !gotEnd.Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end = %v, want midnight after the last touched day", gotEnd)
	}
}

func TestAllDayBoundsMidnightEndDoesNotRollOver(t *testing.T) {
	r := schedule.NewResolver(time.UTC)
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)

	_, gotEnd := allDayBounds(r, start, end)
	if !gotEnd.Equal(end) {
		t.Fatalf("end = %v, an exact-midnight end must stay put", gotEnd)
	}
}

func TestAllDayBoundsUsesInstituteTimezone(t *testing.T) {
	loc := time.FixedZone("institute", 2*60*60)
	r := schedule.NewResolver(loc)
	// 23:00 UTC is already 01:00 the next civil day at the institute.
	start := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	gotStart, gotEnd := allDayBounds(r, start, end)
	if !gotStart.Equal(time.Date(2026, 3, 3, 0, 0, 0, 0, loc)) {
		t.Fatalf("start = %v, want institute-local midnight", gotStart)
	}
	if !gotEnd.Equal(time.Date(2026, 3, 4, 0, 0, 0, 0, loc)) {
		t.Fatalf("end = %v", gotEnd)
	}
}
