package eligibility

import (
	"testing"
	"time"

	"github.com/solenne-institute/booking/internal/interval"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return monday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func workDay() []interval.Interval {
	// Institute and practitioner both open Mon 09:30-19:00.
	return []interval.Interval{{Start: at(9, 30), End: at(19, 0)}}
}

func TestEvaluate_FullyFreeDay(t *testing.T) {
	c := Candidate{PractitionerID: "p1", Work: workDay()}
	res := Evaluate(at(10, 0), 60, c)
	if !res.Eligible {
		t.Fatal("expected eligible on an empty day")
	}
	// 10:00 to 19:00 is 540 minutes of contiguous free time.
	if res.MaxFreeMinutes != 540 {
		t.Fatalf("maxFreeMinutes = %d, want 540", res.MaxFreeMinutes)
	}
}

func TestEvaluate_BlockedByExistingAppointment(t *testing.T) {
	c := Candidate{
		PractitionerID: "p1",
		Work:           workDay(),
		Blocked:        []interval.Interval{{Start: at(10, 0), End: at(11, 0)}},
	}
	// 10:30 falls inside the booked hour; the free interval containing it
	// does not exist ([11:00, 19:00) starts after the requested instant).
	res := Evaluate(at(10, 30), 30, c)
	if res.Eligible {
		t.Fatal("expected ineligible when the requested start is blocked")
	}
	if res.MaxFreeMinutes != 0 {
		t.Fatalf("maxFreeMinutes = %d, want 0", res.MaxFreeMinutes)
	}
}

func TestEvaluate_NotEnoughSlackBeforeNextBooking(t *testing.T) {
	c := Candidate{
		PractitionerID: "p1",
		Work:           workDay(),
		Blocked:        []interval.Interval{{Start: at(11, 0), End: at(12, 0)}},
	}
	// 10:15 start leaves 45 free minutes before the 11:00 booking.
	res := Evaluate(at(10, 15), 60, c)
	if res.Eligible {
		t.Fatal("expected ineligible: only 45 minutes free")
	}
	if res.MaxFreeMinutes != 45 {
		t.Fatalf("maxFreeMinutes = %d, want 45", res.MaxFreeMinutes)
	}
}

func TestEvaluate_StartOutsideWorkHours(t *testing.T) {
	c := Candidate{PractitionerID: "p1", Work: workDay()}
	res := Evaluate(at(8, 0), 30, c)
	if res.Eligible || res.MaxFreeMinutes != 0 {
		t.Fatalf("expected ineligible outside work hours, got %+v", res)
	}
}

func TestRank_TieBreakChain(t *testing.T) {
	results := []Result{
		{PractitionerID: "c", Eligible: true, TotalPriceCents: 5000, MaxFreeMinutes: 120},
		{PractitionerID: "a", Eligible: true, TotalPriceCents: 6000, MaxFreeMinutes: 300},
		{PractitionerID: "b", Eligible: true, TotalPriceCents: 5000, MaxFreeMinutes: 240},
		{PractitionerID: "d", Eligible: true, TotalPriceCents: 5000, MaxFreeMinutes: 240},
		{PractitionerID: "e", Eligible: false, TotalPriceCents: 1, MaxFreeMinutes: 600},
	}
	ranked := Rank(results)
	want := []string{"b", "d", "c", "a"}
	if len(ranked) != len(want) {
		t.Fatalf("ranked %d results, want %d", len(ranked), len(want))
	}
	for i, id := range want {
		if ranked[i].PractitionerID != id {
			t.Fatalf("rank[%d] = %s, want %s", i, ranked[i].PractitionerID, id)
		}
	}
}

func TestPick_PinnedMustBeEligible(t *testing.T) {
	candidates := []Candidate{
		{PractitionerID: "p1", Work: workDay()},
		{PractitionerID: "p2", Work: workDay(), Blocked: []interval.Interval{{Start: at(9, 30), End: at(19, 0)}}},
	}

	if _, ok := Pick(at(10, 0), 60, candidates, "p2"); ok {
		t.Fatal("pinned ineligible practitioner must fail the selection")
	}
	res, ok := Pick(at(10, 0), 60, candidates, "p1")
	if !ok || res.PractitionerID != "p1" {
		t.Fatalf("pinned eligible practitioner must win, got %+v ok=%v", res, ok)
	}
}

func TestPick_UnpinnedPrefersCheapest(t *testing.T) {
	candidates := []Candidate{
		{PractitionerID: "p1", Work: workDay(), TotalPriceCents: 6500},
		{PractitionerID: "p2", Work: workDay(), TotalPriceCents: 5200},
	}
	res, ok := Pick(at(10, 0), 60, candidates, "")
	if !ok || res.PractitionerID != "p2" {
		t.Fatalf("expected cheapest practitioner, got %+v ok=%v", res, ok)
	}
}

func TestPick_NoCandidates(t *testing.T) {
	if _, ok := Pick(at(10, 0), 60, nil, ""); ok {
		t.Fatal("empty candidate pool must not pick")
	}
}
