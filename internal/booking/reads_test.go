package booking

import (
	"testing"
	"time"

	"github.com/solenne-institute/booking/internal/interval"
	"github.com/solenne-institute/booking/internal/model"
)

var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func mondayAt(h, m int) time.Time {
	return monday.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

func openDay(ids ...string) *dayState {
	state := &dayState{
		work:    map[string][]interval.Interval{},
		blocked: map[string][]interval.Interval{},
	}
	for _, id := range ids {
		state.work[id] = []interval.Interval{{Start: mondayAt(9, 0), End: mondayAt(18, 0)}}
	}
	return state
}

func TestEvaluateServiceOptionUnlinkedServiceStaysInResponse(t *testing.T) {
	svc := model.Service{ID: "massage", Name: "Massage", DurationMinutes: 60, BasePriceCents: 7000}

	opt := evaluateServiceOption(mondayAt(10, 0), svc, nil, openDay())
	if opt.Eligible {
		t.Fatal("service without links must not be eligible")
	}
	if opt.Reason != reasonNoPractitioner {
		t.Fatalf("reason = %q, want %q", opt.Reason, reasonNoPractitioner)
	}
	if opt.EffectivePriceCents != 7000 {
		t.Fatalf("price = %d, want base price", opt.EffectivePriceCents)
	}
	if opt.BestPractitionerID != "" {
		t.Fatalf("ineligible verdict must not name a practitioner, got %q", opt.BestPractitionerID)
	}
}

func TestEvaluateServiceOptionFullyBookedReportsReason(t *testing.T) {
	svc := model.Service{ID: "cut", DurationMinutes: 30, BasePriceCents: 3000}
	state := openDay("alice")
	state.blocked["alice"] = []interval.Interval{{Start: mondayAt(9, 0), End: mondayAt(18, 0)}}

	opt := evaluateServiceOption(mondayAt(10, 0), svc, map[string]int64{"alice": 2500}, state)
	if opt.Eligible {
		t.Fatal("fully blocked practitioner must not be eligible")
	}
	if opt.Reason != reasonNoFreeSlot {
		t.Fatalf("reason = %q, want %q", opt.Reason, reasonNoFreeSlot)
	}
	if opt.EffectivePriceCents != 2500 {
		t.Fatalf("price = %d, want cheapest linked price", opt.EffectivePriceCents)
	}
}

func TestEvaluateServiceOptionPicksRankedBestPractitioner(t *testing.T) {
	svc := model.Service{ID: "cut", DurationMinutes: 30, BasePriceCents: 3000}
	state := openDay("alice", "bob")

	opt := evaluateServiceOption(mondayAt(10, 0), svc, map[string]int64{"alice": 3000, "bob": 2400}, state)
	if !opt.Eligible || opt.Reason != "" {
		t.Fatalf("expected eligible verdict, got %+v", opt)
	}
	if opt.BestPractitionerID != "bob" {
		t.Fatalf("best practitioner = %q, want the cheapest (bob)", opt.BestPractitionerID)
	}
	if opt.EffectivePriceCents != 2400 {
		t.Fatalf("price = %d, want the winner's price", opt.EffectivePriceCents)
	}
}
