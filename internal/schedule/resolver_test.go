package schedule

import (
	"testing"
	"time"

	"github.com/solenne-institute/booking/internal/interval"
)

// Monday in the test week.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func minutes(h, m int) int { return h*60 + m }

func instituteRule(weekday time.Weekday, startMin, endMin int) WeeklyRule {
	return WeeklyRule{ID: "inst", Weekday: weekday, StartMinute: startMin, EndMinute: endMin, Active: true}
}

func staffRule(id string, weekday time.Weekday, startMin, endMin int) WeeklyRule {
	return WeeklyRule{ID: "r-" + id, PractitionerID: id, Weekday: weekday, StartMinute: startMin, EndMinute: endMin, Active: true}
}

func TestResolveDay_IntersectsInstituteHours(t *testing.T) {
	r := NewResolver(time.UTC)
	rules := []WeeklyRule{
		instituteRule(time.Monday, minutes(9, 30), minutes(19, 0)),
		staffRule("p1", time.Monday, minutes(8, 0), minutes(12, 0)), // clipped to 09:30
		staffRule("p2", time.Monday, minutes(10, 0), minutes(14, 0)),
	}
	got := r.ResolveDay(monday, rules, []string{"p1", "p2"})

	p1 := got["p1"]
	if len(p1) != 1 || !p1[0].Start.Equal(monday.Add(9*time.Hour+30*time.Minute)) || !p1[0].End.Equal(monday.Add(12*time.Hour)) {
		t.Fatalf("p1 work intervals = %v", p1)
	}
	p2 := got["p2"]
	if len(p2) != 1 || !p2[0].Start.Equal(monday.Add(10*time.Hour)) || !p2[0].End.Equal(monday.Add(14*time.Hour)) {
		t.Fatalf("p2 work intervals = %v", p2)
	}
}

func TestResolveDay_DefaultOpenWithoutInstituteRules(t *testing.T) {
	r := NewResolver(time.UTC)
	rules := []WeeklyRule{
		staffRule("p1", time.Monday, minutes(8, 0), minutes(20, 0)),
	}
	got := r.ResolveDay(monday, rules, []string{"p1"})
	p1 := got["p1"]
	if len(p1) != 1 || !p1[0].Start.Equal(monday.Add(8*time.Hour)) || !p1[0].End.Equal(monday.Add(20*time.Hour)) {
		t.Fatalf("expected raw practitioner interval without institute rules, got %v", p1)
	}
}

func TestResolveDay_InactiveInstituteRulesDoNotConfigure(t *testing.T) {
	r := NewResolver(time.UTC)
	inactive := instituteRule(time.Monday, minutes(9, 0), minutes(12, 0))
	inactive.Active = false
	rules := []WeeklyRule{
		inactive,
		staffRule("p1", time.Monday, minutes(8, 0), minutes(20, 0)),
	}
	got := r.ResolveDay(monday, rules, []string{"p1"})
	p1 := got["p1"]
	if len(p1) != 1 || !p1[0].Start.Equal(monday.Add(8*time.Hour)) || !p1[0].End.Equal(monday.Add(20*time.Hour)) {
		t.Fatalf("disabling the last institute rule must behave like deleting it, got %v", p1)
	}
}

func TestResolveDay_InstituteClosedThatDay(t *testing.T) {
	r := NewResolver(time.UTC)
	// Institute only opens on Tuesdays; practitioner rule on Monday gets nothing.
	rules := []WeeklyRule{
		instituteRule(time.Tuesday, minutes(9, 0), minutes(18, 0)),
		staffRule("p1", time.Monday, minutes(9, 0), minutes(18, 0)),
	}
	got := r.ResolveDay(monday, rules, []string{"p1"})
	if len(got) != 0 {
		t.Fatalf("practitioner cannot work while the institute is closed, got %v", got)
	}
}

func TestResolveDay_DiscardsEmptyIntersections(t *testing.T) {
	r := NewResolver(time.UTC)
	rules := []WeeklyRule{
		instituteRule(time.Monday, minutes(9, 0), minutes(12, 0)),
		staffRule("p1", time.Monday, minutes(14, 0), minutes(18, 0)), // entirely outside institute hours
	}
	got := r.ResolveDay(monday, rules, []string{"p1"})
	if _, ok := got["p1"]; ok {
		t.Fatalf("empty intersection must discard the rule, got %v", got["p1"])
	}
}

func TestResolveDay_IgnoresNonCandidates(t *testing.T) {
	r := NewResolver(time.UTC)
	rules := []WeeklyRule{
		staffRule("p1", time.Monday, minutes(9, 0), minutes(12, 0)),
		staffRule("p2", time.Monday, minutes(9, 0), minutes(12, 0)),
	}
	got := r.ResolveDay(monday, rules, []string{"p1"})
	if _, ok := got["p2"]; ok {
		t.Fatal("non-candidate practitioner must not appear")
	}
}

func TestAppliesOn_Bounds(t *testing.T) {
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	rule := WeeklyRule{Weekday: time.Monday, StartMinute: 540, EndMinute: 1020, Active: true, EffectiveFrom: &from, EffectiveTo: &to}

	if !rule.AppliesOn(from) {
		t.Fatal("effectiveFrom day is inclusive")
	}
	if !rule.AppliesOn(to) {
		t.Fatal("effectiveTo day is inclusive")
	}
	if rule.AppliesOn(from.AddDate(0, 0, -1)) {
		t.Fatal("day before effectiveFrom must not apply")
	}
	if rule.AppliesOn(to.AddDate(0, 0, 1)) {
		t.Fatal("day after effectiveTo must not apply")
	}

	rule.Active = false
	if rule.AppliesOn(from) {
		t.Fatal("inactive rule never applies")
	}
}

func TestResolveDay_MultipleWindowsSameDay(t *testing.T) {
	r := NewResolver(time.UTC)
	rules := []WeeklyRule{
		staffRule("p1", time.Monday, minutes(9, 0), minutes(12, 0)),
		staffRule("p1", time.Monday, minutes(14, 0), minutes(18, 0)),
	}
	got := r.ResolveDay(monday, rules, []string{"p1"})
	if len(got["p1"]) != 2 {
		t.Fatalf("expected two disjoint windows, got %v", got["p1"])
	}
	for i := 1; i < len(got["p1"]); i++ {
		a, b := got["p1"][i-1], got["p1"][i]
		if interval.Overlaps(a.Start, a.End, b.Start, b.End) {
			t.Fatalf("windows overlap: %v %v", a, b)
		}
	}
}
