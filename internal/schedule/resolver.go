// Package schedule turns weekly availability rules into concrete work
// intervals for one calendar day.
package schedule

import (
	"time"

	"github.com/solenne-institute/booking/internal/interval"
)

// Resolver converts civil-time weekly rules into absolute-instant work
// windows. It is bound to the institute's single configured timezone.
type Resolver struct {
	loc *time.Location
}

func NewResolver(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc}
}

// Location returns the institute timezone the resolver converts with.
func (r *Resolver) Location() *time.Location {
	return r.loc
}

// DayBounds returns the absolute [midnight, next midnight) range for a civil day.
func (r *Resolver) DayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, r.loc)
	return start, start.AddDate(0, 0, 1)
}

// ResolveDay computes, for each candidate practitioner, the normalized work
// intervals on the target civil day: institute hours intersected with the
// practitioner's own rules. When the institute has no active rules configured
// at all, practitioner rules are used unmodified (deliberate default-open
// policy, not a fallback bug). Time off and existing appointments are NOT
// subtracted here; that happens at eligibility time.
func (r *Resolver) ResolveDay(day time.Time, rules []WeeklyRule, candidateIDs []string) map[string][]interval.Interval {
	weekday := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, r.loc).Weekday()

	var instituteIntervals []interval.Interval
	instituteConfigured := false
	perPractitioner := make(map[string][]interval.Interval, len(candidateIDs))

	candidates := make(map[string]bool, len(candidateIDs))
	for _, id := range candidateIDs {
		candidates[id] = true
	}

	for _, rule := range rules {
		// Deactivated institute rules do not count: soft-disabling the last
		// one behaves like deleting it.
		if rule.PractitionerID == "" && rule.Active {
			instituteConfigured = true
		}
		if rule.Weekday != weekday || !rule.AppliesOn(day) {
			continue
		}
		iv := r.toInstants(day, rule)
		if rule.PractitionerID == "" {
			instituteIntervals = append(instituteIntervals, iv)
		} else if candidates[rule.PractitionerID] {
			perPractitioner[rule.PractitionerID] = append(perPractitioner[rule.PractitionerID], iv)
		}
	}
	instituteIntervals = interval.Normalize(instituteIntervals)

	out := make(map[string][]interval.Interval, len(perPractitioner))
	for id, raw := range perPractitioner {
		work := interval.Normalize(raw)
		if instituteConfigured {
			// A practitioner can never be open while the institute is closed.
			work = interval.Intersect(work, instituteIntervals)
		}
		if len(work) > 0 {
			out[id] = work
		}
	}
	return out
}

func (r *Resolver) toInstants(day time.Time, rule WeeklyRule) interval.Interval {
	start := time.Date(day.Year(), day.Month(), day.Day(), rule.StartMinute/60, rule.StartMinute%60, 0, 0, r.loc)
	end := time.Date(day.Year(), day.Month(), day.Day(), rule.EndMinute/60, rule.EndMinute%60, 0, 0, r.loc)
	return interval.Interval{Start: start, End: end}
}
