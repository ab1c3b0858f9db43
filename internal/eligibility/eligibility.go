// Package eligibility decides which practitioners can perform a booking at a
// requested instant, and picks a winner when the client did not pin one.
package eligibility

import (
	"sort"
	"time"

	"github.com/solenne-institute/booking/internal/interval"
)

// Candidate is one practitioner under consideration, with their resolved
// work windows and blocking intervals (time off plus active appointments)
// for the target day.
type Candidate struct {
	PractitionerID  string
	Work            []interval.Interval
	Blocked         []interval.Interval
	TotalPriceCents int64
}

// Result is the eligibility verdict for a single candidate.
type Result struct {
	PractitionerID  string
	Eligible        bool
	MaxFreeMinutes  int
	TotalPriceCents int64
}

// Evaluate subtracts the candidate's blocked intervals from their work
// windows, finds the free interval containing the requested start, and
// checks that it holds the full required duration.
func Evaluate(start time.Time, requiredMinutes int, c Candidate) Result {
	res := Result{PractitionerID: c.PractitionerID, TotalPriceCents: c.TotalPriceCents}

	free := interval.Subtract(c.Work, c.Blocked)
	for _, iv := range free {
		if !iv.Contains(start) {
			continue
		}
		res.MaxFreeMinutes = int(iv.End.Sub(start) / time.Minute)
		break
	}
	res.Eligible = requiredMinutes > 0 && res.MaxFreeMinutes >= requiredMinutes
	return res
}

// Rank filters to eligible results and sorts them by the deterministic
// tie-break chain: cheapest first, then most remaining slack, then
// practitioner id. Repeated calls over identical state always produce the
// same order.
func Rank(results []Result) []Result {
	eligible := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Eligible {
			eligible = append(eligible, r)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		a, b := eligible[i], eligible[j]
		if a.TotalPriceCents != b.TotalPriceCents {
			return a.TotalPriceCents < b.TotalPriceCents
		}
		if a.MaxFreeMinutes != b.MaxFreeMinutes {
			return a.MaxFreeMinutes > b.MaxFreeMinutes
		}
		return a.PractitionerID < b.PractitionerID
	})
	return eligible
}

// Pick evaluates all candidates and selects the winner. When pinnedID is
// set, that practitioner must be eligible or the selection fails.
func Pick(start time.Time, requiredMinutes int, candidates []Candidate, pinnedID string) (Result, bool) {
	results := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, Evaluate(start, requiredMinutes, c))
	}

	if pinnedID != "" {
		for _, r := range results {
			if r.PractitionerID == pinnedID && r.Eligible {
				return r, true
			}
		}
		return Result{}, false
	}

	ranked := Rank(results)
	if len(ranked) == 0 {
		return Result{}, false
	}
	return ranked[0], true
}
