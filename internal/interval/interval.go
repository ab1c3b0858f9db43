// Package interval implements the half-open time-range algebra the
// availability engine is built on. All functions are total: malformed
// intervals (end <= start) are filtered, never reported as errors.
package interval

import (
	"sort"
	"time"
)

// Interval is a half-open range [Start, End) of absolute instants.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the interval.
func (iv Interval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

func (iv Interval) valid() bool {
	return iv.End.After(iv.Start)
}

// Overlaps is the strict half-open overlap test.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// Normalize drops empty intervals, sorts by start, and merges any interval
// whose start falls at or before the running merged interval's end. The
// result is sorted and pairwise disjoint. Normalize is idempotent.
func Normalize(in []Interval) []Interval {
	work := make([]Interval, 0, len(in))
	for _, iv := range in {
		if iv.valid() {
			work = append(work, iv)
		}
	}
	if len(work) == 0 {
		return nil
	}
	sort.Slice(work, func(i, j int) bool { return work[i].Start.Before(work[j].Start) })

	out := work[:1]
	for _, iv := range work[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// Subtract removes the blocked set from the base set. Both inputs are
// normalized first; the result is normalized by construction.
func Subtract(base, blocked []Interval) []Interval {
	b := Normalize(base)
	k := Normalize(blocked)
	if len(b) == 0 {
		return nil
	}
	if len(k) == 0 {
		return b
	}

	var out []Interval
	for _, iv := range b {
		cursor := iv.Start
		for _, block := range k {
			if !block.End.After(cursor) {
				continue
			}
			if !block.Start.Before(iv.End) {
				break
			}
			if block.Start.After(cursor) {
				out = append(out, Interval{Start: cursor, End: block.Start})
			}
			if block.End.After(cursor) {
				cursor = block.End
			}
			if !cursor.Before(iv.End) {
				break
			}
		}
		if cursor.Before(iv.End) {
			out = append(out, Interval{Start: cursor, End: iv.End})
		}
	}
	return out
}

// Intersect returns the overlap of two normalized sets. Used to clamp
// practitioner hours to institute hours.
func Intersect(a, b []Interval) []Interval {
	na := Normalize(a)
	nb := Normalize(b)

	var out []Interval
	i, j := 0, 0
	for i < len(na) && j < len(nb) {
		start := na[i].Start
		if nb[j].Start.After(start) {
			start = nb[j].Start
		}
		end := na[i].End
		if nb[j].End.Before(end) {
			end = nb[j].End
		}
		if end.After(start) {
			out = append(out, Interval{Start: start, End: end})
		}
		if na[i].End.Before(nb[j].End) {
			i++
		} else {
			j++
		}
	}
	return out
}
