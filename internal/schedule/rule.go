package schedule

import (
	"time"
)

// WeeklyRule describes one recurring work window on a single weekday, in the
// institute's civil time. PractitionerID is empty for institute-wide opening
// hours. EffectiveFrom/EffectiveTo are inclusive civil-day bounds restricting
// which calendar days the rule applies to; nil means unbounded.
type WeeklyRule struct {
	ID             string
	PractitionerID string
	Weekday        time.Weekday
	StartMinute    int
	EndMinute      int
	Active         bool
	EffectiveFrom  *time.Time
	EffectiveTo    *time.Time
}

// AppliesOn reports whether the rule is in force on the given civil day.
// The weekday itself is matched by the caller; this checks the active flag
// and the date bounds.
func (r WeeklyRule) AppliesOn(day time.Time) bool {
	if !r.Active || r.EndMinute <= r.StartMinute {
		return false
	}
	d := civilDay(day)
	if r.EffectiveFrom != nil && d.Before(civilDay(*r.EffectiveFrom)) {
		return false
	}
	if r.EffectiveTo != nil && d.After(civilDay(*r.EffectiveTo)) {
		return false
	}
	return true
}

func civilDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
