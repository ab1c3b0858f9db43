package model

import (
	"errors"
	"testing"
	"time"
)

func TestTransition_CancelStampsInstant(t *testing.T) {
	a := &Appointment{Status: StatusConfirmed}
	at := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)

	if err := a.Transition(StatusCancelled, at, "client called"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if a.CancelledAt == nil || !a.CancelledAt.Equal(at) {
		t.Fatalf("cancellation instant not stamped: %v", a.CancelledAt)
	}
	if a.CancelReason != "client called" {
		t.Fatalf("reason not kept: %q", a.CancelReason)
	}
}

func TestTransition_RejectStampsInstant(t *testing.T) {
	a := &Appointment{Status: StatusPending}
	at := time.Now().UTC()
	if err := a.Transition(StatusRejected, at, ""); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if a.CancelledAt == nil {
		t.Fatal("reject must stamp the cancellation instant")
	}
}

func TestTransition_Illegal(t *testing.T) {
	cases := []struct {
		from AppointmentStatus
		to   AppointmentStatus
	}{
		{StatusCancelled, StatusConfirmed},
		{StatusCompleted, StatusCancelled},
		{StatusRejected, StatusConfirmed},
		{StatusNoShow, StatusCompleted},
		{StatusPending, StatusCompleted},
	}
	for _, tc := range cases {
		a := &Appointment{Status: tc.from}
		err := a.Transition(tc.to, time.Now(), "")
		if !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("%s -> %s: expected ErrInvalidTransition, got %v", tc.from, tc.to, err)
		}
	}
}

func TestBlocks(t *testing.T) {
	for _, tc := range []struct {
		status AppointmentStatus
		blocks bool
	}{
		{StatusPending, true},
		{StatusConfirmed, true},
		{StatusCompleted, true},
		{StatusNoShow, true},
		{StatusCancelled, false},
		{StatusRejected, false},
	} {
		a := &Appointment{Status: tc.status}
		if a.Blocks() != tc.blocks {
			t.Fatalf("%s: Blocks() = %v, want %v", tc.status, a.Blocks(), tc.blocks)
		}
	}
}

func TestReschedule_KeepsDuration(t *testing.T) {
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	a := &Appointment{
		Status:   StatusConfirmed,
		StartsAt: start,
		EndsAt:   start.Add(90 * time.Minute),
	}
	newStart := start.Add(24 * time.Hour)
	if err := a.Reschedule(newStart); err != nil {
		t.Fatalf("reschedule: %v", err)
	}
	if !a.EndsAt.Equal(newStart.Add(90 * time.Minute)) {
		t.Fatalf("duration not preserved: %v -> %v", a.StartsAt, a.EndsAt)
	}

	a.Status = StatusCancelled
	if err := a.Reschedule(newStart); err == nil {
		t.Fatal("rescheduling a cancelled appointment must fail")
	}
}

func TestEffectivePriceCents(t *testing.T) {
	override := int64(4000)
	pct := 20

	cases := []struct {
		name string
		link ServiceLink
		base int64
		want int64
	}{
		{"no override", ServiceLink{}, 6500, 6500},
		{"discount", ServiceLink{DiscountPercent: &pct}, 6500, 5200},
		{"flat override", ServiceLink{PriceCentsOverride: &override}, 6500, 4000},
		{"override wins over discount", ServiceLink{PriceCentsOverride: &override, DiscountPercent: &pct}, 6500, 4000},
	}
	for _, tc := range cases {
		if got := tc.link.EffectivePriceCents(tc.base); got != tc.want {
			t.Fatalf("%s: got %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestTotalDurationMinutes(t *testing.T) {
	a := &Appointment{Items: []AppointmentItem{
		{ServiceID: "a", Position: 0, DurationMinutes: 45},
		{ServiceID: "b", Position: 1, DurationMinutes: 30},
	}}
	if got := a.TotalDurationMinutes(); got != 75 {
		t.Fatalf("total duration = %d, want 75", got)
	}
}
