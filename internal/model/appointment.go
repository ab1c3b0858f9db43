package model

import (
	"errors"
	"fmt"
	"time"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusRejected  AppointmentStatus = "rejected"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusCompleted AppointmentStatus = "completed"
	StatusNoShow    AppointmentStatus = "no_show"
)

type Appointment struct {
	ID             string
	ClientID       string
	PractitionerID string
	StartsAt       time.Time
	EndsAt         time.Time
	Status         AppointmentStatus
	Notes          string
	CancelledAt    *time.Time
	CancelReason   string
	CreatedAt      time.Time
	Items          []AppointmentItem
}

type AppointmentItem struct {
	ServiceID       string
	Position        int
	DurationMinutes int
	PriceCents      int64
}

// TotalDurationMinutes is the sum of item durations; EndsAt must always equal
// StartsAt plus this value.
func (a *Appointment) TotalDurationMinutes() int {
	total := 0
	for _, it := range a.Items {
		total += it.DurationMinutes
	}
	return total
}

// Blocks reports whether the appointment occupies its practitioner's time.
// Cancelled and rejected appointments never block availability.
func (a *Appointment) Blocks() bool {
	return a.Status != StatusCancelled && a.Status != StatusRejected
}

var ErrInvalidTransition = errors.New("invalid appointment status transition")

var allowedTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCancelled, StatusCompleted, StatusNoShow},
}

// Transition moves the appointment to a new status, enforcing the side
// effects that must accompany every status change: cancelling or rejecting
// always stamps CancelledAt. All status changes in the system go through
// here; repositories never rewrite Status directly.
func (a *Appointment) Transition(to AppointmentStatus, at time.Time, reason string) error {
	for _, allowed := range allowedTransitions[a.Status] {
		if allowed != to {
			continue
		}
		a.Status = to
		if to == StatusCancelled || to == StatusRejected {
			stamp := at
			a.CancelledAt = &stamp
			a.CancelReason = reason
		}
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, a.Status, to)
}

// Reschedule moves the appointment window. Reminder reservations for the old
// time are invalidated by the caller (storage clears sent flags in the same
// transaction).
func (a *Appointment) Reschedule(newStart time.Time) error {
	if a.Status != StatusPending && a.Status != StatusConfirmed {
		return fmt.Errorf("%w: cannot reschedule %s appointment", ErrInvalidTransition, a.Status)
	}
	duration := a.EndsAt.Sub(a.StartsAt)
	a.StartsAt = newStart
	a.EndsAt = newStart.Add(duration)
	return nil
}
