package booking

import (
	"context"
	"encoding/json"
	"time"

	"github.com/solenne-institute/booking/internal/interval"
	"github.com/solenne-institute/booking/internal/model"
	"github.com/solenne-institute/booking/internal/outbox"
	"github.com/solenne-institute/booking/internal/storage"
)

// Cancel moves an appointment to cancelled under row lock. The freed slot
// becomes bookable the moment this commits, because blocking reads exclude
// cancelled rows.
func (e *Engine) Cancel(ctx context.Context, appointmentID, reason string) error {
	if appointmentID == "" {
		return invalidInput("appointment id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	tx, err := e.store.BeginBooking(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := e.store.GetAppointmentForUpdate(ctx, tx, appointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			return invalidInput("unknown appointment %s", appointmentID)
		}
		return err
	}

	if err := appt.Transition(model.StatusCancelled, e.now(), reason); err != nil {
		return invalidInput("appointment %s cannot be cancelled from status %s", appointmentID, appt.Status)
	}
	if err := e.store.SaveTransition(ctx, tx, &appt); err != nil {
		return e.classify(err)
	}

	payload, err := json.Marshal(map[string]any{
		"appointment_id":  appt.ID,
		"practitioner_id": appt.PractitionerID,
		"starts_at":       appt.StartsAt.UTC().Format(time.RFC3339),
		"reason":          reason,
	})
	if err != nil {
		return err
	}
	if err := e.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     "booking.appointment.cancelled.v1",
		Payload:       payload,
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return e.classify(err)
	}

	e.logger.Info("appointment cancelled", "appointment_id", appt.ID, "reason", reason)
	return nil
}

// Reschedule moves a confirmed appointment to a new start, re-checking the
// practitioner's availability inside the same serializable transaction. The
// appointment's own old slot does not block the move. Reminder reservations
// are reset so the new instant gets its own reminders.
func (e *Engine) Reschedule(ctx context.Context, appointmentID string, newStart time.Time) error {
	if appointmentID == "" {
		return invalidInput("appointment id is required")
	}
	if newStart.IsZero() {
		return invalidInput("new start instant is required")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	tx, err := e.store.BeginBooking(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	appt, err := e.store.GetAppointmentForUpdate(ctx, tx, appointmentID)
	if err != nil {
		if storage.IsNotFound(err) {
			return invalidInput("unknown appointment %s", appointmentID)
		}
		return err
	}
	duration := appt.EndsAt.Sub(appt.StartsAt)
	requiredMinutes := int(duration / time.Minute)
	if err := e.checkPractitionerFree(ctx, tx, appt, newStart, requiredMinutes); err != nil {
		return err
	}

	if err := appt.Reschedule(newStart); err != nil {
		return invalidInput("appointment %s cannot be rescheduled from status %s", appointmentID, appt.Status)
	}
	if err := e.store.SaveTransition(ctx, tx, &appt); err != nil {
		return e.classify(err)
	}
	if err := e.store.ClearReservationsForKind(ctx, tx, appt.ID, "reminder"); err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]any{
		"appointment_id":  appt.ID,
		"practitioner_id": appt.PractitionerID,
		"starts_at":       appt.StartsAt.UTC().Format(time.RFC3339),
		"ends_at":         appt.EndsAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := e.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: "appointment",
		AggregateID:   appt.ID,
		EventType:     "booking.appointment.rescheduled.v1",
		Payload:       payload,
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return e.classify(err)
	}

	e.logger.Info("appointment rescheduled", "appointment_id", appt.ID, "starts_at", appt.StartsAt)
	return nil
}

// checkPractitionerFree verifies the appointment's own practitioner can hold
// [newStart, newStart+required) on the target day, ignoring the appointment
// being moved.
func (e *Engine) checkPractitionerFree(ctx context.Context, tx storage.Querier, appt model.Appointment, newStart time.Time, requiredMinutes int) error {
	day := newStart.In(e.resolver.Location())
	dayStart, dayEnd := e.resolver.DayBounds(day)
	ids := []string{appt.PractitionerID}

	rules, err := e.store.RulesFor(ctx, tx, ids)
	if err != nil {
		return err
	}
	work := e.resolver.ResolveDay(day, rules, ids)

	timeOff, err := e.store.TimeOffBetween(ctx, tx, ids, dayStart, dayEnd)
	if err != nil {
		return err
	}
	appts, err := e.store.BlockingAppointments(ctx, tx, ids, dayStart, dayEnd)
	if err != nil {
		return err
	}

	var blocked []interval.Interval
	for _, t := range timeOff {
		blocked = append(blocked, interval.Interval{Start: t.StartsAt, End: t.EndsAt})
	}
	for _, a := range appts {
		if a.ID == appt.ID {
			continue
		}
		blocked = append(blocked, interval.Interval{Start: a.StartsAt, End: a.EndsAt})
	}

	free := interval.Subtract(work[appt.PractitionerID], blocked)
	need := time.Duration(requiredMinutes) * time.Minute
	for _, iv := range free {
		if iv.Contains(newStart) && iv.End.Sub(newStart) >= need {
			return nil
		}
	}
	return ErrSlotConflict
}
