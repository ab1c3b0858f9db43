package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/solenne-institute/booking/internal/model"
)

// BlockingAppointments loads the appointments that occupy practitioner time
// in [from, to): everything except cancelled and rejected.
func (s *Store) BlockingAppointments(ctx context.Context, q Querier, practitionerIDs []string, from, to time.Time) ([]model.Appointment, error) {
	if len(practitionerIDs) == 0 {
		return nil, nil
	}
	rows, err := q.Query(ctx, `
		SELECT id::text, practitioner_id::text, starts_at, ends_at, status
		FROM appointments
		WHERE practitioner_id = ANY($1)
			AND status NOT IN ('cancelled', 'rejected')
			AND starts_at < $3
			AND ends_at > $2
		ORDER BY starts_at ASC
	`, practitionerIDs, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(&a.ID, &a.PractitionerID, &a.StartsAt, &a.EndsAt, &a.Status); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertAppointment writes the appointment and its line items inside the
// booking transaction. Item prices arrive pre-snapshotted.
func (s *Store) InsertAppointment(ctx context.Context, tx pgx.Tx, a *model.Appointment) (string, error) {
	id := uuid.NewString()

	if s.notesEnabled {
		_, err := tx.Exec(ctx, `
			INSERT INTO appointments (id, client_id, practitioner_id, starts_at, ends_at, status, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, id, a.ClientID, a.PractitionerID, a.StartsAt, a.EndsAt, a.Status, a.Notes)
		if err != nil {
			return "", err
		}
	} else {
		_, err := tx.Exec(ctx, `
			INSERT INTO appointments (id, client_id, practitioner_id, starts_at, ends_at, status)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, id, a.ClientID, a.PractitionerID, a.StartsAt, a.EndsAt, a.Status)
		if err != nil {
			return "", err
		}
	}

	for _, item := range a.Items {
		_, err := tx.Exec(ctx, `
			INSERT INTO appointment_items (appointment_id, service_id, position, duration_minutes, price_cents)
			VALUES ($1, $2, $3, $4, $5)
		`, id, item.ServiceID, item.Position, item.DurationMinutes, item.PriceCents)
		if err != nil {
			return "", err
		}
	}
	return id, nil
}

func (s *Store) GetAppointmentForUpdate(ctx context.Context, tx pgx.Tx, id string) (model.Appointment, error) {
	var a model.Appointment
	err := tx.QueryRow(ctx, `
		SELECT id::text, client_id::text, practitioner_id::text, starts_at, ends_at, status,
			cancelled_at, COALESCE(cancel_reason, ''), created_at
		FROM appointments
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&a.ID, &a.ClientID, &a.PractitionerID, &a.StartsAt, &a.EndsAt, &a.Status,
		&a.CancelledAt, &a.CancelReason, &a.CreatedAt)
	if err != nil {
		return model.Appointment{}, err
	}
	return a, nil
}

// SaveTransition persists the fields the explicit transition function is
// allowed to change. Callers mutate the model via Transition first, so the
// stamped cancellation instant and reason travel together with the status.
func (s *Store) SaveTransition(ctx context.Context, tx pgx.Tx, a *model.Appointment) error {
	_, err := tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
			cancelled_at = $3,
			cancel_reason = $4,
			starts_at = $5,
			ends_at = $6
		WHERE id = $1
	`, a.ID, a.Status, a.CancelledAt, a.CancelReason, a.StartsAt, a.EndsAt)
	return err
}

func (s *Store) ListAppointments(ctx context.Context, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, client_id::text, practitioner_id::text, starts_at, ends_at, status,
			cancelled_at, COALESCE(cancel_reason, ''), created_at
		FROM appointments
		ORDER BY starts_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(&a.ID, &a.ClientID, &a.PractitionerID, &a.StartsAt, &a.EndsAt, &a.Status,
			&a.CancelledAt, &a.CancelReason, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
