package storage

import (
	"context"
	"time"
)

// Notification reservations implement the compare-and-set idempotency token
// per (appointment, channel, kind): a nullable sent_at column claimed with
// an UPDATE ... WHERE sent_at IS NULL. Zero rows affected means another
// actor already holds or consumed the reservation.

// EnsureReservationRow makes sure the CAS row exists before claiming it.
func (s *Store) EnsureReservationRow(ctx context.Context, q Querier, appointmentID, channel, kind string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO notification_reservations (appointment_id, channel, kind)
		VALUES ($1, $2, $3)
		ON CONFLICT (appointment_id, channel, kind) DO NOTHING
	`, appointmentID, channel, kind)
	return err
}

// ClaimReservation atomically flips sent_at from NULL to now. Returns false
// when the reservation was already taken.
func (s *Store) ClaimReservation(ctx context.Context, q Querier, appointmentID, channel, kind string, now time.Time) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE notification_reservations
		SET sent_at = $4
		WHERE appointment_id = $1 AND channel = $2 AND kind = $3 AND sent_at IS NULL
	`, appointmentID, channel, kind, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReleaseReservation frees a claimed reservation after a failed send so a
// future sweep can retry. A crash between claim and release permanently
// blocks that kind; accepted operational caveat.
func (s *Store) ReleaseReservation(ctx context.Context, q Querier, appointmentID, channel, kind string) error {
	_, err := q.Exec(ctx, `
		UPDATE notification_reservations
		SET sent_at = NULL
		WHERE appointment_id = $1 AND channel = $2 AND kind = $3
	`, appointmentID, channel, kind)
	return err
}

// ClearReservationsForKind resets every channel's token of one kind, used
// when an appointment is rescheduled and its reminders must fire again.
func (s *Store) ClearReservationsForKind(ctx context.Context, q Querier, appointmentID, kind string) error {
	_, err := q.Exec(ctx, `
		UPDATE notification_reservations
		SET sent_at = NULL
		WHERE appointment_id = $1 AND kind = $2
	`, appointmentID, kind)
	return err
}

// DueReminder is one reminder candidate joined with its client contact data.
type DueReminder struct {
	AppointmentID string
	StartsAt      time.Time
	ClientName    string
	Email         string
	Phone         string
}

// DueReminders returns confirmed appointments starting inside the window.
// The sweep claims a reservation per (appointment, channel) before sending,
// so listing the same appointment twice is harmless.
func (s *Store) DueReminders(ctx context.Context, windowStart, windowEnd time.Time) ([]DueReminder, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT a.id::text, a.starts_at, c.first_name || ' ' || c.last_name,
			COALESCE(c.email, ''), COALESCE(c.phone, '')
		FROM appointments a
		JOIN clients c ON c.id = a.client_id
		WHERE a.status = 'confirmed'
			AND a.starts_at >= $1
			AND a.starts_at < $2
		ORDER BY a.starts_at ASC
	`, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DueReminder
	for rows.Next() {
		var d DueReminder
		if err := rows.Scan(&d.AppointmentID, &d.StartsAt, &d.ClientName, &d.Email, &d.Phone); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
