package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/solenne-institute/booking/internal/model"
	"github.com/solenne-institute/booking/internal/schedule"
)

// RulesFor loads all institute-wide rules plus the rules of the given
// practitioners, across every weekday. The resolver needs the full set to
// tell "institute closed today" apart from "institute has no hours
// configured at all".
func (s *Store) RulesFor(ctx context.Context, q Querier, practitionerIDs []string) ([]schedule.WeeklyRule, error) {
	rows, err := q.Query(ctx, `
		SELECT id::text, COALESCE(practitioner_id::text, ''), weekday, start_minute, end_minute, active, effective_from, effective_to
		FROM weekly_rules
		WHERE practitioner_id IS NULL OR practitioner_id = ANY($1)
	`, practitionerIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.WeeklyRule
	for rows.Next() {
		var r schedule.WeeklyRule
		var weekday int
		if err := rows.Scan(&r.ID, &r.PractitionerID, &weekday, &r.StartMinute, &r.EndMinute, &r.Active, &r.EffectiveFrom, &r.EffectiveTo); err != nil {
			return nil, err
		}
		r.Weekday = time.Weekday(weekday)
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertRule writes one weekly rule; practitionerID empty means
// institute-wide opening hours.
func (s *Store) UpsertRule(ctx context.Context, r schedule.WeeklyRule) (string, error) {
	id := r.ID
	if id == "" {
		id = uuid.NewString()
	}
	var practitionerID *string
	if r.PractitionerID != "" {
		practitionerID = &r.PractitionerID
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO weekly_rules (id, practitioner_id, weekday, start_minute, end_minute, active, effective_from, effective_to)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET weekday = EXCLUDED.weekday,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			active = EXCLUDED.active,
			effective_from = EXCLUDED.effective_from,
			effective_to = EXCLUDED.effective_to
	`, id, practitionerID, int(r.Weekday), r.StartMinute, r.EndMinute, r.Active, r.EffectiveFrom, r.EffectiveTo)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) ListRules(ctx context.Context) ([]schedule.WeeklyRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, COALESCE(practitioner_id::text, ''), weekday, start_minute, end_minute, active, effective_from, effective_to
		FROM weekly_rules
		ORDER BY practitioner_id NULLS FIRST, weekday ASC, start_minute ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []schedule.WeeklyRule
	for rows.Next() {
		var r schedule.WeeklyRule
		var weekday int
		if err := rows.Scan(&r.ID, &r.PractitionerID, &weekday, &r.StartMinute, &r.EndMinute, &r.Active, &r.EffectiveFrom, &r.EffectiveTo); err != nil {
			return nil, err
		}
		r.Weekday = time.Weekday(weekday)
		out = append(out, r)
	}
	return out, rows.Err()
}

// TimeOffBetween loads all blackout windows overlapping [from, to) for the
// given practitioners.
func (s *Store) TimeOffBetween(ctx context.Context, q Querier, practitionerIDs []string, from, to time.Time) ([]model.TimeOff, error) {
	if len(practitionerIDs) == 0 {
		return nil, nil
	}
	rows, err := q.Query(ctx, `
		SELECT id::text, practitioner_id::text, starts_at, ends_at, all_day, reason, created_at
		FROM time_off
		WHERE practitioner_id = ANY($1)
			AND starts_at < $3
			AND ends_at > $2
		ORDER BY starts_at ASC
	`, practitionerIDs, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TimeOff
	for rows.Next() {
		var t model.TimeOff
		if err := rows.Scan(&t.ID, &t.PractitionerID, &t.StartsAt, &t.EndsAt, &t.AllDay, &t.Reason, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) CreateTimeOff(ctx context.Context, t model.TimeOff) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO time_off (id, practitioner_id, starts_at, ends_at, all_day, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, id, t.PractitionerID, t.StartsAt, t.EndsAt, t.AllDay, t.Reason)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) DeleteTimeOff(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM time_off WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
