package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/solenne-institute/booking/internal/model"
)

func (s *Store) ServicesByIDs(ctx context.Context, q Querier, ids []string) ([]model.Service, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.Query(ctx, `
		SELECT id::text, name, duration_minutes, base_price_cents, active
		FROM services
		WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var svc model.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.DurationMinutes, &svc.BasePriceCents, &svc.Active); err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func (s *Store) ListActiveServices(ctx context.Context) ([]model.Service, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, name, duration_minutes, base_price_cents, active
		FROM services
		WHERE active
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var svc model.Service
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.DurationMinutes, &svc.BasePriceCents, &svc.Active); err != nil {
			return nil, err
		}
		out = append(out, svc)
	}
	return out, rows.Err()
}

func (s *Store) CreateService(ctx context.Context, name string, durationMinutes int, basePriceCents int64) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO services (id, name, duration_minutes, base_price_cents, active)
		VALUES ($1, $2, $3, $4, true)
	`, id, name, durationMinutes, basePriceCents)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) PractitionerByID(ctx context.Context, q Querier, id string) (model.Practitioner, error) {
	var p model.Practitioner
	err := q.QueryRow(ctx, `
		SELECT id::text, display_name, active
		FROM practitioners
		WHERE id = $1
	`, id).Scan(&p.ID, &p.DisplayName, &p.Active)
	return p, err
}

func (s *Store) ListActivePractitioners(ctx context.Context) ([]model.Practitioner, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, display_name, active
		FROM practitioners
		WHERE active
		ORDER BY display_name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Practitioner
	for rows.Next() {
		var p model.Practitioner
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) CreatePractitioner(ctx context.Context, displayName string) (string, error) {
	id := uuid.NewString()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO practitioners (id, display_name, active)
		VALUES ($1, $2, true)
	`, id, displayName)
	if err != nil {
		return "", err
	}
	return id, nil
}

// LinksForServices loads every (service, practitioner) link touching the
// given services. The booking path intersects these per practitioner to
// build the candidate pool.
func (s *Store) LinksForServices(ctx context.Context, q Querier, serviceIDs []string) ([]model.ServiceLink, error) {
	if len(serviceIDs) == 0 {
		return nil, nil
	}
	rows, err := q.Query(ctx, `
		SELECT l.service_id::text, l.practitioner_id::text, l.price_cents_override, l.discount_percent
		FROM service_staff_links l
		JOIN practitioners p ON p.id = l.practitioner_id
		WHERE l.service_id = ANY($1) AND p.active
	`, serviceIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ServiceLink
	for rows.Next() {
		var l model.ServiceLink
		if err := rows.Scan(&l.ServiceID, &l.PractitionerID, &l.PriceCentsOverride, &l.DiscountPercent); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// UpsertLink writes a service-practitioner link. Callers must pass at most
// one of priceCentsOverride / discountPercent; both set is rejected upstream.
func (s *Store) UpsertLink(ctx context.Context, serviceID, practitionerID string, priceCentsOverride *int64, discountPercent *int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO service_staff_links (service_id, practitioner_id, price_cents_override, discount_percent)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (service_id, practitioner_id) DO UPDATE
		SET price_cents_override = EXCLUDED.price_cents_override,
			discount_percent = EXCLUDED.discount_percent
	`, serviceID, practitionerID, priceCentsOverride, discountPercent)
	return err
}
