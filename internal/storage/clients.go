package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/solenne-institute/booking/internal/model"
)

func (s *Store) FindClientByEmail(ctx context.Context, q Querier, email string) (model.Client, bool, error) {
	return s.findClientBy(ctx, q, "email", email)
}

func (s *Store) FindClientByPhone(ctx context.Context, q Querier, phone string) (model.Client, bool, error) {
	return s.findClientBy(ctx, q, "phone", phone)
}

func (s *Store) findClientBy(ctx context.Context, q Querier, column, value string) (model.Client, bool, error) {
	if value == "" {
		return model.Client{}, false, nil
	}
	var c model.Client
	err := q.QueryRow(ctx, `
		SELECT id::text, first_name, last_name, COALESCE(email, ''), COALESCE(phone, ''), created_at
		FROM clients
		WHERE `+column+` = $1
	`, value).Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Phone, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Client{}, false, nil
	}
	if err != nil {
		return model.Client{}, false, err
	}
	return c, true, nil
}

func (s *Store) InsertClient(ctx context.Context, tx pgx.Tx, c model.Client) (string, error) {
	id := uuid.NewString()
	var email, phone *string
	if c.Email != "" {
		email = &c.Email
	}
	if c.Phone != "" {
		phone = &c.Phone
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO clients (id, first_name, last_name, email, phone)
		VALUES ($1, $2, $3, $4, $5)
	`, id, c.FirstName, c.LastName, email, phone)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateClient(ctx context.Context, tx pgx.Tx, c model.Client) error {
	var email, phone *string
	if c.Email != "" {
		email = &c.Email
	}
	if c.Phone != "" {
		phone = &c.Phone
	}
	_, err := tx.Exec(ctx, `
		UPDATE clients
		SET first_name = $2,
			last_name = $3,
			email = $4,
			phone = $5
		WHERE id = $1
	`, c.ID, c.FirstName, c.LastName, email, phone)
	return err
}
