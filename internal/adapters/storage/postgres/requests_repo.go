package postgres

import (
	"context"
	"database/sql"
	"strings"

	"archive-access/internal/domain/requests"
)

type RequestsRepo struct {
	db *sql.DB
}

func NewRequestsRepo(db *sql.DB) *RequestsRepo {
	return &RequestsRepo{db: db}
}

const requestColumns = `
	id, user_id, email, token, status, enabled, resource_ids, recursive,
	start_at, end_at, message, created_at, updated_at`

func (r *RequestsRepo) Create(ctx context.Context, req requests.Request) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO access_requests (
			id, user_id, email, token, status, enabled, resource_ids, recursive,
			start_at, end_at, message, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`,
		req.ID,
		toNullString(req.UserID),
		toNullString(req.Email),
		toNullString(req.Token),
		string(req.Status),
		req.Enabled,
		req.ResourceIDs,
		req.Recursive,
		toNullTime(req.Start),
		toNullTime(req.End),
		req.Message,
		req.CreatedAt,
		req.UpdatedAt,
	)
	return err
}

func (r *RequestsRepo) Update(ctx context.Context, req requests.Request) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE access_requests
		SET
			status = $2,
			enabled = $3,
			resource_ids = $4,
			recursive = $5,
			start_at = $6,
			end_at = $7,
			message = $8,
			updated_at = $9
		WHERE id = $1
	`,
		req.ID,
		string(req.Status),
		req.Enabled,
		req.ResourceIDs,
		req.Recursive,
		toNullTime(req.Start),
		toNullTime(req.End),
		req.Message,
		req.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *RequestsRepo) GetByID(ctx context.Context, id string) (requests.Request, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return requests.Request{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+requestColumns+`
		FROM access_requests
		WHERE id = $1
	`, id)

	req, err := scanRequest(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return requests.Request{}, ErrNotFound
		}
		return requests.Request{}, err
	}
	return req, nil
}

func (r *RequestsRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM access_requests WHERE id = $1`, id)
	return err
}

func (r *RequestsRepo) List(ctx context.Context) ([]requests.Request, error) {
	return r.queryMany(ctx, `
		SELECT `+requestColumns+`
		FROM access_requests
		ORDER BY created_at ASC
	`)
}

func (r *RequestsRepo) ListByRequester(ctx context.Context, by requests.LookupBy) ([]requests.Request, error) {
	if by.Empty() {
		return nil, nil
	}
	return r.queryMany(ctx, `
		SELECT `+requestColumns+`
		FROM access_requests
		WHERE ($1 <> '' AND user_id = $1)
		   OR ($2 <> '' AND email = $2)
		   OR ($3 <> '' AND token = $3)
		ORDER BY created_at ASC
	`, by.UserID, by.Email, by.Token)
}

func (r *RequestsRepo) ListEnabledFor(ctx context.Context, by requests.LookupBy) ([]requests.Request, error) {
	if by.Empty() {
		return nil, nil
	}
	return r.queryMany(ctx, `
		SELECT `+requestColumns+`
		FROM access_requests
		WHERE enabled = TRUE
		  AND (   ($1 <> '' AND user_id = $1)
		       OR ($2 <> '' AND email = $2)
		       OR ($3 <> '' AND token = $3))
		ORDER BY created_at ASC
	`, by.UserID, by.Email, by.Token)
}

func (r *RequestsRepo) TokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM access_requests WHERE token = $1)
	`, token).Scan(&exists)
	return exists, err
}

func (r *RequestsRepo) queryMany(ctx context.Context, query string, args ...any) ([]requests.Request, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]requests.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func scanRequest(row rowScanner) (requests.Request, error) {
	var req requests.Request
	var userID, email, token sql.NullString
	var status string
	var resourceIDs []string
	var start, end sql.NullTime

	if err := row.Scan(
		&req.ID,
		&userID,
		&email,
		&token,
		&status,
		&req.Enabled,
		&resourceIDs,
		&req.Recursive,
		&start,
		&end,
		&req.Message,
		&req.CreatedAt,
		&req.UpdatedAt,
	); err != nil {
		return requests.Request{}, err
	}

	req.UserID = userID.String
	req.Email = email.String
	req.Token = token.String
	req.Status = requests.Status(status)
	req.ResourceIDs = resourceIDs
	req.Start = fromNullTime(start)
	req.End = fromNullTime(end)
	return req, nil
}
