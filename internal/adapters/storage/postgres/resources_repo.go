package postgres

import (
	"context"
	"database/sql"
	"strings"

	"archive-access/internal/domain/resources"
)

type ResourcesRepo struct {
	db *sql.DB
}

func NewResourcesRepo(db *sql.DB) *ResourcesRepo {
	return &ResourcesRepo{db: db}
}

const resourceColumns = `
	id, type, owner_user_id, is_public, item_id, collection_id, title,
	created_at, updated_at`

func (r *ResourcesRepo) Create(ctx context.Context, res resources.Resource) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO resources (
			id, type, owner_user_id, is_public, item_id, collection_id, title,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`,
		res.ID,
		string(res.Type),
		res.OwnerUserID,
		res.Public,
		toNullString(res.ItemID),
		toNullString(res.CollectionID),
		res.Title,
		res.CreatedAt,
		res.UpdatedAt,
	)
	return err
}

func (r *ResourcesRepo) GetByID(ctx context.Context, id string) (resources.Resource, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return resources.Resource{}, ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+resourceColumns+`
		FROM resources
		WHERE id = $1
	`, id)

	res, err := scanResource(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return resources.Resource{}, ErrNotFound
		}
		return resources.Resource{}, err
	}
	return res, nil
}

func (r *ResourcesRepo) List(ctx context.Context) ([]resources.Resource, error) {
	return r.queryMany(ctx, `
		SELECT `+resourceColumns+`
		FROM resources
		ORDER BY created_at ASC
	`)
}

func (r *ResourcesRepo) Delete(ctx context.Context, id string) error {
	// El status cae por FK ON DELETE CASCADE; los access requests NO
	// (borrado explícito solamente).
	_, err := r.db.ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	return err
}

func (r *ResourcesRepo) ListItemsByCollection(ctx context.Context, collectionID string) ([]resources.Resource, error) {
	return r.queryMany(ctx, `
		SELECT `+resourceColumns+`
		FROM resources
		WHERE type = 'item' AND collection_id = $1
		ORDER BY created_at ASC
	`, collectionID)
}

func (r *ResourcesRepo) ListMediaByItem(ctx context.Context, itemID string) ([]resources.Resource, error) {
	return r.queryMany(ctx, `
		SELECT `+resourceColumns+`
		FROM resources
		WHERE type = 'media' AND item_id = $1
		ORDER BY created_at ASC
	`, itemID)
}

func (r *ResourcesRepo) queryMany(ctx context.Context, query string, args ...any) ([]resources.Resource, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]resources.Resource, 0)
	for rows.Next() {
		res, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (resources.Resource, error) {
	var res resources.Resource
	var typ string
	var itemID, collectionID sql.NullString

	if err := row.Scan(
		&res.ID,
		&typ,
		&res.OwnerUserID,
		&res.Public,
		&itemID,
		&collectionID,
		&res.Title,
		&res.CreatedAt,
		&res.UpdatedAt,
	); err != nil {
		return resources.Resource{}, err
	}

	res.Type = resources.Type(typ)
	res.ItemID = itemID.String
	res.CollectionID = collectionID.String
	return res, nil
}
