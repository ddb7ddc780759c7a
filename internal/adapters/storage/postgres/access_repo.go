package postgres

import (
	"context"
	"database/sql"
	"time"

	"archive-access/internal/domain/access"
	"archive-access/internal/domain/resources"
)

// AccessRepo implementa StatusRepository y MirrorRepository sobre las
// tablas access_statuses y resource_values. Las cascadas y el backfill
// son statements set-oriented: un UPSERT por tier, nunca fila a fila, y
// el predicado de permisos de escritura va embebido en el WHERE (el
// mismo WriteScope que usa el camino single-resource).
type AccessRepo struct {
	db *sql.DB
}

func NewAccessRepo(db *sql.DB) *AccessRepo {
	return &AccessRepo{db: db}
}

func (r *AccessRepo) Get(ctx context.Context, resourceID string) (access.Status, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT resource_id, level, embargo_start, embargo_end, updated_at
		FROM access_statuses
		WHERE resource_id = $1
	`, resourceID)

	var s access.Status
	var level string
	var start, end sql.NullTime

	if err := row.Scan(&s.ResourceID, &level, &start, &end, &s.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return access.Status{}, access.ErrNotFound
		}
		return access.Status{}, err
	}

	s.Level = access.Level(level)
	s.EmbargoStart = fromNullTime(start)
	s.EmbargoEnd = fromNullTime(end)
	return s, nil
}

const upsertStatusSQL = `
	INSERT INTO access_statuses (resource_id, level, embargo_start, embargo_end, updated_at)
	VALUES ($1,$2,$3,$4,$5)
	ON CONFLICT (resource_id) DO UPDATE SET
		level = EXCLUDED.level,
		embargo_start = EXCLUDED.embargo_start,
		embargo_end = EXCLUDED.embargo_end,
		updated_at = EXCLUDED.updated_at`

func (r *AccessRepo) Upsert(ctx context.Context, s access.Status) error {
	_, err := r.db.ExecContext(ctx, upsertStatusSQL,
		s.ResourceID,
		string(s.Level),
		toNullTime(s.EmbargoStart),
		toNullTime(s.EmbargoEnd),
		s.UpdatedAt,
	)
	return err
}

func (r *AccessRepo) Delete(ctx context.Context, resourceID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM access_statuses WHERE resource_id = $1`, resourceID)
	return err
}

func (r *AccessRepo) ListAll(ctx context.Context) ([]access.Status, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT resource_id, level, embargo_start, embargo_end, updated_at
		FROM access_statuses
		ORDER BY resource_id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]access.Status, 0)
	for rows.Next() {
		var s access.Status
		var level string
		var start, end sql.NullTime

		if err := rows.Scan(&s.ResourceID, &level, &start, &end, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Level = access.Level(level)
		s.EmbargoStart = fromNullTime(start)
		s.EmbargoEnd = fromNullTime(end)
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpsertMany aplica el lote en una sola transacción: o entra todo o no
// entra nada (la unidad atómica de los jobs).
func (r *AccessRepo) UpsertMany(ctx context.Context, sts []access.Status) error {
	if len(sts) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, s := range sts {
		if _, err := tx.ExecContext(ctx, upsertStatusSQL,
			s.ResourceID,
			string(s.Level),
			toNullTime(s.EmbargoStart),
			toNullTime(s.EmbargoEnd),
			s.UpdatedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// BackfillFromVisibility inserta en un solo statement la fila faltante
// de cada recurso: public -> free, private -> fallback. DO NOTHING en
// conflicto: niveles ya asignados no se pisan, re-correr es seguro.
func (r *AccessRepo) BackfillFromVisibility(ctx context.Context, fallback access.Level, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO access_statuses (resource_id, level, embargo_start, embargo_end, updated_at)
		SELECT r.id,
		       CASE WHEN r.is_public THEN 'free' ELSE $1 END,
		       NULL, NULL, $2
		FROM resources r
		ON CONFLICT (resource_id) DO NOTHING
	`, string(fallback), now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// En cada cascada el predicado ($N OR r.is_public OR r.owner_user_id = $M)
// es la traducción SQL de resources.WriteScope.Allows: mismo criterio que
// el camino single-resource, expresado como filtro del statement bulk.
func (r *AccessRepo) CascadeFromCollection(ctx context.Context, collectionID string, s access.Status, scope resources.WriteScope, toItems, toMedia bool) (int64, int64, error) {
	var nItems, nMedia int64

	if toItems {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO access_statuses (resource_id, level, embargo_start, embargo_end, updated_at)
			SELECT r.id, $2, $3, $4, $5
			FROM resources r
			WHERE r.type = 'item'
			  AND r.collection_id = $1
			  AND ($6 OR r.is_public OR r.owner_user_id = $7)
			ON CONFLICT (resource_id) DO UPDATE SET
				level = EXCLUDED.level,
				embargo_start = EXCLUDED.embargo_start,
				embargo_end = EXCLUDED.embargo_end,
				updated_at = EXCLUDED.updated_at
		`,
			collectionID,
			string(s.Level),
			toNullTime(s.EmbargoStart),
			toNullTime(s.EmbargoEnd),
			s.UpdatedAt,
			scope.All,
			scope.UserID,
		)
		if err != nil {
			return 0, 0, err
		}
		nItems, _ = res.RowsAffected()
	}

	if toMedia {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO access_statuses (resource_id, level, embargo_start, embargo_end, updated_at)
			SELECT r.id, $2, $3, $4, $5
			FROM resources r
			WHERE r.type = 'media'
			  AND r.item_id IN (
				SELECT i.id FROM resources i
				WHERE i.type = 'item' AND i.collection_id = $1
			  )
			  AND ($6 OR r.is_public OR r.owner_user_id = $7)
			ON CONFLICT (resource_id) DO UPDATE SET
				level = EXCLUDED.level,
				embargo_start = EXCLUDED.embargo_start,
				embargo_end = EXCLUDED.embargo_end,
				updated_at = EXCLUDED.updated_at
		`,
			collectionID,
			string(s.Level),
			toNullTime(s.EmbargoStart),
			toNullTime(s.EmbargoEnd),
			s.UpdatedAt,
			scope.All,
			scope.UserID,
		)
		if err != nil {
			return nItems, 0, err
		}
		nMedia, _ = res.RowsAffected()
	}

	return nItems, nMedia, nil
}

func (r *AccessRepo) CascadeFromItem(ctx context.Context, itemID string, s access.Status, scope resources.WriteScope) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO access_statuses (resource_id, level, embargo_start, embargo_end, updated_at)
		SELECT r.id, $2, $3, $4, $5
		FROM resources r
		WHERE r.type = 'media'
		  AND r.item_id = $1
		  AND ($6 OR r.is_public OR r.owner_user_id = $7)
		ON CONFLICT (resource_id) DO UPDATE SET
			level = EXCLUDED.level,
			embargo_start = EXCLUDED.embargo_start,
			embargo_end = EXCLUDED.embargo_end,
			updated_at = EXCLUDED.updated_at
	`,
		itemID,
		string(s.Level),
		toNullTime(s.EmbargoStart),
		toNullTime(s.EmbargoEnd),
		s.UpdatedAt,
		scope.All,
		scope.UserID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *AccessRepo) ListEmbargoElapsed(ctx context.Context, now time.Time) ([]access.Status, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT resource_id, level, embargo_start, embargo_end, updated_at
		FROM access_statuses
		WHERE (embargo_start IS NOT NULL AND embargo_end IS NULL AND embargo_start <= $1)
		   OR (embargo_end IS NOT NULL AND embargo_end <= $1)
	`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]access.Status, 0)
	for rows.Next() {
		var s access.Status
		var level string
		var start, end sql.NullTime

		if err := rows.Scan(&s.ResourceID, &level, &start, &end, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Level = access.Level(level)
		s.EmbargoStart = fromNullTime(start)
		s.EmbargoEnd = fromNullTime(end)
		out = append(out, s)
	}
	return out, rows.Err()
}

// ---- MirrorRepository ----

// ListRows pivotea los tres campos del espejo en una fila por recurso.
func (r *AccessRepo) ListRows(ctx context.Context, cfg access.MirrorConfig) ([]access.PropertyRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT resource_id, field, value
		FROM resource_values
		WHERE field IN ($1, $2, $3)
		ORDER BY resource_id ASC
	`, cfg.LevelField, cfg.StartField, cfg.EndField)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byResource := make(map[string]*access.PropertyRow)
	order := make([]string, 0)

	for rows.Next() {
		var resourceID, field, value string
		if err := rows.Scan(&resourceID, &field, &value); err != nil {
			return nil, err
		}

		row, ok := byResource[resourceID]
		if !ok {
			row = &access.PropertyRow{ResourceID: resourceID}
			byResource[resourceID] = row
			order = append(order, resourceID)
		}
		switch field {
		case cfg.LevelField:
			row.Level = value
		case cfg.StartField:
			row.Start = value
		case cfg.EndField:
			row.End = value
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]access.PropertyRow, 0, len(order))
	for _, id := range order {
		out = append(out, *byResource[id])
	}
	return out, nil
}

// ReplaceRows regenera el espejo: borra los valores viejos de los tres
// campos y escribe los nuevos, todo en una transacción.
func (r *AccessRepo) ReplaceRows(ctx context.Context, cfg access.MirrorConfig, rows []access.PropertyRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM resource_values WHERE field IN ($1, $2, $3)
	`, cfg.LevelField, cfg.StartField, cfg.EndField); err != nil {
		return err
	}

	for _, row := range rows {
		if row.Level != "" {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO resource_values (resource_id, field, value) VALUES ($1,$2,$3)
			`, row.ResourceID, cfg.LevelField, row.Level); err != nil {
				return err
			}
		}
		if row.Start != "" {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO resource_values (resource_id, field, value) VALUES ($1,$2,$3)
			`, row.ResourceID, cfg.StartField, row.Start); err != nil {
				return err
			}
		}
		if row.End != "" {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO resource_values (resource_id, field, value) VALUES ($1,$2,$3)
			`, row.ResourceID, cfg.EndField, row.End); err != nil {
				return err
			}
		}
	}
	return tx.Commit()
}
