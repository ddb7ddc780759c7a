package access

import (
	"context"
	"time"

	"archive-access/internal/domain/resources"
)

// StatusRepository es el store del índice de acceso (una fila por recurso).
// Las operaciones bulk son la unidad de trabajo de los jobs: cada una debe
// ser atómica respecto de las filas que toca, e idempotente (upsert), para
// que re-correr un job interrumpido converja al mismo estado.
type StatusRepository interface {
	Get(ctx context.Context, resourceID string) (Status, error)
	Upsert(ctx context.Context, s Status) error
	Delete(ctx context.Context, resourceID string) error
	ListAll(ctx context.Context) ([]Status, error)

	// UpsertMany aplica un lote de upserts como una sola unidad atómica.
	UpsertMany(ctx context.Context, sts []Status) error

	// BackfillFromVisibility inserta (sin pisar filas existentes) un status
	// para cada recurso que no tenga: public -> free, private -> fallback.
	// Devuelve cuántas filas insertó.
	BackfillFromVisibility(ctx context.Context, fallback Level, now time.Time) (int64, error)

	// CascadeFromCollection propaga level+embargo a los items de la
	// colección y/o a los media de esos items, una pasada por tier,
	// limitada al WriteScope del principal que ejecuta.
	CascadeFromCollection(ctx context.Context, collectionID string, s Status, scope resources.WriteScope, toItems, toMedia bool) (items, media int64, err error)

	// CascadeFromItem propaga a los media del item.
	CascadeFromItem(ctx context.Context, itemID string, s Status, scope resources.WriteScope) (int64, error)

	// ListEmbargoElapsed devuelve los statuses cuyo embargo venció en now:
	// sólo-start con start alcanzado, sólo-end con end alcanzado, o ambos
	// con end alcanzado. Ventanas todavía abiertas no se devuelven.
	ListEmbargoElapsed(ctx context.Context, now time.Time) ([]Status, error)
}

// PropertyRow es la representación "espejo" de un status como tres campos
// de metadata descriptiva, en valores literales sin parsear.
type PropertyRow struct {
	ResourceID string
	Level      string
	Start      string
	End        string
}

// MirrorRepository lee y escribe el espejo de propiedades. ReplaceRows
// borra los valores viejos de los tres campos y escribe los nuevos en la
// misma transacción (regenerar, no mergear).
type MirrorRepository interface {
	ListRows(ctx context.Context, cfg MirrorConfig) ([]PropertyRow, error)
	ReplaceRows(ctx context.Context, cfg MirrorConfig, rows []PropertyRow) error
}
