// Package propagate implementa el job batch que mantiene consistente el
// índice de acceso: backfill desde visibilidad, sincronización índice <->
// espejo de propiedades, y cascada recursiva de nivel/embargo por la
// jerarquía collection -> item -> media.
//
// El job es idempotente y re-entrante: cada operación bulk es atómica por
// sí sola y re-correr el job después de una interrupción converge al
// mismo estado final. No hay rollback entre operaciones.
package propagate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"archive-access/internal/domain/access"
	"archive-access/internal/domain/resources"
	"archive-access/internal/platform/logger"
	"archive-access/internal/ports/settings"
)

// SyncMode elige la dirección de la sincronización con el espejo.
type SyncMode string

const (
	SyncNone          SyncMode = ""
	SyncIndexToMirror SyncMode = "index_to_properties"
	SyncMirrorToIndex SyncMode = "properties_to_index"
)

// Args es el registro chico que recibe el job desde el boundary de
// invocación (CLI o cola). Sin valor de retorno programático: el
// resultado son las líneas de log.
type Args struct {
	// Backfill inserta filas faltantes derivadas de la visibilidad.
	Backfill bool `json:"backfill,omitempty"`

	Sync SyncMode `json:"sync,omitempty"`

	// ResourceIDs: contenedores cuyos status se cascadean.
	ResourceIDs []string `json:"resource_ids,omitempty"`
	// ToItems/ToMedia: qué tiers alcanza la cascada.
	ToItems bool `json:"to_items,omitempty"`
	ToMedia bool `json:"to_media,omitempty"`

	// Principal que ejecuta; limita la cascada vía WriteScope.
	ActorUserID  string `json:"actor_user_id,omitempty"`
	ActorViewAll bool   `json:"actor_view_all,omitempty"`
}

type Job struct {
	statuses  access.StatusRepository
	mirror    access.MirrorRepository
	resources resources.Repository
	settings  settings.Store
	log       logger.Logger
	now       func() time.Time
}

func New(statuses access.StatusRepository, mirror access.MirrorRepository, res resources.Repository, st settings.Store, log logger.Logger) *Job {
	return &Job{
		statuses:  statuses,
		mirror:    mirror,
		resources: res,
		settings:  st,
		log:       log,
		now:       time.Now,
	}
}

// Run ejecuta las fases pedidas en orden: validación de config, backfill,
// sync, cascadas. Errores de configuración abortan todo antes de mutar;
// errores de datos (recurso desconocido, fecha rota) warnean y siguen.
func (j *Job) Run(ctx context.Context, args Args) error {
	j.log.Info("propagation job started", map[string]any{
		"backfill":  args.Backfill,
		"sync":      string(args.Sync),
		"resources": len(args.ResourceIDs),
	})

	// Config primero: un mapping incompleto aborta el job entero antes
	// de tocar una sola fila.
	var cfg access.MirrorConfig
	if args.Sync != SyncNone {
		var err error
		cfg, err = access.LoadMirrorConfig(ctx, j.settings)
		if err != nil {
			j.log.Error("propagation job aborted", map[string]any{"error": err.Error()})
			return err
		}
	}

	if args.Backfill {
		if err := j.backfill(ctx); err != nil {
			j.log.Error("backfill failed", map[string]any{"error": err.Error()})
			return err
		}
	}

	switch args.Sync {
	case SyncNone:
	case SyncIndexToMirror:
		if err := j.syncIndexToMirror(ctx, cfg); err != nil {
			j.log.Error("index->mirror sync failed", map[string]any{"error": err.Error()})
			return err
		}
	case SyncMirrorToIndex:
		if err := j.syncMirrorToIndex(ctx, cfg); err != nil {
			j.log.Error("mirror->index sync failed", map[string]any{"error": err.Error()})
			return err
		}
	default:
		err := fmt.Errorf("unknown sync mode %q", args.Sync)
		j.log.Error("propagation job aborted", map[string]any{"error": err.Error()})
		return err
	}

	scope := resources.WriteScope{All: args.ActorViewAll, UserID: args.ActorUserID}
	for _, id := range args.ResourceIDs {
		j.cascade(ctx, id, scope, args.ToItems, args.ToMedia)
	}

	j.log.Info("propagation job finished", nil)
	return nil
}

func (j *Job) backfill(ctx context.Context) error {
	fallbackRaw := settings.String(ctx, j.settings, settings.KeyPrivateFallbackLevel, string(access.LevelReserved))
	fallback, ok := access.ParseLevel(fallbackRaw)
	if !ok {
		return fmt.Errorf("invalid private fallback level %q", fallbackRaw)
	}

	n, err := j.statuses.BackfillFromVisibility(ctx, fallback, j.now())
	if err != nil {
		return err
	}
	j.log.Info("backfill done", map[string]any{"inserted": n, "fallback": string(fallback)})
	return nil
}

// syncIndexToMirror regenera los tres campos descriptivos desde el
// índice, borrando antes los valores viejos.
func (j *Job) syncIndexToMirror(ctx context.Context, cfg access.MirrorConfig) error {
	sts, err := j.statuses.ListAll(ctx)
	if err != nil {
		return err
	}
	rows := access.BuildMirrorRows(sts, cfg)
	if err := j.mirror.ReplaceRows(ctx, cfg, rows); err != nil {
		return err
	}
	j.log.Info("index->mirror sync done", map[string]any{"rows": len(rows)})
	return nil
}

// syncMirrorToIndex parsea los campos descriptivos de vuelta al índice.
// Fechas rotas se saltean con warn; nunca cortan el batch.
func (j *Job) syncMirrorToIndex(ctx context.Context, cfg access.MirrorConfig) error {
	rows, err := j.mirror.ListRows(ctx, cfg)
	if err != nil {
		return err
	}

	now := j.now()
	sts := make([]access.Status, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		s, warns, ok := access.ParseMirrorRow(row, cfg, now)
		for _, wmsg := range warns {
			j.log.Warn(wmsg, nil)
		}
		if !ok {
			skipped++
			continue
		}
		sts = append(sts, s)
	}

	if err := j.statuses.UpsertMany(ctx, sts); err != nil {
		return err
	}
	j.log.Info("mirror->index sync done", map[string]any{"rows": len(sts), "skipped": skipped})
	return nil
}

// cascade propaga el status de un contenedor a sus descendientes, un
// tier por pasada. Ids desconocidos o recursos no-contenedores warnean
// y el batch sigue con el resto.
func (j *Job) cascade(ctx context.Context, resourceID string, scope resources.WriteScope, toItems, toMedia bool) {
	res, err := j.resources.GetByID(ctx, resourceID)
	if err != nil {
		j.log.Warn("cascade skipped: unknown resource", map[string]any{"resource": resourceID})
		return
	}

	st, err := j.statuses.Get(ctx, res.ID)
	if err != nil {
		if errors.Is(err, access.ErrNotFound) {
			j.log.Warn("cascade skipped: resource has no status", map[string]any{"resource": resourceID})
		} else {
			j.log.Warn("cascade skipped: status read failed", map[string]any{"resource": resourceID, "error": err.Error()})
		}
		return
	}
	st.UpdatedAt = j.now()

	switch res.Type {
	case resources.TypeCollection:
		items, media, err := j.statuses.CascadeFromCollection(ctx, res.ID, st, scope, toItems, toMedia)
		if err != nil {
			j.log.Warn("collection cascade failed", map[string]any{"resource": resourceID, "error": err.Error()})
			return
		}
		j.log.Info("collection cascade done", map[string]any{"resource": resourceID, "items": items, "media": media})
	case resources.TypeItem:
		media, err := j.statuses.CascadeFromItem(ctx, res.ID, st, scope)
		if err != nil {
			j.log.Warn("item cascade failed", map[string]any{"resource": resourceID, "error": err.Error()})
			return
		}
		j.log.Info("item cascade done", map[string]any{"resource": resourceID, "media": media})
	default:
		j.log.Warn("cascade skipped: resource is not a container", map[string]any{"resource": resourceID, "type": string(res.Type)})
	}
}
