// Package sweep implementa el job batch de fin de embargo: cuando la
// ventana venció, aplica el par de políticas configurado (qué hacer con
// el nivel, qué hacer con las fechas) y re-sincroniza el espejo de
// propiedades si ese modo está activo.
package sweep

import (
	"context"
	"fmt"
	"time"

	"archive-access/internal/domain/access"
	"archive-access/internal/platform/logger"
	"archive-access/internal/ports/settings"
)

type LevelPolicy string

const (
	// LevelFree fuerza el nivel a free.
	LevelFree LevelPolicy = "free"
	// LevelUnder baja el nivel exactamente un rango
	// (reserved->free, protected->reserved, forbidden->reserved).
	LevelUnder LevelPolicy = "under"
	// LevelKeep no toca el nivel.
	LevelKeep LevelPolicy = "keep"
)

type DatePolicy string

const (
	// DateClear nullea las dos fechas de embargo.
	DateClear DatePolicy = "clear"
	// DateKeep las deja.
	DateKeep DatePolicy = "keep"
)

// ErrNoopPolicy: keep+keep no haría nada; se trata como error de
// configuración y el job aborta sin tocar datos.
var ErrNoopPolicy = fmt.Errorf("sweep policy keep+keep is a no-op")

type Job struct {
	statuses access.StatusRepository
	mirror   access.MirrorRepository
	settings settings.Store
	log      logger.Logger
	now      func() time.Time
}

func New(statuses access.StatusRepository, mirror access.MirrorRepository, st settings.Store, log logger.Logger) *Job {
	return &Job{
		statuses: statuses,
		mirror:   mirror,
		settings: st,
		log:      log,
		now:      time.Now,
	}
}

// Run barre los statuses con embargo vencido y aplica las políticas.
// Idempotente: la segunda pasada no encuentra nada que cambiar (con
// DateClear) o produce el mismo resultado (DateKeep + nivel ya bajado
// queda igual al re-aplicar free/keep; "under" sólo corre sobre filas
// cuyo embargo sigue presente).
func (j *Job) Run(ctx context.Context) error {
	levelPolicy := LevelPolicy(settings.String(ctx, j.settings, settings.KeySweepLevelPolicy, string(LevelFree)))
	datePolicy := DatePolicy(settings.String(ctx, j.settings, settings.KeySweepDatePolicy, string(DateClear)))

	if err := validatePolicies(levelPolicy, datePolicy); err != nil {
		j.log.Error("embargo sweep aborted", map[string]any{"error": err.Error()})
		return err
	}

	// Config del espejo también se valida antes de mutar nada.
	mirrorActive := settings.Bool(ctx, j.settings, settings.KeyPropertyMirror, false)
	var cfg access.MirrorConfig
	if mirrorActive {
		var err error
		cfg, err = access.LoadMirrorConfig(ctx, j.settings)
		if err != nil {
			j.log.Error("embargo sweep aborted", map[string]any{"error": err.Error()})
			return err
		}
	}

	now := j.now()
	elapsed, err := j.statuses.ListEmbargoElapsed(ctx, now)
	if err != nil {
		j.log.Error("embargo sweep failed", map[string]any{"error": err.Error()})
		return err
	}

	changed := make([]access.Status, 0, len(elapsed))
	for _, st := range elapsed {
		next, dirty := apply(st, levelPolicy, datePolicy)
		if !dirty {
			continue
		}
		next.UpdatedAt = now
		changed = append(changed, next)
	}

	if len(changed) > 0 {
		if err := j.statuses.UpsertMany(ctx, changed); err != nil {
			j.log.Error("embargo sweep failed", map[string]any{"error": err.Error()})
			return err
		}
	}

	j.log.Info("embargo sweep done", map[string]any{
		"matched": len(elapsed),
		"changed": len(changed),
		"level":   string(levelPolicy),
		"dates":   string(datePolicy),
	})

	if mirrorActive {
		sts, err := j.statuses.ListAll(ctx)
		if err != nil {
			return err
		}
		if err := j.mirror.ReplaceRows(ctx, cfg, access.BuildMirrorRows(sts, cfg)); err != nil {
			j.log.Error("mirror re-sync failed", map[string]any{"error": err.Error()})
			return err
		}
		j.log.Info("mirror re-synced after sweep", map[string]any{"rows": len(sts)})
	}

	return nil
}

func validatePolicies(lp LevelPolicy, dp DatePolicy) error {
	switch lp {
	case LevelFree, LevelUnder, LevelKeep:
	default:
		return fmt.Errorf("unknown level policy %q", lp)
	}
	switch dp {
	case DateClear, DateKeep:
	default:
		return fmt.Errorf("unknown date policy %q", dp)
	}
	if lp == LevelKeep && dp == DateKeep {
		return ErrNoopPolicy
	}
	return nil
}

// apply computa el status resultante. dirty=false si no hay cambios
// (evita upserts que sólo moverían UpdatedAt).
func apply(st access.Status, lp LevelPolicy, dp DatePolicy) (access.Status, bool) {
	out := st
	dirty := false

	switch lp {
	case LevelFree:
		if out.Level != access.LevelFree {
			out.Level = access.LevelFree
			dirty = true
		}
	case LevelUnder:
		if down := out.Level.StepDown(); down != out.Level {
			out.Level = down
			dirty = true
		}
	case LevelKeep:
	}

	if dp == DateClear && (out.EmbargoStart != nil || out.EmbargoEnd != nil) {
		out.EmbargoStart = nil
		out.EmbargoEnd = nil
		dirty = true
	}

	return out, dirty
}
