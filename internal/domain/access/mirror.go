package access

import (
	"context"
	"fmt"
	"time"

	"archive-access/internal/ports/settings"
)

// MirrorConfig describe el modo espejo: los tres campos de metadata
// descriptiva que codifican nivel y embargo, y el mapping nivel->literal.
type MirrorConfig struct {
	LevelField string
	StartField string
	EndField   string

	// LevelValues mapea cada nivel a su literal en la propiedad.
	// Invariante: cubre exactamente los cuatro niveles.
	LevelValues map[Level]string
}

// ErrMirrorConfig marca configuración de espejo incompleta o inválida:
// un error de configuración aborta el job entero antes de tocar datos.
type ErrMirrorConfig struct{ Reason string }

func (e *ErrMirrorConfig) Error() string {
	return "property mirror misconfigured: " + e.Reason
}

// LoadMirrorConfig arma y valida la config del espejo desde settings.
func LoadMirrorConfig(ctx context.Context, st settings.Store) (MirrorConfig, error) {
	cfg := MirrorConfig{
		LevelField: settings.String(ctx, st, settings.KeyLevelProperty, ""),
		StartField: settings.String(ctx, st, settings.KeyEmbargoStartProp, ""),
		EndField:   settings.String(ctx, st, settings.KeyEmbargoEndProp, ""),
	}
	if cfg.LevelField == "" || cfg.StartField == "" || cfg.EndField == "" {
		return MirrorConfig{}, &ErrMirrorConfig{Reason: "missing property field names"}
	}

	raw := settings.StringMap(ctx, st, settings.KeyLevelPropertyValue)
	cfg.LevelValues = make(map[Level]string, len(Levels()))
	for _, l := range Levels() {
		v, ok := raw[string(l)]
		if !ok || v == "" {
			return MirrorConfig{}, &ErrMirrorConfig{
				Reason: fmt.Sprintf("level %q has no property value", l),
			}
		}
		cfg.LevelValues[l] = v
	}
	if len(raw) != len(Levels()) {
		return MirrorConfig{}, &ErrMirrorConfig{Reason: "level map must cover exactly the four levels"}
	}
	return cfg, nil
}

// LevelFor resuelve el nivel desde su literal de propiedad.
func (c MirrorConfig) LevelFor(literal string) (Level, bool) {
	for l, v := range c.LevelValues {
		if v == literal {
			return l, true
		}
	}
	return "", false
}

const (
	mirrorDateTime = "2006-01-02 15:04:05"
	mirrorDateOnly = "2006-01-02"
)

// FormatMirrorDate serializa una fecha de embargo: con hora sólo si la
// tiene, para que el round-trip propiedad->índice->propiedad devuelva el
// literal original bit a bit.
func FormatMirrorDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	h, m, s := t.Clock()
	if h == 0 && m == 0 && s == 0 {
		return t.Format(mirrorDateOnly)
	}
	return t.Format(mirrorDateTime)
}

// ParseMirrorDate parsea un literal de fecha del espejo. Literal vacío o
// inválido devuelve nil (el caller decide si warnea); nunca panic/error.
func ParseMirrorDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{mirrorDateTime, mirrorDateOnly} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return &t
		}
	}
	return nil
}

// BuildMirrorRows regenera las filas del espejo desde el índice.
func BuildMirrorRows(sts []Status, cfg MirrorConfig) []PropertyRow {
	rows := make([]PropertyRow, 0, len(sts))
	for _, s := range sts {
		rows = append(rows, PropertyRow{
			ResourceID: s.ResourceID,
			Level:      cfg.LevelValues[s.Level],
			Start:      FormatMirrorDate(s.EmbargoStart),
			End:        FormatMirrorDate(s.EmbargoEnd),
		})
	}
	return rows
}

// ParseMirrorRow interpreta una fila del espejo como status. Fechas
// inválidas se saltean (quedan nil) y se informan como warnings; un
// nivel desconocido invalida la fila entera (ok=false).
func ParseMirrorRow(row PropertyRow, cfg MirrorConfig, now time.Time) (Status, []string, bool) {
	var warns []string

	level, ok := cfg.LevelFor(row.Level)
	if !ok {
		return Status{}, []string{fmt.Sprintf("resource %s: unknown level value %q", row.ResourceID, row.Level)}, false
	}

	s := Status{
		ResourceID: row.ResourceID,
		Level:      level,
		UpdatedAt:  now,
	}
	if row.Start != "" {
		if t := ParseMirrorDate(row.Start); t != nil {
			s.EmbargoStart = t
		} else {
			warns = append(warns, fmt.Sprintf("resource %s: invalid embargo start %q, skipped", row.ResourceID, row.Start))
		}
	}
	if row.End != "" {
		if t := ParseMirrorDate(row.End); t != nil {
			s.EmbargoEnd = t
		} else {
			warns = append(warns, fmt.Sprintf("resource %s: invalid embargo end %q, skipped", row.ResourceID, row.End))
		}
	}
	return s, warns, true
}
