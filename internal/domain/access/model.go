package access

import (
	"errors"
	"time"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
)

// Level es el nivel de acceso de un recurso, independiente de la
// visibilidad público/privado.
// @Enum free, reserved, protected, forbidden
type Level string

const (
	LevelFree      Level = "free"
	LevelReserved  Level = "reserved"
	LevelProtected Level = "protected"
	LevelForbidden Level = "forbidden"
)

// levelRank ordena los niveles de menos a más restrictivo. Enumeración
// cerrada: todo parseo pasa por acá, nada compara strings sueltos.
var levelRank = map[Level]int{
	LevelFree:      0,
	LevelReserved:  1,
	LevelProtected: 2,
	LevelForbidden: 3,
}

// stepDown baja exactamente un rango (política "under" del sweep).
// forbidden baja directo a reserved, no a protected.
var stepDown = map[Level]Level{
	LevelFree:      LevelFree,
	LevelReserved:  LevelFree,
	LevelProtected: LevelReserved,
	LevelForbidden: LevelReserved,
}

func ParseLevel(s string) (Level, bool) {
	l := Level(s)
	_, ok := levelRank[l]
	return l, ok
}

func (l Level) Valid() bool {
	_, ok := levelRank[l]
	return ok
}

func (l Level) Rank() int {
	return levelRank[l]
}

func (l Level) StepDown() Level {
	if down, ok := stepDown[l]; ok {
		return down
	}
	return l
}

// Levels devuelve los cuatro niveles en orden de rango. Lo usa la
// validación del mapping nivel->propiedad (debe cubrir exactamente estos).
func Levels() []Level {
	return []Level{LevelFree, LevelReserved, LevelProtected, LevelForbidden}
}

// Status es la fila 1:1 del índice de acceso por recurso.
type Status struct {
	ResourceID string
	Level      Level

	// Ventana de embargo; cualquiera de las dos puede venir sola.
	EmbargoStart *time.Time
	EmbargoEnd   *time.Time

	UpdatedAt time.Time
}

func (s Status) HasEmbargo() bool {
	return s.EmbargoStart != nil || s.EmbargoEnd != nil
}
