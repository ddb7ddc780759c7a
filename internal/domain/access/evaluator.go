package access

import "time"

// EmbargoState es el resultado tri-estado de evaluar un embargo.
type EmbargoState int

const (
	// EmbargoNotApplicable: sin fechas, el embargo no aplica.
	EmbargoNotApplicable EmbargoState = iota
	EmbargoActive
	EmbargoInactive
)

// EmbargoAt evalúa el embargo de un status en un instante dado.
// Semántica de bordes: start inclusivo, end exclusivo (el embargo
// termina EN el instante end, no después).
//
//   - sin start ni end        => not applicable
//   - sólo start              => activo sii now >= start (indefinido)
//   - sólo end                => activo sii now < end
//   - ambos                   => activo sii start <= now < end
//
// Función pura: mismo status y mismo now, mismo resultado.
func EmbargoAt(s Status, now time.Time) EmbargoState {
	start, end := s.EmbargoStart, s.EmbargoEnd

	switch {
	case start == nil && end == nil:
		return EmbargoNotApplicable
	case end == nil:
		if !now.Before(*start) {
			return EmbargoActive
		}
		return EmbargoInactive
	case start == nil:
		if now.Before(*end) {
			return EmbargoActive
		}
		return EmbargoInactive
	default:
		if !now.Before(*start) && now.Before(*end) {
			return EmbargoActive
		}
		return EmbargoInactive
	}
}
