package requests

import (
	"strings"
	"time"
)

// Status es el estado del pedido de acceso individual.
// @Enum new, renew, accepted, rejected
type Status string

const (
	StatusNew      Status = "new"
	StatusRenew    Status = "renew"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusRenew, StatusAccepted, StatusRejected:
		return true
	}
	return false
}

// Request es un grant individual: identifica al solicitante por
// exactamente uno de {user, e-mail, token} y cubre un set no vacío de
// recursos. Enabled es SIEMPRE derivado de Status == accepted; nunca se
// persiste un valor seteado a mano.
type Request struct {
	ID string

	// Identidad del solicitante (exactamente una).
	UserID string
	Email  string
	Token  string

	Status  Status
	Enabled bool

	ResourceIDs []string

	// Recursive: el grant alcanza también a los descendientes de los
	// recursos cubiertos (media de un item; items+media de una colección).
	Recursive bool

	// Ventana de validez opcional; cualquiera de las dos puede ir sola.
	// Borde: start inclusivo, end exclusivo, igual que el embargo.
	Start *time.Time
	End   *time.Time

	// Mensaje libre del solicitante (por qué pide acceso).
	Message string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Temporal indica si el grant tiene ventana de validez.
func (r Request) Temporal() bool {
	return r.Start != nil || r.End != nil
}

// ActiveAt: enabled y dentro de la ventana (si la hay). Un grant
// aceptado pero vencido o futuro no cuenta.
func (r Request) ActiveAt(now time.Time) bool {
	if !r.Enabled {
		return false
	}
	if r.Start != nil && now.Before(*r.Start) {
		return false
	}
	if r.End != nil && !now.Before(*r.End) {
		return false
	}
	return true
}

// Covers busca el recurso en el set cubierto.
func (r Request) Covers(resourceID string) bool {
	for _, id := range r.ResourceIDs {
		if id == resourceID {
			return true
		}
	}
	return false
}

// identityCount cuenta identidades presentes; el invariante es == 1.
func identityCount(userID, email, token string) int {
	n := 0
	if strings.TrimSpace(userID) != "" {
		n++
	}
	if strings.TrimSpace(email) != "" {
		n++
	}
	if strings.TrimSpace(token) != "" {
		n++
	}
	return n
}
