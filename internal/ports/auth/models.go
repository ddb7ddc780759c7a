package auth

import "strings"

// Claims representa la identidad del requester extraída del token
// (o inyectada en modo dev). Un visitante anónimo es Claims{} vacío.
type Claims struct {
	UserID string
	Email  string

	// Roles de sesión (p.ej. "researcher", "staff").
	Roles []string

	// Providers: tags de identity providers externos por los que el
	// usuario llegó autenticado (p.ej. "saml", "cas"). Puede venir vacío.
	Providers []string

	// ViewAll: capacidad administrativa de "ver todo". Quien la tiene
	// bypasea las restricciones de acceso y los embargos.
	ViewAll bool
}

// Authenticated indica si hay un usuario detrás del request.
func (c Claims) Authenticated() bool {
	return strings.TrimSpace(c.UserID) != ""
}

func (c Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (c Claims) HasProvider(provider string) bool {
	for _, p := range c.Providers {
		if p == provider {
			return true
		}
	}
	return false
}
