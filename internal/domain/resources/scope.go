package resources

import "archive-access/internal/ports/auth"

// WriteScope expresa "qué recursos puede modificar este principal".
// Es el mismo predicado para el camino single-resource (Allows) y para
// el camino bulk SQL (los adapters lo traducen a una condición de WHERE),
// así ambos no divergen.
type WriteScope struct {
	// All: capacidad administrativa, sin restricción.
	All bool
	// UserID: sin All, el principal queda limitado a recursos públicos
	// o propios.
	UserID string
}

func ScopeFor(c auth.Claims) WriteScope {
	return WriteScope{All: c.ViewAll, UserID: c.UserID}
}

func (s WriteScope) Allows(r Resource) bool {
	if s.All {
		return true
	}
	return r.Public || (s.UserID != "" && r.OwnerUserID == s.UserID)
}
