package requests

import "context"

// LookupBy lleva los identificadores extraídos del request/sesión para
// buscar grants. Cualquiera puede venir vacío; matchea por OR.
type LookupBy struct {
	UserID string
	Email  string
	Token  string
}

func (l LookupBy) Empty() bool {
	return l.UserID == "" && l.Email == "" && l.Token == ""
}

type Repository interface {
	Create(ctx context.Context, r Request) error
	Update(ctx context.Context, r Request) error
	GetByID(ctx context.Context, id string) (Request, error)
	Delete(ctx context.Context, id string) error

	List(ctx context.Context) ([]Request, error)
	ListByRequester(ctx context.Context, by LookupBy) ([]Request, error)

	// ListEnabledFor devuelve sólo grants con Enabled=true que matcheen
	// alguno de los identificadores. La ventana temporal la filtra el
	// caller (necesita "now" controlado).
	ListEnabledFor(ctx context.Context, by LookupBy) ([]Request, error)

	TokenExists(ctx context.Context, token string) (bool, error)
}
