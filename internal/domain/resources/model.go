package resources

import "time"

// Type define los tres niveles de la jerarquía de contenedores.
// @Enum collection, item, media
type Type string

const (
	TypeCollection Type = "collection"
	TypeItem       Type = "item"
	TypeMedia      Type = "media"
)

func (t Type) Valid() bool {
	switch t {
	case TypeCollection, TypeItem, TypeMedia:
		return true
	}
	return false
}

// Resource es el modelo mínimo del lado host que el core necesita leer:
// identidad, dueño, visibilidad y posición en la jerarquía
// collection -> item -> media. El CRUD completo de registros vive en el
// framework anfitrión; acá sólo lo justo para decidir accesos y cascadas.
type Resource struct {
	ID          string
	Type        Type
	OwnerUserID string

	// Public es la visibilidad simple (público/privado). El nivel de
	// acceso es independiente y vive en access.Status.
	Public bool

	// ItemID: sólo para media, su item padre.
	ItemID string
	// CollectionID: sólo para items, su colección.
	CollectionID string

	Title string

	CreatedAt time.Time
	UpdatedAt time.Time
}
