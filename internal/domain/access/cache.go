package access

import (
	"context"

	"archive-access/internal/domain/resources"
)

// HierarchyCache memoiza lecturas de recursos dentro de un request.
// Se crea uno por decisión y se descarta: nunca un map global mutable,
// para que el engine siga siendo reentrante y testeable.
type HierarchyCache struct {
	repo resources.Repository
	byID map[string]resources.Resource
}

func NewHierarchyCache(repo resources.Repository) *HierarchyCache {
	return &HierarchyCache{
		repo: repo,
		byID: make(map[string]resources.Resource),
	}
}

func (c *HierarchyCache) Get(ctx context.Context, id string) (resources.Resource, error) {
	if id == "" {
		return resources.Resource{}, ErrNotFound
	}
	if r, ok := c.byID[id]; ok {
		return r, nil
	}
	r, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return resources.Resource{}, err
	}
	c.byID[id] = r
	return r, nil
}

// Ancestors devuelve la cadena de ancestros del recurso, del más cercano
// al más lejano: media -> [item, collection], item -> [collection].
// Ancestros inexistentes se omiten sin error.
func (c *HierarchyCache) Ancestors(ctx context.Context, r resources.Resource) []resources.Resource {
	out := make([]resources.Resource, 0, 2)

	cur := r
	if cur.Type == resources.TypeMedia && cur.ItemID != "" {
		item, err := c.Get(ctx, cur.ItemID)
		if err != nil {
			return out
		}
		out = append(out, item)
		cur = item
	}
	if cur.Type == resources.TypeItem && cur.CollectionID != "" {
		col, err := c.Get(ctx, cur.CollectionID)
		if err != nil {
			return out
		}
		out = append(out, col)
	}
	return out
}

// CollectionOf resuelve la colección a la que pertenece el recurso
// (él mismo si ya es una colección). ok=false si no tiene.
func (c *HierarchyCache) CollectionOf(ctx context.Context, r resources.Resource) (string, bool) {
	if r.Type == resources.TypeCollection {
		return r.ID, true
	}
	for _, a := range c.Ancestors(ctx, r) {
		if a.Type == resources.TypeCollection {
			return a.ID, true
		}
	}
	return "", false
}
