package memory

import (
	"context"
	"errors"
	"sync"

	"archive-access/internal/domain/resources"
)

var ErrNotFound = errors.New("not found")

type ResourcesRepo struct {
	mu   sync.RWMutex
	byID map[string]resources.Resource
}

func NewResourcesRepo() *ResourcesRepo {
	return &ResourcesRepo{byID: make(map[string]resources.Resource)}
}

func (r *ResourcesRepo) Create(ctx context.Context, res resources.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if res.ID == "" {
		return errors.New("resource id required")
	}
	if _, exists := r.byID[res.ID]; exists {
		return errors.New("resource already exists")
	}
	r.byID[res.ID] = res
	return nil
}

func (r *ResourcesRepo) GetByID(ctx context.Context, id string) (resources.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.byID[id]
	if !ok {
		return resources.Resource{}, ErrNotFound
	}
	return res, nil
}

func (r *ResourcesRepo) List(ctx context.Context) ([]resources.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]resources.Resource, 0, len(r.byID))
	for _, res := range r.byID {
		out = append(out, res)
	}
	return out, nil
}

func (r *ResourcesRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byID, id)
	return nil
}

func (r *ResourcesRepo) ListItemsByCollection(ctx context.Context, collectionID string) ([]resources.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]resources.Resource, 0)
	for _, res := range r.byID {
		if res.Type == resources.TypeItem && res.CollectionID == collectionID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *ResourcesRepo) ListMediaByItem(ctx context.Context, itemID string) ([]resources.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]resources.Resource, 0)
	for _, res := range r.byID {
		if res.Type == resources.TypeMedia && res.ItemID == itemID {
			out = append(out, res)
		}
	}
	return out, nil
}
