package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"archive-access/internal/domain/access"
	"archive-access/internal/domain/resources"
)

// AccessRepo implementa StatusRepository y MirrorRepository en memoria.
// Las operaciones bulk replican la semántica set-oriented del adapter
// Postgres (mismo contrato, mismo resultado final) para que los jobs se
// puedan testear sin base.
type AccessRepo struct {
	mu        sync.RWMutex
	byID      map[string]access.Status
	mirror    map[string]access.PropertyRow
	resources *ResourcesRepo
}

func NewAccessRepo(res *ResourcesRepo) *AccessRepo {
	return &AccessRepo{
		byID:      make(map[string]access.Status),
		mirror:    make(map[string]access.PropertyRow),
		resources: res,
	}
}

func (r *AccessRepo) Get(ctx context.Context, resourceID string) (access.Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[resourceID]
	if !ok {
		return access.Status{}, access.ErrNotFound
	}
	return s, nil
}

func (r *AccessRepo) Upsert(ctx context.Context, s access.Status) error {
	if s.ResourceID == "" {
		return errors.New("resource id required")
	}
	if !s.Level.Valid() {
		return errors.New("invalid level")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byID[s.ResourceID] = s
	return nil
}

func (r *AccessRepo) Delete(ctx context.Context, resourceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byID, resourceID)
	return nil
}

func (r *AccessRepo) ListAll(ctx context.Context) ([]access.Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]access.Status, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, s)
	}
	return out, nil
}

func (r *AccessRepo) UpsertMany(ctx context.Context, sts []access.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range sts {
		if s.ResourceID == "" || !s.Level.Valid() {
			return errors.New("invalid status in batch")
		}
		r.byID[s.ResourceID] = s
	}
	return nil
}

func (r *AccessRepo) BackfillFromVisibility(ctx context.Context, fallback access.Level, now time.Time) (int64, error) {
	all, err := r.resources.List(ctx)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, res := range all {
		if _, exists := r.byID[res.ID]; exists {
			continue
		}
		level := access.LevelFree
		if !res.Public {
			level = fallback
		}
		r.byID[res.ID] = access.Status{
			ResourceID: res.ID,
			Level:      level,
			UpdatedAt:  now,
		}
		n++
	}
	return n, nil
}

func (r *AccessRepo) CascadeFromCollection(ctx context.Context, collectionID string, s access.Status, scope resources.WriteScope, toItems, toMedia bool) (int64, int64, error) {
	items, err := r.resources.ListItemsByCollection(ctx, collectionID)
	if err != nil {
		return 0, 0, err
	}

	var nItems, nMedia int64
	for _, item := range items {
		if toItems && scope.Allows(item) {
			r.apply(item.ID, s)
			nItems++
		}
		if !toMedia {
			continue
		}
		media, err := r.resources.ListMediaByItem(ctx, item.ID)
		if err != nil {
			return nItems, nMedia, err
		}
		for _, m := range media {
			if scope.Allows(m) {
				r.apply(m.ID, s)
				nMedia++
			}
		}
	}
	return nItems, nMedia, nil
}

func (r *AccessRepo) CascadeFromItem(ctx context.Context, itemID string, s access.Status, scope resources.WriteScope) (int64, error) {
	media, err := r.resources.ListMediaByItem(ctx, itemID)
	if err != nil {
		return 0, err
	}

	var n int64
	for _, m := range media {
		if scope.Allows(m) {
			r.apply(m.ID, s)
			n++
		}
	}
	return n, nil
}

func (r *AccessRepo) ListEmbargoElapsed(ctx context.Context, now time.Time) ([]access.Status, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]access.Status, 0)
	for _, s := range r.byID {
		if embargoElapsed(s, now) {
			out = append(out, s)
		}
	}
	return out, nil
}

// embargoElapsed replica los patrones del sweep: sólo-start alcanzado,
// o end alcanzado (end exclusivo, igual que el evaluador).
func embargoElapsed(s access.Status, now time.Time) bool {
	start, end := s.EmbargoStart, s.EmbargoEnd
	switch {
	case start == nil && end == nil:
		return false
	case end == nil:
		return !now.Before(*start)
	default:
		return !now.Before(*end)
	}
}

func (r *AccessRepo) apply(resourceID string, s access.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := s
	next.ResourceID = resourceID
	r.byID[resourceID] = next
}

// ---- MirrorRepository ----

func (r *AccessRepo) ListRows(ctx context.Context, cfg access.MirrorConfig) ([]access.PropertyRow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]access.PropertyRow, 0, len(r.mirror))
	for _, row := range r.mirror {
		out = append(out, row)
	}
	return out, nil
}

func (r *AccessRepo) ReplaceRows(ctx context.Context, cfg access.MirrorConfig, rows []access.PropertyRow) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mirror = make(map[string]access.PropertyRow, len(rows))
	for _, row := range rows {
		r.mirror[row.ResourceID] = row
	}
	return nil
}

// SeedMirrorRow carga una fila del espejo directo (para dev/tests del
// camino mirror->index).
func (r *AccessRepo) SeedMirrorRow(row access.PropertyRow) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mirror[row.ResourceID] = row
}
