package access

import (
	"context"
	"strings"
	"time"

	"archive-access/internal/domain/resources"
	"archive-access/internal/ports/auth"
)

// Service cubre la edición puntual de status (admin o dueño) y dispara,
// si se pide, la cascada bulk hacia los descendientes.
type Service struct {
	statuses  StatusRepository
	resources resources.Repository
	now       func() time.Time
}

func NewService(statuses StatusRepository, res resources.Repository) *Service {
	return &Service{
		statuses:  statuses,
		resources: res,
		now:       time.Now,
	}
}

func (s *Service) Get(ctx context.Context, resourceID string) (Status, error) {
	resourceID = strings.TrimSpace(resourceID)
	if resourceID == "" {
		return Status{}, ErrInvalidInput
	}
	st, err := s.statuses.Get(ctx, resourceID)
	if err != nil {
		return Status{}, ErrNotFound
	}
	return st, nil
}

// Delete borra la fila de status; la usa el cascade de borrado de
// recursos. Idempotente.
func (s *Service) Delete(ctx context.Context, resourceID string) error {
	return s.statuses.Delete(ctx, strings.TrimSpace(resourceID))
}

type SetInput struct {
	ResourceID   string
	Level        string
	EmbargoStart *time.Time
	EmbargoEnd   *time.Time

	// Cascada opcional hacia descendientes, limitada al scope del actor.
	ApplyToItems bool
	ApplyToMedia bool
}

type CascadeCounts struct {
	Items int64
	Media int64
}

// Set upsertea el status de un recurso. Puede el dueño del recurso o un
// admin; la cascada corre con el WriteScope del actor, así un dueño sin
// blanket rights no pisa descendientes ajenos.
func (s *Service) Set(ctx context.Context, actor auth.Claims, in SetInput) (Status, CascadeCounts, error) {
	var counts CascadeCounts

	resourceID := strings.TrimSpace(in.ResourceID)
	if resourceID == "" {
		return Status{}, counts, ErrInvalidInput
	}
	level, ok := ParseLevel(strings.TrimSpace(in.Level))
	if !ok {
		return Status{}, counts, ErrInvalidInput
	}
	if in.EmbargoStart != nil && in.EmbargoEnd != nil && !in.EmbargoStart.Before(*in.EmbargoEnd) {
		return Status{}, counts, ErrInvalidInput
	}

	res, err := s.resources.GetByID(ctx, resourceID)
	if err != nil {
		return Status{}, counts, ErrNotFound
	}
	if !actor.ViewAll && res.OwnerUserID != actor.UserID {
		return Status{}, counts, ErrForbidden
	}

	st := Status{
		ResourceID:   resourceID,
		Level:        level,
		EmbargoStart: in.EmbargoStart,
		EmbargoEnd:   in.EmbargoEnd,
		UpdatedAt:    s.now(),
	}
	if err := s.statuses.Upsert(ctx, st); err != nil {
		return Status{}, counts, err
	}

	if !in.ApplyToItems && !in.ApplyToMedia {
		return st, counts, nil
	}

	scope := resources.ScopeFor(actor)
	switch res.Type {
	case resources.TypeCollection:
		items, media, err := s.statuses.CascadeFromCollection(ctx, res.ID, st, scope, in.ApplyToItems, in.ApplyToMedia)
		if err != nil {
			return st, counts, err
		}
		counts.Items, counts.Media = items, media
	case resources.TypeItem:
		if in.ApplyToMedia {
			media, err := s.statuses.CascadeFromItem(ctx, res.ID, st, scope)
			if err != nil {
				return st, counts, err
			}
			counts.Media = media
		}
	default:
		// media no tiene descendientes; la cascada pedida se ignora
	}

	return st, counts, nil
}
