package resources

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	Type         string
	OwnerUserID  string
	Public       bool
	ItemID       string
	CollectionID string
	Title        string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (Resource, error) {
	typ := Type(strings.TrimSpace(in.Type))
	if !typ.Valid() {
		return Resource{}, ErrInvalidInput
	}
	if strings.TrimSpace(in.OwnerUserID) == "" {
		return Resource{}, ErrInvalidInput
	}

	itemID := strings.TrimSpace(in.ItemID)
	collectionID := strings.TrimSpace(in.CollectionID)

	// Validar la posición en la jerarquía según el tipo.
	switch typ {
	case TypeMedia:
		if itemID == "" {
			return Resource{}, ErrInvalidInput
		}
		parent, err := s.repo.GetByID(ctx, itemID)
		if err != nil || parent.Type != TypeItem {
			return Resource{}, ErrInvalidInput
		}
		collectionID = ""
	case TypeItem:
		itemID = ""
		if collectionID != "" {
			parent, err := s.repo.GetByID(ctx, collectionID)
			if err != nil || parent.Type != TypeCollection {
				return Resource{}, ErrInvalidInput
			}
		}
	case TypeCollection:
		itemID = ""
		collectionID = ""
	}

	now := s.now()
	r := Resource{
		ID:           uuid.NewString(),
		Type:         typ,
		OwnerUserID:  strings.TrimSpace(in.OwnerUserID),
		Public:       in.Public,
		ItemID:       itemID,
		CollectionID: collectionID,
		Title:        strings.TrimSpace(in.Title),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, r); err != nil {
		return Resource{}, err
	}
	return r, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Resource, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Resource{}, ErrInvalidInput
	}
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Resource{}, ErrNotFound
	}
	return r, nil
}

func (s *Service) List(ctx context.Context) ([]Resource, error) {
	return s.repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

// OwnerOf expone el ownerUserID de un recurso.
// Se usa desde otros módulos para evitar ciclos de imports.
func (s *Service) OwnerOf(ctx context.Context, id string) (string, error) {
	r, err := s.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return r.OwnerUserID, nil
}
