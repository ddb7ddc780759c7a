package resources

import "context"

type Repository interface {
	Create(ctx context.Context, r Resource) error
	GetByID(ctx context.Context, id string) (Resource, error)
	List(ctx context.Context) ([]Resource, error)
	Delete(ctx context.Context, id string) error

	// Lecturas de jerarquía (read-only), usadas por cascadas y checkers.
	ListItemsByCollection(ctx context.Context, collectionID string) ([]Resource, error)
	ListMediaByItem(ctx context.Context, itemID string) ([]Resource, error)
}
