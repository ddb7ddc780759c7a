package resources

import (
	"context"
	"errors"
	"testing"
	"time"

	"archive-access/internal/ports/auth"
)

// -------------------------
// Test repo (in-memory)
// -------------------------

var errRepoNotFound = errors.New("repo: not found")

type testRepo struct {
	byID map[string]Resource
}

func newTestRepo() *testRepo {
	return &testRepo{byID: map[string]Resource{}}
}

func (r *testRepo) Create(ctx context.Context, res Resource) error {
	if res.ID == "" {
		return errors.New("repo: id required")
	}
	r.byID[res.ID] = res
	return nil
}

func (r *testRepo) GetByID(ctx context.Context, id string) (Resource, error) {
	res, ok := r.byID[id]
	if !ok {
		return Resource{}, errRepoNotFound
	}
	return res, nil
}

func (r *testRepo) List(ctx context.Context) ([]Resource, error) {
	out := make([]Resource, 0, len(r.byID))
	for _, res := range r.byID {
		out = append(out, res)
	}
	return out, nil
}

func (r *testRepo) Delete(ctx context.Context, id string) error {
	delete(r.byID, id)
	return nil
}

func (r *testRepo) ListItemsByCollection(ctx context.Context, collectionID string) ([]Resource, error) {
	out := make([]Resource, 0)
	for _, res := range r.byID {
		if res.Type == TypeItem && res.CollectionID == collectionID {
			out = append(out, res)
		}
	}
	return out, nil
}

func (r *testRepo) ListMediaByItem(ctx context.Context, itemID string) ([]Resource, error) {
	out := make([]Resource, 0)
	for _, res := range r.byID {
		if res.Type == TypeMedia && res.ItemID == itemID {
			out = append(out, res)
		}
	}
	return out, nil
}

// -------------------------
// Tests
// -------------------------

func newResourceService(t *testing.T) (*Service, *testRepo, time.Time) {
	t.Helper()
	repo := newTestRepo()
	svc := NewService(repo)
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, repo, now
}

func TestService_Create_Hierarchy(t *testing.T) {
	svc, _, now := newResourceService(t)
	ctx := context.Background()

	col, err := svc.Create(ctx, CreateInput{Type: "collection", OwnerUserID: "owner-1", Title: "Fondo"})
	if err != nil {
		t.Fatalf("create collection: %v", err)
	}
	if col.CreatedAt != now {
		t.Fatalf("CreatedAt must come from the injected clock")
	}

	item, err := svc.Create(ctx, CreateInput{Type: "item", OwnerUserID: "owner-1", CollectionID: col.ID})
	if err != nil {
		t.Fatalf("create item: %v", err)
	}

	media, err := svc.Create(ctx, CreateInput{Type: "media", OwnerUserID: "owner-1", ItemID: item.ID})
	if err != nil {
		t.Fatalf("create media: %v", err)
	}
	if media.ItemID != item.ID || media.CollectionID != "" {
		t.Fatalf("media must hang from its item only: %+v", media)
	}
}

func TestService_Create_Validation(t *testing.T) {
	svc, _, _ := newResourceService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"tipo desconocido", CreateInput{Type: "folder", OwnerUserID: "o1"}},
		{"sin owner", CreateInput{Type: "collection"}},
		{"media sin item", CreateInput{Type: "media", OwnerUserID: "o1"}},
		{"media con item inexistente", CreateInput{Type: "media", OwnerUserID: "o1", ItemID: "ghost"}},
		{"item con coleccion inexistente", CreateInput{Type: "item", OwnerUserID: "o1", CollectionID: "ghost"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestService_Create_MediaParentMustBeItem(t *testing.T) {
	svc, _, _ := newResourceService(t)
	ctx := context.Background()

	col, _ := svc.Create(ctx, CreateInput{Type: "collection", OwnerUserID: "o1"})
	if _, err := svc.Create(ctx, CreateInput{Type: "media", OwnerUserID: "o1", ItemID: col.ID}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("media hanging from a collection: expected ErrInvalidInput, got %v", err)
	}
}

func TestService_LooseItem_Allowed(t *testing.T) {
	svc, _, _ := newResourceService(t)

	// Un item puede existir sin colección.
	item, err := svc.Create(context.Background(), CreateInput{Type: "item", OwnerUserID: "o1"})
	if err != nil {
		t.Fatalf("loose item: %v", err)
	}
	if item.CollectionID != "" {
		t.Fatalf("loose item must have no collection")
	}
}

func TestService_GetDelete(t *testing.T) {
	svc, repo, _ := newResourceService(t)
	ctx := context.Background()

	if _, err := svc.GetByID(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := svc.GetByID(ctx, "  "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("blank id: expected ErrInvalidInput, got %v", err)
	}

	col, _ := svc.Create(ctx, CreateInput{Type: "collection", OwnerUserID: "o1"})
	if err := svc.Delete(ctx, col.ID); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, ok := repo.byID[col.ID]; ok {
		t.Fatalf("resource not deleted")
	}
}

func TestWriteScope(t *testing.T) {
	owned := Resource{ID: "r1", OwnerUserID: "u1"}
	foreign := Resource{ID: "r2", OwnerUserID: "u2"}
	public := Resource{ID: "r3", OwnerUserID: "u2", Public: true}

	admin := ScopeFor(auth.Claims{UserID: "a1", ViewAll: true})
	if !admin.Allows(owned) || !admin.Allows(foreign) {
		t.Fatalf("view-all scope must allow everything")
	}

	user := ScopeFor(auth.Claims{UserID: "u1"})
	if !user.Allows(owned) {
		t.Fatalf("owner scope must allow own resources")
	}
	if user.Allows(foreign) {
		t.Fatalf("owner scope must not reach foreign private resources")
	}
	if !user.Allows(public) {
		t.Fatalf("public resources are writable within any scope")
	}
}
