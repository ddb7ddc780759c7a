package access

import (
	"context"
	"errors"
	"testing"
	"time"

	"archive-access/internal/domain/resources"
	"archive-access/internal/ports/auth"
)

func newStatusService(t *testing.T) (*Service, *testStatuses, *testResources, time.Time) {
	t.Helper()

	res := newTestResources()
	_ = res.Create(context.Background(), resources.Resource{
		ID: "item-1", Type: resources.TypeItem, OwnerUserID: "owner-1",
	})

	statuses := newTestStatuses()
	svc := NewService(statuses, res)
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }
	return svc, statuses, res, now
}

func TestStatusService_Set_OwnerUpserts(t *testing.T) {
	svc, statuses, _, now := newStatusService(t)

	owner := auth.Claims{UserID: "owner-1"}
	st, counts, err := svc.Set(context.Background(), owner, SetInput{
		ResourceID: "item-1",
		Level:      "protected",
	})
	if err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if st.Level != LevelProtected || st.UpdatedAt != now {
		t.Fatalf("unexpected status: %+v", st)
	}
	if counts.Items != 0 || counts.Media != 0 {
		t.Fatalf("no cascade requested, counts must be zero")
	}
	if _, ok := statuses.byID["item-1"]; !ok {
		t.Fatalf("status row was not persisted")
	}
}

func TestStatusService_Set_StrangerForbidden(t *testing.T) {
	svc, _, _, _ := newStatusService(t)

	_, _, err := svc.Set(context.Background(), auth.Claims{UserID: "intruso"}, SetInput{
		ResourceID: "item-1",
		Level:      "free",
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	// Un admin sí puede.
	_, _, err = svc.Set(context.Background(), auth.Claims{UserID: "admin", ViewAll: true}, SetInput{
		ResourceID: "item-1",
		Level:      "free",
	})
	if err != nil {
		t.Fatalf("view-all Set error: %v", err)
	}
}

func TestStatusService_Set_Validation(t *testing.T) {
	svc, _, _, now := newStatusService(t)
	owner := auth.Claims{UserID: "owner-1"}

	if _, _, err := svc.Set(context.Background(), owner, SetInput{ResourceID: "item-1", Level: "secret"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unknown level: expected ErrInvalidInput, got %v", err)
	}

	start := now
	end := now.Add(-time.Hour)
	if _, _, err := svc.Set(context.Background(), owner, SetInput{
		ResourceID: "item-1", Level: "free",
		EmbargoStart: &start, EmbargoEnd: &end,
	}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("start >= end: expected ErrInvalidInput, got %v", err)
	}

	if _, _, err := svc.Set(context.Background(), owner, SetInput{ResourceID: "ghost", Level: "free"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("unknown resource: expected ErrNotFound, got %v", err)
	}
}

func TestStatusService_GetAndDelete(t *testing.T) {
	svc, statuses, _, now := newStatusService(t)

	if _, err := svc.Get(context.Background(), "item-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("absent row: expected ErrNotFound, got %v", err)
	}

	_ = statuses.Upsert(context.Background(), Status{ResourceID: "item-1", Level: LevelReserved, UpdatedAt: now})
	st, err := svc.Get(context.Background(), "item-1")
	if err != nil || st.Level != LevelReserved {
		t.Fatalf("Get: %+v, %v", st, err)
	}

	if err := svc.Delete(context.Background(), "item-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	// Idempotente.
	if err := svc.Delete(context.Background(), "item-1"); err != nil {
		t.Fatalf("second Delete error: %v", err)
	}
}
