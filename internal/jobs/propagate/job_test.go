package propagate

import (
	"context"
	"testing"
	"time"

	mem "archive-access/internal/adapters/storage/memory"
	"archive-access/internal/domain/access"
	"archive-access/internal/domain/resources"
	"archive-access/internal/platform/logger"
	"archive-access/internal/ports/settings"
)

type fixture struct {
	resources *mem.ResourcesRepo
	statuses  *mem.AccessRepo
	settings  *mem.SettingsStore
	job       *Job
	now       time.Time
}

// newFixture siembra la jerarquía: col-1 (owner-1, privada) con item-1
// (owner-1) e item-2 (owner-2), media-1 colgando de item-1, y pub-1
// suelto y público.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	res := mem.NewResourcesRepo()
	seed := []resources.Resource{
		{ID: "col-1", Type: resources.TypeCollection, OwnerUserID: "owner-1"},
		{ID: "item-1", Type: resources.TypeItem, OwnerUserID: "owner-1", CollectionID: "col-1"},
		{ID: "item-2", Type: resources.TypeItem, OwnerUserID: "owner-2", CollectionID: "col-1"},
		{ID: "media-1", Type: resources.TypeMedia, OwnerUserID: "owner-1", ItemID: "item-1"},
		{ID: "pub-1", Type: resources.TypeItem, OwnerUserID: "owner-1", Public: true},
	}
	for _, r := range seed {
		if err := res.Create(context.Background(), r); err != nil {
			t.Fatalf("seed %s: %v", r.ID, err)
		}
	}

	statuses := mem.NewAccessRepo(res)
	st := mem.NewSettingsStore()

	job := New(statuses, statuses, res, st, logger.Nop())
	now := time.Date(2026, 5, 10, 3, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	return &fixture{resources: res, statuses: statuses, settings: st, job: job, now: now}
}

func (f *fixture) mustGet(t *testing.T, id string) access.Status {
	t.Helper()
	s, err := f.statuses.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("status %s: %v", id, err)
	}
	return s
}

func (f *fixture) configureMirror(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	_ = settings.SetJSON(ctx, f.settings, settings.KeyLevelProperty, "dc.rights.level")
	_ = settings.SetJSON(ctx, f.settings, settings.KeyEmbargoStartProp, "dc.rights.start")
	_ = settings.SetJSON(ctx, f.settings, settings.KeyEmbargoEndProp, "dc.rights.end")
	_ = settings.SetJSON(ctx, f.settings, settings.KeyLevelPropertyValue, map[string]string{
		"free": "Libre", "reserved": "Reservado", "protected": "Protegido", "forbidden": "Prohibido",
	})
}

func TestRun_Backfill_DefaultFallback(t *testing.T) {
	f := newFixture(t)

	if err := f.job.Run(context.Background(), Args{Backfill: true}); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if s := f.mustGet(t, "pub-1"); s.Level != access.LevelFree {
		t.Fatalf("public resource must backfill to free, got %s", s.Level)
	}
	for _, id := range []string{"col-1", "item-1", "item-2", "media-1"} {
		if s := f.mustGet(t, id); s.Level != access.LevelReserved {
			t.Fatalf("%s: private resource must backfill to reserved, got %s", id, s.Level)
		}
	}
}

func TestRun_Backfill_NeverOverwrites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = f.statuses.Upsert(ctx, access.Status{ResourceID: "item-1", Level: access.LevelForbidden, UpdatedAt: f.now})

	if err := f.job.Run(ctx, Args{Backfill: true}); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if s := f.mustGet(t, "item-1"); s.Level != access.LevelForbidden {
		t.Fatalf("existing row must survive the backfill, got %s", s.Level)
	}

	// Segunda pasada: converge, no pisa nada.
	if err := f.job.Run(ctx, Args{Backfill: true}); err != nil {
		t.Fatalf("second Run error: %v", err)
	}
	if s := f.mustGet(t, "item-1"); s.Level != access.LevelForbidden {
		t.Fatalf("backfill is not idempotent")
	}
}

func TestRun_Backfill_ConfiguredFallback(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = settings.SetJSON(ctx, f.settings, settings.KeyPrivateFallbackLevel, "protected")

	if err := f.job.Run(ctx, Args{Backfill: true}); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if s := f.mustGet(t, "item-1"); s.Level != access.LevelProtected {
		t.Fatalf("fallback setting ignored, got %s", s.Level)
	}
}

func TestRun_Backfill_InvalidFallbackAborts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_ = settings.SetJSON(ctx, f.settings, settings.KeyPrivateFallbackLevel, "secret")

	if err := f.job.Run(ctx, Args{Backfill: true}); err == nil {
		t.Fatalf("invalid fallback level must abort the job")
	}
	if _, err := f.statuses.Get(ctx, "item-1"); err == nil {
		t.Fatalf("aborted job must not have inserted rows")
	}
}

func TestRun_SyncWithoutMirrorConfig_Aborts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Backfill pedido junto al sync: la config rota aborta ANTES del
	// backfill, nada se muta.
	err := f.job.Run(ctx, Args{Backfill: true, Sync: SyncIndexToMirror})
	if err == nil {
		t.Fatalf("missing mirror config must abort")
	}
	if _, gerr := f.statuses.Get(ctx, "pub-1"); gerr == nil {
		t.Fatalf("abort must happen before any mutation")
	}
}

func TestRun_SyncIndexToMirror_AndBack(t *testing.T) {
	f := newFixture(t)
	f.configureMirror(t)
	ctx := context.Background()

	start := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 7, 1, 10, 30, 0, 0, time.UTC)
	_ = f.statuses.Upsert(ctx, access.Status{ResourceID: "item-1", Level: access.LevelProtected, EmbargoStart: &start, EmbargoEnd: &end, UpdatedAt: f.now})
	_ = f.statuses.Upsert(ctx, access.Status{ResourceID: "pub-1", Level: access.LevelFree, UpdatedAt: f.now})

	if err := f.job.Run(ctx, Args{Sync: SyncIndexToMirror}); err != nil {
		t.Fatalf("index->mirror error: %v", err)
	}

	cfg, err := access.LoadMirrorConfig(ctx, f.settings)
	if err != nil {
		t.Fatalf("LoadMirrorConfig: %v", err)
	}
	rows, err := f.statuses.ListRows(ctx, cfg)
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 mirror rows, got %d", len(rows))
	}

	// Vaciar el índice y regenerarlo desde el espejo.
	_ = f.statuses.Delete(ctx, "item-1")
	_ = f.statuses.Delete(ctx, "pub-1")

	if err := f.job.Run(ctx, Args{Sync: SyncMirrorToIndex}); err != nil {
		t.Fatalf("mirror->index error: %v", err)
	}
	got := f.mustGet(t, "item-1")
	if got.Level != access.LevelProtected {
		t.Fatalf("level lost in round trip: %s", got.Level)
	}
	if got.EmbargoStart == nil || !got.EmbargoStart.Equal(start) {
		t.Fatalf("embargo start lost in round trip: %v", got.EmbargoStart)
	}
	if got.EmbargoEnd == nil || !got.EmbargoEnd.Equal(end) {
		t.Fatalf("embargo end lost in round trip: %v", got.EmbargoEnd)
	}
}

func TestRun_SyncMirrorToIndex_SkipsBrokenRows(t *testing.T) {
	f := newFixture(t)
	f.configureMirror(t)
	ctx := context.Background()

	f.statuses.SeedMirrorRow(access.PropertyRow{ResourceID: "item-1", Level: "Reservado", Start: "no-es-fecha"})
	f.statuses.SeedMirrorRow(access.PropertyRow{ResourceID: "item-2", Level: "Nivel Inventado"})

	if err := f.job.Run(ctx, Args{Sync: SyncMirrorToIndex}); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	// La fecha rota se saltea pero la fila entra; el nivel desconocido
	// invalida su fila completa.
	got := f.mustGet(t, "item-1")
	if got.Level != access.LevelReserved || got.EmbargoStart != nil {
		t.Fatalf("broken date handling: %+v", got)
	}
	if _, err := f.statuses.Get(ctx, "item-2"); err == nil {
		t.Fatalf("row with unknown level must be skipped entirely")
	}
}

func TestRun_UnknownSyncMode_Aborts(t *testing.T) {
	f := newFixture(t)
	f.configureMirror(t)

	if err := f.job.Run(context.Background(), Args{Sync: SyncMode("sideways")}); err == nil {
		t.Fatalf("unknown sync mode must abort")
	}
}

func TestRun_Cascade_CollectionToItemsAndMedia(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = f.statuses.Upsert(ctx, access.Status{ResourceID: "col-1", Level: access.LevelForbidden, UpdatedAt: f.now})

	err := f.job.Run(ctx, Args{
		ResourceIDs:  []string{"col-1"},
		ToItems:      true,
		ToMedia:      true,
		ActorViewAll: true,
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	for _, id := range []string{"item-1", "item-2", "media-1"} {
		if s := f.mustGet(t, id); s.Level != access.LevelForbidden {
			t.Fatalf("%s: cascade missed, got %s", id, s.Level)
		}
	}
	// El cascade no se escapa del subárbol.
	if _, err := f.statuses.Get(ctx, "pub-1"); err == nil {
		t.Fatalf("cascade leaked outside the collection")
	}
}

func TestRun_Cascade_ScopeLimitsToOwnedRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = f.statuses.Upsert(ctx, access.Status{ResourceID: "col-1", Level: access.LevelProtected, UpdatedAt: f.now})

	// owner-1 sin blanket rights: item-2 (de owner-2, privado) queda fuera.
	err := f.job.Run(ctx, Args{
		ResourceIDs: []string{"col-1"},
		ToItems:     true,
		ToMedia:     true,
		ActorUserID: "owner-1",
	})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if s := f.mustGet(t, "item-1"); s.Level != access.LevelProtected {
		t.Fatalf("owned item must be cascaded")
	}
	if _, err := f.statuses.Get(ctx, "item-2"); err == nil {
		t.Fatalf("foreign private item must be outside the actor's scope")
	}
}

func TestRun_Cascade_SkipsBadTargets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = f.statuses.Upsert(ctx, access.Status{ResourceID: "col-1", Level: access.LevelReserved, UpdatedAt: f.now})

	// ghost no existe, media-1 no es contenedor, item-2 no tiene status:
	// los tres warnean y col-1 se cascadea igual.
	err := f.job.Run(ctx, Args{
		ResourceIDs:  []string{"ghost", "media-1", "item-2", "col-1"},
		ToItems:      true,
		ActorViewAll: true,
	})
	if err != nil {
		t.Fatalf("bad targets must not fail the batch: %v", err)
	}
	if s := f.mustGet(t, "item-1"); s.Level != access.LevelReserved {
		t.Fatalf("valid target must still cascade")
	}
}
