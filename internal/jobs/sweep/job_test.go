package sweep

import (
	"context"
	"errors"
	"testing"
	"time"

	mem "archive-access/internal/adapters/storage/memory"
	"archive-access/internal/domain/access"
	"archive-access/internal/platform/logger"
	"archive-access/internal/ports/settings"
)

type fixture struct {
	statuses *mem.AccessRepo
	settings *mem.SettingsStore
	job      *Job
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	statuses := mem.NewAccessRepo(mem.NewResourcesRepo())
	st := mem.NewSettingsStore()

	job := New(statuses, statuses, st, logger.Nop())
	now := time.Date(2026, 5, 10, 4, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	return &fixture{statuses: statuses, settings: st, job: job, now: now}
}

func (f *fixture) seed(t *testing.T, id string, level access.Level, start, end *time.Time) {
	t.Helper()
	err := f.statuses.Upsert(context.Background(), access.Status{
		ResourceID: id, Level: level,
		EmbargoStart: start, EmbargoEnd: end,
		UpdatedAt: f.now.Add(-time.Hour),
	})
	if err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
}

func (f *fixture) mustGet(t *testing.T, id string) access.Status {
	t.Helper()
	s, err := f.statuses.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("status %s: %v", id, err)
	}
	return s
}

func (f *fixture) policies(t *testing.T, level, dates string) {
	t.Helper()
	ctx := context.Background()
	_ = settings.SetJSON(ctx, f.settings, settings.KeySweepLevelPolicy, level)
	_ = settings.SetJSON(ctx, f.settings, settings.KeySweepDatePolicy, dates)
}

func TestRun_Defaults_FreeAndClear(t *testing.T) {
	f := newFixture(t)

	past := f.now.Add(-time.Hour)
	future := f.now.Add(time.Hour)

	f.seed(t, "vencido", access.LevelProtected, nil, &past)
	f.seed(t, "vigente", access.LevelProtected, nil, &future)
	f.seed(t, "sin-embargo", access.LevelProtected, nil, nil)

	if err := f.job.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	got := f.mustGet(t, "vencido")
	if got.Level != access.LevelFree || got.HasEmbargo() {
		t.Fatalf("elapsed embargo: expected free with cleared dates, got %+v", got)
	}
	if got.UpdatedAt != f.now {
		t.Fatalf("swept row must carry the sweep timestamp")
	}

	for _, id := range []string{"vigente", "sin-embargo"} {
		if s := f.mustGet(t, id); s.Level != access.LevelProtected {
			t.Fatalf("%s must be untouched, got %+v", id, s)
		}
	}
}

func TestRun_StartOnlyEmbargo_SweptWhenReached(t *testing.T) {
	f := newFixture(t)

	past := f.now.Add(-time.Hour)
	future := f.now.Add(time.Hour)
	f.seed(t, "empezado", access.LevelReserved, &past, nil)
	f.seed(t, "futuro", access.LevelReserved, &future, nil)

	if err := f.job.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if s := f.mustGet(t, "empezado"); s.Level != access.LevelFree || s.HasEmbargo() {
		t.Fatalf("start-only embargo already reached must be swept: %+v", s)
	}
	if s := f.mustGet(t, "futuro"); s.Level != access.LevelReserved || !s.HasEmbargo() {
		t.Fatalf("future start must be untouched: %+v", s)
	}
}

func TestRun_UnderPolicy_StepsDownOneRank(t *testing.T) {
	f := newFixture(t)
	f.policies(t, "under", "clear")

	past := f.now.Add(-time.Hour)
	f.seed(t, "protegido", access.LevelProtected, nil, &past)
	f.seed(t, "prohibido", access.LevelForbidden, nil, &past)
	f.seed(t, "reservado", access.LevelReserved, nil, &past)

	if err := f.job.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	if s := f.mustGet(t, "protegido"); s.Level != access.LevelReserved {
		t.Fatalf("protected must step down to reserved, got %s", s.Level)
	}
	// forbidden baja directo a reserved.
	if s := f.mustGet(t, "prohibido"); s.Level != access.LevelReserved {
		t.Fatalf("forbidden must step down to reserved, got %s", s.Level)
	}
	if s := f.mustGet(t, "reservado"); s.Level != access.LevelFree {
		t.Fatalf("reserved must step down to free, got %s", s.Level)
	}
	for _, id := range []string{"protegido", "prohibido", "reservado"} {
		if f.mustGet(t, id).HasEmbargo() {
			t.Fatalf("%s: dates must be cleared", id)
		}
	}
}

func TestRun_KeepLevel_ClearDates(t *testing.T) {
	f := newFixture(t)
	f.policies(t, "keep", "clear")

	past := f.now.Add(-time.Hour)
	f.seed(t, "r1", access.LevelProtected, nil, &past)

	if err := f.job.Run(context.Background()); err != nil {
		t.Fatalf("Run error: %v", err)
	}
	s := f.mustGet(t, "r1")
	if s.Level != access.LevelProtected || s.HasEmbargo() {
		t.Fatalf("keep+clear: expected protected with cleared dates, got %+v", s)
	}
}

func TestRun_KeepKeep_AbortsAsNoop(t *testing.T) {
	f := newFixture(t)
	f.policies(t, "keep", "keep")

	past := f.now.Add(-time.Hour)
	f.seed(t, "r1", access.LevelProtected, nil, &past)

	err := f.job.Run(context.Background())
	if !errors.Is(err, ErrNoopPolicy) {
		t.Fatalf("expected ErrNoopPolicy, got %v", err)
	}
	// Nada mutado.
	if s := f.mustGet(t, "r1"); s.Level != access.LevelProtected || !s.HasEmbargo() {
		t.Fatalf("aborted sweep must not mutate: %+v", s)
	}
}

func TestRun_UnknownPolicy_Aborts(t *testing.T) {
	f := newFixture(t)
	f.policies(t, "lower-ish", "clear")

	if err := f.job.Run(context.Background()); err == nil {
		t.Fatalf("unknown level policy must abort")
	}
}

func TestRun_Idempotent(t *testing.T) {
	f := newFixture(t)

	past := f.now.Add(-time.Hour)
	f.seed(t, "r1", access.LevelProtected, nil, &past)

	if err := f.job.Run(context.Background()); err != nil {
		t.Fatalf("Run #1 error: %v", err)
	}
	first := f.mustGet(t, "r1")

	if err := f.job.Run(context.Background()); err != nil {
		t.Fatalf("Run #2 error: %v", err)
	}
	if second := f.mustGet(t, "r1"); second != first {
		t.Fatalf("second sweep must be a no-op: %+v vs %+v", second, first)
	}
}

func TestRun_MirrorResyncAfterSweep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = settings.SetJSON(ctx, f.settings, settings.KeyPropertyMirror, true)
	_ = settings.SetJSON(ctx, f.settings, settings.KeyLevelProperty, "dc.rights.level")
	_ = settings.SetJSON(ctx, f.settings, settings.KeyEmbargoStartProp, "dc.rights.start")
	_ = settings.SetJSON(ctx, f.settings, settings.KeyEmbargoEndProp, "dc.rights.end")
	_ = settings.SetJSON(ctx, f.settings, settings.KeyLevelPropertyValue, map[string]string{
		"free": "Libre", "reserved": "Reservado", "protected": "Protegido", "forbidden": "Prohibido",
	})

	past := f.now.Add(-time.Hour)
	f.seed(t, "r1", access.LevelProtected, nil, &past)

	if err := f.job.Run(ctx); err != nil {
		t.Fatalf("Run error: %v", err)
	}

	cfg, err := access.LoadMirrorConfig(ctx, f.settings)
	if err != nil {
		t.Fatalf("LoadMirrorConfig: %v", err)
	}
	rows, err := f.statuses.ListRows(ctx, cfg)
	if err != nil {
		t.Fatalf("ListRows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 mirror row, got %d", len(rows))
	}
	if rows[0].Level != "Libre" || rows[0].Start != "" || rows[0].End != "" {
		t.Fatalf("mirror must reflect the swept status, got %+v", rows[0])
	}
}

func TestRun_MirrorMisconfigured_AbortsBeforeSweeping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_ = settings.SetJSON(ctx, f.settings, settings.KeyPropertyMirror, true)
	// Sin campos configurados: la validación corta antes de barrer.

	past := f.now.Add(-time.Hour)
	f.seed(t, "r1", access.LevelProtected, nil, &past)

	if err := f.job.Run(ctx); err == nil {
		t.Fatalf("broken mirror config must abort the sweep")
	}
	if s := f.mustGet(t, "r1"); s.Level != access.LevelProtected {
		t.Fatalf("aborted sweep must not mutate: %+v", s)
	}
}
