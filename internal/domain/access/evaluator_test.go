package access

import (
	"testing"
	"time"
)

func tp(t time.Time) *time.Time { return &t }

func TestEmbargoAt_TruthTable(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	start := base.Add(-24 * time.Hour)
	end := base.Add(24 * time.Hour)

	cases := []struct {
		name  string
		start *time.Time
		end   *time.Time
		now   time.Time
		want  EmbargoState
	}{
		{"sin fechas", nil, nil, base, EmbargoNotApplicable},
		{"solo start, antes", tp(start), nil, start.Add(-time.Second), EmbargoInactive},
		{"solo start, despues", tp(start), nil, base, EmbargoActive},
		{"solo end, antes", nil, tp(end), base, EmbargoActive},
		{"solo end, despues", nil, tp(end), end.Add(time.Second), EmbargoInactive},
		{"ventana, adentro", tp(start), tp(end), base, EmbargoActive},
		{"ventana, antes", tp(start), tp(end), start.Add(-time.Second), EmbargoInactive},
		{"ventana, despues", tp(start), tp(end), end.Add(time.Second), EmbargoInactive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Status{ResourceID: "r1", Level: LevelFree, EmbargoStart: tc.start, EmbargoEnd: tc.end}
			if got := EmbargoAt(s, tc.now); got != tc.want {
				t.Fatalf("EmbargoAt = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestEmbargoAt_Boundaries(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	s := Status{ResourceID: "r1", Level: LevelReserved, EmbargoStart: &start, EmbargoEnd: &end}

	// start es inclusivo: en el instante exacto ya está activo.
	if got := EmbargoAt(s, start); got != EmbargoActive {
		t.Fatalf("at start: got %v, want active", got)
	}
	// end es exclusivo: en el instante exacto ya terminó.
	if got := EmbargoAt(s, end); got != EmbargoInactive {
		t.Fatalf("at end: got %v, want inactive", got)
	}
}

func TestEmbargoAt_Deterministic(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Status{ResourceID: "r1", Level: LevelProtected, EmbargoStart: &start}
	now := start.Add(time.Hour)

	first := EmbargoAt(s, now)
	for i := 0; i < 10; i++ {
		if got := EmbargoAt(s, now); got != first {
			t.Fatalf("EmbargoAt not deterministic: %v vs %v", got, first)
		}
	}
}

func TestParseLevel(t *testing.T) {
	for _, l := range Levels() {
		got, ok := ParseLevel(string(l))
		if !ok || got != l {
			t.Fatalf("ParseLevel(%q) = %v, %v", l, got, ok)
		}
	}
	if _, ok := ParseLevel("secret"); ok {
		t.Fatalf("expected unknown level to fail")
	}
	if _, ok := ParseLevel(""); ok {
		t.Fatalf("expected empty level to fail")
	}
}

func TestLevel_StepDown(t *testing.T) {
	cases := map[Level]Level{
		LevelFree:      LevelFree,
		LevelReserved:  LevelFree,
		LevelProtected: LevelReserved,
		// forbidden baja directo a reserved, no a protected
		LevelForbidden: LevelReserved,
	}
	for from, want := range cases {
		if got := from.StepDown(); got != want {
			t.Fatalf("StepDown(%s) = %s, want %s", from, got, want)
		}
	}
}

func TestLevel_Rank_Ordered(t *testing.T) {
	ls := Levels()
	for i := 1; i < len(ls); i++ {
		if ls[i-1].Rank() >= ls[i].Rank() {
			t.Fatalf("rank not strictly increasing: %s >= %s", ls[i-1], ls[i])
		}
	}
}
