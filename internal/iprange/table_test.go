package iprange

import "testing"

func TestCompile_SkipsMalformedRules(t *testing.T) {
	table, errs := Compile([]Rule{
		{Range: "10.0.0.0/8"},
		{Range: "not-an-ip"},
		{Range: ""},
		{Range: "192.168.1.5"},
		{Range: "2001:db8::/32"}, // ipv6 no soportado
	})
	if len(errs) != 3 {
		t.Fatalf("expected 3 errors, got %v", errs)
	}
	if table.Len() != 2 {
		t.Fatalf("expected 2 compiled entries, got %d", table.Len())
	}
}

func TestMatch_SingleAddress(t *testing.T) {
	table, _ := Compile([]Rule{{Range: "192.168.1.5"}})

	if _, ok := table.Match("192.168.1.5"); !ok {
		t.Fatalf("exact address must match")
	}
	if _, ok := table.Match("192.168.1.6"); ok {
		t.Fatalf("neighbor address must not match")
	}
}

func TestMatch_CIDRBounds(t *testing.T) {
	table, _ := Compile([]Rule{{Range: "10.1.0.0/16"}})

	for _, ip := range []string{"10.1.0.0", "10.1.128.7", "10.1.255.255"} {
		if _, ok := table.Match(ip); !ok {
			t.Fatalf("%s must be inside 10.1.0.0/16", ip)
		}
	}
	for _, ip := range []string{"10.0.255.255", "10.2.0.0"} {
		if _, ok := table.Match(ip); ok {
			t.Fatalf("%s must be outside 10.1.0.0/16", ip)
		}
	}
}

func TestMatch_OverlappingRanges(t *testing.T) {
	table, _ := Compile([]Rule{
		{Range: "10.0.0.0/8", Allow: []string{"col-a"}},
		{Range: "10.5.0.0/16", Allow: []string{"col-b"}},
	})

	// Una IP dentro de los dos rangos matchea alguno de los dos; lo que
	// importa es que matchee y que los bounds no se pisen mal.
	if _, ok := table.Match("10.5.1.1"); !ok {
		t.Fatalf("ip inside overlapping ranges must match")
	}
	if _, ok := table.Match("11.0.0.1"); ok {
		t.Fatalf("ip outside both ranges must not match")
	}
}

func TestMatch_AmbiguousInput_NoMatch(t *testing.T) {
	table, _ := Compile([]Rule{{Range: "10.0.0.0/8"}})

	for _, ip := range []string{"", "banana", "2001:db8::1"} {
		if _, ok := table.Match(ip); ok {
			t.Fatalf("ambiguous input %q must be no-match", ip)
		}
	}

	var nilTable *Table
	if _, ok := nilTable.Match("10.0.0.1"); ok {
		t.Fatalf("nil table must be no-match")
	}
}

func TestEntry_AllowsCollection(t *testing.T) {
	table, _ := Compile([]Rule{{
		Range:  "10.0.0.0/8",
		Allow:  []string{"col-a", "col-b"},
		Forbid: []string{"col-b"},
	}})

	e, ok := table.Match("10.1.1.1")
	if !ok {
		t.Fatalf("expected a match")
	}
	if !e.AllowsCollection("col-a") {
		t.Fatalf("col-a must be allowed")
	}
	// Forbid gana sobre allow.
	if e.AllowsCollection("col-b") {
		t.Fatalf("forbid must win over allow")
	}
	if e.AllowsCollection("col-c") {
		t.Fatalf("with a non-empty allow list, unlisted collections are out")
	}
}

func TestEntry_EmptyAllow_AllCollections(t *testing.T) {
	table, _ := Compile([]Rule{{Range: "10.0.0.0/8", Forbid: []string{"col-x"}}})

	e, _ := table.Match("10.1.1.1")
	if !e.AllowsCollection("whatever") {
		t.Fatalf("empty allow list must cover every collection")
	}
	if e.AllowsCollection("col-x") {
		t.Fatalf("forbid still applies with empty allow")
	}
}
