// Package iprange compila la lista de reservas IP (direcciones sueltas o
// CIDR) a rangos numéricos precalculados, con listas allow/forbid de
// colecciones por entrada. La lista la edita un humano en settings; acá
// se normaliza una vez y el matching queda en O(log n).
package iprange

import (
	"encoding/binary"
	"fmt"
	"net"
	"sort"
	"strings"
)

// Rule es una entrada tal como viene de settings, sin normalizar.
type Rule struct {
	// Range: "10.1.2.3" o "10.0.0.0/8".
	Range string `json:"range"`
	// Allow: colecciones habilitadas para este rango. Vacío = todas.
	Allow []string `json:"allow,omitempty"`
	// Forbid: colecciones explícitamente negadas; gana sobre Allow.
	Forbid []string `json:"forbid,omitempty"`
}

// Entry es una regla compilada a bounds numéricos IPv4.
type Entry struct {
	Low, High uint32
	allow     map[string]struct{}
	forbid    map[string]struct{}
}

// AllowsCollection decide si la entrada habilita una colección:
// allow vacío habilita todas, y forbid resta sobre eso.
func (e Entry) AllowsCollection(id string) bool {
	if _, banned := e.forbid[id]; banned {
		return false
	}
	if len(e.allow) == 0 {
		return true
	}
	_, ok := e.allow[id]
	return ok
}

type Table struct {
	entries []Entry // ordenadas por Low
}

// Compile normaliza las reglas. Las entradas malformadas no tiran el
// compilado completo: se devuelven como errores para que el caller las
// loguee (warn) y siguen afuera de la tabla.
func Compile(rules []Rule) (*Table, []error) {
	t := &Table{entries: make([]Entry, 0, len(rules))}
	var errs []error

	for _, r := range rules {
		lo, hi, err := parseRange(r.Range)
		if err != nil {
			errs = append(errs, fmt.Errorf("ip rule %q: %w", r.Range, err))
			continue
		}
		t.entries = append(t.entries, Entry{
			Low:    lo,
			High:   hi,
			allow:  toSet(r.Allow),
			forbid: toSet(r.Forbid),
		})
	}

	sort.Slice(t.entries, func(i, j int) bool {
		return t.entries[i].Low < t.entries[j].Low
	})
	return t, errs
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.entries)
}

// Match busca la entrada que contiene la IP. Una IP malformada o IPv6
// es "no match", nunca error: input ambiguo no corta la decisión.
func (t *Table) Match(ip string) (Entry, bool) {
	if t == nil || len(t.entries) == 0 {
		return Entry{}, false
	}
	n, ok := toUint32(ip)
	if !ok {
		return Entry{}, false
	}

	// Primer índice con Low > n; los candidatos quedan antes.
	idx := sort.Search(len(t.entries), func(i int) bool {
		return t.entries[i].Low > n
	})
	for i := idx - 1; i >= 0; i-- {
		if t.entries[i].High >= n {
			return t.entries[i], true
		}
	}
	return Entry{}, false
}

func parseRange(s string) (uint32, uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, 0, fmt.Errorf("empty range")
	}

	if strings.Contains(s, "/") {
		_, ipnet, err := net.ParseCIDR(s)
		if err != nil {
			return 0, 0, err
		}
		ip4 := ipnet.IP.To4()
		if ip4 == nil {
			return 0, 0, fmt.Errorf("only ipv4 ranges supported")
		}
		lo := binary.BigEndian.Uint32(ip4)
		ones, _ := ipnet.Mask.Size()
		hi := lo | (^uint32(0) >> ones)
		return lo, hi, nil
	}

	n, ok := toUint32(s)
	if !ok {
		return 0, 0, fmt.Errorf("invalid ipv4 address")
	}
	return n, n, nil
}

func toUint32(ip string) (uint32, bool) {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return 0, false
	}
	ip4 := parsed.To4()
	if ip4 == nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(ip4), true
}

func toSet(in []string) map[string]struct{} {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out[s] = struct{}{}
		}
	}
	return out
}
