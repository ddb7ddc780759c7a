package access

import (
	"context"
	"fmt"

	"archive-access/internal/domain/requests"
	"archive-access/internal/iprange"
	"archive-access/internal/ports/settings"
)

// checkerOrder es el orden fijo rápido->lento de evaluación. La config
// sólo elige QUÉ modos entran, nunca en qué orden.
var checkerOrder = []string{"ip", "role", "idp", "email", "grant"}

// DefaultModes: sin configuración explícita quedan los modos que no
// requieren más config para funcionar.
var DefaultModes = []string{"ip", "grant"}

// BuildCheckers arma el registry de checkers según los modos habilitados
// en settings. Los problemas no fatales (patrones de e-mail inválidos,
// modos desconocidos) se devuelven para loguear como warn.
func BuildCheckers(ctx context.Context, st settings.Store, table *iprange.Table, grants requests.Repository) ([]Checker, []error) {
	modes := settings.Strings(ctx, st, settings.KeyAccessModes)
	if len(modes) == 0 {
		modes = DefaultModes
	}

	enabled := make(map[string]bool, len(modes))
	var errs []error
	for _, m := range modes {
		known := false
		for _, k := range checkerOrder {
			if m == k {
				known = true
				break
			}
		}
		if !known {
			errs = append(errs, fmt.Errorf("unknown access mode %q", m))
			continue
		}
		enabled[m] = true
	}

	var out []Checker
	for _, mode := range checkerOrder {
		if !enabled[mode] {
			continue
		}
		switch mode {
		case "ip":
			out = append(out, NewIPChecker(table))
		case "role":
			out = append(out, NewRoleChecker(settings.Strings(ctx, st, settings.KeyReservedRoles)))
		case "idp":
			// Un checker por provider configurado; providers ausentes
			// simplemente no aparecen.
			for _, p := range settings.Strings(ctx, st, settings.KeyIdentityProviders) {
				out = append(out, NewIdPChecker(p))
			}
		case "email":
			c, bad := NewEmailChecker(settings.Strings(ctx, st, settings.KeyEmailPatterns))
			errs = append(errs, bad...)
			out = append(out, c)
		case "grant":
			out = append(out, NewGrantChecker(grants))
		}
	}
	return out, errs
}
