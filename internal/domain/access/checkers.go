package access

import (
	"context"
	"regexp"
	"strings"
	"time"

	"archive-access/internal/domain/requests"
	"archive-access/internal/domain/resources"
	"archive-access/internal/iprange"
	"archive-access/internal/ports/auth"
)

// RequestContext lleva lo que el boundary HTTP extrajo del request:
// la IP ya resuelta (proxy confiable incluido) y el query param `access`,
// que puede ser un token o un e-mail.
type RequestContext struct {
	ClientIP  string
	AccessKey string
}

// CheckInput agrupa los insumos de un check para no arrastrar seis
// parámetros por checker.
type CheckInput struct {
	Resource  resources.Resource
	Claims    auth.Claims
	Request   RequestContext
	Hierarchy *HierarchyCache
	Now       time.Time
}

// Checker es un predicado angosto por modo de autenticación. Los modos
// deshabilitados simplemente no entran al registry; nadie null-checkea.
// Un error se trata como "no match": la decisión nunca falla hacia arriba.
type Checker interface {
	Name() string
	Check(ctx context.Context, in CheckInput) (bool, error)
}

// ---- IP / CIDR ----

type ipChecker struct {
	table *iprange.Table
}

func NewIPChecker(table *iprange.Table) Checker {
	return &ipChecker{table: table}
}

func (c *ipChecker) Name() string { return "ip" }

func (c *ipChecker) Check(ctx context.Context, in CheckInput) (bool, error) {
	entry, ok := c.table.Match(in.Request.ClientIP)
	if !ok {
		return false, nil
	}
	colID, ok := in.Hierarchy.CollectionOf(ctx, in.Resource)
	if !ok {
		// Recurso sin colección: el rango sólo alcanza si no restringe
		// por colección (allow vacío y sin forbid aplicable).
		return entry.AllowsCollection(""), nil
	}
	return entry.AllowsCollection(colID), nil
}

// ---- Rol de sesión ----

type roleChecker struct {
	// roles habilitantes; vacío = alcanza con estar autenticado.
	roles []string
}

func NewRoleChecker(roles []string) Checker {
	return &roleChecker{roles: roles}
}

func (c *roleChecker) Name() string { return "role" }

func (c *roleChecker) Check(_ context.Context, in CheckInput) (bool, error) {
	if !in.Claims.Authenticated() {
		return false, nil
	}
	if len(c.roles) == 0 {
		return true, nil
	}
	for _, r := range c.roles {
		if in.Claims.HasRole(r) {
			return true, nil
		}
	}
	return false, nil
}

// ---- Identity provider externo ----

// idpChecker testea un único provider; el registry arma uno por provider
// configurado y la composición OR sale sola del loop del engine.
type idpChecker struct {
	provider string
}

func NewIdPChecker(provider string) Checker {
	return &idpChecker{provider: strings.TrimSpace(provider)}
}

func (c *idpChecker) Name() string { return "idp:" + c.provider }

func (c *idpChecker) Check(_ context.Context, in CheckInput) (bool, error) {
	if c.provider == "" {
		return false, nil
	}
	return in.Claims.HasProvider(c.provider), nil
}

// ---- Patrón de e-mail ----

type emailChecker struct {
	patterns []*regexp.Regexp
}

// NewEmailChecker compila los patrones; los inválidos se devuelven para
// que el caller los loguee y quedan afuera.
func NewEmailChecker(patterns []string) (Checker, []error) {
	c := &emailChecker{}
	var errs []error
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.patterns = append(c.patterns, re)
	}
	return c, errs
}

func (c *emailChecker) Name() string { return "email" }

func (c *emailChecker) Check(_ context.Context, in CheckInput) (bool, error) {
	email := strings.TrimSpace(in.Claims.Email)
	if email == "" {
		return false, nil
	}
	for _, re := range c.patterns {
		if re.MatchString(email) {
			return true, nil
		}
	}
	return false, nil
}

// ---- Grant individual ----

type grantChecker struct {
	grants requests.Repository
}

func NewGrantChecker(grants requests.Repository) Checker {
	return &grantChecker{grants: grants}
}

func (c *grantChecker) Name() string { return "grant" }

func (c *grantChecker) Check(ctx context.Context, in CheckInput) (bool, error) {
	by := requests.LookupBy{
		UserID: strings.TrimSpace(in.Claims.UserID),
		Email:  strings.TrimSpace(in.Claims.Email),
	}

	// El query param `access` trae token o e-mail. Un "token" que
	// colisiona con una keyword de nivel es ambiguo (podría ser el
	// filtro de nivel): se descarta, no matchea nada.
	if key := strings.TrimSpace(in.Request.AccessKey); key != "" {
		if _, isLevel := ParseLevel(key); !isLevel {
			if strings.Contains(key, "@") {
				if by.Email == "" {
					by.Email = key
				}
			} else {
				by.Token = key
			}
		}
	}

	if by.Empty() {
		return false, nil
	}

	matches, err := c.grants.ListEnabledFor(ctx, by)
	if err != nil {
		return false, err
	}
	if len(matches) == 0 {
		return false, nil
	}

	// IDs candidatos: el recurso, y sus ancestros para grants recursivos.
	ancestors := in.Hierarchy.Ancestors(ctx, in.Resource)

	for _, g := range matches {
		if !g.ActiveAt(in.Now) {
			continue
		}
		if g.Covers(in.Resource.ID) {
			return true, nil
		}
		if !g.Recursive {
			continue
		}
		for _, a := range ancestors {
			if g.Covers(a.ID) {
				return true, nil
			}
		}
	}
	return false, nil
}
