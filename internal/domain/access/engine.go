package access

import (
	"context"
	"time"

	"archive-access/internal/domain/resources"
	"archive-access/internal/ports/auth"
	"archive-access/internal/ports/settings"
)

// Engine toma la decisión allow/deny para un request de contenido.
// Sin side effects más allá de lecturas; determinista con el reloj
// inyectado; NUNCA devuelve error al caller: todo input ambiguo decanta
// en deny-leaning "no match" y la decisión sigue con lo que queda.
type Engine struct {
	statuses  StatusRepository
	resources resources.Repository
	settings  settings.Store

	// checkers en orden fijo rápido->lento: ip, role, idp..., email, grant.
	checkers []Checker

	now func() time.Time
}

func NewEngine(statuses StatusRepository, res resources.Repository, st settings.Store, checkers []Checker) *Engine {
	return &Engine{
		statuses:  statuses,
		resources: res,
		settings:  st,
		checkers:  checkers,
		now:       time.Now,
	}
}

// IsAllowed decide si el contenido restringido del recurso puede servirse
// a este principal. Orden:
//  1. dueño del recurso            -> allow
//  2. capacidad "ver todo"         -> allow
//  3. status propio, o del ancestro más cercano; sin ninguno -> allow
//     (default free: nunca denegar en silencio por datos faltantes)
//  4. forbidden                    -> deny, gana a todo
//  5. embargo activo sin bypass    -> deny
//  6. free                         -> allow
//  7. reserved/protected           -> primer checker que pase; si no, deny
func (e *Engine) IsAllowed(ctx context.Context, resourceID string, claims auth.Claims, rc RequestContext) bool {
	hc := NewHierarchyCache(e.resources)

	res, err := hc.Get(ctx, resourceID)
	if err != nil {
		// Recurso desconocido: no hay contenido que proteger.
		return false
	}

	if claims.Authenticated() && res.OwnerUserID == claims.UserID {
		return true
	}
	if claims.ViewAll {
		return true
	}

	status, found := e.statusFor(ctx, hc, res)
	if !found {
		// Sin fila propia ni de ancestros: política deliberada fail-open.
		return true
	}

	if status.Level == LevelForbidden {
		return false
	}

	if EmbargoAt(status, e.now()) == EmbargoActive {
		if !settings.Bool(ctx, e.settings, settings.KeyEmbargoBypass, false) {
			return false
		}
	}

	if status.Level == LevelFree {
		return true
	}

	in := CheckInput{
		Resource:  res,
		Claims:    claims,
		Request:   rc,
		Hierarchy: hc,
		Now:       e.now(),
	}
	for _, c := range e.checkers {
		ok, err := c.Check(ctx, in)
		if err != nil {
			continue // input ambiguo o backend caído: no match, seguimos
		}
		if ok {
			return true
		}
	}
	return false
}

// statusFor resuelve el status del recurso, cayendo al ancestro más
// cercano si el propio no existe. Cualquier error de lectura cuenta como
// "sin fila" y sigue la cadena (la política fail-open está documentada).
func (e *Engine) statusFor(ctx context.Context, hc *HierarchyCache, res resources.Resource) (Status, bool) {
	s, err := e.statuses.Get(ctx, res.ID)
	if err == nil {
		return s, true
	}

	for _, a := range hc.Ancestors(ctx, res) {
		s, err := e.statuses.Get(ctx, a.ID)
		if err == nil {
			return s, true
		}
	}
	return Status{}, false
}
