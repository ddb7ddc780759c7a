package requests

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"archive-access/internal/ports/auth"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrBadState     = errors.New("invalid state")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// SubmitInput es lo único que un visitante controla. Campos privilegiados
// (status, recursive, ventana temporal, token) se ignoran en este camino.
type SubmitInput struct {
	ResourceIDs []string
	Email       string // sólo para visitantes no autenticados
	Message     string
}

// Submit crea (o renueva) un pedido en nombre del propio solicitante.
// Identidad: el user autenticado, o el e-mail que declara. Si ya existe
// un pedido de la misma identidad por el mismo set de recursos, se
// re-abre como renew en vez de duplicar.
func (s *Service) Submit(ctx context.Context, actor auth.Claims, in SubmitInput) (Request, error) {
	ids := normalizeResourceIDs(in.ResourceIDs)
	if len(ids) == 0 {
		return Request{}, ErrInvalidInput
	}

	userID := strings.TrimSpace(actor.UserID)
	email := strings.TrimSpace(in.Email)
	if userID != "" {
		email = "" // identidad única: el user gana
	}
	if identityCount(userID, email, "") != 1 {
		return Request{}, ErrInvalidInput
	}

	now := s.now()

	existing, err := s.findByIdentityAndResources(ctx, LookupBy{UserID: userID, Email: email}, ids)
	if err == nil {
		// Re-apertura explícita: accepted/rejected vuelven como renew.
		if existing.Status == StatusAccepted || existing.Status == StatusRejected {
			existing.Status = StatusRenew
		}
		existing.Enabled = existing.Status == StatusAccepted
		existing.Message = strings.TrimSpace(in.Message)
		existing.UpdatedAt = now
		if err := s.repo.Update(ctx, existing); err != nil {
			return Request{}, err
		}
		return existing, nil
	}

	r := Request{
		ID:          uuid.NewString(),
		UserID:      userID,
		Email:       email,
		Status:      StatusNew,
		Enabled:     false,
		ResourceIDs: ids,
		Recursive:   false,
		Message:     strings.TrimSpace(in.Message),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return Request{}, err
	}
	return r, nil
}

// AdminInput permite todos los campos. Sin user ni e-mail se emite un
// token opaco (grant portable por link).
type AdminInput struct {
	UserID      string
	Email       string
	Status      string
	ResourceIDs []string
	Recursive   bool
	Start       *time.Time
	End         *time.Time
	Message     string
}

func (s *Service) AdminCreate(ctx context.Context, actor auth.Claims, in AdminInput) (Request, error) {
	if !actor.ViewAll {
		return Request{}, ErrForbidden
	}

	ids := normalizeResourceIDs(in.ResourceIDs)
	if len(ids) == 0 {
		return Request{}, ErrInvalidInput
	}

	userID := strings.TrimSpace(in.UserID)
	email := strings.TrimSpace(in.Email)
	token := ""
	if identityCount(userID, email, "") > 1 {
		return Request{}, ErrInvalidInput
	}
	if identityCount(userID, email, "") == 0 {
		t, err := issueToken(ctx, s.repo)
		if err != nil {
			return Request{}, err
		}
		token = t
	}

	status := Status(strings.TrimSpace(in.Status))
	if status == "" {
		status = StatusNew
	}
	if !status.Valid() {
		return Request{}, ErrInvalidInput
	}

	if in.Start != nil && in.End != nil && !in.Start.Before(*in.End) {
		return Request{}, ErrInvalidInput
	}

	now := s.now()
	r := Request{
		ID:          uuid.NewString(),
		UserID:      userID,
		Email:       email,
		Token:       token,
		Status:      status,
		Enabled:     status == StatusAccepted,
		ResourceIDs: ids,
		Recursive:   in.Recursive,
		Start:       in.Start,
		End:         in.End,
		Message:     strings.TrimSpace(in.Message),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return Request{}, err
	}
	return r, nil
}

// Accept pasa new/renew -> accepted. Sólo admin. Idempotente si ya
// estaba accepted; un rejected no se acepta (se re-abre con Submit).
func (s *Service) Accept(ctx context.Context, actor auth.Claims, id string) (Request, error) {
	return s.toggle(ctx, actor, id, StatusAccepted)
}

// Reject pasa new/renew -> rejected. Sólo admin.
func (s *Service) Reject(ctx context.Context, actor auth.Claims, id string) (Request, error) {
	return s.toggle(ctx, actor, id, StatusRejected)
}

func (s *Service) toggle(ctx context.Context, actor auth.Claims, id string, target Status) (Request, error) {
	if !actor.ViewAll {
		return Request{}, ErrForbidden
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Request{}, ErrInvalidInput
	}

	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Request{}, ErrNotFound
	}

	if r.Status == target {
		return r, nil // idempotente
	}
	if r.Status != StatusNew && r.Status != StatusRenew {
		return Request{}, ErrBadState
	}

	r.Status = target
	r.Enabled = r.Status == StatusAccepted
	r.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, r); err != nil {
		return Request{}, err
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, actor auth.Claims, id string) error {
	if !actor.ViewAll {
		return ErrForbidden
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

func (s *Service) GetByID(ctx context.Context, id string) (Request, error) {
	r, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return Request{}, ErrNotFound
	}
	return r, nil
}

func (s *Service) ListAll(ctx context.Context, actor auth.Claims) ([]Request, error) {
	if !actor.ViewAll {
		return nil, ErrForbidden
	}
	return s.repo.List(ctx)
}

func (s *Service) ListMine(ctx context.Context, actor auth.Claims) ([]Request, error) {
	if !actor.Authenticated() {
		return nil, ErrForbidden
	}
	return s.repo.ListByRequester(ctx, LookupBy{UserID: actor.UserID})
}

func (s *Service) findByIdentityAndResources(ctx context.Context, by LookupBy, ids []string) (Request, error) {
	items, err := s.repo.ListByRequester(ctx, by)
	if err != nil {
		return Request{}, err
	}
	for _, r := range items {
		if sameIDSet(r.ResourceIDs, ids) {
			return r, nil
		}
	}
	return Request{}, ErrNotFound
}

func normalizeResourceIDs(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, id := range in {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func sameIDSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
