package memory

import (
	"context"
	"errors"
	"sync"

	"archive-access/internal/domain/requests"
)

type RequestsRepo struct {
	mu   sync.RWMutex
	byID map[string]requests.Request
}

func NewRequestsRepo() *RequestsRepo {
	return &RequestsRepo{byID: make(map[string]requests.Request)}
}

func (r *RequestsRepo) Create(ctx context.Context, req requests.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.ID == "" {
		return errors.New("request id required")
	}
	if _, exists := r.byID[req.ID]; exists {
		return errors.New("request already exists")
	}
	r.byID[req.ID] = req
	return nil
}

func (r *RequestsRepo) Update(ctx context.Context, req requests.Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.ID == "" {
		return errors.New("request id required")
	}
	if _, exists := r.byID[req.ID]; !exists {
		return ErrNotFound
	}
	r.byID[req.ID] = req
	return nil
}

func (r *RequestsRepo) GetByID(ctx context.Context, id string) (requests.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	req, ok := r.byID[id]
	if !ok {
		return requests.Request{}, ErrNotFound
	}
	return req, nil
}

func (r *RequestsRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byID, id)
	return nil
}

func (r *RequestsRepo) List(ctx context.Context) ([]requests.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]requests.Request, 0, len(r.byID))
	for _, req := range r.byID {
		out = append(out, req)
	}
	return out, nil
}

func (r *RequestsRepo) ListByRequester(ctx context.Context, by requests.LookupBy) ([]requests.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]requests.Request, 0)
	for _, req := range r.byID {
		if matches(req, by) {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *RequestsRepo) ListEnabledFor(ctx context.Context, by requests.LookupBy) ([]requests.Request, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]requests.Request, 0)
	for _, req := range r.byID {
		if req.Enabled && matches(req, by) {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *RequestsRepo) TokenExists(ctx context.Context, token string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, req := range r.byID {
		if req.Token != "" && req.Token == token {
			return true, nil
		}
	}
	return false, nil
}

// matches: OR sobre los identificadores presentes en el lookup.
func matches(req requests.Request, by requests.LookupBy) bool {
	if by.UserID != "" && req.UserID == by.UserID {
		return true
	}
	if by.Email != "" && req.Email == by.Email {
		return true
	}
	if by.Token != "" && req.Token == by.Token {
		return true
	}
	return false
}
