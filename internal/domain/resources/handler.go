package resources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"archive-access/internal/middleware"

	"github.com/go-chi/chi/v5"
)

// StatusCleanup borra la fila de access status cuando se borra el recurso
// (cascade). Interface chica para no importar el módulo access.
type StatusCleanup interface {
	Delete(ctx context.Context, resourceID string) error
}

func RegisterRoutes(r chi.Router, svc *Service, statuses StatusCleanup) {
	r.Route("/resources", func(rr chi.Router) {
		rr.Post("/", createResourceHandler(svc))
		rr.Get("/", listResourcesHandler(svc))
		rr.Get("/{resourceID}", getResourceHandler(svc))
		rr.Delete("/{resourceID}", deleteResourceHandler(svc, statuses))
	})
}

type createResourceRequest struct {
	Type         string `json:"type"`
	Public       bool   `json:"public"`
	ItemID       string `json:"item_id,omitempty"`
	CollectionID string `json:"collection_id,omitempty"`
	Title        string `json:"title"`
}

type resourceResponse struct {
	ID           string    `json:"id"`
	Type         Type      `json:"type"`
	OwnerUserID  string    `json:"owner_user_id"`
	Public       bool      `json:"public"`
	ItemID       string    `json:"item_id,omitempty"`
	CollectionID string    `json:"collection_id,omitempty"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// @Summary Registrar un recurso (collection, item o media)
// @Tags resources
// @Accept json
// @Produce json
// @Success 201 {object} resourceResponse
// @Router /resources [post]
func createResourceHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req createResourceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		res, err := svc.Create(r.Context(), CreateInput{
			Type:         req.Type,
			OwnerUserID:  claims.UserID,
			Public:       req.Public,
			ItemID:       req.ItemID,
			CollectionID: req.CollectionID,
			Title:        req.Title,
		})
		if err != nil {
			if errors.Is(err, ErrInvalidInput) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusCreated, toResourceResponse(res))
	}
}

func getResourceHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.GetByID(r.Context(), chi.URLParam(r, "resourceID"))
		if err != nil {
			http.Error(w, "resource not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toResourceResponse(res))
	}
}

func listResourcesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := svc.List(r.Context())
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		out := make([]resourceResponse, 0, len(items))
		for _, res := range items {
			out = append(out, toResourceResponse(res))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func deleteResourceHandler(svc *Service, statuses StatusCleanup) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || strings.TrimSpace(claims.UserID) == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id := chi.URLParam(r, "resourceID")
		res, err := svc.GetByID(r.Context(), id)
		if err != nil {
			http.Error(w, "resource not found", http.StatusNotFound)
			return
		}
		if !claims.ViewAll && res.OwnerUserID != claims.UserID {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		// Cascade: la fila de status no sobrevive al recurso.
		if statuses != nil {
			_ = statuses.Delete(r.Context(), id)
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func toResourceResponse(r Resource) resourceResponse {
	return resourceResponse{
		ID:           r.ID,
		Type:         r.Type,
		OwnerUserID:  r.OwnerUserID,
		Public:       r.Public,
		ItemID:       r.ItemID,
		CollectionID: r.CollectionID,
		Title:        r.Title,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
