package requests

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"archive-access/internal/middleware"
	"archive-access/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/access-requests", func(ar chi.Router) {
		ar.Post("/", submitRequestHandler(svc))
		ar.Get("/", listRequestsHandler(svc))
		ar.Post("/{requestID}/accept", toggleRequestHandler(svc, true))
		ar.Post("/{requestID}/reject", toggleRequestHandler(svc, false))
		ar.Delete("/{requestID}", deleteRequestHandler(svc))
	})

	r.Get("/me/access-requests", listMyRequestsHandler(svc))
}

type submitRequest struct {
	ResourceIDs []string `json:"resource_ids"`
	Email       string   `json:"email,omitempty"`
	Message     string   `json:"message,omitempty"`

	// Campos sólo-admin; para visitantes se ignoran.
	Admin     bool       `json:"admin,omitempty"`
	UserID    string     `json:"user_id,omitempty"`
	Status    string     `json:"status,omitempty"`
	Recursive bool       `json:"recursive,omitempty"`
	Start     *time.Time `json:"start,omitempty"`
	End       *time.Time `json:"end,omitempty"`
}

type requestResponse struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id,omitempty"`
	Email       string     `json:"email,omitempty"`
	Token       string     `json:"token,omitempty"`
	Status      Status     `json:"status"`
	Enabled     bool       `json:"enabled"`
	ResourceIDs []string   `json:"resource_ids"`
	Recursive   bool       `json:"recursive"`
	Start       *time.Time `json:"start,omitempty"`
	End         *time.Time `json:"end,omitempty"`
	Temporal    bool       `json:"temporal"`
	Message     string     `json:"message,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// @Summary Pedir acceso individual (visitante) o emitir un grant (admin)
// @Tags access-requests
// @Accept json
// @Produce json
// @Success 201 {object} requestResponse
// @Router /access-requests [post]
func submitRequestHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		var (
			out Request
			err error
		)
		if req.Admin && claims.ViewAll {
			out, err = svc.AdminCreate(r.Context(), claims, AdminInput{
				UserID:      req.UserID,
				Email:       req.Email,
				Status:      req.Status,
				ResourceIDs: req.ResourceIDs,
				Recursive:   req.Recursive,
				Start:       req.Start,
				End:         req.End,
				Message:     req.Message,
			})
		} else {
			out, err = svc.Submit(r.Context(), claims, SubmitInput{
				ResourceIDs: req.ResourceIDs,
				Email:       req.Email,
				Message:     req.Message,
			})
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toRequestResponse(out, claims))
	}
}

func listRequestsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		items, err := svc.ListAll(r.Context(), claims)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]requestResponse, 0, len(items))
		for _, it := range items {
			out = append(out, toRequestResponse(it, claims))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func listMyRequestsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		items, err := svc.ListMine(r.Context(), claims)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		out := make([]requestResponse, 0, len(items))
		for _, it := range items {
			out = append(out, toRequestResponse(it, claims))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func toggleRequestHandler(svc *Service, accept bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())
		id := chi.URLParam(r, "requestID")

		var (
			out Request
			err error
		)
		if accept {
			out, err = svc.Accept(r.Context(), claims, id)
		} else {
			out, err = svc.Reject(r.Context(), claims, id)
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toRequestResponse(out, claims))
	}
}

func deleteRequestHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		if err := svc.Delete(r.Context(), claims, chi.URLParam(r, "requestID")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toRequestResponse(r Request, viewer auth.Claims) requestResponse {
	out := requestResponse{
		ID:          r.ID,
		UserID:      r.UserID,
		Email:       r.Email,
		Status:      r.Status,
		Enabled:     r.Enabled,
		ResourceIDs: r.ResourceIDs,
		Recursive:   r.Recursive,
		Start:       r.Start,
		End:         r.End,
		Temporal:    r.Temporal(),
		Message:     r.Message,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	// El token sólo lo ve un admin (es la credencial misma).
	if viewer.ViewAll {
		out.Token = r.Token
	}
	return out
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrBadState):
		http.Error(w, "invalid state", http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
