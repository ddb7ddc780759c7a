package access

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"archive-access/internal/middleware"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, engine *Engine) {
	r.Get("/resources/{resourceID}/availability", availabilityHandler(engine))

	r.Route("/resources/{resourceID}/access-status", func(sr chi.Router) {
		sr.Get("/", getStatusHandler(svc))
		sr.Put("/", setStatusHandler(svc))
	})
}

type availabilityResponse struct {
	Allowed bool `json:"allowed"`
}

// @Summary Decidir si el contenido restringido de un recurso puede servirse
// @Description Boundary de decisión que consume la capa de file-serving.
// @Description Siempre 200 con un booleano; nunca un error hacia el caller.
// @Tags access
// @Produce json
// @Param resourceID path string true "resource id"
// @Param access query string false "token o e-mail de un grant individual"
// @Success 200 {object} availabilityResponse
// @Router /resources/{resourceID}/availability [get]
func availabilityHandler(engine *Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetClaims(r.Context())

		rc := RequestContext{
			ClientIP:  clientIP(r),
			AccessKey: r.URL.Query().Get("access"),
		}

		allowed := engine.IsAllowed(r.Context(), chi.URLParam(r, "resourceID"), claims, rc)
		writeJSON(w, http.StatusOK, availabilityResponse{Allowed: allowed})
	}
}

type statusResponse struct {
	ResourceID   string     `json:"resource_id"`
	Level        Level      `json:"level"`
	EmbargoStart *time.Time `json:"embargo_start,omitempty"`
	EmbargoEnd   *time.Time `json:"embargo_end,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func getStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.Get(r.Context(), chi.URLParam(r, "resourceID"))
		if err != nil {
			// Ausencia se lee como free por convención de consumidores.
			if errors.Is(err, ErrNotFound) {
				writeJSON(w, http.StatusOK, statusResponse{
					ResourceID: chi.URLParam(r, "resourceID"),
					Level:      LevelFree,
				})
				return
			}
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, toStatusResponse(st))
	}
}

type setStatusRequest struct {
	Level        string     `json:"level"`
	EmbargoStart *time.Time `json:"embargo_start,omitempty"`
	EmbargoEnd   *time.Time `json:"embargo_end,omitempty"`
	ApplyToItems bool       `json:"apply_to_items,omitempty"`
	ApplyToMedia bool       `json:"apply_to_media,omitempty"`
}

type setStatusResponse struct {
	statusResponse
	CascadedItems int64 `json:"cascaded_items,omitempty"`
	CascadedMedia int64 `json:"cascaded_media,omitempty"`
}

func setStatusHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetClaims(r.Context())
		if !ok || !claims.Authenticated() {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var req setStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		st, counts, err := svc.Set(r.Context(), claims, SetInput{
			ResourceID:   chi.URLParam(r, "resourceID"),
			Level:        req.Level,
			EmbargoStart: req.EmbargoStart,
			EmbargoEnd:   req.EmbargoEnd,
			ApplyToItems: req.ApplyToItems,
			ApplyToMedia: req.ApplyToMedia,
		})
		if err != nil {
			switch {
			case errors.Is(err, ErrInvalidInput):
				http.Error(w, err.Error(), http.StatusBadRequest)
			case errors.Is(err, ErrNotFound):
				http.Error(w, "resource not found", http.StatusNotFound)
			case errors.Is(err, ErrForbidden):
				http.Error(w, "forbidden", http.StatusForbidden)
			default:
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, setStatusResponse{
			statusResponse: toStatusResponse(st),
			CascadedItems:  counts.Items,
			CascadedMedia:  counts.Media,
		})
	}
}

func toStatusResponse(s Status) statusResponse {
	return statusResponse{
		ResourceID:   s.ResourceID,
		Level:        s.Level,
		EmbargoStart: s.EmbargoStart,
		EmbargoEnd:   s.EmbargoEnd,
		UpdatedAt:    s.UpdatedAt,
	}
}

// clientIP: chi RealIP (si el proxy es confiable, ver router) ya dejó la
// IP efectiva en RemoteAddr; acá sólo se pela el puerto.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
