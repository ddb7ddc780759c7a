package middleware

import (
	"context"
	"net/http"
	"strings"

	"archive-access/internal/ports/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// AuthContext:
// - Si verifier != nil y viene Bearer token => intenta Verify() y setea claims.
// - Si verifier == nil => modo dev: headers X-Debug-* arman los claims.
// - Sin claims el request sigue igual; anónimo es un principal válido acá
//   (el engine decide con nivel free / IP / token).
func AuthContext(verifier auth.AuthVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				if claims, ok := debugClaims(r); ok {
					next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verifier.Verify(r.Context(), token)
			if err != nil {
				// No cortamos acá: para este servicio un token inválido
				// equivale a anónimo, nunca a un 401 en la decisión.
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

func GetClaims(ctx context.Context) (auth.Claims, bool) {
	v := ctx.Value(claimsKey)
	if v == nil {
		return auth.Claims{}, false
	}
	c, ok := v.(auth.Claims)
	return c, ok
}

func withClaims(ctx context.Context, c auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// debugClaims arma claims desde headers de dev:
//   X-Debug-User-ID, X-Debug-Email, X-Debug-Roles (csv),
//   X-Debug-Providers (csv), X-Debug-View-All (1/true).
func debugClaims(r *http.Request) (auth.Claims, bool) {
	uid := strings.TrimSpace(r.Header.Get("X-Debug-User-ID"))
	if uid == "" {
		return auth.Claims{}, false
	}
	c := auth.Claims{
		UserID:    uid,
		Email:     strings.TrimSpace(r.Header.Get("X-Debug-Email")),
		Roles:     splitCSV(r.Header.Get("X-Debug-Roles")),
		Providers: splitCSV(r.Header.Get("X-Debug-Providers")),
	}
	switch strings.ToLower(strings.TrimSpace(r.Header.Get("X-Debug-View-All"))) {
	case "1", "true", "yes":
		c.ViewAll = true
	}
	return c, true
}

func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func bearerToken(authHeader string) string {
	if strings.TrimSpace(authHeader) == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
