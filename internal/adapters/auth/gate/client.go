package gate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"archive-access/internal/platform/httpclient"
	"archive-access/internal/ports/auth"
)

var (
	ErrGateNotConfigured = errors.New("gate client not configured")
	ErrGateUnauthorized  = errors.New("gate unauthorized")
	ErrGateUpstream      = errors.New("gate upstream error")
)

// Config del cliente Gate (el identity service del host).
// BaseURL y APIKey normalmente vienen de env vars en main.
type Config struct {
	BaseURL string
	APIKey  string

	// Opcional: header de la API key. Default "X-Api-Key".
	APIKeyHeader string

	Timeout time.Duration
}

type Client struct {
	http         *httpclient.Client
	apiKey       string
	apiKeyHeader string
	configured   bool
}

func NewClient(cfg Config) (*Client, error) {
	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	hc, err := httpclient.NewWithBaseURL(baseURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:         hc,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		apiKeyHeader: h,
		configured:   baseURL != "" && strings.TrimSpace(cfg.APIKey) != "",
	}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.configured
}

type introspectRequest struct {
	Token string `json:"token"`
}

type introspectResponse struct {
	UserID    string   `json:"user_id"`
	Email     string   `json:"email"`
	Roles     []string `json:"roles"`
	Providers []string `json:"providers"`
	ViewAll   bool     `json:"view_all"`
}

// VerifyToken introspecciona un token contra Gate y devuelve claims.
func (c *Client) VerifyToken(ctx context.Context, token string) (auth.Claims, error) {
	if !c.IsConfigured() {
		return auth.Claims{}, ErrGateNotConfigured
	}

	var out introspectResponse
	err := c.http.DoJSON(ctx, http.MethodPost, "/v1/introspect",
		map[string]string{c.apiKeyHeader: c.apiKey},
		introspectRequest{Token: token},
		&out,
	)
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			switch httpErr.StatusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				return auth.Claims{}, ErrGateUnauthorized
			}
		}
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrGateUpstream, err)
	}

	return auth.Claims{
		UserID:    out.UserID,
		Email:     out.Email,
		Roles:     out.Roles,
		Providers: out.Providers,
		ViewAll:   out.ViewAll,
	}, nil
}
