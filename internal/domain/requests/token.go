package requests

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	tokenBytes       = 8 // 16 chars hex
	maxTokenAttempts = 10
)

var ErrTokenExhausted = errors.New("could not generate a unique token")

// newToken genera un token opaco corto.
func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// issueToken genera un token verificado único contra los existentes,
// con reintentos acotados.
func issueToken(ctx context.Context, repo Repository) (string, error) {
	for i := 0; i < maxTokenAttempts; i++ {
		t, err := newToken()
		if err != nil {
			return "", err
		}
		exists, err := repo.TokenExists(ctx, t)
		if err != nil {
			return "", err
		}
		if !exists {
			return t, nil
		}
	}
	return "", ErrTokenExhausted
}
