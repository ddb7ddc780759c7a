package settings

import (
	"context"
	"encoding/json"
)

// Store es el key/value de configuración de dominio. Los valores se
// guardan como JSON crudo; los helpers tipados de abajo decodifican.
// La configuración de proceso (puertos, DSN) sigue yendo por env vars.
type Store interface {
	// Get devuelve el JSON crudo del valor. found=false si la key no existe.
	Get(ctx context.Context, key string) (raw string, found bool, err error)
	Set(ctx context.Context, key string, raw string) error
}

// SetJSON serializa y guarda un valor.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.Set(ctx, key, string(b))
}

// String lee un string; ante key ausente o JSON inválido devuelve def.
// Los errores se absorben a default: la configuración ilegible se trata
// igual que la ausente (deny-leaning en los consumidores).
func String(ctx context.Context, s Store, key, def string) string {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return def
	}
	var out string
	if json.Unmarshal([]byte(raw), &out) != nil {
		return def
	}
	return out
}

func Bool(ctx context.Context, s Store, key string, def bool) bool {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return def
	}
	var out bool
	if json.Unmarshal([]byte(raw), &out) != nil {
		return def
	}
	return out
}

func Strings(ctx context.Context, s Store, key string) []string {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return nil
	}
	var out []string
	if json.Unmarshal([]byte(raw), &out) != nil {
		return nil
	}
	return out
}

func StringMap(ctx context.Context, s Store, key string) map[string]string {
	raw, ok, err := s.Get(ctx, key)
	if err != nil || !ok {
		return nil
	}
	var out map[string]string
	if json.Unmarshal([]byte(raw), &out) != nil {
		return nil
	}
	return out
}
