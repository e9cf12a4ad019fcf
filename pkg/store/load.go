package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
)

// Load reads key and passes the parsed JSON to decode, which is expected to
// fill defaults for anything missing. An absent key returns def; unreadable
// storage or text that is not JSON logs a warning and returns def.
func Load[T any](ctx context.Context, s Storage, key string, def T, decode func(any) T) T {
	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		log.Warn("failed reading stored value, using default", "key", key, "error", err)
		return def
	}
	if !ok {
		return def
	}

	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		log.Warn("stored value is not valid json, using default", "key", key, "error", err)
		return def
	}
	return decode(v)
}

// Save overwrites key with the JSON form of v.
func Save[T any](ctx context.Context, s Storage, key string, v T) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", key, err)
	}
	return s.Set(ctx, key, string(b))
}
