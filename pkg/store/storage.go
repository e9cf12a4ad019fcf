// Package store keeps small named values, such as the character being built,
// in a key/value storage slot.
package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/redis/go-redis/v9"
)

// ErrNotLoaded is returned by Slot.Save when the slot has not been read yet.
var ErrNotLoaded = errors.New("store: slot not loaded")

// Storage holds raw text under string keys.
type Storage interface {
	// Get returns the stored text and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set overwrites the value stored under key.
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Open picks a storage backend from a URL: memory://, redis:// or rediss://,
// file:///path, or a bare directory path.
func Open(raw string) (Storage, error) {
	if raw == "" {
		return nil, errors.New("store: empty storage url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("store: parse %q: %w", raw, err)
	}

	switch u.Scheme {
	case "memory":
		return NewMemory(), nil
	case "redis", "rediss":
		opts, err := redis.ParseURL(raw)
		if err != nil {
			return nil, fmt.Errorf("store: redis url: %w", err)
		}
		return NewRedis(redis.NewClient(opts), DefaultRedisPrefix), nil
	case "file":
		path := u.Path
		if u.Host != "" {
			path = u.Host + path
		}
		return NewDir(path)
	case "":
		return NewDir(raw)
	}
	return nil, fmt.Errorf("store: unsupported scheme %q", u.Scheme)
}
