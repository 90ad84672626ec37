// Package credentials persists the bearer token and user key between runs.
//
// Every read goes to the backing medium; nothing is cached in memory. A
// missing key reads as "" with no error. A broken medium is reported as an
// error wrapping ErrStorageUnavailable, which callers treat as
// unauthenticated.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/daybook/internal/config"
)

// ErrStorageUnavailable is returned when the backing medium cannot be used.
var ErrStorageUnavailable = errors.New("credential storage unavailable")

// Storage keys.
const (
	KeyToken   = "APP_JWT"
	KeyUserKey = "USER_KEY"
)

// Store holds at most one credential.
type Store interface {
	SetToken(ctx context.Context, token string) error
	Token(ctx context.Context) (string, error)
	// Clear removes the token. Idempotent and safe to call concurrently.
	Clear(ctx context.Context) error
	SetUserKey(ctx context.Context, key string) error
	UserKey(ctx context.Context) (string, error)
	ClearUserKey(ctx context.Context) error
	Close() error
}

// Credential is a snapshot of the stored values.
type Credential struct {
	Token   string
	UserKey string
}

// Authenticated reports whether a token is present.
func (c Credential) Authenticated() bool {
	return c.Token != ""
}

// Load reads both keys from s.
func Load(ctx context.Context, s Store) (Credential, error) {
	token, err := s.Token(ctx)
	if err != nil {
		return Credential{}, err
	}
	key, err := s.UserKey(ctx)
	if err != nil {
		return Credential{}, err
	}
	return Credential{Token: token, UserKey: key}, nil
}

// Open returns the backend selected by cfg.
func Open(ctx context.Context, cfg config.CredentialsConfig) (Store, error) {
	path, err := config.ExpandPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("credentials path: %w", err)
	}
	switch cfg.Backend {
	case "file":
		return NewFileStore(path), nil
	case "sqlite":
		return OpenSQLite(ctx, path)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown credentials backend %q", cfg.Backend)
	}
}

// medium is the raw key-value surface each backend provides.
type medium interface {
	get(ctx context.Context, key string) (string, error)
	put(ctx context.Context, key, value string) error
	del(ctx context.Context, key string) error
}

// keyed maps the Store operations onto a medium.
type keyed struct {
	m medium
}

func (k keyed) SetToken(ctx context.Context, token string) error {
	return k.m.put(ctx, KeyToken, token)
}

func (k keyed) Token(ctx context.Context) (string, error) {
	return k.m.get(ctx, KeyToken)
}

func (k keyed) Clear(ctx context.Context) error {
	return k.m.del(ctx, KeyToken)
}

func (k keyed) SetUserKey(ctx context.Context, key string) error {
	return k.m.put(ctx, KeyUserKey, key)
}

func (k keyed) UserKey(ctx context.Context) (string, error) {
	return k.m.get(ctx, KeyUserKey)
}

func (k keyed) ClearUserKey(ctx context.Context) error {
	return k.m.del(ctx, KeyUserKey)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, err)
}
