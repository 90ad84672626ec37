// Package session handles login and logout against the credential store.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/fyrsmithlabs/daybook/internal/credentials"
	"github.com/fyrsmithlabs/daybook/internal/diary"
	"go.uber.org/zap"
)

// ErrNoToken is returned when the login reply carries no token.
var ErrNoToken = errors.New("login reply carried no token")

// ErrNoCode is returned when Login is called without an authorization code.
var ErrNoCode = errors.New("authorization code is required")

// Authenticator exchanges an authorization code for a token.
// *diary.Client implements it.
type Authenticator interface {
	Login(ctx context.Context, req diary.LoginRequest) (*diary.LoginResponse, error)
}

// Status describes the stored credential.
type Status struct {
	Authenticated bool
	HasUserKey    bool
}

// Manager drives the login lifecycle.
type Manager struct {
	auth   Authenticator
	store  credentials.Store
	logger *zap.Logger
}

// New creates a Manager. logger may be nil.
func New(auth Authenticator, store credentials.Store, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{auth: auth, store: store, logger: logger}
}

// Login exchanges code for a token and stores it, plus the user key when the
// server sends one.
func (m *Manager) Login(ctx context.Context, code, referrer string) (credentials.Credential, error) {
	if code == "" {
		return credentials.Credential{}, ErrNoCode
	}

	resp, err := m.auth.Login(ctx, diary.LoginRequest{AuthorizationCode: code, Referrer: referrer})
	if err != nil {
		return credentials.Credential{}, err
	}
	if resp.JWT == "" {
		return credentials.Credential{}, ErrNoToken
	}

	if err := m.store.SetToken(ctx, resp.JWT); err != nil {
		return credentials.Credential{}, fmt.Errorf("storing token: %w", err)
	}
	cred := credentials.Credential{Token: resp.JWT}

	if key := resp.User.Key(); key != "" {
		if err := m.store.SetUserKey(ctx, key); err != nil {
			return cred, fmt.Errorf("storing user key: %w", err)
		}
		cred.UserKey = key
	}

	m.logger.Info("logged in", zap.Bool("user_key_stored", cred.UserKey != ""))
	return cred, nil
}

// Logout clears the token and user key. Clearing an empty store succeeds.
func (m *Manager) Logout(ctx context.Context) error {
	err := errors.Join(m.store.Clear(ctx), m.store.ClearUserKey(ctx))
	if err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	m.logger.Info("logged out")
	return nil
}

// Status reads the store. A storage failure reports unauthenticated along
// with the error.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	cred, err := credentials.Load(ctx, m.store)
	if err != nil {
		return Status{}, err
	}
	return Status{Authenticated: cred.Authenticated(), HasUserKey: cred.UserKey != ""}, nil
}
