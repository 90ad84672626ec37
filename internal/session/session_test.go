package session

import (
	"context"
	"errors"
	"testing"

	"github.com/fyrsmithlabs/daybook/internal/credentials"
	"github.com/fyrsmithlabs/daybook/internal/diary"
	"github.com/fyrsmithlabs/daybook/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAuthenticator is a mock implementation of Authenticator
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, req diary.LoginRequest) (*diary.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*diary.LoginResponse), args.Error(1)
}

func TestLogin_StoresTokenAndUserKey(t *testing.T) {
	ctx := context.Background()
	auth := new(MockAuthenticator)
	auth.On("Login", mock.Anything, diary.LoginRequest{AuthorizationCode: "code", Referrer: "DEFAULT"}).
		Return(&diary.LoginResponse{JWT: "jwt", User: &diary.LoginUser{UserKey: []byte(`"uk"`)}}, nil)
	store := credentials.NewMemoryStore()
	tl := logging.NewTestLogger()

	cred, err := New(auth, store, tl.Underlying()).Login(ctx, "code", "DEFAULT")
	require.NoError(t, err)
	assert.Equal(t, credentials.Credential{Token: "jwt", UserKey: "uk"}, cred)

	stored, err := credentials.Load(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, cred, stored)
	tl.AssertNoSecrets(t)
}

func TestLogin_WithoutUserKey(t *testing.T) {
	ctx := context.Background()
	auth := new(MockAuthenticator)
	auth.On("Login", mock.Anything, mock.Anything).Return(&diary.LoginResponse{JWT: "jwt"}, nil)
	store := credentials.NewMemoryStore()

	cred, err := New(auth, store, nil).Login(ctx, "code", "")
	require.NoError(t, err)
	assert.Empty(t, cred.UserKey)
}

func TestLogin_NoToken(t *testing.T) {
	ctx := context.Background()
	auth := new(MockAuthenticator)
	auth.On("Login", mock.Anything, mock.Anything).Return(&diary.LoginResponse{}, nil)
	store := credentials.NewMemoryStore()

	_, err := New(auth, store, nil).Login(ctx, "code", "")
	assert.ErrorIs(t, err, ErrNoToken)

	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestLogin_Errors(t *testing.T) {
	ctx := context.Background()
	auth := new(MockAuthenticator)
	boom := errors.New("server down")
	auth.On("Login", mock.Anything, mock.Anything).Return(nil, boom)

	m := New(auth, credentials.NewMemoryStore(), nil)
	_, err := m.Login(ctx, "", "")
	assert.ErrorIs(t, err, ErrNoCode)
	auth.AssertNotCalled(t, "Login", mock.Anything, mock.Anything)

	_, err = m.Login(ctx, "code", "")
	assert.ErrorIs(t, err, boom)
}

func TestLogin_StoreFailure(t *testing.T) {
	auth := new(MockAuthenticator)
	auth.On("Login", mock.Anything, mock.Anything).Return(&diary.LoginResponse{JWT: "jwt"}, nil)
	store := credentials.NewMemoryStore()
	store.SetFailure(errors.New("read-only"))

	_, err := New(auth, store, nil).Login(context.Background(), "code", "")
	assert.ErrorIs(t, err, credentials.ErrStorageUnavailable)
}

func TestLogoutAndStatus(t *testing.T) {
	ctx := context.Background()
	store := credentials.NewMemoryStore()
	require.NoError(t, store.SetToken(ctx, "jwt"))
	require.NoError(t, store.SetUserKey(ctx, "uk"))
	m := New(new(MockAuthenticator), store, nil)

	st, err := m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, Status{Authenticated: true, HasUserKey: true}, st)

	require.NoError(t, m.Logout(ctx))
	require.NoError(t, m.Logout(ctx))

	st, err = m.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, Status{}, st)

	store.SetFailure(errors.New("gone"))
	st, err = m.Status(ctx)
	assert.ErrorIs(t, err, credentials.ErrStorageUnavailable)
	assert.False(t, st.Authenticated)
	assert.Error(t, m.Logout(ctx))
}
