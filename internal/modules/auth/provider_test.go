package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

type fakeRepo struct {
	ops map[string]*Operator
	err error
}

func (f *fakeRepo) GetOperatorByEmail(_ context.Context, email string) (*Operator, error) {
	if f.err != nil {
		return nil, f.err
	}
	op, ok := f.ops[email]
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return op, nil
}

var operatorID = uuid.MustParse("7b0f3c2e-8d4a-4c55-9a51-2f3e1c9d0a11")

func newTestProvider(t *testing.T) *Provider {
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &fakeRepo{ops: map[string]*Operator{
		"clerk@store.test": {ID: operatorID, Email: "clerk@store.test", PasswordHash: string(hash)},
	}}
	return NewProvider(repo, "test-secret", zaptest.NewLogger(t))
}

func TestProvider_SignIn(t *testing.T) {
	p := newTestProvider(t)
	_, ok := p.Current()
	require.False(t, ok)

	token, err := p.SignIn(context.Background(), "clerk@store.test", "hunter2")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	id, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, Identity{Subject: operatorID.String(), Email: "clerk@store.test"}, id)
	assert.Equal(t, EmployeeAuthenticated, id.EmployeeType())
}

func TestProvider_SignInRejectsBadCredentials(t *testing.T) {
	p := newTestProvider(t)

	_, err := p.SignIn(context.Background(), "clerk@store.test", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = p.SignIn(context.Background(), "nobody@store.test", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = p.SignIn(context.Background(), "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, ok := p.Current()
	assert.False(t, ok)
}

func TestProvider_SignInLookupFailure(t *testing.T) {
	boom := errors.New("db down")
	p := NewProvider(&fakeRepo{err: boom}, "s", nil)
	_, err := p.SignIn(context.Background(), "a@b.c", "x")
	assert.ErrorIs(t, err, boom)
}

func TestProvider_AuthenticateRoundTrip(t *testing.T) {
	p := newTestProvider(t)
	token, err := p.SignIn(context.Background(), "clerk@store.test", "hunter2")
	require.NoError(t, err)
	p.SignOut()

	id, err := p.Authenticate(token)
	require.NoError(t, err)
	assert.Equal(t, operatorID.String(), id.Subject)

	current, ok := p.Current()
	require.True(t, ok)
	assert.Equal(t, id, current)
}

func TestProvider_AuthenticateRejectsForeignAndExpiredTokens(t *testing.T) {
	p := newTestProvider(t)
	other := NewProvider(&fakeRepo{}, "other-secret", nil)
	foreign, err := other.SignInAnonymous()
	require.NoError(t, err)

	_, err = p.Authenticate(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = p.Authenticate("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	p.now = func() time.Time { return time.Now().Add(-2 * TokenTTL) }
	stale, err := p.SignInAnonymous()
	require.NoError(t, err)
	_, err = p.Authenticate(stale)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestProvider_Anonymous(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.SignInAnonymous()
	require.NoError(t, err)

	id, ok := p.Current()
	require.True(t, ok)
	assert.True(t, id.Anonymous)
	assert.Equal(t, EmployeeAnonymous, id.EmployeeType())
	assert.Equal(t, "no-email", id.EmployeeEmail())
}

func TestProvider_WatchAndSignOut(t *testing.T) {
	p := newTestProvider(t)
	var events []bool
	stop := p.Watch(func(_ Identity, ok bool) { events = append(events, ok) })

	_, err := p.SignInAnonymous()
	require.NoError(t, err)
	p.SignOut()
	stop()
	_, err = p.SignInAnonymous()
	require.NoError(t, err)

	assert.Equal(t, []bool{true, false}, events)
}

func TestProvider_WaitForIdentityImmediate(t *testing.T) {
	p := newTestProvider(t)
	_, err := p.SignInAnonymous()
	require.NoError(t, err)

	id, err := p.WaitForIdentity(context.Background(), time.Millisecond)
	require.NoError(t, err)
	assert.True(t, id.Anonymous)
}

func TestProvider_WaitForIdentityLateSignIn(t *testing.T) {
	p := newTestProvider(t)
	go func() {
		time.Sleep(20 * time.Millisecond)
		_, _ = p.SignIn(context.Background(), "clerk@store.test", "hunter2")
	}()

	id, err := p.WaitForIdentity(context.Background(), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "clerk@store.test", id.Email)
}

func TestProvider_WaitForIdentityTimeout(t *testing.T) {
	p := newTestProvider(t)
	start := time.Now()

	_, err := p.WaitForIdentity(context.Background(), 30*time.Millisecond)
	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Equal(t, "not authenticated", err.Error())
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
