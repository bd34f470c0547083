package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

const (
	EmployeeAnonymous     = "anonymous"
	EmployeeAuthenticated = "authenticated"
	noEmail               = "no-email"
)

// Identity is the operator the terminal is acting for.
type Identity struct {
	Subject   string `json:"subject"`
	Email     string `json:"email,omitempty"`
	Anonymous bool   `json:"anonymous"`
}

// EmployeeType is the audit label recorded on every sale.
func (i Identity) EmployeeType() string {
	if i.Anonymous {
		return EmployeeAnonymous
	}
	return EmployeeAuthenticated
}

// EmployeeEmail returns the email, or "no-email" when the identity has none.
func (i Identity) EmployeeEmail() string {
	if i.Email == "" {
		return noEmail
	}
	return i.Email
}

// Waiter blocks until an identity is available.
type Waiter interface {
	WaitForIdentity(ctx context.Context, timeout time.Duration) (Identity, error)
}

// Operator is a store employee allowed to sign in at the terminal.
type Operator struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
