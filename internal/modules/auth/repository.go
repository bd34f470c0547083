package auth

import "context"

// Repository looks operators up for sign-in.
type Repository interface {
	GetOperatorByEmail(ctx context.Context, email string) (*Operator, error)
}
