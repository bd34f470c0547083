package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

type postgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a repository over the users table.
func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetOperatorByEmail(ctx context.Context, email string) (*Operator, error) {
	op := &Operator{}
	var firstName, lastName sql.NullString
	query := `
		SELECT id, email, password_hash, first_name, last_name, created_at, updated_at
		FROM users
		WHERE lower(email) = $1
	`
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&op.ID,
		&op.Email,
		&op.PasswordHash,
		&firstName,
		&lastName,
		&op.CreatedAt,
		&op.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	op.FirstName = firstName.String
	op.LastName = lastName.String
	return op, nil
}
