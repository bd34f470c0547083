package customer

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const searchLimit = 20

type postgresRepo struct{ db *sql.DB }

// NewPostgresRepository creates a Directory over the customers table.
func NewPostgresRepository(db *sql.DB) Directory { return &postgresRepo{db: db} }

func (r *postgresRepo) Create(ctx context.Context, c NewCustomer) (string, error) {
	id := uuid.New()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO customers
		  (id, name, phone_number, email, address, note, created_at,
		   total_purchases, total_spent, last_purchase)
		VALUES ($1,$2,$3,$4,$5,'',$6,0,0,NULL)`,
		id, c.Name, c.Phone, c.Email, c.Address, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (r *postgresRepo) Search(ctx context.Context, query string) ([]Reference, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, phone_number
		FROM customers
		WHERE name ILIKE $1 OR phone_number ILIKE $1
		ORDER BY name
		LIMIT $2`, "%"+query+"%", searchLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := []Reference{}
	for rows.Next() {
		var ref Reference
		var phone sql.NullString
		if err := rows.Scan(&ref.ID, &ref.Name, &phone); err != nil {
			return nil, err
		}
		ref.Phone = phone.String
		found = append(found, ref)
	}
	return found, rows.Err()
}
