package customer

import "context"

// Directory is the store's customer list. Terminals may add to it and search
// it; search results carry only id, name and phone.
type Directory interface {
	Create(ctx context.Context, c NewCustomer) (string, error)
	Search(ctx context.Context, query string) ([]Reference, error)
}
