package customer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/georgemunganga/printa-terminal/internal/modules/auth"
	"go.uber.org/zap"
)

// MinQueryLength is the shortest query sent to the directory.
const MinQueryLength = 2

// Service defines customer business logic.
type Service interface {
	Create(ctx context.Context, req NewCustomer) (*Reference, error)
	Search(ctx context.Context, query string) ([]Reference, error)
}

type service struct {
	dir             Directory
	identity        auth.Waiter
	identityTimeout time.Duration
	log             *zap.Logger
}

// NewService creates the customer service. Creating a customer waits up to
// identityTimeout for a signed-in operator.
func NewService(dir Directory, identity auth.Waiter, identityTimeout time.Duration, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{dir: dir, identity: identity, identityTimeout: identityTimeout, log: log}
}

func (s *service) Create(ctx context.Context, req NewCustomer) (*Reference, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" {
		return nil, ErrNameRequired
	}
	if req.Phone == "" {
		return nil, ErrPhoneRequired
	}
	if _, err := s.identity.WaitForIdentity(ctx, s.identityTimeout); err != nil {
		return nil, err
	}

	id, err := s.dir.Create(ctx, req)
	if err != nil {
		s.log.Error("create customer failed", zap.Error(err))
		return nil, fmt.Errorf("create customer: %w", err)
	}
	s.log.Info("customer created", zap.String("id", id))
	return &Reference{ID: id, Name: req.Name, Phone: req.Phone, Email: req.Email, Address: req.Address}, nil
}

// Search returns nothing for queries shorter than MinQueryLength. A failed
// lookup is logged and wrapped in ErrDirectoryUnavailable, with empty results.
func (s *service) Search(ctx context.Context, query string) ([]Reference, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < MinQueryLength {
		return []Reference{}, nil
	}
	found, err := s.dir.Search(ctx, query)
	if err != nil {
		s.log.Error("customer search failed", zap.String("query", query), zap.Error(err))
		return []Reference{}, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	return found, nil
}
