package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// TokenTTL is how long a terminal session token stays valid.
const TokenTTL = 12 * time.Hour

type claims struct {
	Email     string `json:"email,omitempty"`
	Anonymous bool   `json:"anon,omitempty"`
	jwt.StandardClaims
}

// Provider tracks the signed-in operator and notifies watchers on change.
type Provider struct {
	repo   Repository
	secret []byte
	log    *zap.Logger
	now    func() time.Time

	mu       sync.Mutex
	current  *Identity
	watchers map[uint64]func(Identity, bool)
	nextID   uint64
}

// NewProvider creates a signed-out provider. secret signs session tokens.
func NewProvider(repo Repository, secret string, log *zap.Logger) *Provider {
	if log == nil {
		log = zap.NewNop()
	}
	return &Provider{
		repo:     repo,
		secret:   []byte(secret),
		log:      log,
		now:      time.Now,
		watchers: make(map[uint64]func(Identity, bool)),
	}
}

// Current returns the signed-in identity, if any.
func (p *Provider) Current() (Identity, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return Identity{}, false
	}
	return *p.current, true
}

// Watch registers fn for identity changes; ok is false on sign-out. The
// returned func removes the watcher.
func (p *Provider) Watch(fn func(id Identity, ok bool)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	key := p.nextID
	p.watchers[key] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.watchers, key)
	}
}

// SignIn checks operator credentials and returns a signed session token.
func (p *Provider) SignIn(ctx context.Context, email, password string) (string, error) {
	if email == "" || password == "" {
		return "", ErrInvalidCredentials
	}
	op, err := p.repo.GetOperatorByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			p.log.Error("operator lookup failed", zap.Error(err))
			return "", fmt.Errorf("operator lookup: %w", err)
		}
		return "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(op.PasswordHash), []byte(password)); err != nil {
		p.log.Info("sign-in rejected", zap.String("email", email))
		return "", ErrInvalidCredentials
	}

	id := Identity{Subject: op.ID.String(), Email: op.Email}
	token, err := p.issue(id)
	if err != nil {
		return "", err
	}
	p.set(&id)
	p.log.Info("operator signed in", zap.String("subject", id.Subject))
	return token, nil
}

// SignInAnonymous starts an anonymous terminal session.
func (p *Provider) SignInAnonymous() (string, error) {
	id := Identity{Subject: "anon-" + uuid.New().String(), Anonymous: true}
	token, err := p.issue(id)
	if err != nil {
		return "", err
	}
	p.set(&id)
	p.log.Info("anonymous session started", zap.String("subject", id.Subject))
	return token, nil
}

// Authenticate restores a session from a token issued by this provider.
func (p *Provider) Authenticate(token string) (Identity, error) {
	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil || !parsed.Valid || c.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	id := Identity{Subject: c.Subject, Email: c.Email, Anonymous: c.Anonymous}
	p.set(&id)
	return id, nil
}

func (p *Provider) SignOut() {
	p.set(nil)
	p.log.Info("operator signed out")
}

// WaitForIdentity returns the current identity, waiting up to timeout for one
// to appear.
func (p *Provider) WaitForIdentity(ctx context.Context, timeout time.Duration) (Identity, error) {
	if id, ok := p.Current(); ok {
		return id, nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ready := make(chan Identity, 1)
	stop := p.Watch(func(id Identity, ok bool) {
		if !ok {
			return
		}
		select {
		case ready <- id:
		default:
		}
	})
	defer stop()

	// a sign-in may have landed between Current and Watch
	if id, ok := p.Current(); ok {
		return id, nil
	}
	select {
	case id := <-ready:
		return id, nil
	case <-ctx.Done():
		p.log.Warn("no operator identity", zap.Duration("waited", timeout))
		return Identity{}, ErrNotAuthenticated
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

func (p *Provider) issue(id Identity) (string, error) {
	c := &claims{
		Email:     id.Email,
		Anonymous: id.Anonymous,
		StandardClaims: jwt.StandardClaims{
			Subject:   id.Subject,
			IssuedAt:  p.now().Unix(),
			ExpiresAt: p.now().Add(TokenTTL).Unix(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

func (p *Provider) set(id *Identity) {
	p.mu.Lock()
	p.current = id
	fns := make([]func(Identity, bool), 0, len(p.watchers))
	for _, fn := range p.watchers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		if id == nil {
			fn(Identity{}, false)
		} else {
			fn(*id, true)
		}
	}
}
