package customer

import (
	"context"
	"sync"
	"time"

	"github.com/georgemunganga/printa-terminal/internal/deferred"
)

// SearchDebounce is the quiet period before a typed query is sent.
const SearchDebounce = 300 * time.Millisecond

// Searcher debounces search-as-you-type. Only the query standing when the
// window closes is sent; results and any lookup error arrive on the callback.
type Searcher struct {
	ctx       context.Context
	svc       Service
	onResults func(query string, found []Reference, err error)

	mu      sync.Mutex
	pending string
	timer   *deferred.Deferred
}

func NewSearcher(ctx context.Context, svc Service, clock deferred.Clock, onResults func(string, []Reference, error)) *Searcher {
	s := &Searcher{ctx: ctx, svc: svc, onResults: onResults}
	s.timer = deferred.New(clock, SearchDebounce, s.run)
	return s
}

// Query records the latest input and restarts the debounce window.
func (s *Searcher) Query(q string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = q
	s.timer.Arm()
}

// Pending reports whether a query is waiting for its window to close.
func (s *Searcher) Pending() bool { return s.timer.Pending() }

// Close drops any query still waiting.
func (s *Searcher) Close() { s.timer.Cancel() }

func (s *Searcher) run() {
	s.mu.Lock()
	// a Query that re-armed after this firing was scheduled owns the next run
	if s.timer.Pending() {
		s.mu.Unlock()
		return
	}
	q := s.pending
	s.mu.Unlock()

	found, err := s.svc.Search(s.ctx, q)
	if s.onResults != nil {
		s.onResults(q, found, err)
	}
}
