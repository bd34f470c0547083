package checkout

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/georgemunganga/printa-terminal/internal/deferred"
	"github.com/georgemunganga/printa-terminal/internal/modules/auth"
	"github.com/georgemunganga/printa-terminal/internal/modules/cart"
	"github.com/georgemunganga/printa-terminal/internal/modules/customer"
	"github.com/georgemunganga/printa-terminal/internal/money"
	"go.uber.org/zap"
)

// DefaultIdentityTimeout bounds the wait for a signed-in operator.
const DefaultIdentityTimeout = 5 * time.Second

// Options configure a Machine.
type Options struct {
	IdentityTimeout time.Duration
	Receipts        ReceiptPrinter // optional
	Clock           deferred.Clock
	Log             *zap.Logger
}

// Machine drives one terminal's checkout. The basket is read and reset without
// the machine lock held, so the basket may call InFlight from its own lock.
type Machine struct {
	basket          Basket
	ledger          Ledger
	identity        auth.Waiter
	receipts        ReceiptPrinter
	identityTimeout time.Duration
	clock           deferred.Clock
	log             *zap.Logger

	mu       sync.Mutex
	state    State
	inFlight bool
	lastErr  error
}

func NewMachine(basket Basket, ledger Ledger, identity auth.Waiter, opts Options) *Machine {
	if opts.IdentityTimeout <= 0 {
		opts.IdentityTimeout = DefaultIdentityTimeout
	}
	if opts.Clock == nil {
		opts.Clock = deferred.Real()
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	return &Machine{
		basket:          basket,
		ledger:          ledger,
		identity:        identity,
		receipts:        opts.Receipts,
		identityTimeout: opts.IdentityTimeout,
		clock:           opts.Clock,
		log:             opts.Log,
		state:           StateIdle,
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// InFlight reports whether a submission is between ledger call and result.
func (m *Machine) InFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight
}

// LastError returns the error of the most recent failed submission.
func (m *Machine) LastError() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

// Begin opens checkout. Without an attached customer the flow first asks for one.
func (m *Machine) Begin() error {
	snap := m.basket.Snapshot()
	cust := m.basket.Customer()

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return ErrSubmissionInFlight
	}
	if snap.IsEmpty() {
		return ErrEmptyCart
	}
	next := StateCustomerPending
	if cust != nil {
		next = StateMethodSelection
	}
	return m.transitionLocked(next)
}

// ConfirmCustomer moves on to payment with whatever customer is attached.
func (m *Machine) ConfirmCustomer() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateCustomerPending {
		return m.invalidLocked(StateMethodSelection)
	}
	return m.transitionLocked(StateMethodSelection)
}

// SelectMethod picks the payment method. Cash asks for the tendered amount;
// card and digital submit immediately.
func (m *Machine) SelectMethod(ctx context.Context, method Method) (*Outcome, error) {
	if _, err := ParseMethod(string(method)); err != nil {
		return nil, err
	}
	if method == MethodCash {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.inFlight {
			return nil, ErrSubmissionInFlight
		}
		if m.state != StateMethodSelection {
			return nil, m.invalidLocked(StateCashEntry)
		}
		return nil, m.transitionLocked(StateCashEntry)
	}

	if err := m.claim(StateMethodSelection); err != nil {
		return nil, err
	}
	snap, cust := m.basket.Snapshot(), m.basket.Customer()
	if snap.IsEmpty() {
		m.release()
		return nil, ErrEmptyCart
	}
	m.startSubmit()
	return m.submit(ctx, snap, cust, method, nil)
}

// SubmitCash records a cash sale for the tendered amount, e.g. "20" or "$20.00".
// The amount must cover the total at cent precision.
func (m *Machine) SubmitCash(ctx context.Context, tendered string) (*Outcome, error) {
	if err := m.claim(StateCashEntry); err != nil {
		return nil, err
	}
	snap, cust := m.basket.Snapshot(), m.basket.Customer()
	if snap.IsEmpty() {
		m.release()
		return nil, ErrEmptyCart
	}
	amount, err := money.ParseAmount(tendered)
	if err != nil {
		m.release()
		return nil, ErrTenderRequired
	}
	if !money.Covers(amount, snap.Totals.Total) {
		m.release()
		return nil, fmt.Errorf("%w: received %s, total %s",
			ErrInsufficientTender, money.Format(amount), money.Format(snap.Totals.Total))
	}

	m.startSubmit()
	return m.submit(ctx, snap, cust, MethodCash, &amount)
}

// Back returns from cash entry to method selection.
func (m *Machine) Back() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return ErrSubmissionInFlight
	}
	if m.state != StateCashEntry {
		return m.invalidLocked(StateMethodSelection)
	}
	return m.transitionLocked(StateMethodSelection)
}

// Cancel abandons checkout and keeps the basket. It cannot interrupt a submission.
func (m *Machine) Cancel() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return ErrSubmissionInFlight
	}
	if m.state == StateIdle {
		return nil
	}
	return m.transitionLocked(StateIdle)
}

// ── submission ────────────────────────────────────────────────────────────────

// claim sets the in-flight guard while still in from. The terminal rejects
// basket mutations from here on, so the basket read that follows is final.
func (m *Machine) claim(from State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.inFlight {
		return ErrSubmissionInFlight
	}
	if m.state != from {
		return m.invalidLocked(StateSubmitting)
	}
	m.inFlight = true
	return nil
}

// release drops a claim that never reached Submitting.
func (m *Machine) release() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = false
}

func (m *Machine) startSubmit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = nil
	_ = m.transitionLocked(StateSubmitting)
}

func (m *Machine) submit(ctx context.Context, snap cart.Snapshot, cust *customer.Reference, method Method, tendered *float64) (*Outcome, error) {
	identity, err := m.identity.WaitForIdentity(ctx, m.identityTimeout)
	if err != nil {
		return nil, m.fail(err)
	}

	sale := NewPendingSale(snap, method, tendered, cust, identity, m.clock.Now())
	saleID, err := m.ledger.Create(ctx, sale)
	if err != nil {
		return nil, m.fail(fmt.Errorf("record sale: %w", err))
	}
	m.log.Info("sale recorded",
		zap.String("sale_id", saleID),
		zap.String("method", string(method)),
		zap.String("total", money.Format(sale.Total)),
		zap.String("employee", identity.Subject))

	m.mu.Lock()
	_ = m.transitionLocked(StateCompleted)
	m.mu.Unlock()

	m.basket.Reset()

	out := &Outcome{SaleID: saleID, Sale: sale, CustomerName: customer.WalkInName}
	if cust != nil && cust.Name != "" {
		out.CustomerName = cust.Name
	}
	if m.receipts != nil {
		if err := m.receipts.Print(ctx, saleID, sale, out.CustomerName); err != nil {
			m.log.Error("receipt printing failed", zap.String("sale_id", saleID), zap.Error(err))
			out.ReceiptErr = err
		}
	}

	m.mu.Lock()
	_ = m.transitionLocked(StateIdle)
	m.inFlight = false
	m.mu.Unlock()
	return out, nil
}

// fail records err and lands back on method selection with the basket intact.
func (m *Machine) fail(err error) error {
	m.log.Error("sale submission failed", zap.Error(err))
	m.mu.Lock()
	defer m.mu.Unlock()
	_ = m.transitionLocked(StateFailed)
	_ = m.transitionLocked(StateMethodSelection)
	m.inFlight = false
	m.lastErr = err
	return err
}

func (m *Machine) transitionLocked(to State) error {
	if !canTransition(m.state, to) {
		return m.invalidLocked(to)
	}
	m.log.Debug("checkout transition", zap.String("from", string(m.state)), zap.String("to", string(to)))
	m.state = to
	return nil
}

func (m *Machine) invalidLocked(to State) error {
	return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidTransition, m.state, to)
}
