package pos

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/bwmarrin/snowflake"
	"github.com/georgemunganga/printa-terminal/internal/deferred"
	"github.com/georgemunganga/printa-terminal/internal/modules/auth"
	"github.com/georgemunganga/printa-terminal/internal/modules/cart"
	"github.com/georgemunganga/printa-terminal/internal/modules/catalog"
	"github.com/georgemunganga/printa-terminal/internal/modules/checkout"
	"github.com/georgemunganga/printa-terminal/internal/modules/customer"
	"github.com/georgemunganga/printa-terminal/internal/modules/scanner"
	"github.com/georgemunganga/printa-terminal/internal/modules/settings"
	"github.com/georgemunganga/printa-terminal/internal/money"
	"go.uber.org/zap"
)

// Deps are the collaborators of a Terminal.
type Deps struct {
	Catalog   *catalog.Store
	Settings  settings.Store
	Ledger    checkout.Ledger
	Identity  auth.Waiter
	Customers customer.Service
	Receipts  checkout.ReceiptPrinter // optional
	Bus       EventBus.Bus            // optional
	Node      *snowflake.Node
	Clock     deferred.Clock

	ScanWindow      time.Duration
	IdentityTimeout time.Duration
	Log             *zap.Logger
}

// Terminal is one POS session: catalog view, cart, customer, settings,
// checkout and scanner. Every mutation is serialized by one lock.
type Terminal struct {
	catalog   *catalog.Store
	customers customer.Service
	store     settings.Store
	bus       EventBus.Bus
	node      *snowflake.Node
	clock     deferred.Clock
	log       *zap.Logger

	machine  *checkout.Machine
	decoder  *scanner.Decoder
	searcher *customer.Searcher
	stop     context.CancelFunc

	catalogSeen atomic.Bool
	catalogDown atomic.Bool

	searchMu sync.Mutex
	search   CustomerResults

	mu       sync.Mutex
	cart     *cart.Cart
	customer *customer.Reference
	settings settings.Settings

	noticeMu sync.Mutex
	notices  []Notice
}

// NewTerminal loads settings once and wires checkout and the scan decoder.
func NewTerminal(d Deps) (*Terminal, error) {
	if d.Catalog == nil || d.Settings == nil || d.Ledger == nil || d.Identity == nil || d.Customers == nil {
		return nil, fmt.Errorf("catalog, settings, ledger, identity and customers are required")
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Clock == nil {
		d.Clock = deferred.Real()
	}
	if d.Bus == nil {
		d.Bus = EventBus.New()
	}
	if d.Node == nil {
		node, err := snowflake.NewNode(1)
		if err != nil {
			return nil, err
		}
		d.Node = node
	}

	loaded, err := d.Settings.Load()
	if err != nil {
		d.Log.Error("load settings failed, using defaults", zap.Error(err))
		loaded = settings.Default()
	}

	t := &Terminal{
		catalog:   d.Catalog,
		customers: d.Customers,
		store:     d.Settings,
		bus:       d.Bus,
		node:      d.Node,
		clock:     d.Clock,
		log:       d.Log,
		cart:      cart.New(loaded.DefaultTaxRate),
		settings:  loaded,
	}
	if err := t.bus.Subscribe(NoticeTopic, t.recordNotice); err != nil {
		return nil, fmt.Errorf("subscribe notices: %w", err)
	}
	t.machine = checkout.NewMachine(basket{t}, d.Ledger, d.Identity, checkout.Options{
		IdentityTimeout: d.IdentityTimeout,
		Receipts:        d.Receipts,
		Clock:           d.Clock,
		Log:             d.Log.Named("checkout"),
	})
	t.decoder = scanner.NewDecoder(d.Catalog, scanner.Options{
		Window:     d.ScanWindow,
		Clock:      d.Clock,
		OnMatch:    t.scanned,
		OnNotFound: t.scanMissed,
		Log:        d.Log.Named("scanner"),
	})
	ctx, stop := context.WithCancel(context.Background())
	t.stop = stop
	t.searcher = customer.NewSearcher(ctx, d.Customers, d.Clock, t.searchDone)
	return t, nil
}

// Close stops the scan decoder and the customer search debounce, and detaches
// from the bus.
func (t *Terminal) Close() {
	t.decoder.Close()
	t.searcher.Close()
	t.stop()
	_ = t.bus.Unsubscribe(NoticeTopic, t.recordNotice)
}

// CatalogChanged is the Synchronizer callback: it swaps the catalog snapshot.
// The operator hears about the first load and about recovery after an outage.
func (t *Terminal) CatalogChanged(items []catalog.Item) {
	t.catalog.Replace(items)
	t.log.Debug("catalog replaced", zap.Int("items", len(items)))
	seen, down := t.catalogSeen.Swap(true), t.catalogDown.Swap(false)
	switch {
	case !seen:
		t.publish(NoticeCatalog, fmt.Sprintf("Catalog loaded: %d items", len(items)))
	case down:
		t.publish(NoticeCatalog, fmt.Sprintf("Catalog back online: %d items", len(items)))
	}
}

// CatalogFailed is the Synchronizer error callback. The last known catalog
// stays in use.
func (t *Terminal) CatalogFailed(source string, err error) {
	t.catalogDown.Store(true)
	t.publish(NoticeCatalogDown, fmt.Sprintf("Could not reach %s, showing last known items: %v", source, err))
}

// ── cart ──────────────────────────────────────────────────────────────────────

// AddItem adds one unit of a catalog item.
func (t *Terminal) AddItem(id string) error {
	item, ok := t.catalog.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownItem, id)
	}
	return t.mutate(func() error {
		t.cart.AddItem(item)
		return nil
	})
}

func (t *Terminal) SetQuantity(id string, qty int) error {
	return t.mutate(func() error {
		t.cart.SetQuantity(id, qty)
		return nil
	})
}

func (t *Terminal) RemoveItem(id string) error {
	return t.mutate(func() error {
		t.cart.RemoveItem(id)
		return nil
	})
}

func (t *Terminal) ClearCart() error {
	return t.mutate(func() error {
		t.cart.Clear()
		return nil
	})
}

func (t *Terminal) SetDiscount(amount float64) error {
	return t.mutate(func() error { return t.cart.SetDiscount(amount) })
}

// SetTaxRate changes the rate on the current cart only.
func (t *Terminal) SetTaxRate(rate float64) error {
	return t.mutate(func() error { return t.cart.SetTaxRate(rate) })
}

// ── customer ──────────────────────────────────────────────────────────────────

// AttachCustomer attaches a customer picked from search results.
func (t *Terminal) AttachCustomer(ref customer.Reference) error {
	if ref.ID == "" {
		return fmt.Errorf("customer id is required")
	}
	return t.mutate(func() error {
		t.customer = &ref
		return nil
	})
}

// AttachWalkIn attaches an operator-entered walk-in, optionally named.
func (t *Terminal) AttachWalkIn(name string) (customer.Reference, error) {
	ref := customer.NewWalkIn(t.node, name)
	return ref, t.AttachCustomer(ref)
}

// CreateCustomer registers a customer and attaches it.
func (t *Terminal) CreateCustomer(ctx context.Context, req customer.NewCustomer) (*customer.Reference, error) {
	ref, err := t.customers.Create(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := t.AttachCustomer(*ref); err != nil {
		return nil, err
	}
	return ref, nil
}

// SearchCustomers looks customers up at once. A directory outage is also
// posted as a notice.
func (t *Terminal) SearchCustomers(ctx context.Context, query string) ([]customer.Reference, error) {
	found, err := t.customers.Search(ctx, query)
	if err != nil {
		t.directoryFailed(err)
	}
	return found, err
}

// QueryCustomers feeds search-as-you-type input; the lookup runs once typing
// pauses and lands in CustomerResults.
func (t *Terminal) QueryCustomers(query string) {
	t.searcher.Query(query)
}

// CustomerResults returns the latest debounced search.
func (t *Terminal) CustomerResults() CustomerResults {
	t.searchMu.Lock()
	r := t.search
	t.searchMu.Unlock()
	r.Results = append([]customer.Reference{}, r.Results...)
	r.Pending = t.searcher.Pending()
	return r
}

func (t *Terminal) searchDone(query string, found []customer.Reference, err error) {
	r := CustomerResults{Query: query, Results: found}
	if err != nil {
		r.Error = err.Error()
		t.directoryFailed(err)
	}
	t.searchMu.Lock()
	t.search = r
	t.searchMu.Unlock()
}

func (t *Terminal) directoryFailed(err error) {
	t.publish(NoticeDirectoryDown, "Customer search is unavailable: "+err.Error())
}

// DetachCustomer clears the customer. With auto walk-in on and a non-empty
// cart the walk-in reference comes straight back.
func (t *Terminal) DetachCustomer() error {
	return t.mutate(func() error {
		t.customer = nil
		return nil
	})
}

// ── settings ──────────────────────────────────────────────────────────────────

// SetAutoWalkIn toggles auto walk-in and saves it. Turning it on attaches a
// walk-in when no customer is set; turning it off removes the auto walk-in.
func (t *Terminal) SetAutoWalkIn(on bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.machine.InFlight() {
		return checkout.ErrSubmissionInFlight
	}
	next := t.settings
	next.AutoWalkIn = on
	if err := t.saveLocked(next); err != nil {
		return err
	}
	switch {
	case on && t.customer == nil:
		walkIn := customer.WalkIn()
		t.customer = &walkIn
	case !on && t.customer != nil && t.customer.IsAutoWalkIn():
		t.customer = nil
	}
	return nil
}

// SetDefaultTaxRate saves the default rate and applies it to the current cart.
func (t *Terminal) SetDefaultTaxRate(rate float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.machine.InFlight() {
		return checkout.ErrSubmissionInFlight
	}
	next := t.settings
	next.DefaultTaxRate = rate
	if err := next.Validate(); err != nil {
		return err
	}
	if err := t.saveLocked(next); err != nil {
		return err
	}
	return t.cart.SetTaxRate(rate)
}

func (t *Terminal) Settings() settings.Settings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settings
}

// ── checkout ──────────────────────────────────────────────────────────────────

func (t *Terminal) BeginCheckout() error          { return t.machine.Begin() }
func (t *Terminal) ConfirmCustomer() error        { return t.machine.ConfirmCustomer() }
func (t *Terminal) BackToMethods() error          { return t.machine.Back() }
func (t *Terminal) CancelCheckout() error         { return t.machine.Cancel() }
func (t *Terminal) CheckoutState() checkout.State { return t.machine.State() }

func (t *Terminal) SelectMethod(ctx context.Context, method checkout.Method) (*checkout.Outcome, error) {
	out, err := t.machine.SelectMethod(ctx, method)
	return t.afterSubmit(out, err)
}

func (t *Terminal) SubmitCash(ctx context.Context, tendered string) (*checkout.Outcome, error) {
	out, err := t.machine.SubmitCash(ctx, tendered)
	return t.afterSubmit(out, err)
}

func (t *Terminal) afterSubmit(out *checkout.Outcome, err error) (*checkout.Outcome, error) {
	if err != nil {
		if t.machine.LastError() == err {
			t.publish(NoticeSaleFailed, "Sale failed: "+OperatorMessage(err))
		}
		return nil, err
	}
	if out == nil {
		return nil, nil
	}
	msg := "Sale completed! Invoice: " + out.SaleID
	if change, ok := out.Change(); ok {
		msg = fmt.Sprintf("%s. Total: $%s, Cash Received: $%s, Change: $%s",
			msg, money.Format(out.Sale.Total), money.Format(*out.Sale.TenderedAmount), money.Format(change))
	}
	t.publish(NoticeSaleComplete, msg)
	if out.ReceiptErr != nil {
		t.publish(NoticeReceipt, "Receipt could not be printed: "+out.ReceiptErr.Error())
	}
	return out, nil
}

// ── scanner ───────────────────────────────────────────────────────────────────

// HandleKey feeds a key press to the barcode decoder.
func (t *Terminal) HandleKey(ev scanner.KeyEvent) scanner.Action {
	return t.decoder.HandleKey(ev)
}

func (t *Terminal) scanned(item catalog.Item) {
	err := t.mutate(func() error {
		t.cart.AddItem(item)
		return nil
	})
	if err != nil {
		t.publish(NoticeScanMiss, fmt.Sprintf("Could not add %s: %v", item.Name, err))
	}
}

func (t *Terminal) scanMissed(code string) {
	t.publish(NoticeScanMiss, fmt.Sprintf("Product with barcode %q not found", code))
}

// ── view & notices ────────────────────────────────────────────────────────────

func (t *Terminal) View() View {
	t.mu.Lock()
	v := View{
		Lines:    t.cart.Lines(),
		Totals:   t.cart.Totals(),
		TaxRate:  t.cart.TaxRate(),
		Settings: t.settings,
	}
	if t.customer != nil {
		c := *t.customer
		v.Customer = &c
	}
	t.mu.Unlock()

	v.CustomerSearch = t.CustomerResults()
	v.Checkout = t.machine.State()
	v.InFlight = t.machine.InFlight()
	if err := t.machine.LastError(); err != nil {
		v.LastError = OperatorMessage(err)
	}
	return v
}

// Notices returns the latest notices, oldest first.
func (t *Terminal) Notices() []Notice {
	t.noticeMu.Lock()
	defer t.noticeMu.Unlock()
	out := make([]Notice, len(t.notices))
	copy(out, t.notices)
	return out
}

func (t *Terminal) publish(kind NoticeKind, message string) {
	t.bus.Publish(NoticeTopic, Notice{Kind: kind, Message: message, At: t.clock.Now()})
}

func (t *Terminal) recordNotice(n Notice) {
	t.log.Info("operator notice", zap.String("kind", string(n.Kind)), zap.String("message", n.Message))
	t.noticeMu.Lock()
	defer t.noticeMu.Unlock()
	t.notices = append(t.notices, n)
	if len(t.notices) > maxNotices {
		t.notices = t.notices[len(t.notices)-maxNotices:]
	}
}

// ── helpers ───────────────────────────────────────────────────────────────────

// mutate runs fn under the session lock unless a sale is being submitted,
// then re-applies auto walk-in.
func (t *Terminal) mutate(fn func() error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.machine.InFlight() {
		return checkout.ErrSubmissionInFlight
	}
	if err := fn(); err != nil {
		return err
	}
	t.applyAutoWalkInLocked()
	return nil
}

func (t *Terminal) applyAutoWalkInLocked() {
	if t.settings.AutoWalkIn && t.customer == nil && !t.cart.IsEmpty() {
		walkIn := customer.WalkIn()
		t.customer = &walkIn
	}
}

func (t *Terminal) saveLocked(next settings.Settings) error {
	if err := t.store.Save(next); err != nil {
		t.log.Error("save settings failed", zap.Error(err))
		if !errors.Is(err, settings.ErrNegativeTaxRate) {
			t.publish(NoticeSettings, "Settings could not be saved: "+err.Error())
		}
		return err
	}
	t.settings = next
	return nil
}

// basket exposes the session to the checkout machine.
type basket struct{ t *Terminal }

func (b basket) Snapshot() cart.Snapshot {
	b.t.mu.Lock()
	defer b.t.mu.Unlock()
	return b.t.cart.Snapshot()
}

func (b basket) Customer() *customer.Reference {
	b.t.mu.Lock()
	defer b.t.mu.Unlock()
	if b.t.customer == nil {
		return nil
	}
	c := *b.t.customer
	return &c
}

// Reset clears the cart, customer and discount after a recorded sale. The
// tax rate stays.
func (b basket) Reset() {
	b.t.mu.Lock()
	defer b.t.mu.Unlock()
	b.t.cart.Clear()
	_ = b.t.cart.SetDiscount(0)
	b.t.customer = nil
}
