package checkout

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/georgemunganga/printa-terminal/internal/modules/auth"
	"github.com/georgemunganga/printa-terminal/internal/modules/cart"
	"github.com/georgemunganga/printa-terminal/internal/modules/customer"
)

// State is a step of the checkout flow.
type State string

const (
	StateIdle            State = "IDLE"
	StateCustomerPending State = "CUSTOMER_PENDING"
	StateMethodSelection State = "METHOD_SELECTION"
	StateCashEntry       State = "CASH_ENTRY"
	StateSubmitting      State = "SUBMITTING"
	StateCompleted       State = "COMPLETED"
	StateFailed          State = "FAILED"
)

// validTransitions defines the allowed checkout state machine.
var validTransitions = map[State][]State{
	StateIdle:            {StateCustomerPending, StateMethodSelection},
	StateCustomerPending: {StateMethodSelection, StateIdle},
	StateMethodSelection: {StateCashEntry, StateSubmitting, StateIdle},
	StateCashEntry:       {StateSubmitting, StateMethodSelection, StateIdle},
	StateSubmitting:      {StateCompleted, StateFailed},
	StateCompleted:       {StateIdle},
	StateFailed:          {StateMethodSelection, StateIdle},
}

func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Method is how the customer pays.
type Method string

const (
	MethodCash    Method = "cash"
	MethodCard    Method = "card"
	MethodDigital Method = "digital"
)

// ParseMethod accepts cash, card or digital in any case.
func ParseMethod(raw string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(raw)))
	switch m {
	case MethodCash, MethodCard, MethodDigital:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q (allowed: cash, card, digital)", ErrInvalidMethod, raw)
}

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrTenderRequired     = errors.New("please enter the cash amount received")
	ErrInsufficientTender = errors.New("cash received is less than the total")
	ErrSubmissionInFlight = errors.New("a sale is already being submitted")
	ErrInvalidMethod      = errors.New("invalid payment method")
	ErrInvalidTransition  = errors.New("invalid checkout step")
	ErrNotAuthenticated   = auth.ErrNotAuthenticated
)

const (
	saleStatusPending = "pending"
	saleSource        = "POS"
	saleVersion       = "1.0"
)

// SaleLine is one line of a recorded sale.
type SaleLine struct {
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	ProductNumber string  `json:"product_number"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	TotalPrice    float64 `json:"total_price"`
}

// PendingSale is the write-once record of a completed checkout, awaiting
// back-office finalization.
type PendingSale struct {
	EmployeeID    string `json:"employee_id"`
	EmployeeEmail string `json:"employee_email"`
	EmployeeType  string `json:"employee_type"`

	CustomerID *string    `json:"customer_id"`
	Items      []SaleLine `json:"items"`
	Subtotal   float64    `json:"subtotal"`
	Tax        float64    `json:"tax"`
	Discount   float64    `json:"discount"`
	Total      float64    `json:"total"`

	PaymentMethod  Method   `json:"payment_method"`
	TenderedAmount *float64 `json:"tendered_amount,omitempty"`
	ChangeGiven    *float64 `json:"change_given,omitempty"`

	Status      string `json:"status"`
	IsPending   bool   `json:"is_pending"`
	IsFinalized bool   `json:"is_finalized"`
	CreatedAt   string `json:"created_at"`
	CreatedAtTS int64  `json:"created_at_ts"`
	Source      string `json:"source"`
	Version     string `json:"version"`
}

// NewPendingSale freezes a cart snapshot into a sale. tendered is nil for
// non-cash methods.
func NewPendingSale(snap cart.Snapshot, method Method, tendered *float64, cust *customer.Reference, id auth.Identity, now time.Time) PendingSale {
	items := make([]SaleLine, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		items = append(items, SaleLine{
			ProductID:     l.ItemID,
			ProductName:   l.Name,
			ProductNumber: l.ProductNumber,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			TotalPrice:    l.LineTotal,
		})
	}
	sale := PendingSale{
		EmployeeID:    id.Subject,
		EmployeeEmail: id.EmployeeEmail(),
		EmployeeType:  id.EmployeeType(),
		Items:         items,
		Subtotal:      snap.Totals.Subtotal,
		Tax:           snap.Totals.Tax,
		Discount:      snap.Totals.Discount,
		Total:         snap.Totals.Total,
		PaymentMethod: method,
		Status:        saleStatusPending,
		IsPending:     true,
		IsFinalized:   false,
		CreatedAt:     now.UTC().Format(time.RFC3339Nano),
		CreatedAtTS:   now.UnixMilli(),
		Source:        saleSource,
		Version:       saleVersion,
	}
	if cust != nil && cust.ID != "" {
		cid := cust.ID
		sale.CustomerID = &cid
	}
	if method == MethodCash && tendered != nil {
		t := *tendered
		change := t - sale.Total
		sale.TenderedAmount = &t
		sale.ChangeGiven = &change
	}
	return sale
}

// Outcome is the result of a successful submission.
type Outcome struct {
	SaleID       string      `json:"sale_id"`
	Sale         PendingSale `json:"sale"`
	CustomerName string      `json:"customer_name"`
	// ReceiptErr is set when the sale was recorded but printing failed.
	ReceiptErr error `json:"-"`
}

// Change returns the change owed on a cash sale.
func (o Outcome) Change() (float64, bool) {
	if o.Sale.ChangeGiven == nil {
		return 0, false
	}
	return *o.Sale.ChangeGiven, true
}
