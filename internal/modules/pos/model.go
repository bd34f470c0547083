package pos

import (
	"errors"
	"time"

	"github.com/georgemunganga/printa-terminal/internal/modules/auth"
	"github.com/georgemunganga/printa-terminal/internal/modules/cart"
	"github.com/georgemunganga/printa-terminal/internal/modules/checkout"
	"github.com/georgemunganga/printa-terminal/internal/modules/customer"
	"github.com/georgemunganga/printa-terminal/internal/modules/settings"
)

// NoticeTopic is the bus topic operator notices are published on.
const NoticeTopic = "pos:notice"

const maxNotices = 50

var ErrUnknownItem = errors.New("item not found in catalog")

// operatorText is the wording shown at the counter for errors the operator
// can act on.
var operatorText = map[error]string{
	checkout.ErrEmptyCart:    "Cart is empty!",
	auth.ErrNotAuthenticated: "Not authenticated. Please refresh the page.",
}

// OperatorMessage renders err for the operator.
func OperatorMessage(err error) string {
	for target, text := range operatorText {
		if errors.Is(err, target) {
			return text
		}
	}
	return err.Error()
}

// NoticeKind classifies an operator notice.
type NoticeKind string

const (
	NoticeScanMiss      NoticeKind = "SCAN_MISS"
	NoticeSaleComplete  NoticeKind = "SALE_COMPLETED"
	NoticeSaleFailed    NoticeKind = "SALE_FAILED"
	NoticeReceipt       NoticeKind = "RECEIPT_FAILED"
	NoticeSettings      NoticeKind = "SETTINGS_FAILED"
	NoticeCatalog       NoticeKind = "CATALOG_UPDATED"
	NoticeCatalogDown   NoticeKind = "CATALOG_UNAVAILABLE"
	NoticeDirectoryDown NoticeKind = "DIRECTORY_UNAVAILABLE"
)

// Notice is a message the operator should see.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
	At      time.Time  `json:"at"`
}

// View is the terminal state the front end renders.
type View struct {
	Lines          []cart.Line         `json:"lines"`
	Totals         cart.Totals         `json:"totals"`
	TaxRate        float64             `json:"tax_rate"`
	Customer       *customer.Reference `json:"customer"`
	CustomerSearch CustomerResults     `json:"customer_search"`
	Settings       settings.Settings   `json:"settings"`
	Checkout       checkout.State      `json:"checkout"`
	InFlight       bool                `json:"in_flight"`
	LastError      string              `json:"last_error,omitempty"`
}

// CustomerResults is the latest search-as-you-type lookup.
type CustomerResults struct {
	Query   string               `json:"query"`
	Results []customer.Reference `json:"results"`
	Pending bool                 `json:"pending"`
	Error   string               `json:"error,omitempty"`
}
