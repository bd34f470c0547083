package cart

import (
	"errors"

	"github.com/georgemunganga/printa-terminal/internal/modules/catalog"
)

var (
	ErrNegativeDiscount = errors.New("discount cannot be negative")
	ErrNegativeTaxRate  = errors.New("tax rate cannot be negative")
)

// Line is one cart entry. Quantity is always at least 1.
type Line struct {
	Item     catalog.Item `json:"item"`
	Quantity int          `json:"quantity"`
}

// Total is unit price times quantity, unrounded.
func (l Line) Total() float64 { return l.Item.Price * float64(l.Quantity) }

// Totals are derived from the lines, discount and rate on every read.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

// SnapshotLine is a frozen line as handed to checkout.
type SnapshotLine struct {
	ItemID        string  `json:"item_id"`
	Name          string  `json:"name"`
	ProductNumber string  `json:"product_number,omitempty"`
	Category      string  `json:"category"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	LineTotal     float64 `json:"line_total"`
}

// Snapshot is a copy of the cart at one instant.
type Snapshot struct {
	Lines   []SnapshotLine `json:"lines"`
	Totals  Totals         `json:"totals"`
	TaxRate float64        `json:"tax_rate"`
}

func (s Snapshot) IsEmpty() bool { return len(s.Lines) == 0 }
