package cart

import "github.com/georgemunganga/printa-terminal/internal/modules/catalog"

// Cart is the working basket. It is not safe for concurrent use; the terminal
// session serializes access.
type Cart struct {
	lines    []Line
	discount float64
	taxRate  float64
}

// New returns an empty cart charging taxRate.
func New(taxRate float64) *Cart {
	if taxRate < 0 {
		taxRate = 0
	}
	return &Cart{taxRate: taxRate}
}

// AddItem appends the item with quantity 1, or bumps the existing line.
// Stock is not checked.
func (c *Cart) AddItem(item catalog.Item) {
	if i := c.index(item.ID); i >= 0 {
		c.lines[i].Quantity++
		return
	}
	c.lines = append(c.lines, Line{Item: item, Quantity: 1})
}

// SetQuantity replaces a line's quantity; qty <= 0 removes the line. Unknown
// ids are a no-op.
func (c *Cart) SetQuantity(id string, qty int) {
	if qty <= 0 {
		c.RemoveItem(id)
		return
	}
	if i := c.index(id); i >= 0 {
		c.lines[i].Quantity = qty
	}
}

func (c *Cart) RemoveItem(id string) {
	if i := c.index(id); i >= 0 {
		c.lines = append(c.lines[:i], c.lines[i+1:]...)
	}
}

// Clear drops all lines. Discount and rate are kept.
func (c *Cart) Clear() { c.lines = nil }

func (c *Cart) SetDiscount(amount float64) error {
	if amount < 0 {
		return ErrNegativeDiscount
	}
	c.discount = amount
	return nil
}

// SetTaxRate sets the fractional rate, e.g. 0.08 for 8%.
func (c *Cart) SetTaxRate(rate float64) error {
	if rate < 0 {
		return ErrNegativeTaxRate
	}
	c.taxRate = rate
	return nil
}

func (c *Cart) Discount() float64 { return c.discount }
func (c *Cart) TaxRate() float64  { return c.taxRate }
func (c *Cart) Len() int          { return len(c.lines) }
func (c *Cart) IsEmpty() bool     { return len(c.lines) == 0 }

// Lines returns a copy of the lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Totals() Totals {
	return ComputeTotals(c.lines, c.discount, c.taxRate)
}

func (c *Cart) Snapshot() Snapshot {
	lines := make([]SnapshotLine, 0, len(c.lines))
	for _, l := range c.lines {
		lines = append(lines, SnapshotLine{
			ItemID:        l.Item.ID,
			Name:          l.Item.Name,
			ProductNumber: l.Item.ProductNumber,
			Category:      l.Item.Category,
			Quantity:      l.Quantity,
			UnitPrice:     l.Item.Price,
			LineTotal:     l.Total(),
		})
	}
	return Snapshot{Lines: lines, Totals: c.Totals(), TaxRate: c.taxRate}
}

// ComputeTotals prices lines. Tax applies to the discounted subtotal and
// nothing is rounded; a discount above the subtotal yields negative figures.
func ComputeTotals(lines []Line, discount, rate float64) Totals {
	var subtotal float64
	for _, l := range lines {
		subtotal += l.Total()
	}
	tax := (subtotal - discount) * rate
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    subtotal - discount + tax,
	}
}

func (c *Cart) index(id string) int {
	for i, l := range c.lines {
		if l.Item.ID == id {
			return i
		}
	}
	return -1
}
