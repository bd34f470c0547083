package receipt

import (
	"time"

	"github.com/georgemunganga/printa-terminal/internal/modules/checkout"
	"github.com/georgemunganga/printa-terminal/internal/modules/customer"
)

const (
	DefaultStoreName = "NNE Convenient Store"
	invoiceIDChars   = 12
)

// Store is the header printed on every receipt.
type Store struct {
	Name    string
	Address string
	Phone   string
}

type Line struct {
	Name     string
	Quantity int
	Price    float64
	Total    float64
}

// Receipt is everything printed for one sale.
type Receipt struct {
	InvoiceID     string
	Date          time.Time
	StoreName     string
	StoreAddress  string
	StorePhone    string
	CustomerName  string
	Items         []Line
	Subtotal      float64
	Discount      float64
	Tax           float64
	Total         float64
	PaymentMethod string
	Tendered      *float64
	Change        *float64
}

// FromSale builds the receipt for a recorded sale.
func FromSale(id string, sale checkout.PendingSale, customerName string, store Store, date time.Time) Receipt {
	if customerName == "" {
		customerName = customer.WalkInName
	}
	if store.Name == "" {
		store.Name = DefaultStoreName
	}
	items := make([]Line, 0, len(sale.Items))
	for _, l := range sale.Items {
		items = append(items, Line{Name: l.ProductName, Quantity: l.Quantity, Price: l.UnitPrice, Total: l.TotalPrice})
	}
	return Receipt{
		InvoiceID:     id,
		Date:          date,
		StoreName:     store.Name,
		StoreAddress:  store.Address,
		StorePhone:    store.Phone,
		CustomerName:  customerName,
		Items:         items,
		Subtotal:      sale.Subtotal,
		Discount:      sale.Discount,
		Tax:           sale.Tax,
		Total:         sale.Total,
		PaymentMethod: string(sale.PaymentMethod),
		Tendered:      sale.TenderedAmount,
		Change:        sale.ChangeGiven,
	}
}
