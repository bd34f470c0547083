package receipt

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/georgemunganga/printa-terminal/internal/modules/checkout"
	"github.com/georgemunganga/printa-terminal/internal/money"
)

// Columns is the character width of an 80 mm thermal roll.
const Columns = 42

// Renderer outputs a receipt.
type Renderer interface {
	Render(ctx context.Context, r Receipt) error
}

// Opener returns the destination for one receipt; it is closed after writing.
type Opener func() (io.WriteCloser, error)

// DeviceOpener appends to a printer device or spool file.
func DeviceOpener(path string) Opener {
	return func() (io.WriteCloser, error) {
		return os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	}
}

// WriterOpener writes every receipt to w without closing it.
func WriterOpener(w io.Writer) Opener {
	return func() (io.WriteCloser, error) { return nopCloser{w}, nil }
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// ThermalRenderer prints plain-text receipts sized for a thermal printer.
type ThermalRenderer struct {
	open Opener
}

func NewThermalRenderer(open Opener) *ThermalRenderer {
	return &ThermalRenderer{open: open}
}

func (t *ThermalRenderer) Render(ctx context.Context, r Receipt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	w, err := t.open()
	if err != nil {
		return fmt.Errorf("open printer: %w", err)
	}
	_, werr := io.WriteString(w, Format(r))
	cerr := w.Close()
	if werr != nil {
		return fmt.Errorf("write receipt: %w", werr)
	}
	if cerr != nil {
		return fmt.Errorf("close printer: %w", cerr)
	}
	return nil
}

// Format lays r out in Columns-wide text.
func Format(r Receipt) string {
	var b strings.Builder
	rule := strings.Repeat("-", Columns)

	b.WriteString(center(r.StoreName))
	if r.StoreAddress != "" {
		b.WriteString(center(r.StoreAddress))
	}
	if r.StorePhone != "" {
		b.WriteString(center("Tel: " + r.StorePhone))
	}
	b.WriteString(rule + "\n")

	invoice := r.InvoiceID
	if len(invoice) > invoiceIDChars {
		invoice = invoice[:invoiceIDChars]
	}
	fmt.Fprintf(&b, "Invoice #: %s\n", invoice)
	fmt.Fprintf(&b, "Date: %s\n", r.Date.Format("Jan 2, 2006 03:04 PM"))
	if r.CustomerName != "" {
		fmt.Fprintf(&b, "Customer: %s\n", r.CustomerName)
	}
	b.WriteString(rule + "\n")

	b.WriteString(itemRow("Item", "Qty", "Price"))
	for _, l := range r.Items {
		b.WriteString(itemRow(l.Name, fmt.Sprint(l.Quantity), "$"+money.Format(l.Total)))
	}
	b.WriteString(rule + "\n")

	b.WriteString(pair("Subtotal:", "$"+money.Format(r.Subtotal)))
	if r.Discount > 0 {
		b.WriteString(pair("Discount:", "-$"+money.Format(r.Discount)))
	}
	if r.Tax > 0 {
		b.WriteString(pair("Tax:", "$"+money.Format(r.Tax)))
	}
	b.WriteString(pair("TOTAL:", "$"+money.Format(r.Total)))
	b.WriteString(rule + "\n")

	b.WriteString(pair("Payment Method:", strings.ToUpper(r.PaymentMethod)))
	if r.Tendered != nil && strings.EqualFold(r.PaymentMethod, string(checkout.MethodCash)) {
		change := 0.0
		if r.Change != nil {
			change = *r.Change
		}
		b.WriteString(pair("Cash Tendered:", "$"+money.Format(*r.Tendered)))
		b.WriteString(pair("Change:", "$"+money.Format(change)))
	}
	b.WriteString(rule + "\n")

	phone := r.StorePhone
	if phone == "" {
		phone = "us"
	}
	b.WriteString(center("Thank You!"))
	b.WriteString(center("Please come again"))
	b.WriteString(center("Questions? Call " + phone))
	b.WriteString("\n\n\n")
	return b.String()
}

// Printer records receipts for sales using a Renderer.
type Printer struct {
	renderer Renderer
	store    Store
	now      func() time.Time
}

func NewPrinter(renderer Renderer, store Store) *Printer {
	return &Printer{renderer: renderer, store: store, now: time.Now}
}

func (p *Printer) Print(ctx context.Context, saleID string, sale checkout.PendingSale, customerName string) error {
	date := p.now()
	if t, err := time.Parse(time.RFC3339Nano, sale.CreatedAt); err == nil {
		date = t.Local()
	}
	return p.renderer.Render(ctx, FromSale(saleID, sale, customerName, p.store, date))
}

// ── layout helpers ────────────────────────────────────────────────────────────

func center(s string) string {
	s = truncate(s, Columns)
	pad := (Columns - utf8.RuneCountInString(s)) / 2
	return strings.Repeat(" ", pad) + s + "\n"
}

func pair(label, value string) string {
	gap := Columns - utf8.RuneCountInString(label) - utf8.RuneCountInString(value)
	if gap < 1 {
		gap = 1
	}
	return label + strings.Repeat(" ", gap) + value + "\n"
}

const (
	qtyWidth   = 5
	priceWidth = 11
	nameWidth  = Columns - qtyWidth - priceWidth
)

func itemRow(name, qty, price string) string {
	name = truncate(name, nameWidth-1)
	return fmt.Sprintf("%-*s%*s%*s\n", nameWidth, name, qtyWidth, qty, priceWidth, price)
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
