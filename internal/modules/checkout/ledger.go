package checkout

import (
	"context"

	"github.com/georgemunganga/printa-terminal/internal/modules/cart"
	"github.com/georgemunganga/printa-terminal/internal/modules/customer"
)

// Ledger stores pending sales. It is append-only: a terminal can create a
// sale but never read, change or remove one.
type Ledger interface {
	Create(ctx context.Context, sale PendingSale) (string, error)
}

// Basket is the live cart and customer the machine checks out.
type Basket interface {
	Snapshot() cart.Snapshot
	Customer() *customer.Reference
	Reset()
}

// ReceiptPrinter renders the receipt of a recorded sale.
type ReceiptPrinter interface {
	Print(ctx context.Context, saleID string, sale PendingSale, customerName string) error
}
