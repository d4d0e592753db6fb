package journal

import (
	"context"
	"errors"
	"github.com/shopspring/decimal"
	"time"
)

var ErrEntryNotFound = errors.New("journal entry not found")

type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusFailed    Status = "failed"
)

// Entry records one payment submission attempt.
type Entry struct {
	ID            int64
	CheckoutID    string
	ServiceID     int
	CategoryID    int
	Account       string
	Amount        decimal.Decimal
	Currency      string
	TransactionID string
	Status        Status
	Error         string
	CreatedAt     time.Time
}

type Repository interface {
	Save(ctx context.Context, entry *Entry) error
	FindByCheckout(ctx context.Context, checkoutID string) ([]Entry, error)
	FindByTransaction(ctx context.Context, transactionID string) (*Entry, error)
}

// ParseAmount turns a form amount into a decimal. Unparseable input yields
// zero so the attempt is still recorded.
func ParseAmount(raw string) decimal.Decimal {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return amount
}
