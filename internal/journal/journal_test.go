package journal

import (
	"context"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestParseAmount(t *testing.T) {
	assert.True(t, decimal.RequireFromString("19.50").Equal(ParseAmount("19.5")))
	assert.True(t, decimal.Zero.Equal(ParseAmount("")))
	assert.True(t, decimal.Zero.Equal(ParseAmount("abc")))
}

func TestMemoryRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	failed := &Entry{CheckoutID: "c-1", ServiceID: 10, Amount: ParseAmount("10"), Currency: "USD", Status: StatusFailed, Error: "Insufficient funds"}
	ok := &Entry{CheckoutID: "c-1", ServiceID: 10, Amount: ParseAmount("10"), Currency: "USD", Status: StatusSubmitted, TransactionID: "tx-1"}
	other := &Entry{CheckoutID: "c-2", ServiceID: 11, Status: StatusSubmitted, TransactionID: "tx-2"}

	require.NoError(t, repo.Save(ctx, failed))
	require.NoError(t, repo.Save(ctx, ok))
	require.NoError(t, repo.Save(ctx, other))

	assert.Equal(t, int64(1), failed.ID)
	assert.False(t, ok.CreatedAt.IsZero())

	entries, err := repo.FindByCheckout(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, StatusFailed, entries[0].Status)
	assert.Equal(t, StatusSubmitted, entries[1].Status)

	entry, err := repo.FindByTransaction(ctx, "tx-2")
	require.NoError(t, err)
	assert.Equal(t, "c-2", entry.CheckoutID)

	_, err = repo.FindByTransaction(ctx, "missing")
	assert.ErrorIs(t, err, ErrEntryNotFound)
}
