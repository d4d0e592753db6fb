package journal

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository keeps entries in process memory. Used when no database
// is configured.
type MemoryRepository struct {
	mu      sync.RWMutex
	entries []Entry
	nextID  int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Save(_ context.Context, entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	entry.ID = r.nextID
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *MemoryRepository) FindByCheckout(_ context.Context, checkoutID string) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var entries []Entry
	for _, e := range r.entries {
		if e.CheckoutID == checkoutID {
			entries = append(entries, e)
		}
	}
	return entries, nil
}

func (r *MemoryRepository) FindByTransaction(_ context.Context, transactionID string) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].TransactionID == transactionID {
			entry := r.entries[i]
			return &entry, nil
		}
	}
	return nil, ErrEntryNotFound
}
