package checkout

import (
	"sync"
	"time"
)

const defaultCheckoutTTL = 30 * time.Minute

type RegistryInterface interface {
	Put(c *Checkout)
	Get(id, owner string) (*Checkout, error)
	Remove(id, owner string) error
	StartCleanup(interval time.Duration) func()
	Len() int
}

// Registry holds open checkouts. Each owner (widget token) has at most one
// open checkout; opening another closes the previous one.
type Registry struct {
	mu        sync.RWMutex
	checkouts map[string]*Checkout
	byOwner   map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		checkouts: make(map[string]*Checkout),
		byOwner:   make(map[string]string),
	}
}

func (r *Registry) Put(c *Checkout) {
	r.mu.Lock()
	previous, ok := r.checkouts[r.byOwner[c.Owner]]
	if ok {
		delete(r.checkouts, previous.ID)
	}
	r.checkouts[c.ID] = c
	r.byOwner[c.Owner] = c.ID
	r.mu.Unlock()

	if ok {
		previous.close()
	}
}

// Get returns the checkout only to the owner that opened it; anyone else
// sees ErrCheckoutNotFound.
func (r *Registry) Get(id, owner string) (*Checkout, error) {
	r.mu.RLock()
	c, exists := r.checkouts[id]
	r.mu.RUnlock()

	if !exists || c.Owner != owner {
		return nil, ErrCheckoutNotFound
	}
	if c.expired(time.Now()) {
		r.remove(c)
		return nil, ErrCheckoutNotFound
	}
	return c, nil
}

func (r *Registry) Remove(id, owner string) error {
	c, err := r.Get(id, owner)
	if err != nil {
		return err
	}
	r.remove(c)
	return nil
}

func (r *Registry) remove(c *Checkout) {
	r.mu.Lock()
	if r.checkouts[c.ID] == c {
		delete(r.checkouts, c.ID)
		if r.byOwner[c.Owner] == c.ID {
			delete(r.byOwner, c.Owner)
		}
	}
	r.mu.Unlock()

	c.close()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.checkouts)
}

func (r *Registry) sweep(now time.Time) {
	r.mu.RLock()
	var expired []*Checkout
	for _, c := range r.checkouts {
		if c.expired(now) {
			expired = append(expired, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range expired {
		r.remove(c)
	}
}

// StartCleanup removes expired checkouts every interval until the returned
// stop function is called.
func (r *Registry) StartCleanup(interval time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case now := <-ticker.C:
				r.sweep(now)
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
