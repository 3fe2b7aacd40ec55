package cache

import (
	"context"
	"sync"

	"github.com/amirasaad/btcvest/pkg/price"
)

// MemorySlot implements price.Store in process memory.
type MemorySlot struct {
	mu    sync.RWMutex
	quote price.Quote
	set   bool
}

// NewMemorySlot creates an empty in-memory price slot.
func NewMemorySlot() *MemorySlot {
	return &MemorySlot{}
}

// Load returns the cached quote, if any.
func (s *MemorySlot) Load(_ context.Context) (price.Quote, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.quote, s.set, nil
}

// Save replaces the cached quote.
func (s *MemorySlot) Save(_ context.Context, q price.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quote = q
	s.set = true
	return nil
}
