package history

import (
	"context"
	"sync"

	"github.com/doeshing/strike-go/internal/domain"
	"github.com/doeshing/strike-go/internal/ports"
)

// MemoryStore keeps the session's exchanges in append order. Entries are
// never edited or removed; readers always receive copies.
type MemoryStore struct {
	mu        sync.RWMutex
	exchanges []domain.Exchange
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Append implements ports.HistoryRepository.
func (m *MemoryStore) Append(_ context.Context, exchange domain.Exchange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exchanges = append(m.exchanges, exchange)
	return nil
}

// All returns every exchange, oldest first.
func (m *MemoryStore) All() []domain.Exchange {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Exchange, len(m.exchanges))
	copy(out, m.exchanges)
	return out
}

// Recent returns up to n exchanges, newest first.
func (m *MemoryStore) Recent(n int) []domain.Exchange {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	if n > len(m.exchanges) {
		n = len(m.exchanges)
	}
	out := make([]domain.Exchange, 0, n)
	for i := len(m.exchanges) - 1; i >= len(m.exchanges)-n; i-- {
		out = append(out, m.exchanges[i])
	}
	return out
}

// Len returns the number of stored exchanges.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.exchanges)
}

var _ ports.HistoryRepository = (*MemoryStore)(nil)
