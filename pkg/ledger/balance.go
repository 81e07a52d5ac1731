package ledger

import (
	"sync"
	"sync/atomic"

	"github.com/hleb-albau/ledgercore/internal/planlang"
	"github.com/hleb-albau/ledgercore/internal/walletkey"
)

// BalanceStore is a concurrent mapping from account identity to a
// signed 64-bit token count. Reads and arithmetic updates take a shared
// lock; only first-time inserts promote to an exclusive lock, and the
// insert path re-checks presence after promotion since another writer
// may have raced in between.
type BalanceStore struct {
	mu       sync.RWMutex
	balances map[walletkey.Account]*int64
}

// NewBalanceStore returns an empty store.
func NewBalanceStore() *BalanceStore {
	return &BalanceStore{balances: make(map[walletkey.Account]*int64)}
}

// ApplyPayment credits p.Tokens to p.To, inserting the account at
// p.Tokens if it doesn't exist yet.
func (s *BalanceStore) ApplyPayment(p planlang.Payment) {
	s.mu.RLock()
	cell, ok := s.balances[p.To]
	s.mu.RUnlock()
	if ok {
		atomic.AddInt64(cell, p.Tokens)
		return
	}

	// The key wasn't present a moment ago, but another writer may have
	// inserted it by the time we take the write lock; check again.
	s.mu.Lock()
	defer s.mu.Unlock()
	if cell, ok := s.balances[p.To]; ok {
		atomic.AddInt64(cell, p.Tokens)
		return
	}
	v := p.Tokens
	s.balances[p.To] = &v
}

// Debit atomically decrements account's balance by n iff the current
// balance is at least n. It reports false if the account is absent or
// underfunded, and never leaves the balance partially updated.
func (s *BalanceStore) Debit(account walletkey.Account, n int64) bool {
	s.mu.RLock()
	cell, ok := s.balances[account]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	for {
		current := atomic.LoadInt64(cell)
		if current < n {
			return false
		}
		if atomic.CompareAndSwapInt64(cell, current, current-n) {
			return true
		}
	}
}

// Balance returns a snapshot of account's balance.
func (s *BalanceStore) Balance(account walletkey.Account) (int64, bool) {
	s.mu.RLock()
	cell, ok := s.balances[account]
	s.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return atomic.LoadInt64(cell), true
}

// Has reports whether account has any balance entry at all.
func (s *BalanceStore) Has(account walletkey.Account) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.balances[account]
	return ok
}
