/*
memory.go - In-memory CDO store (for testing/dev)

PURPOSE:
  Map-backed Store implementation. Version checks behave like the SQLite
  store's optimistic locking, so ledger conflict handling gets exercised
  in tests without a database.
*/
package cdo

import (
	"context"
	"sort"
	"sync"

	"github.com/hrsuite/dtr-engine/dtr"
)

type MemoryStore struct {
	mu           sync.RWMutex
	transactions map[TransactionID]*CreditTransaction
	entries      map[EntryID]*ConsumeEntry
	createOrder  []TransactionID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		transactions: make(map[TransactionID]*CreditTransaction),
		entries:      make(map[EntryID]*ConsumeEntry),
	}
}

func (m *MemoryStore) CreateTransaction(_ context.Context, tx *CreditTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *tx
	cp.Version = 1
	m.transactions[tx.ID] = &cp
	m.createOrder = append(m.createOrder, tx.ID)
	tx.Version = 1
	return nil
}

func (m *MemoryStore) GetTransaction(_ context.Context, id TransactionID) (*CreditTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	tx, ok := m.transactions[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	cp := *tx
	cp.WorkDates = append([]dtr.Date{}, tx.WorkDates...)
	return &cp, nil
}

func (m *MemoryStore) UpdateTransaction(_ context.Context, tx *CreditTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.transactions[tx.ID]
	if !ok {
		return ErrTransactionNotFound
	}
	if stored.Version != tx.Version {
		return ErrConcurrentModification
	}
	cp := *tx
	cp.Version = stored.Version + 1
	cp.WorkDates = append([]dtr.Date{}, tx.WorkDates...)
	m.transactions[tx.ID] = &cp
	tx.Version = cp.Version
	return nil
}

func (m *MemoryStore) ListTransactions(_ context.Context, employeeID string) ([]*CreditTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*CreditTransaction
	// Newest first.
	for i := len(m.createOrder) - 1; i >= 0; i-- {
		tx := m.transactions[m.createOrder[i]]
		if employeeID == "" || tx.EmployeeID == employeeID {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) CountTransactionsOn(_ context.Context, day dtr.Date) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, tx := range m.transactions {
		if dtr.DateOf(tx.CreatedAt).Equal(day) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CreateEntries(_ context.Context, entries []*ConsumeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		cp := *e
		cp.Version = 1
		m.entries[e.ID] = &cp
		e.Version = 1
	}
	return nil
}

func (m *MemoryStore) GetEntry(_ context.Context, id EntryID) (*ConsumeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[id]
	if !ok {
		return nil, ErrEntryNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *MemoryStore) UpdateEntry(_ context.Context, entry *ConsumeEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.entries[entry.ID]
	if !ok {
		return ErrEntryNotFound
	}
	if stored.Version != entry.Version {
		return ErrConcurrentModification
	}
	cp := *entry
	cp.Version = stored.Version + 1
	m.entries[entry.ID] = &cp
	entry.Version = cp.Version
	return nil
}

func (m *MemoryStore) ListEntries(_ context.Context, txID TransactionID) ([]*ConsumeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ConsumeEntry
	for _, e := range m.entries {
		if e.TransactionID == txID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sortEntries(out)
	return out, nil
}

func (m *MemoryStore) ListEntriesByEmployee(_ context.Context, employeeID string) ([]*ConsumeEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*ConsumeEntry
	for _, e := range m.entries {
		if e.EmployeeID == employeeID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sortEntries(out)
	return out, nil
}

func sortEntries(entries []*ConsumeEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Date.Equal(entries[j].Date) {
			return entries[i].Date.Before(entries[j].Date)
		}
		return entries[i].ID < entries[j].ID
	})
}
