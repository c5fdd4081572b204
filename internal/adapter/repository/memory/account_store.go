// Package memory provides in-process implementations of the account store
// and the per-account locker.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/iho/goaccount/internal/domain"
)

// AccountStore keeps account snapshots in a map.
type AccountStore struct {
	mu        sync.RWMutex
	snapshots map[domain.AccountID]domain.AccountSnapshot
}

// NewAccountStore creates an empty AccountStore.
func NewAccountStore() *AccountStore {
	return &AccountStore{
		snapshots: make(map[domain.AccountID]domain.AccountSnapshot),
	}
}

// Save stores a snapshot of account, replacing any previous one.
func (s *AccountStore) Save(_ context.Context, account *domain.Account) error {
	snapshot := account.Snapshot()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[snapshot.ID] = snapshot
	return nil
}

// GetByID rebuilds the stored account.
func (s *AccountStore) GetByID(_ context.Context, id domain.AccountID) (*domain.Account, error) {
	s.mu.RLock()
	snapshot, ok := s.snapshots[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrAccountNotFound, id)
	}
	return domain.RestoreAccount(snapshot)
}

// List returns every stored account in map order.
func (s *AccountStore) List(_ context.Context) ([]*domain.Account, error) {
	s.mu.RLock()
	snapshots := make([]domain.AccountSnapshot, 0, len(s.snapshots))
	for _, snapshot := range s.snapshots {
		snapshots = append(snapshots, snapshot)
	}
	s.mu.RUnlock()

	accounts := make([]*domain.Account, 0, len(snapshots))
	for _, snapshot := range snapshots {
		account, err := domain.RestoreAccount(snapshot)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}
