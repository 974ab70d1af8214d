package memory

import (
	"context"
	"sync"
	"time"

	"solairdrop/storage"
)

// ClaimStore is an in-memory implementation of storage.ClaimStore. Its
// contents live only as long as the process.
type ClaimStore struct {
	mu   sync.RWMutex
	data map[string]*storage.Claim // keyed by wallet
	now  func() time.Time
}

var _ storage.ClaimStore = (*ClaimStore)(nil)

// NewClaimStore creates a new in-memory claim store.
func NewClaimStore() *ClaimStore {
	return &ClaimStore{
		data: make(map[string]*storage.Claim),
		now:  time.Now,
	}
}

// Get retrieves a claim by wallet. Returns ErrNotFound if not exists.
func (s *ClaimStore) Get(_ context.Context, wallet string) (*storage.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[wallet]
	if !exists {
		return nil, storage.ErrNotFound
	}
	claimCopy := *c
	return &claimCopy, nil
}

// IsClaimed reports whether wallet has any claim record.
func (s *ClaimStore) IsClaimed(_ context.Context, wallet string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.data[wallet]
	return exists, nil
}

// Reserve adds a pending claim. Returns ErrAlreadyClaimed if wallet exists.
func (s *ClaimStore) Reserve(_ context.Context, wallet string) error {
	if err := storage.ValidateWallet(wallet); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[wallet]; exists {
		return storage.ErrAlreadyClaimed
	}
	now := s.now().UTC()
	s.data[wallet] = &storage.Claim{
		Wallet:    wallet,
		Status:    storage.ClaimPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// Complete marks wallet's claim as confirmed.
func (s *ClaimStore) Complete(_ context.Context, wallet, signature string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, exists := s.data[wallet]
	if !exists {
		return storage.ErrNotFound
	}
	c.Status = storage.ClaimCompleted
	c.Signature = signature
	c.UpdatedAt = s.now().UTC()
	return nil
}

// Release removes a pending claim.
func (s *ClaimStore) Release(_ context.Context, wallet string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, exists := s.data[wallet]; exists && c.Status == storage.ClaimPending {
		delete(s.data, wallet)
	}
	return nil
}

// Len returns the number of stored claims.
func (s *ClaimStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
