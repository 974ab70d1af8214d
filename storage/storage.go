// Package storage defines the claim ledger that records which wallets have
// received the airdrop.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a wallet has no claim record.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyClaimed is returned when reserving a wallet that already
	// holds a pending or completed claim.
	ErrAlreadyClaimed = errors.New("wallet already claimed")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)

// ClaimStatus is the lifecycle state of a claim.
type ClaimStatus string

const (
	// ClaimPending marks a reservation whose transfer has not been confirmed.
	ClaimPending ClaimStatus = "pending"
	// ClaimCompleted marks a confirmed transfer.
	ClaimCompleted ClaimStatus = "completed"
)

// Claim is one wallet's airdrop record.
type Claim struct {
	Wallet    string      `json:"wallet"`
	Status    ClaimStatus `json:"status"`
	Signature string      `json:"signature,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// ClaimStore persists claims. Reserve is the only write that decides
// ownership of a wallet and must be atomic across concurrent callers.
type ClaimStore interface {
	// Get returns the claim for wallet or ErrNotFound.
	Get(ctx context.Context, wallet string) (*Claim, error)

	// IsClaimed reports whether wallet has a pending or completed claim.
	IsClaimed(ctx context.Context, wallet string) (bool, error)

	// Reserve inserts a pending claim. Returns ErrAlreadyClaimed if any
	// claim for wallet exists.
	Reserve(ctx context.Context, wallet string) error

	// Complete marks the claim confirmed with its transaction signature.
	// Returns ErrNotFound if no claim was reserved.
	Complete(ctx context.Context, wallet, signature string) error

	// Release drops a pending claim after a definitive failure. Completed
	// claims are never released. Releasing an unknown wallet is a no-op.
	Release(ctx context.Context, wallet string) error
}

// ValidateWallet rejects empty keys.
func ValidateWallet(wallet string) error {
	if wallet == "" {
		return ErrInvalidInput
	}
	return nil
}
