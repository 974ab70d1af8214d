package chainsol

import (
	"errors"
	"math/big"

	"github.com/gagliardetto/solana-go/programs/token"
)

var (
	ErrAccountNotFound   = errors.New("account not found")
	ErrNotTokenAccount   = errors.New("account is not an SPL token account")
	ErrConfirmTimeout    = errors.New("timed out waiting for confirmation")
	ErrTransactionFailed = errors.New("transaction failed")
)

// TokenAmount - Balance of a token account in base units
type TokenAmount struct {
	Amount   uint64 `json:"amount"`
	Decimals uint8  `json:"decimals"`
}

// UIAmount renders the amount in whole tokens.
func (a TokenAmount) UIAmount() string {
	v := new(big.Rat).SetFrac(
		new(big.Int).SetUint64(a.Amount),
		new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(a.Decimals)), nil),
	)
	return v.FloatString(int(a.Decimals))
}

// TokenAccount - Decoded SPL token account
type TokenAccount struct {
	Mint   string             `json:"mint"`
	Owner  string             `json:"owner"`
	Amount uint64             `json:"amount"`
	State  token.AccountState `json:"state"`
}

// Frozen reports whether transfers into the account are blocked.
func (a *TokenAccount) Frozen() bool {
	return a.State == token.Frozen
}
