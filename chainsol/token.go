package chainsol

import (
	"context"
	"fmt"
	"strconv"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"solairdrop/solprogram"
)

// TokenBalance returns the balance of a token account. A missing account
// yields an error wrapping ErrAccountNotFound.
func (c *SolChain) TokenBalance(ctx context.Context, account solana.PublicKey) (*TokenAmount, error) {
	var out *rpc.GetTokenAccountBalanceResult
	err := c.call(ctx, "getTokenAccountBalance", func(ctx context.Context) error {
		var err error
		out, err = c.rpc.GetTokenAccountBalance(ctx, account, c.commitment)
		return err
	})
	if err != nil {
		if solprogram.IsAccountNotFound(err) {
			return nil, fmt.Errorf("%w: %s: %w", ErrAccountNotFound, account, err)
		}
		return nil, err
	}
	if out == nil || out.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}

	amount, err := strconv.ParseUint(out.Value.Amount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid token amount %q: %w", out.Value.Amount, err)
	}
	return &TokenAmount{Amount: amount, Decimals: out.Value.Decimals}, nil
}

// TokenAccount fetches and decodes an SPL token account.
func (c *SolChain) TokenAccount(ctx context.Context, account solana.PublicKey) (*TokenAccount, error) {
	var out *rpc.GetAccountInfoResult
	err := c.call(ctx, "getAccountInfo", func(ctx context.Context) error {
		var err error
		out, err = c.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: c.commitment,
		})
		return err
	})
	if err != nil {
		if solprogram.IsAccountNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
		}
		return nil, err
	}
	if out == nil || out.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	if !out.Value.Owner.Equals(solprogram.TokenProgramID) {
		return nil, fmt.Errorf("%w: %s owned by %s", ErrNotTokenAccount, account, out.Value.Owner)
	}

	data := out.Value.Data.GetBinary()
	if len(data) < solprogram.TokenAccountLength {
		return nil, fmt.Errorf("%w: %s has %d bytes", ErrNotTokenAccount, account, len(data))
	}
	var acct token.Account
	if err := bin.NewBinDecoder(data).Decode(&acct); err != nil {
		return nil, fmt.Errorf("failed to decode token account %s: %w", account, err)
	}
	return &TokenAccount{
		Mint:   acct.Mint.String(),
		Owner:  acct.Owner.String(),
		Amount: acct.Amount,
		State:  acct.State,
	}, nil
}
