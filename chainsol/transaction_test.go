package chainsol_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solairdrop/chainsol"
	"solairdrop/chainsol/stub"
	"solairdrop/solprogram"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls map[string]int
	errs  map[string]int
}

func (o *recordingObserver) ObserveRPC(method string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.calls == nil {
		o.calls = map[string]int{}
		o.errs = map[string]int{}
	}
	o.calls[method]++
	if err != nil {
		o.errs[method]++
	}
}

type fixture struct {
	ledger *stub.Ledger
	chain  *chainsol.SolChain
	signer solana.PrivateKey
	mint   solana.PublicKey
}

func newFixture(t *testing.T, cfg chainsol.Config, opts ...chainsol.Option) *fixture {
	t.Helper()
	signer, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	mintKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)

	ledger := stub.New()
	ledger.AddMint(mintKey.PublicKey(), 6)

	if cfg.Network == "" {
		cfg.Network = "devnet"
	}
	if cfg.RetryInitialInterval == 0 {
		cfg.RetryInitialInterval = time.Millisecond
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Millisecond
	}
	opts = append([]chainsol.Option{chainsol.WithRPC(ledger)}, opts...)
	chain, err := chainsol.NewSolChain(context.Background(), cfg, opts...)
	require.NoError(t, err)

	return &fixture{ledger: ledger, chain: chain, signer: signer, mint: mintKey.PublicKey()}
}

func TestTokenBalance(t *testing.T) {
	f := newFixture(t, chainsol.Config{})
	ctx := context.Background()
	ata := f.ledger.Fund(f.signer.PublicKey(), f.mint, 1_500_000)

	bal, err := f.chain.TokenBalance(ctx, ata)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), bal.Amount)
	assert.Equal(t, uint8(6), bal.Decimals)
	assert.Equal(t, "1.500000", bal.UIAmount())

	missing, err := solprogram.AssociatedTokenAddress(solana.NewWallet().PublicKey(), f.mint)
	require.NoError(t, err)
	_, err = f.chain.TokenBalance(ctx, missing)
	assert.ErrorIs(t, err, chainsol.ErrAccountNotFound)
}

func TestTokenAccount(t *testing.T) {
	f := newFixture(t, chainsol.Config{})
	ctx := context.Background()
	owner := f.signer.PublicKey()
	ata := f.ledger.Fund(owner, f.mint, 42)

	acct, err := f.chain.TokenAccount(ctx, ata)
	require.NoError(t, err)
	assert.Equal(t, f.mint.String(), acct.Mint)
	assert.Equal(t, owner.String(), acct.Owner)
	assert.Equal(t, uint64(42), acct.Amount)
	assert.False(t, acct.Frozen())

	f.ledger.Freeze(ata)
	acct, err = f.chain.TokenAccount(ctx, ata)
	require.NoError(t, err)
	assert.True(t, acct.Frozen())

	_, err = f.chain.TokenAccount(ctx, solana.NewWallet().PublicKey())
	assert.ErrorIs(t, err, chainsol.ErrAccountNotFound)
}

func TestRetry_TransientErrors(t *testing.T) {
	obs := &recordingObserver{}
	f := newFixture(t, chainsol.Config{MaxRetries: 2}, chainsol.WithObserver(obs))
	ata := f.ledger.Fund(f.signer.PublicKey(), f.mint, 7)

	f.ledger.FailNext("getTokenAccountBalance", io.EOF, errors.New("503 Service Unavailable"))

	bal, err := f.chain.TokenBalance(context.Background(), ata)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), bal.Amount)
	assert.Equal(t, 3, f.ledger.Calls("getTokenAccountBalance"))
	assert.Equal(t, 3, obs.calls["getTokenAccountBalance"])
	assert.Equal(t, 2, obs.errs["getTokenAccountBalance"])
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	f := newFixture(t, chainsol.Config{MaxRetries: 1})
	ata := f.ledger.Fund(f.signer.PublicKey(), f.mint, 7)

	f.ledger.FailNext("getTokenAccountBalance", io.EOF, io.EOF, io.EOF)

	_, err := f.chain.TokenBalance(context.Background(), ata)
	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 2, f.ledger.Calls("getTokenAccountBalance"))
}

func TestRetry_RPCRejectionIsTerminal(t *testing.T) {
	f := newFixture(t, chainsol.Config{MaxRetries: 3})
	ata := f.ledger.Fund(f.signer.PublicKey(), f.mint, 7)

	rejection := &jsonrpc.RPCError{Code: -32600, Message: "Invalid request"}
	f.ledger.FailNext("getTokenAccountBalance", rejection)

	_, err := f.chain.TokenBalance(context.Background(), ata)
	var rpcErr *jsonrpc.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, 1, f.ledger.Calls("getTokenAccountBalance"))
}

func TestRetry_Disabled(t *testing.T) {
	f := newFixture(t, chainsol.Config{MaxRetries: 0})
	f.ledger.FailNext("getLatestBlockhash", io.EOF)

	_, err := f.chain.LatestBlockhash(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, f.ledger.Calls("getLatestBlockhash"))
}

func buildTransfer(t *testing.T, f *fixture, recipient solana.PublicKey, amount uint64, create bool) *solana.Transaction {
	t.Helper()
	src, err := solprogram.AssociatedTokenAddress(f.signer.PublicKey(), f.mint)
	require.NoError(t, err)
	dst, err := solprogram.AssociatedTokenAddress(recipient, f.mint)
	require.NoError(t, err)

	instrs := solprogram.BuildAirdropInstructions(solprogram.TransferPlan{
		Payer:             f.signer.PublicKey(),
		Mint:              f.mint,
		Recipient:         recipient,
		SourceAccount:     src,
		RecipientAccount:  dst,
		Amount:            amount,
		Decimals:          6,
		CreateRecipientTA: create,
	})
	hash, err := f.chain.LatestBlockhash(context.Background())
	require.NoError(t, err)
	tx, err := solprogram.BuildSignedTransaction(instrs, hash, f.signer)
	require.NoError(t, err)
	return tx
}

func TestSendAndConfirm(t *testing.T) {
	f := newFixture(t, chainsol.Config{})
	f.ledger.Fund(f.signer.PublicKey(), f.mint, 100)
	recipient := solana.NewWallet().PublicKey()

	tx := buildTransfer(t, f, recipient, 40, true)
	sig, err := f.chain.SendAndConfirm(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Signatures[0], sig)

	got, ok := f.ledger.Balance(recipient, f.mint)
	require.True(t, ok)
	assert.Equal(t, uint64(40), got)
	left, _ := f.ledger.Balance(f.signer.PublicKey(), f.mint)
	assert.Equal(t, uint64(60), left)
	assert.Equal(t, 1, f.ledger.Calls("sendTransaction"))
}

func TestSendAndConfirm_AccountInUse(t *testing.T) {
	f := newFixture(t, chainsol.Config{})
	f.ledger.Fund(f.signer.PublicKey(), f.mint, 100)
	recipient := solana.NewWallet().PublicKey()
	f.ledger.Fund(recipient, f.mint, 0)

	_, err := f.chain.SendAndConfirm(context.Background(), buildTransfer(t, f, recipient, 40, true))
	require.Error(t, err)
	assert.True(t, solprogram.IsAccountInUse(err))

	// Nothing moved: the transaction is atomic.
	left, _ := f.ledger.Balance(f.signer.PublicKey(), f.mint)
	assert.Equal(t, uint64(100), left)
}

func TestSendAndConfirm_NotRetried(t *testing.T) {
	f := newFixture(t, chainsol.Config{MaxRetries: 5})
	f.ledger.Fund(f.signer.PublicKey(), f.mint, 100)
	f.ledger.FailNext("sendTransaction", io.EOF)

	_, err := f.chain.SendAndConfirm(context.Background(), buildTransfer(t, f, solana.NewWallet().PublicKey(), 1, true))
	require.Error(t, err)
	assert.Equal(t, 1, f.ledger.Calls("sendTransaction"))
}

func TestSendAndConfirm_Timeout(t *testing.T) {
	f := newFixture(t, chainsol.Config{ConfirmTimeout: 30 * time.Millisecond})
	f.ledger.Fund(f.signer.PublicKey(), f.mint, 100)
	f.ledger.SetUnconfirmed(true)

	tx := buildTransfer(t, f, solana.NewWallet().PublicKey(), 1, true)
	sig, err := f.chain.SendAndConfirm(context.Background(), tx)
	require.ErrorIs(t, err, chainsol.ErrConfirmTimeout)
	assert.Equal(t, tx.Signatures[0], sig)
	assert.GreaterOrEqual(t, f.ledger.Calls("getSignatureStatuses"), 1)
}

func TestWaitForConfirmation_ToleratesPollErrors(t *testing.T) {
	f := newFixture(t, chainsol.Config{})
	f.ledger.Fund(f.signer.PublicKey(), f.mint, 100)
	f.ledger.FailNext("getSignatureStatuses", fmt.Errorf("502 Bad Gateway"))

	_, err := f.chain.SendAndConfirm(context.Background(), buildTransfer(t, f, solana.NewWallet().PublicKey(), 1, true))
	require.NoError(t, err)
	assert.Equal(t, 2, f.ledger.Calls("getSignatureStatuses"))
}
