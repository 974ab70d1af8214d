// Package stub provides an in-memory Solana ledger that satisfies
// chainsol.RPC. It understands the two instructions the airdrop emits
// (associated account creation and token transfers) well enough to apply
// them atomically and reject what the real cluster rejects.
package stub

import (
	"context"
	"encoding/binary"
	"fmt"
	"strconv"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/jsonrpc"

	"solairdrop/chainsol"
	"solairdrop/solprogram"
)

const rentExemptLamports = 2039280

type tokenAccount struct {
	mint   solana.PublicKey
	owner  solana.PublicKey
	amount uint64
	state  token.AccountState
}

type barrier struct {
	remaining int
	ready     chan struct{}
}

// Ledger is a thread-safe fake cluster.
type Ledger struct {
	mu          sync.Mutex
	mints       map[solana.PublicKey]uint8
	accounts    map[solana.PublicKey]*tokenAccount
	statuses    map[solana.Signature]*rpc.SignatureStatusesResult
	calls       map[string]int
	failures    map[string][]error
	slot        uint64
	sends       *barrier
	unconfirmed bool
}

var _ chainsol.RPC = (*Ledger)(nil)

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		mints:    make(map[solana.PublicKey]uint8),
		accounts: make(map[solana.PublicKey]*tokenAccount),
		statuses: make(map[solana.Signature]*rpc.SignatureStatusesResult),
		calls:    make(map[string]int),
		failures: make(map[string][]error),
		slot:     1000,
	}
}

// AddMint registers a mint with its decimals.
func (l *Ledger) AddMint(mint solana.PublicKey, decimals uint8) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mints[mint] = decimals
}

// Fund creates (or tops up) owner's associated account for mint and
// returns its address.
func (l *Ledger) Fund(owner, mint solana.PublicKey, amount uint64) solana.PublicKey {
	ata, err := solprogram.AssociatedTokenAddress(owner, mint)
	if err != nil {
		panic(err)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if acct, ok := l.accounts[ata]; ok {
		acct.amount += amount
		return ata
	}
	l.accounts[ata] = &tokenAccount{mint: mint, owner: owner, amount: amount, state: token.Initialized}
	return ata
}

// Freeze marks a token account frozen.
func (l *Ledger) Freeze(account solana.PublicKey) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acct, ok := l.accounts[account]; ok {
		acct.state = token.Frozen
	}
}

// Balance returns the balance of owner's associated account for mint.
func (l *Ledger) Balance(owner, mint solana.PublicKey) (uint64, bool) {
	ata, err := solprogram.AssociatedTokenAddress(owner, mint)
	if err != nil {
		return 0, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.accounts[ata]
	if !ok {
		return 0, false
	}
	return acct.amount, true
}

// Calls returns how many times method was invoked.
func (l *Ledger) Calls(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[method]
}

// TotalCalls returns the number of RPC invocations of any kind.
func (l *Ledger) TotalCalls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for _, n := range l.calls {
		total += n
	}
	return total
}

// FailNext queues errors returned by the next invocations of method.
func (l *Ledger) FailNext(method string, errs ...error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures[method] = append(l.failures[method], errs...)
}

// HoldSends blocks submissions until n of them are in flight, so tests can
// line up concurrent claims after their pre-flight reads.
func (l *Ledger) HoldSends(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sends = &barrier{remaining: n, ready: make(chan struct{})}
}

// SetUnconfirmed makes accepted transactions stay at processed commitment.
func (l *Ledger) SetUnconfirmed(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.unconfirmed = v
}

// enter records a call and pops a queued failure. Caller holds mu.
func (l *Ledger) enter(method string) error {
	l.calls[method]++
	if queued := l.failures[method]; len(queued) > 0 {
		l.failures[method] = queued[1:]
		return queued[0]
	}
	return nil
}

func (l *Ledger) GetHealth(_ context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("getHealth"); err != nil {
		return "", err
	}
	return "ok", nil
}

func (l *Ledger) GetTokenAccountBalance(_ context.Context, account solana.PublicKey, _ rpc.CommitmentType) (*rpc.GetTokenAccountBalanceResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("getTokenAccountBalance"); err != nil {
		return nil, err
	}
	acct, ok := l.accounts[account]
	if !ok {
		return nil, &jsonrpc.RPCError{Code: -32602, Message: "Invalid param: could not find account"}
	}
	return &rpc.GetTokenAccountBalanceResult{
		Value: &rpc.UiTokenAmount{
			Amount:   strconv.FormatUint(acct.amount, 10),
			Decimals: l.mints[acct.mint],
		},
	}, nil
}

func (l *Ledger) GetAccountInfoWithOpts(_ context.Context, account solana.PublicKey, _ *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("getAccountInfo"); err != nil {
		return nil, err
	}
	acct, ok := l.accounts[account]
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{
			Lamports: rentExemptLamports,
			Owner:    solprogram.TokenProgramID,
			Data:     rpc.DataBytesOrJSONFromBytes(encodeTokenAccount(acct)),
		},
	}, nil
}

// GetLatestBlockhash hands out a fresh hash per call, as a live cluster does
// every slot.
func (l *Ledger) GetLatestBlockhash(_ context.Context, _ rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("getLatestBlockhash"); err != nil {
		return nil, err
	}
	l.slot++
	var hash solana.Hash
	binary.LittleEndian.PutUint64(hash[:8], l.slot)
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{
			Blockhash:            hash,
			LastValidBlockHeight: l.slot + 150,
		},
	}, nil
}

func (l *Ledger) SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, _ rpc.TransactionOpts) (solana.Signature, error) {
	if err := l.waitForPeers(ctx); err != nil {
		return solana.Signature{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("sendTransaction"); err != nil {
		return solana.Signature{}, err
	}
	// Go through the wire format like a real node would.
	encoded, err := solprogram.EncodeTransaction(tx)
	if err != nil {
		return solana.Signature{}, &jsonrpc.RPCError{Code: -32602, Message: "invalid transaction: " + err.Error()}
	}
	if tx, err = solprogram.DecodeTransaction(encoded); err != nil {
		return solana.Signature{}, &jsonrpc.RPCError{Code: -32602, Message: "invalid transaction: " + err.Error()}
	}
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, &jsonrpc.RPCError{Code: -32602, Message: "invalid transaction: missing signatures"}
	}
	if err := tx.VerifySignatures(); err != nil {
		return solana.Signature{}, &jsonrpc.RPCError{Code: -32003, Message: "Transaction signature verification failure"}
	}
	sig := tx.Signatures[0]
	if _, seen := l.statuses[sig]; seen {
		return solana.Signature{}, &jsonrpc.RPCError{Code: -32002, Message: "Transaction simulation failed: This transaction has already been processed"}
	}

	next, err := l.apply(tx)
	if err != nil {
		return solana.Signature{}, err
	}
	l.accounts = next
	l.slot++

	status := rpc.ConfirmationStatusConfirmed
	if l.unconfirmed {
		status = rpc.ConfirmationStatusProcessed
	}
	l.statuses[sig] = &rpc.SignatureStatusesResult{Slot: l.slot, ConfirmationStatus: status}
	return sig, nil
}

func (l *Ledger) GetSignatureStatuses(ctx context.Context, _ bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.enter("getSignatureStatuses"); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := &rpc.GetSignatureStatusesResult{
		Value:      make([]*rpc.SignatureStatusesResult, len(sigs)),
	}
	for i, sig := range sigs {
		if st, ok := l.statuses[sig]; ok {
			cp := *st
			out.Value[i] = &cp
		}
	}
	return out, nil
}

func (l *Ledger) waitForPeers(ctx context.Context) error {
	l.mu.Lock()
	b := l.sends
	if b != nil && b.remaining > 0 {
		b.remaining--
		if b.remaining == 0 {
			close(b.ready)
		}
	}
	l.mu.Unlock()

	if b == nil {
		return nil
	}
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// apply executes tx against a copy of the account set. Caller holds mu.
func (l *Ledger) apply(tx *solana.Transaction) (map[solana.PublicKey]*tokenAccount, error) {
	next := make(map[solana.PublicKey]*tokenAccount, len(l.accounts))
	for k, v := range l.accounts {
		cp := *v
		next[k] = &cp
	}

	msg := tx.Message
	for idx, inst := range msg.Instructions {
		key := func(i int) (solana.PublicKey, error) {
			if i >= len(inst.Accounts) || int(inst.Accounts[i]) >= len(msg.AccountKeys) {
				return solana.PublicKey{}, simulationError(idx, "invalid account index", nil)
			}
			return msg.AccountKeys[inst.Accounts[i]], nil
		}
		if int(inst.ProgramIDIndex) >= len(msg.AccountKeys) {
			return nil, simulationError(idx, "invalid program id index", nil)
		}
		program := msg.AccountKeys[inst.ProgramIDIndex]

		switch {
		case program.Equals(solprogram.AssociatedTokenProgID):
			if err := l.applyCreateATA(next, idx, key); err != nil {
				return nil, err
			}
		case program.Equals(solprogram.TokenProgramID):
			if err := l.applyTransfer(next, idx, inst.Data, key); err != nil {
				return nil, err
			}
		default:
			return nil, simulationError(idx, "unsupported program "+program.String(), nil)
		}
	}
	return next, nil
}

func (l *Ledger) applyCreateATA(next map[solana.PublicKey]*tokenAccount, idx int, key func(int) (solana.PublicKey, error)) error {
	ata, err := key(1)
	if err != nil {
		return err
	}
	wallet, err := key(2)
	if err != nil {
		return err
	}
	mint, err := key(3)
	if err != nil {
		return err
	}
	if _, exists := next[ata]; exists {
		return simulationError(idx, "custom program error: 0x0", []string{
			fmt.Sprintf("Allocate: account Address { address: %s, base: None } already in use", ata),
		})
	}
	if _, ok := l.mints[mint]; !ok {
		return simulationError(idx, "invalid account data for instruction", nil)
	}
	next[ata] = &tokenAccount{mint: mint, owner: wallet, state: token.Initialized}
	return nil
}

func (l *Ledger) applyTransfer(next map[solana.PublicKey]*tokenAccount, idx int, data []byte, key func(int) (solana.PublicKey, error)) error {
	if len(data) == 0 {
		return simulationError(idx, "invalid instruction data", nil)
	}

	var srcKey, dstKey, ownerKey solana.PublicKey
	var amount uint64
	var err error
	switch data[0] {
	case solprogram.TokenInstructionTransferChecked:
		if len(data) < 10 {
			return simulationError(idx, "invalid instruction data", nil)
		}
		amount = binary.LittleEndian.Uint64(data[1:9])
		mint, mintErr := key(1)
		if mintErr != nil {
			return mintErr
		}
		if decimals, ok := l.mints[mint]; !ok || decimals != data[9] {
			return simulationError(idx, "custom program error: 0x12", nil)
		}
		if srcKey, err = key(0); err != nil {
			return err
		}
		if dstKey, err = key(2); err != nil {
			return err
		}
		if ownerKey, err = key(3); err != nil {
			return err
		}
	case solprogram.TokenInstructionTransfer:
		if len(data) < 9 {
			return simulationError(idx, "invalid instruction data", nil)
		}
		amount = binary.LittleEndian.Uint64(data[1:9])
		if srcKey, err = key(0); err != nil {
			return err
		}
		if dstKey, err = key(1); err != nil {
			return err
		}
		if ownerKey, err = key(2); err != nil {
			return err
		}
	default:
		return simulationError(idx, fmt.Sprintf("unsupported token instruction %d", data[0]), nil)
	}

	src, ok := next[srcKey]
	if !ok {
		return simulationError(idx, "invalid account data for instruction", nil)
	}
	dst, ok := next[dstKey]
	if !ok {
		return simulationError(idx, "invalid account data for instruction", nil)
	}
	if !src.owner.Equals(ownerKey) {
		return simulationError(idx, "custom program error: 0x4", nil)
	}
	if !src.mint.Equals(dst.mint) {
		return simulationError(idx, "custom program error: 0x3", nil)
	}
	if src.state == token.Frozen || dst.state == token.Frozen {
		return simulationError(idx, "custom program error: 0x11", nil)
	}
	if src.amount < amount {
		return simulationError(idx, "custom program error: 0x1", nil)
	}
	src.amount -= amount
	dst.amount += amount
	return nil
}

func simulationError(idx int, reason string, logs []string) error {
	err := &jsonrpc.RPCError{
		Code:    -32002,
		Message: fmt.Sprintf("Transaction simulation failed: Error processing Instruction %d: %s", idx, reason),
	}
	if len(logs) > 0 {
		err.Data = map[string]interface{}{"logs": logs}
	}
	return err
}

// encodeTokenAccount lays out an SPL token account (165 bytes).
func encodeTokenAccount(a *tokenAccount) []byte {
	data := make([]byte, solprogram.TokenAccountLength)
	copy(data[0:32], a.mint[:])
	copy(data[32:64], a.owner[:])
	binary.LittleEndian.PutUint64(data[64:72], a.amount)
	// 72..108 delegate, absent
	data[108] = byte(a.state)
	// 109..165 is_native, delegated_amount, close_authority, all absent
	return data
}
