package chainsol

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

// LatestBlockhash fetches a recent blockhash at the chain's commitment.
func (c *SolChain) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	var out *rpc.GetLatestBlockhashResult
	err := c.call(ctx, "getLatestBlockhash", func(ctx context.Context) error {
		var err error
		out, err = c.rpc.GetLatestBlockhash(ctx, c.commitment)
		return err
	})
	if err != nil {
		return solana.Hash{}, fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	if out == nil || out.Value == nil {
		return solana.Hash{}, fmt.Errorf("failed to get recent blockhash: empty response")
	}
	return out.Value.Blockhash, nil
}

// SendAndConfirm submits a signed transaction exactly once and waits until
// it reaches the chain's commitment. If the outcome is still unknown when
// the confirmation window closes the signature is returned together with
// ErrConfirmTimeout, since the transfer may yet land.
func (c *SolChain) SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	start := time.Now()
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	c.observe("sendTransaction", time.Since(start), err)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.log.Info("Transaction submitted", zap.String("signature", sig.String()))

	confirmCtx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	if c.ws != nil {
		confirmed, err := c.waitForNotification(confirmCtx, sig)
		if confirmed {
			return sig, err
		}
		// Subscription dropped or timed out; the status endpoint decides.
		c.log.Warn("Websocket confirmation inconclusive", zap.String("signature", sig.String()), zap.Error(err))
	}
	return sig, c.WaitForConfirmation(confirmCtx, sig)
}

// waitForNotification subscribes to sig at the chain's commitment and waits
// for the node to report it. confirmed is false when no notification arrived.
func (c *SolChain) waitForNotification(ctx context.Context, sig solana.Signature) (confirmed bool, err error) {
	sub, err := c.ws.SignatureSubscribe(sig, c.commitment)
	if err != nil {
		return false, err
	}
	defer sub.Unsubscribe()

	res, err := sub.Recv(ctx)
	if err != nil {
		return false, err
	}
	if res.Value.Err != nil {
		return true, fmt.Errorf("%w: %v", ErrTransactionFailed, res.Value.Err)
	}
	return true, nil
}

// WaitForConfirmation polls signature statuses until sig is confirmed,
// fails, or ctx is done.
func (c *SolChain) WaitForConfirmation(ctx context.Context, sig solana.Signature) error {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		done, err := c.signatureStatus(ctx, sig)
		if done {
			return err
		}

		select {
		case <-ctx.Done():
			// The window may have closed while the transfer was landing.
			lastCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.pollInterval)
			done, err := c.signatureStatus(lastCtx, sig)
			cancel()
			if done {
				return err
			}
			return fmt.Errorf("%w: %s", ErrConfirmTimeout, sig)
		case <-ticker.C:
		}
	}
}

// signatureStatus reports whether sig has settled. A nil error with done set
// means it reached confirmed or finalized.
func (c *SolChain) signatureStatus(ctx context.Context, sig solana.Signature) (done bool, err error) {
	start := time.Now()
	status, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	c.observe("getSignatureStatuses", time.Since(start), err)
	if err != nil || status == nil || len(status.Value) == 0 || status.Value[0] == nil {
		return false, nil
	}
	txStatus := status.Value[0]
	if txStatus.Err != nil {
		return true, fmt.Errorf("%w: %v", ErrTransactionFailed, txStatus.Err)
	}
	return txStatus.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
		txStatus.ConfirmationStatus == rpc.ConfirmationStatusFinalized, nil
}
