package chainsol

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"solairdrop/solprogram"
)

const maxRetryInterval = 2 * time.Second

// call runs fn, retrying transient transport failures with exponential
// backoff up to maxRetries extra attempts.
func (c *SolChain) call(ctx context.Context, method string, fn func(ctx context.Context) error) error {
	operation := func() error {
		start := time.Now()
		err := fn(ctx)
		c.observe(method, time.Since(start), err)
		if err != nil && !solprogram.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.MaxInterval = maxRetryInterval
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.maxRetries)), ctx)
	return backoff.RetryNotify(operation, policy, func(err error, wait time.Duration) {
		c.log.Warn("Retrying RPC call",
			zap.String("method", method),
			zap.Duration("wait", wait),
			zap.Error(err),
		)
	})
}

func (c *SolChain) observe(method string, elapsed time.Duration, err error) {
	if c.observer != nil {
		c.observer.ObserveRPC(method, elapsed, err)
	}
}
