package chain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RetryPolicy bounds how many times an operation is attempted and how long to wait between attempts.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	// Backoff doubles the delay after every failed attempt when set.
	Backoff bool
}

// DefaultNonceRetry is three attempts one second apart.
var DefaultNonceRetry = RetryPolicy{Attempts: 3, Delay: time.Second}

// Do runs fn until it succeeds or the policy is exhausted, returning the last error.
func (p RetryPolicy) Do(ctx context.Context, fn func(context.Context) error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.Delay
	if delay < 0 {
		delay = 0
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= attempts {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if p.Backoff {
			delay *= 2
		}
	}
}

// NonceWithRetry fetches the pending nonce of account under policy.
func NonceWithRetry(ctx context.Context, gw Gateway, account common.Address, policy RetryPolicy) (uint64, error) {
	var nonce uint64
	err := policy.Do(ctx, func(ctx context.Context) error {
		n, err := gw.Nonce(ctx, account)
		if err != nil {
			return err
		}
		nonce = n
		return nil
	})
	return nonce, err
}
