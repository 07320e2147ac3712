package generator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"
)

// RetryPolicy bounds retries of transient generation failures.
// MaxAttempts counts the first call.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 30 * time.Second}
}

// BackOff is the pause schedule between attempts: base, 2*base, 4*base, ... capped at
// MaxDelay, without jitter. A zero base means no pause.
func (p RetryPolicy) BackOff() backoff.BackOff {
	if p.BaseDelay <= 0 {
		return &backoff.ZeroBackOff{}
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = time.Duration(math.MaxInt64)
	if p.MaxDelay > 0 {
		b.MaxInterval = p.MaxDelay
		b.InitialInterval = min(p.BaseDelay, p.MaxDelay)
	}
	b.Reset()
	return b
}

// Invoker calls an LLMClient and retries transient failures with backoff.
type Invoker struct {
	client LLMClient
	policy RetryPolicy
	logger *zap.Logger
}

func NewInvoker(client LLMClient, policy RetryPolicy, logger *zap.Logger) (*Invoker, error) {
	if client == nil {
		return nil, errors.New("llm client is required")
	}
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Invoker{client: client, policy: policy, logger: logger}, nil
}

// Invoke sends prompt and hands the completion to post. Transient errors from the
// client or from post (malformed output) are retried; everything else returns at once.
// The returned int is the number of attempts made.
func (inv *Invoker) Invoke(ctx context.Context, prompt Prompt, post func(string) (string, error)) (string, int, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	fp := prompt.Fingerprint()
	attempts := 0
	op := func() (string, error) {
		attempts++
		start := time.Now()
		raw, err := inv.client.Complete(ctx, prompt)
		if err == nil && post != nil {
			raw, err = post(raw)
		}
		if err != nil {
			if !IsTransient(err) {
				return "", backoff.Permanent(err)
			}
			return "", err
		}
		inv.logger.Debug("generation completed",
			zap.String("fingerprint", fp),
			zap.Int("attempt", attempts),
			zap.Duration("duration", time.Since(start)))
		return raw, nil
	}

	text, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(inv.policy.BackOff()),
		backoff.WithMaxTries(uint(inv.policy.MaxAttempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			inv.logger.Warn("generation failed, will retry",
				zap.String("fingerprint", fp),
				zap.Int("attempt", attempts),
				zap.Int("max_attempts", inv.policy.MaxAttempts),
				zap.Duration("next", next),
				zap.Error(err))
		}),
	)
	if err == nil {
		return text, attempts, nil
	}
	var perm *backoff.PermanentError
	if errors.As(err, &perm) {
		return "", attempts, perm.Err
	}
	if IsTransient(err) && attempts >= inv.policy.MaxAttempts {
		return "", attempts, fmt.Errorf("giving up after %d attempts: %w", attempts, err)
	}
	return "", attempts, err
}
