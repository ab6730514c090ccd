package clientpkg

import (
	"context"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
)

type BackOff struct {
	maxRetry        uint64
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	initialInterval time.Duration
}

func BackOffFlags(prefix string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(GetFlagWithPrefix("backoff", prefix), pflag.ExitOnError)
	fs.Uint64(GetFlagWithPrefix("max-retry", prefix), 5, EnvName(GetFlagWithPrefix("max-retry", prefix)))
	fs.Duration(GetFlagWithPrefix("max-interval", prefix), 5*time.Second, EnvName(GetFlagWithPrefix("max-interval", prefix)))
	fs.Duration(GetFlagWithPrefix("max-elapsed-time", prefix), 30*time.Second, EnvName(GetFlagWithPrefix("max-elapsed-time", prefix)))
	fs.Duration(GetFlagWithPrefix("initial-interval", prefix), 250*time.Millisecond, EnvName(GetFlagWithPrefix("initial-interval", prefix)))
	return fs
}

func NewBackoffFromFlags(prefix string) *BackOff {
	return &BackOff{
		maxRetry:        viper.GetUint64(GetFlagWithPrefix("max-retry", prefix)),
		maxInterval:     viper.GetDuration(GetFlagWithPrefix("max-interval", prefix)),
		maxElapsedTime:  viper.GetDuration(GetFlagWithPrefix("max-elapsed-time", prefix)),
		initialInterval: viper.GetDuration(GetFlagWithPrefix("initial-interval", prefix)),
	}
}

func NewBackoff(maxRetry uint64, maxInterval, maxElapsedTime, initialInterval time.Duration) *BackOff {
	return &BackOff{
		maxRetry:        maxRetry,
		maxInterval:     maxInterval,
		maxElapsedTime:  maxElapsedTime,
		initialInterval: initialInterval,
	}
}

// Retry runs operation until it succeeds, the retry budget is spent or ctx is done.
// Wrap an error with backoff.Permanent to stop early.
func (b *BackOff) Retry(ctx context.Context, operation backoff.Operation) error {
	notify := func(err error, backoffDuration time.Duration) {
		ctxLogger.Debug(ctx, "retrying", zap.Error(err), zap.Duration("backoff_duration", backoffDuration))
	}
	return backoff.RetryNotify(operation, backoff.WithContext(b.getBackoff(), ctx), notify)
}

func (b *BackOff) getBackoff() backoff.BackOff {
	requestExpBackOff := backoff.NewExponentialBackOff()
	requestExpBackOff.InitialInterval = b.initialInterval
	requestExpBackOff.RandomizationFactor = 0.5
	requestExpBackOff.Multiplier = 1.5
	requestExpBackOff.MaxInterval = b.maxInterval
	requestExpBackOff.MaxElapsedTime = b.maxElapsedTime
	return backoff.WithMaxRetries(requestExpBackOff, b.maxRetry)
}
