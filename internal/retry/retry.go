// Package retry computes exponential backoff delays and retries transient
// failures.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"github.com/iudanet/offsync/internal/models"
)

// Default backoff parameters.
const (
	DefaultMaxRetries   = 3
	DefaultInitialDelay = time.Second
	DefaultMaxDelay     = 30 * time.Second
	DefaultMultiplier   = 2.0

	// jitterFactor is the relative spread applied around the base delay.
	jitterFactor = 0.1
)

// Config holds backoff parameters.
type Config struct {
	InitialDelay time.Duration `mapstructure:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// DefaultConfig returns the default backoff parameters.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   DefaultMaxRetries,
		InitialDelay: DefaultInitialDelay,
		MaxDelay:     DefaultMaxDelay,
		Multiplier:   DefaultMultiplier,
	}
}

// OnRetryFunc is called before every sleep with the 1-based number of the
// failed attempt, the delay about to be slept and the attempt error.
type OnRetryFunc func(attempt int, delay time.Duration, err error)

// Strategy retries operations with exponential backoff and jitter.
type Strategy struct {
	jitter func() float64
	cfg    Config
}

// New creates a Strategy. Zero fields of cfg fall back to defaults;
// a negative MaxRetries disables retries.
func New(cfg Config) *Strategy {
	def := DefaultConfig()
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = def.MaxDelay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = def.Multiplier
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	return &Strategy{cfg: cfg, jitter: rand.Float64}
}

// Config returns the effective configuration.
func (s *Strategy) Config() Config {
	return s.cfg
}

// BaseDelay returns the unjittered delay after the n-th (0-based) failure:
// InitialDelay * Multiplier^n clamped to [0, MaxDelay].
func (s *Strategy) BaseDelay(n int) time.Duration {
	if n < 0 {
		n = 0
	}
	delay := float64(s.cfg.InitialDelay) * math.Pow(s.cfg.Multiplier, float64(n))
	if delay > float64(s.cfg.MaxDelay) || math.IsInf(delay, 1) {
		return s.cfg.MaxDelay
	}
	return time.Duration(delay)
}

// Delay returns BaseDelay(n) jittered by up to ±10%, never negative.
func (s *Strategy) Delay(n int) time.Duration {
	base := float64(s.BaseDelay(n))
	spread := base * jitterFactor * (2*s.jitter() - 1)
	return time.Duration(max(base+spread, 0))
}

// Do runs op up to MaxRetries+1 times. Before each sleep it calls onRetry
// (when not nil). The last error is returned once attempts are exhausted;
// cancellation of ctx stops the loop with ctx.Err().
func (s *Strategy) Do(ctx context.Context, op func(ctx context.Context) error, onRetry OnRetryFunc) error {
	var (
		attempt int
		lastErr error
	)

	backoff := goretry.BackoffFunc(func() (time.Duration, bool) {
		if attempt >= s.cfg.MaxRetries {
			return 0, true
		}
		delay := s.Delay(attempt)
		attempt++
		if onRetry != nil {
			onRetry(attempt, delay, lastErr)
		}
		return delay, false
	})

	return goretry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := op(ctx); err != nil {
			lastErr = err
			return goretry.RetryableError(err)
		}
		return nil
	})
}

// retryableStatus lists HTTP statuses worth retrying.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

var retryableErrnos = []syscall.Errno{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ETIMEDOUT,
	syscall.EHOSTUNREACH,
	syscall.ENETUNREACH,
}

// statusCoder is implemented by transport errors that carry an HTTP status.
type statusCoder interface {
	StatusCode() int
}

// IsRetryable reports whether err is a transient failure: a network error,
// one of the retryable HTTP statuses, a connection level errno or a
// SyncError flagged retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	if syncErr, ok := models.AsSyncError(err); ok && syncErr.Retryable {
		return true
	}

	var sc statusCoder
	if errors.As(err, &sc) {
		return retryableStatus[sc.StatusCode()]
	}

	for _, errno := range retryableErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
