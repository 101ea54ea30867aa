// Package reconnect retries connection attempts with exponential backoff.
package reconnect

import (
	"context"
	"time"

	"candlecast/pkg/errors"
	"candlecast/pkg/logger"
)

// Manager retries a connect function until it succeeds, the retry budget
// is spent or the context ends.
type Manager struct {
	minBackoff        time.Duration
	maxBackoff        time.Duration
	backoffMultiplier float64
	maxRetries        int

	logger *logger.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// Config configures the reconnect manager
type Config struct {
	MinBackoff        time.Duration // Initial backoff (e.g. 1s)
	MaxBackoff        time.Duration // Max backoff (e.g. 30s)
	BackoffMultiplier float64       // Multiplier for exponential backoff (e.g. 2.0)
	MaxRetries        int           // Retries after the first attempt, 0 = try once
}

// NewManager creates a reconnect manager, filling zero durations with defaults
func NewManager(config Config, log *logger.Logger) *Manager {
	if config.MinBackoff <= 0 {
		config.MinBackoff = 1 * time.Second
	}
	if config.MaxBackoff < config.MinBackoff {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffMultiplier < 1 {
		config.BackoffMultiplier = 2.0
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}

	return &Manager{
		minBackoff:        config.MinBackoff,
		maxBackoff:        config.MaxBackoff,
		backoffMultiplier: config.BackoffMultiplier,
		maxRetries:        config.MaxRetries,
		logger:            log,
		sleep:             sleepContext,
	}
}

// Connect calls connectFn until it returns nil. The last error is returned
// once MaxRetries retries have failed.
func (m *Manager) Connect(ctx context.Context, name string, connectFn func(context.Context) error) error {
	backoff := m.minBackoff

	var lastErr error
	for attempt := 0; attempt <= m.maxRetries; attempt++ {
		if attempt > 0 {
			m.logger.Warnw("Connection failed, retrying",
				"target", name,
				"attempt", attempt,
				"backoff", backoff,
				"error", lastErr,
			)
			if err := m.sleep(ctx, backoff); err != nil {
				return errors.Wrapf(err, "connect %s", name)
			}
			backoff = m.next(backoff)
		}

		if lastErr = connectFn(ctx); lastErr == nil {
			if attempt > 0 {
				m.logger.Infow("Connection restored", "target", name, "attempts", attempt+1)
			}
			return nil
		}
	}

	return errors.Wrapf(lastErr, "connect %s after %d attempts", name, m.maxRetries+1)
}

func (m *Manager) next(backoff time.Duration) time.Duration {
	next := time.Duration(float64(backoff) * m.backoffMultiplier)
	if next > m.maxBackoff {
		return m.maxBackoff
	}
	return next
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
