package vehicle

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"flyto/internal/logger"
)

const (
	DefaultAddress        = "127.0.0.1:14550"
	DefaultConnectTimeout = 10 * time.Second
	defaultRetryInterval  = 500 * time.Millisecond
)

type connectOptions struct {
	timeout       time.Duration
	retryInterval time.Duration
	client        *http.Client
	log           *slog.Logger
}

type ConnectOption func(*connectOptions)

func WithConnectTimeout(d time.Duration) ConnectOption {
	return func(o *connectOptions) { o.timeout = d }
}

func WithRetryInterval(d time.Duration) ConnectOption {
	return func(o *connectOptions) { o.retryInterval = d }
}

func WithHTTPClient(c *http.Client) ConnectOption {
	return func(o *connectOptions) { o.client = c }
}

func WithConnectLogger(l *slog.Logger) ConnectOption {
	return func(o *connectOptions) { o.log = l }
}

// Connect dials the vehicle at address and blocks until it answers its
// health check, the connect timeout expires, or ctx is done.
func Connect(ctx context.Context, address string, opts ...ConnectOption) (*HTTPLink, error) {
	o := connectOptions{
		timeout:       DefaultConnectTimeout,
		retryInterval: defaultRetryInterval,
		log:           logger.Log,
	}
	for _, opt := range opts {
		opt(&o)
	}

	link, err := NewHTTPLink(address, o.client)
	if err != nil {
		return nil, &LinkError{Op: "connect", Addr: address, Err: err}
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	o.log.Info("connecting to vehicle", slog.String("addr", link.Addr()))

	ticker := time.NewTicker(o.retryInterval)
	defer ticker.Stop()

	var lastErr error
	for attempt := 1; ; attempt++ {
		if lastErr = link.Ping(ctx); lastErr == nil {
			o.log.Info("vehicle link ready", slog.String("addr", link.Addr()), slog.Int("attempts", attempt))
			return link, nil
		}
		o.log.Debug("vehicle not ready", slog.Int("attempt", attempt), slog.String("error", lastErr.Error()))

		select {
		case <-ctx.Done():
			_ = link.Close()
			cause := ctx.Err()
			var le *LinkError
			if errors.As(lastErr, &le) {
				cause = errors.Join(cause, le.Err)
			}
			return nil, &LinkError{Op: "connect", Addr: link.Addr(), Err: cause}
		case <-ticker.C:
		}
	}
}
