package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/byte4ever/gitlink/captive"
)

// PollInterval is the tick of the foreground loop.
const PollInterval = 100 * time.Millisecond

// ErrCancelled is returned by Await when the user
// cancels.
var ErrCancelled = errors.New("cancelled by user")

// Portal is a captive portal session.
type Portal interface {
	Start(ctx context.Context) error
	Stop() error
	Outcome() <-chan captive.Outcome
}

// Canceller reports whether the user asked to cancel.
// It must not block.
type Canceller func() bool

// Await starts portal, then polls every PollInterval
// for its outcome or a cancel request. The portal is
// stopped on every return path.
func (c *Controller) Await(
	ctx context.Context,
	portal Portal,
	cancel Canceller,
) (string, error) {
	const errCtx = "awaiting portal"

	if err := portal.Start(ctx); err != nil {
		return "", fmt.Errorf("%s: %w", errCtx, err)
	}

	defer func() {
		if err := portal.Stop(); err != nil {
			slog.Warn("stopping portal", "error", err)
		}
	}()

	outcome := portal.Outcome()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%s: %w", errCtx, ctx.Err())
		case <-ticker.C:
		}

		select {
		case o := <-outcome:
			if o.Err != nil {
				return "", fmt.Errorf("%s: %w", errCtx, o.Err)
			}

			return o.Token, nil
		default:
		}

		if cancel != nil && cancel() {
			return "", fmt.Errorf("%s: %w", errCtx, ErrCancelled)
		}
	}
}

// KeyCanceller returns a Canceller that trips once any
// input arrives on r. The reading goroutine lives until
// r yields a byte or fails.
func KeyCanceller(r io.Reader) Canceller {
	var pressed atomic.Bool

	go func() {
		buf := make([]byte, 1)

		if _, err := r.Read(buf); err == nil {
			pressed.Store(true)
		}
	}()

	return pressed.Load
}
