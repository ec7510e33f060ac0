package engine

import (
	"context"
	"time"
)

// withRetry runs fn up to three attempts total (spec.md §7's "retry with
// exponential backoff up to three attempts before escalating"), doubling
// the delay after each failure starting at 100ms. No third-party backoff
// library is used: cenkalti/backoff appears in the pack only as a
// transitive dependency of friendsincode-grimnir_radio's NATS client, never
// imported directly, and three fixed retries don't warrant pulling it in
// (see DESIGN.md).
func withRetry(ctx context.Context, attempts int, fn func() error) error {
	delay := 100 * time.Millisecond
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
