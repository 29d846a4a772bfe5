package lifecycle

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// NotifyShutdown starts listening for SIGINT and SIGTERM right away, so a
// signal that arrives before Supervise is reached is not lost. The returned
// channel is closed on the first signal; stop releases the handler.
func NotifyShutdown(ctx context.Context) (<-chan struct{}, func()) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	return ctx.Done(), stop
}
