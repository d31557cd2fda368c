package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// ShutdownContext returns a context canceled on SIGINT or SIGTERM. The
// run command uses it as the root context, so the feed pollers, the
// reset scheduler, and the metrics server all stop on the same signal.
// Calling stop releases the signal watch; a second signal after that
// terminates the process the default way.
func ShutdownContext() (ctx context.Context, stop context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
