package main

import (
	"context"
	"os/signal"
)

// shutdownContext is cancelled by any of shutdownSignals so that deferred
// cleanup, including the proxy restore, runs before exit.
func shutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}
