//go:build darwin

package sysproxy

import (
	"context"
	"log/slog"
	"time"
)

func platformStore(logger *slog.Logger) store {
	if !commandExists("networksetup") {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st, err := newDarwinStore(ctx, newExecRunner())
	if err != nil {
		logger.Warn("no network service for system proxy", "error", err)
		return nil
	}
	return st
}
