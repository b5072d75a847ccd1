//go:build windows

package sysproxy

import "log/slog"

func platformStore(*slog.Logger) store {
	return registryStore{}
}
