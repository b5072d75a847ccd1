package sysproxy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"maskbrowser/backend/domain"
	"maskbrowser/backend/persist"
)

// LeaseOptions configures Acquire.
type LeaseOptions struct {
	SessionID   string
	Journal     *Journal
	WarningPath string
	Logger      *slog.Logger
}

// Lease holds the captured original proxy state until Release writes it back.
type Lease struct {
	ctrl     Controller
	opts     LeaseOptions
	logger   *slog.Logger
	original domain.ProxyState

	mu      sync.Mutex
	desired domain.ProxyState

	once       sync.Once
	releaseErr error
}

// Acquire captures the current proxy state and journals it before any write.
// A capture failure is returned; no lease exists and nothing must be restored.
func Acquire(ctx context.Context, ctrl Controller, opts LeaseOptions) (*Lease, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	original, err := ctrl.Capture(ctx)
	if err != nil {
		return nil, err
	}
	l := &Lease{ctrl: ctrl, opts: opts, logger: logger, original: original, desired: original}
	if err := l.journal(); err != nil {
		// Recovery after a crash is lost, the session itself can proceed.
		logger.Warn("proxy journal not written", "error", err)
	}
	return l, nil
}

// Original returns the captured state.
func (l *Lease) Original() domain.ProxyState { return l.original }

// Apply writes desired. Failures wrap domain.ErrProxyApplyFailed.
func (l *Lease) Apply(ctx context.Context, desired domain.ProxyState) error {
	l.mu.Lock()
	l.desired = desired
	l.mu.Unlock()
	if err := l.journal(); err != nil {
		l.logger.Warn("proxy journal not updated", "error", err)
	}
	return l.ctrl.Apply(ctx, desired)
}

// Release restores the original state. Only the first call does any work;
// later calls return the first result.
func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		err := l.ctrl.Restore(ctx, l.original)
		if err != nil {
			recordRestoreFailure(l.opts.WarningPath, l.opts.SessionID, l.original, err, l.logger)
			l.releaseErr = err
			return
		}
		if l.opts.Journal != nil {
			if err := l.opts.Journal.Clear(); err != nil {
				l.logger.Warn("proxy journal not cleared", "error", err)
			}
		}
	})
	return l.releaseErr
}

func (l *Lease) journal() error {
	if l.opts.Journal == nil || l.original.Unsupported {
		return nil
	}
	l.mu.Lock()
	desired := l.desired
	l.mu.Unlock()
	return l.opts.Journal.Save(domain.ProxyJournal{
		SessionID:  l.opts.SessionID,
		PID:        os.Getpid(),
		Original:   l.original,
		Desired:    desired,
		CapturedAt: time.Now().UTC(),
	})
}

// recordRestoreFailure makes a failed restore impossible to miss: an error
// log, a banner on stderr, and a warning file next to the journal.
func recordRestoreFailure(path, sessionID string, original domain.ProxyState, cause error, logger *slog.Logger) {
	logger.Error("system proxy NOT restored",
		"session", sessionID, "original_address", original.Address,
		"original_enabled", original.Enabled, "error", cause, "kind", domain.Kind(cause))
	fmt.Fprintf(os.Stderr, "\n!!! system proxy could not be restored (was %q, enabled=%t): %v\n",
		original.Address, original.Enabled, cause)
	fmt.Fprintf(os.Stderr, "!!! run with the restore-proxy command to retry\n\n")
	if path == "" {
		return
	}
	rec := domain.RestoreFailure{
		SessionID: sessionID,
		Original:  original,
		Error:     cause.Error(),
		FailedAt:  time.Now().UTC(),
	}
	if err := persist.SaveJSON(path, rec); err != nil {
		logger.Error("restore warning not written", "path", path, "error", err)
	}
}
