package sysproxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"maskbrowser/backend/domain"
	"maskbrowser/backend/persist"
)

// ErrJournalBusy is returned when a live session owns the journal.
var ErrJournalBusy = errors.New("another session owns the system proxy")

// Journal persists the captured original state for crash recovery.
type Journal struct {
	path string
}

// NewJournal returns a journal stored at path.
func NewJournal(path string) *Journal {
	return &Journal{path: path}
}

// Path returns the journal file path.
func (j *Journal) Path() string { return j.path }

// Save writes rec, replacing any previous record.
func (j *Journal) Save(rec domain.ProxyJournal) error {
	if err := persist.SaveJSON(j.path, rec); err != nil {
		return fmt.Errorf("save proxy journal: %w", err)
	}
	return nil
}

// Load returns the pending record, or nil when there is none.
func (j *Journal) Load() (*domain.ProxyJournal, error) {
	var rec domain.ProxyJournal
	found, err := persist.LoadJSON(j.path, &rec)
	if err != nil {
		return nil, fmt.Errorf("load proxy journal: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

// Clear removes the record.
func (j *Journal) Clear() error {
	return persist.Remove(j.path)
}

// Recovery replays a journal left by a session that did not restore.
type Recovery struct {
	Controller Controller
	Journal    *Journal
	// WarningPath receives a RestoreFailure record when the replay fails.
	WarningPath string
	Logger      *slog.Logger

	// alive reports whether pid is running; nil means processAlive.
	alive func(pid int) bool
}

// Run restores the journaled original state. recovered is true when a
// record was found and the original state was written back. A record owned
// by a running process is left alone and yields ErrJournalBusy.
func (r Recovery) Run(ctx context.Context) (recovered bool, err error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	alive := r.alive
	if alive == nil {
		alive = processAlive
	}

	rec, err := r.Journal.Load()
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}
	if rec.PID != os.Getpid() && alive(rec.PID) {
		return false, fmt.Errorf("%w (session %s, pid %d)", ErrJournalBusy, rec.SessionID, rec.PID)
	}

	logger.Warn("restoring proxy left by an interrupted session",
		"session", rec.SessionID, "pid", rec.PID, "captured_at", rec.CapturedAt)
	if err := r.Controller.Restore(ctx, rec.Original); err != nil {
		recordRestoreFailure(r.WarningPath, rec.SessionID, rec.Original, err, logger)
		return false, err
	}
	if err := r.Journal.Clear(); err != nil {
		logger.Warn("proxy journal not cleared", "error", err)
	}
	if r.WarningPath != "" {
		_ = persist.Remove(r.WarningPath)
	}
	return true, nil
}
