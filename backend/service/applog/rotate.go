package applog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// RotateLogFile moves a non-empty log file aside under a timestamped name
// and prunes rotated siblings older than retain.
//
//	/path/maskbrowser.log -> /path/maskbrowser-20260116-235959.log
func RotateLogFile(path string, retain time.Duration) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	dir, stem, ext := splitLogName(path)
	if stem == "" {
		return nil
	}

	if st, err := os.Stat(path); err == nil && st.Size() > 0 {
		rotated, err := freeRotatedName(dir, stem, ext, time.Now())
		if err != nil {
			return err
		}
		if err := os.Rename(path, rotated); err != nil {
			return err
		}
	}
	if retain <= 0 {
		return nil
	}
	return pruneRotated(dir, stem, ext, time.Now().Add(-retain))
}

func splitLogName(path string) (dir, stem, ext string) {
	base := filepath.Base(path)
	ext = filepath.Ext(base)
	return filepath.Dir(path), strings.TrimSuffix(base, ext), ext
}

func freeRotatedName(dir, stem, ext string, now time.Time) (string, error) {
	ts := now.Format("20060102-150405")
	name := filepath.Join(dir, fmt.Sprintf("%s-%s%s", stem, ts, ext))
	for i := 1; ; i++ {
		_, err := os.Stat(name)
		if os.IsNotExist(err) {
			return name, nil
		}
		if err != nil {
			return "", err
		}
		name = filepath.Join(dir, fmt.Sprintf("%s-%s-%d%s", stem, ts, i, ext))
	}
}

func pruneRotated(dir, stem, ext string, cutoff time.Time) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	prefix := stem + "-"
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || (ext != "" && !strings.HasSuffix(name, ext)) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
	return nil
}
