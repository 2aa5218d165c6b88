package logging

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// New returns the audit logger and the file behind it, which the caller
// closes when the run is over. An empty path discards everything; rmfd
// keeps stdout and stderr for its user-facing output. Log files older than
// rotationDays are rotated and stale rotations removed.
func New(path string, rotationDays int) (*log.Logger, io.Closer) {
	if path == "" {
		return discard()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return discard()
	}

	if rotationDays <= 0 {
		rotationDays = 30
	}
	rotateLogsIfNeeded(path, rotationDays)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return discard()
	}
	return log.New(f, "", log.LstdFlags|log.Lmicroseconds), f
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func discard() (*log.Logger, io.Closer) {
	return log.New(io.Discard, "", 0), nopCloser{}
}

// rotateLogsIfNeeded rotates the log file if it is older than rotationDays
func rotateLogsIfNeeded(logPath string, rotationDays int) {
	info, err := os.Stat(logPath)
	if err != nil {
		return
	}

	cutoffTime := time.Now().AddDate(0, 0, -rotationDays)
	if info.ModTime().Before(cutoffTime) {
		timestamp := info.ModTime().Format("20060102-150405")
		if err := os.Rename(logPath, logPath+"."+timestamp); err != nil {
			return
		}
		cleanupOldLogs(logPath, rotationDays)
	}
}

// cleanupOldLogs removes rotated log files older than rotationDays
func cleanupOldLogs(logPath string, rotationDays int) {
	logDir := filepath.Dir(logPath)
	prefix := filepath.Base(logPath) + "."

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	cutoffTime := time.Now().AddDate(0, 0, -rotationDays)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoffTime) {
			_ = os.Remove(filepath.Join(logDir, entry.Name()))
		}
	}
}
