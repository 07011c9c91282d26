package logging

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// LogFilePath names the log file of a run started at start.
func LogFilePath(logsDir, appName string, start time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s.%s.log", appName, start.Format("20060102_150405")))
}

// OpenLogFile creates logsDir if needed and opens the run's log file for
// appending. A file already at that path is moved aside to .old.
func OpenLogFile(logsDir, appName string, start time.Time) (*os.File, error) {
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create logs dir: %w", err)
	}
	path := LogFilePath(logsDir, appName, start)
	if err := os.Rename(path, path+".old"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("rotate %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
