package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// filePrefix starts every log file name: <prefix>-<YYYY>-W<ww>[_NN].log
	filePrefix = "aiprescription"

	// DefaultMaxFileSize caps a single log file before it is split
	DefaultMaxFileSize int64 = 100 * 1024 * 1024

	cleanupInterval = 24 * time.Hour
)

var numberedFileRegex = regexp.MustCompile(`^` + filePrefix + `-\d{4}-W\d{2}_(\d{2})\.log$`)

// RotatingLogger writes to one file per ISO week, splitting a week into
// numbered files once maxFileSize is reached, and deletes files older than
// the retention period.
type RotatingLogger struct {
	logDir      string
	currentFile *os.File
	currentWeek string
	retention   time.Duration
	maxFileSize int64
	currentSize atomic.Int64
	mu          sync.Mutex

	ctx         context.Context
	cancel      context.CancelFunc
	cleanupOnce sync.Once
	cleanupDone chan struct{}
}

// NewRotatingLogger creates a rotating logger with the default size limit
func NewRotatingLogger(logDir string, retentionWeeks int) *RotatingLogger {
	return NewRotatingLoggerWithSizeLimit(logDir, retentionWeeks, DefaultMaxFileSize)
}

// NewRotatingLoggerWithSizeLimit creates a rotating logger. A zero
// maxFileSize disables size-based splitting.
func NewRotatingLoggerWithSizeLimit(logDir string, retentionWeeks int, maxFileSize int64) *RotatingLogger {
	ctx, cancel := context.WithCancel(context.Background())
	return &RotatingLogger{
		logDir:      logDir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		ctx:         ctx,
		cancel:      cancel,
		cleanupDone: make(chan struct{}),
	}
}

// getWeekKey returns the week key in YYYY-Www format (ISO week)
func getWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func weekFileName(week string) string {
	return fmt.Sprintf("%s-%s.log", filePrefix, week)
}

func numberedFileName(week string, n int) string {
	return fmt.Sprintf("%s-%s_%02d.log", filePrefix, week, n)
}

// doRotate opens the file for targetWeek (caller must hold mu)
func (rl *RotatingLogger) doRotate(targetWeek string) error {
	if rl.currentFile != nil {
		if err := rl.currentFile.Close(); err != nil {
			slog.Warn("Failed to close log file during rotation", "error", err)
		}
		rl.currentFile = nil
	}

	full := rl.maxFileSize > 0 && rl.currentSize.Load() >= rl.maxFileSize
	fileName, fresh := rl.pickFile(targetWeek, full)

	logPath := filepath.Join(rl.logDir, fileName)
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", logPath, err)
	}

	rl.currentFile = file
	rl.currentWeek = targetWeek

	size := int64(0)
	if !fresh {
		if info, err := file.Stat(); err == nil {
			size = info.Size()
		}
	}
	rl.currentSize.Store(size)

	return nil
}

// pickFile chooses the file to append to for week. fresh reports a file
// that is new and therefore empty.
func (rl *RotatingLogger) pickFile(week string, full bool) (name string, fresh bool) {
	base := weekFileName(week)

	if !full {
		info, err := os.Stat(filepath.Join(rl.logDir, base))
		if err != nil {
			return base, true
		}
		if rl.maxFileSize == 0 || info.Size() < rl.maxFileSize {
			return base, false
		}
	}

	highest, lastSize := rl.highestNumberedFile(week)
	if highest > 0 && lastSize < rl.maxFileSize && !full {
		return numberedFileName(week, highest), false
	}

	return numberedFileName(week, highest+1), true
}

// highestNumberedFile finds the last size-split file of week and its size
func (rl *RotatingLogger) highestNumberedFile(week string) (int, int64) {
	pattern := filepath.Join(rl.logDir, fmt.Sprintf("%s-%s_??.log", filePrefix, week))
	matches, _ := filepath.Glob(pattern)

	highest := 0
	var size int64
	for _, match := range matches {
		m := numberedFileRegex.FindStringSubmatch(filepath.Base(match))
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		if n <= highest {
			continue
		}
		highest = n
		size = 0
		if info, err := os.Stat(match); err == nil {
			size = info.Size()
		}
	}

	return highest, size
}

// Write implements io.Writer, rotating on week change or size limit
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := getWeekKey(time.Now())
	needsRotation := rl.currentFile == nil || rl.currentWeek != week

	if !needsRotation && rl.maxFileSize > 0 {
		if rl.currentSize.Load()+int64(len(p)) > rl.maxFileSize {
			needsRotation = true
			rl.currentSize.Store(rl.maxFileSize)
		}
	}

	if needsRotation {
		if err := rl.doRotate(week); err != nil {
			return 0, err
		}
	}

	n, err := rl.currentFile.Write(p)
	rl.currentSize.Add(int64(n))
	return n, err
}

// startCleanup runs cleanupOldLogs daily until Close
func (rl *RotatingLogger) startCleanup() {
	rl.cleanupOnce.Do(func() {
		go func() {
			defer close(rl.cleanupDone)

			ticker := time.NewTicker(cleanupInterval)
			defer ticker.Stop()

			for {
				select {
				case <-rl.ctx.Done():
					return
				case <-ticker.C:
					if err := rl.cleanupOldLogs(); err != nil {
						slog.Warn("Failed to clean up old logs", "error", err)
					}
				}
			}
		}()
	})
}

// cleanupOldLogs removes log files older than the retention period
func (rl *RotatingLogger) cleanupOldLogs() error {
	entries, err := os.ReadDir(rl.logDir)
	if err != nil {
		return fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-rl.retention)
	deleted := 0

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix+"-") || !strings.HasSuffix(name, ".log") {
			continue
		}

		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(rl.logDir, name)); err == nil {
			deleted++
		}
	}

	if deleted > 0 {
		// Console only, the file handler may be the caller
		fmt.Fprintf(os.Stderr, "Cleaned up %d old log files\n", deleted)
	}

	return nil
}

// Close stops background cleanup and closes the current file
func (rl *RotatingLogger) Close() error {
	rl.cancel()

	started := true
	rl.cleanupOnce.Do(func() { started = false })
	if started {
		select {
		case <-rl.cleanupDone:
		case <-time.After(5 * time.Second):
			fmt.Fprintln(os.Stderr, "Warning: log cleanup goroutine did not stop in time")
		}
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.currentFile == nil {
		return nil
	}
	err := rl.currentFile.Close()
	rl.currentFile = nil
	return err
}
