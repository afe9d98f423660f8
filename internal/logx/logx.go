package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"broadcast/internal/paths"
)

// Logger is the minimal logging surface components depend on. *log.Logger
// satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l Logger) Logger {
	if l == nil {
		return Discard()
	}
	return l
}

// New creates a logger that writes to a timestamped file inside the project's
// logs directory. The returned closer should be closed when logging is no
// longer needed.
func New(p paths.ProjectPaths) (*log.Logger, io.Closer, error) {
	return NewInDir(p.LogsDir, time.Now().Format("20060102-150405")+".log")
}

// NewInDir creates a file logger at dir/name.
func NewInDir(dir, name string) (*log.Logger, io.Closer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("ensure logs directory: %w", err)
	}

	filePath := filepath.Join(dir, name)
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}

	logger := log.New(file, "", log.LstdFlags|log.Lmicroseconds)
	return logger, file, nil
}

// Prefixed wraps a logger so every line starts with prefix.
func Prefixed(l Logger, prefix string) Logger {
	return prefixed{inner: OrDiscard(l), prefix: prefix}
}

type prefixed struct {
	inner  Logger
	prefix string
}

func (p prefixed) Printf(format string, v ...any) {
	p.inner.Printf(p.prefix+format, v...)
}
