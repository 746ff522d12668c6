// Package logging provides the server's diagnostic logger. The MCP stdio transport
// requires clean stdout/stderr framing, so every diagnostic goes to a file
// instead — never to stdout, and to stderr only when running outside MCP mode (the CLI
// subcommands of cmd/sgmcp).
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Logger writes diagnostics to a file (MCP mode) or stderr (CLI mode), guarded by a
// mutex since tool handlers log concurrently under internal/exec's worker pool.
type Logger struct {
	mu       sync.Mutex
	file     *os.File
	logger   *log.Logger
	filePath string
}

// New creates a Logger. When mcpMode is true, output goes to a timestamped file under
// the system temp directory (falling back to $HOME if that fails); when false, output
// goes to stderr, which is safe once the process isn't speaking stdio JSON-RPC.
func New(mcpMode bool) *Logger {
	l := &Logger{}

	if !mcpMode {
		l.logger = log.New(os.Stderr, "[sgmcp] ", log.LstdFlags)
		return l
	}

	logDir := filepath.Join(os.TempDir(), "sgmcp-logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		if home, herr := os.UserHomeDir(); herr == nil {
			logDir = filepath.Join(home, ".sgmcp-logs")
			_ = os.MkdirAll(logDir, 0o755)
		}
	}

	logPath := filepath.Join(logDir, fmt.Sprintf("sgmcp-%s.log", time.Now().Format("2006-01-02T150405")))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		l.logger = log.New(io.Discard, "", 0)
		return l
	}
	l.file = file
	l.filePath = logPath
	l.logger = log.New(file, "[sgmcp] ", log.LstdFlags|log.Lshortfile)
	return l
}

// NewDiscard returns a Logger that drops everything, for tests that don't care about
// diagnostic output.
func NewDiscard() *Logger {
	return &Logger{logger: log.New(io.Discard, "", 0)}
}

func (l *Logger) Printf(format string, args ...any) {
	if l == nil || l.logger == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger.Printf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	l.Printf("ERROR: "+format, args...)
}

// Path returns the backing log file's path, or "" when logging to stderr/discard.
func (l *Logger) Path() string {
	if l == nil {
		return ""
	}
	return l.filePath
}

func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}
