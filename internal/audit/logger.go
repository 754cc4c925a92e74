package audit

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"
)

// Event names written to the audit log.
const (
	EventScanStarted   = "scan_started"
	EventPluginScored  = "plugin_scored"
	EventHighRisk      = "high_risk_detected"
	EventEntitySkipped = "entity_skipped"
	EventMismatch      = "mismatch_detected"
	EventAlert         = "alert_raised"
	EventScanCompleted = "scan_completed"
	EventDispatched    = "report_dispatched"
)

// Entry represents a single audit log entry.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	ScanID    string    `json:"scan_id"`
	Event     string    `json:"event"`
	Component string    `json:"component,omitempty"`
	RoleID    string    `json:"role_id,omitempty"`
	Rule      string    `json:"rule,omitempty"`
	Severity  string    `json:"severity,omitempty"`
	Score     int       `json:"score,omitempty"`
	Message   string    `json:"message,omitempty"`
	Detail    any       `json:"detail,omitempty"`
}

// Logger writes JSON-line audit log entries.
type Logger struct {
	mu     sync.Mutex
	writer io.Writer
	enc    *json.Encoder
}

// NewLogger creates a new audit logger writing to the given writer.
func NewLogger(w io.Writer) *Logger {
	return &Logger{
		writer: w,
		enc:    json.NewEncoder(w),
	}
}

// NewFileLogger creates a logger that writes to a file at the given path.
// Creates the file if it doesn't exist, appends if it does.
func NewFileLogger(path string) (*Logger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return NewLogger(f), nil
}

// NewStderrLogger creates a logger that writes to stderr.
func NewStderrLogger() *Logger {
	return NewLogger(os.Stderr)
}

// Log writes a single audit entry as a JSON line. Safe for concurrent use.
func (l *Logger) Log(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(entry)
}

// Close closes the underlying writer when it is closable.
func (l *Logger) Close() error {
	if c, ok := l.writer.(io.Closer); ok && l.writer != os.Stderr {
		return c.Close()
	}
	return nil
}

// NopLogger returns a logger that discards all entries.
func NopLogger() *Logger {
	return NewLogger(io.Discard)
}
