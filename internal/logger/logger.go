package logger

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gzhole/intentguard/internal/redact"
)

// defaultMaxLogBytes is the size past which the audit log is rotated to
// <path>.1 before the next append.
const defaultMaxLogBytes = 10 * 1024 * 1024

// maxPromptChars bounds the prompt excerpt kept in detection events.
const maxPromptChars = 200

// Event kinds.
const (
	KindGuardian  = "guardian"
	KindDetection = "detection"
)

// CheckerEntry is a per-checker verdict inside a guardian event.
type CheckerEntry struct {
	Name        string `json:"name"`
	Status      string `json:"status"`
	Diagnostics string `json:"diagnostics,omitempty"`
}

type AuditEvent struct {
	Timestamp string `json:"timestamp"`
	Kind      string `json:"kind"`

	// Guardian transitions
	RunID           string         `json:"run_id,omitempty"`
	Iteration       int            `json:"iteration,omitempty"`
	Phase           string         `json:"phase,omitempty"`
	FromState       string         `json:"from_state,omitempty"`
	ToState         string         `json:"to_state,omitempty"`
	Action          string         `json:"action,omitempty"`
	ValidationLevel string         `json:"validation_level,omitempty"`
	Files           []string       `json:"files,omitempty"`
	Checkers        []CheckerEntry `json:"checkers,omitempty"`
	ChangedFiles    []string       `json:"changed_files,omitempty"`

	// Detections
	Prompt     string  `json:"prompt,omitempty"`
	Category   string  `json:"intent_category,omitempty"`
	Source     string  `json:"source,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Decision   string  `json:"decision,omitempty"`
	Target     string  `json:"target,omitempty"`
	RuleID     string  `json:"rule_id,omitempty"`

	Error string `json:"error,omitempty"`
}

// AuditLogger appends events to a JSONL file. The file is opened, appended
// to and closed for every event, so no handle outlives a call.
type AuditLogger struct {
	path     string
	maxBytes int64
	mu       sync.Mutex
}

// New creates the log file (mode 0600) and its directory if missing.
func New(path string) (*AuditLogger, error) {
	if path == "" {
		return nil, errors.New("audit log path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create audit log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	if err := file.Close(); err != nil {
		return nil, err
	}
	return &AuditLogger{path: path, maxBytes: defaultMaxLogBytes}, nil
}

// Path returns the log file location.
func (l *AuditLogger) Path() string { return l.path }

// Log redacts and appends one event as a single write.
func (l *AuditLogger) Log(event AuditEvent) error {
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	// Redact sensitive data before logging
	event.Prompt = redact.Redact(truncate(event.Prompt, maxPromptChars))
	if len(event.Checkers) > 0 {
		checkers := make([]CheckerEntry, len(event.Checkers))
		for i, c := range event.Checkers {
			c.Diagnostics = redact.Redact(c.Diagnostics)
			checkers[i] = c
		}
		event.Checkers = checkers
	}
	if event.Error != "" {
		event.Error = redact.Redact(event.Error)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.rotateIfNeeded(); err != nil {
		return err
	}
	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if _, err := file.Write(data); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

func (l *AuditLogger) rotateIfNeeded() error {
	info, err := os.Stat(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.Size() < l.maxBytes {
		return nil
	}
	if err := os.Rename(l.path, l.path+".1"); err != nil {
		return fmt.Errorf("failed to rotate audit log: %w", err)
	}
	return nil
}

// ReadEvents loads every well-formed event from the log. A missing file is
// an empty log.
func ReadEvents(path string) ([]AuditEvent, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []AuditEvent
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var event AuditEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip malformed lines
		}
		events = append(events, event)
	}
	return events, scanner.Err()
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
