// Package chatlog records conversation events as NDJSON, one file per
// user session, without blocking the chat path.
package chatlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Event types written by the api package.
const (
	EventUserMessage      = "chat_user_message"
	EventAssistantMessage = "chat_assistant_message"
	EventSessionClosed    = "chat_session_closed"
	EventVoiceCommand     = "voice_command"
	EventSupportTicket    = "support_ticket"
)

// ConversationLogEvent is one line in a session log.
type ConversationLogEvent struct {
	Timestamp  time.Time `json:"ts"`
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	Channel    string    `json:"channel"`
	Direction  string    `json:"direction"`
	EventType  string    `json:"event_type"`
	Category   string    `json:"category,omitempty"`
	Language   string    `json:"language,omitempty"`
	Content    string    `json:"content"`
	ContentRaw string    `json:"content_raw,omitempty"`
}

// ConversationLogger accepts events. Log never blocks.
type ConversationLogger interface {
	Log(event ConversationLogEvent)
	Close() error
}

// ConversationLogConfig configures NewConversationLogger.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

type noopConversationLogger struct{}

func (noopConversationLogger) Log(ConversationLogEvent) {}
func (noopConversationLogger) Close() error             { return nil }

// Noop returns a logger that discards everything.
func Noop() ConversationLogger {
	return noopConversationLogger{}
}

type fileConversationLogger struct {
	cfg    ConversationLogConfig
	events chan ConversationLogEvent
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	files  map[string]*os.File
	global *os.File
}

// NewConversationLogger returns a no-op logger when cfg.Enabled is false.
func NewConversationLogger(cfg ConversationLogConfig, logger *slog.Logger) (ConversationLogger, error) {
	if !cfg.Enabled {
		return noopConversationLogger{}, nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dir == "" {
		return nil, errors.New("conversation log dir is required")
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if err := os.MkdirAll(cfg.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("create conversation log dir: %w", err)
	}

	l := &fileConversationLogger{
		cfg:    cfg,
		events: make(chan ConversationLogEvent, cfg.QueueSize),
		logger: logger,
		files:  make(map[string]*os.File),
	}

	if cfg.GlobalEnabled && cfg.GlobalPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0o750); err != nil {
			return nil, fmt.Errorf("create global conversation log dir: %w", err)
		}
		f, err := os.OpenFile(cfg.GlobalPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
		if err != nil {
			return nil, fmt.Errorf("open global conversation log: %w", err)
		}
		l.global = f
	}

	l.wg.Add(1)
	go l.run()

	logger.Info("Conversation logging enabled", "dir", cfg.Dir, "global", l.global != nil, "queue_size", cfg.QueueSize)
	return l, nil
}

func (l *fileConversationLogger) Log(event ConversationLogEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.Content == "" {
		event.Content = cleanForReadability(event.ContentRaw)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return
	}
	select {
	case l.events <- event:
	default:
		l.logger.Warn("Conversation log queue full, dropping event",
			"user_id", event.UserID,
			"session_id", event.SessionID,
			"event_type", event.EventType,
		)
	}
}

func (l *fileConversationLogger) run() {
	defer l.wg.Done()
	for event := range l.events {
		if err := l.write(event); err != nil {
			l.logger.Warn("Failed to write conversation log event", "error", err, "user_id", event.UserID)
		}
	}
}

func (l *fileConversationLogger) write(event ConversationLogEvent) error {
	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	line = append(line, '\n')

	f, err := l.sessionFile(event.UserID, event.SessionID)
	if err != nil {
		return err
	}
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write session log: %w", err)
	}
	if l.global != nil {
		if _, err := l.global.Write(line); err != nil {
			return fmt.Errorf("write global log: %w", err)
		}
	}
	return nil
}

// sessionFile is only called from the worker goroutine.
func (l *fileConversationLogger) sessionFile(userID, sessionID string) (*os.File, error) {
	userDir := safeName(userID)
	name := safeName(sessionID) + ".ndjson"
	key := userDir + "/" + name
	if f, ok := l.files[key]; ok {
		return f, nil
	}

	dir := filepath.Join(l.cfg.Dir, userDir)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create user log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open session log: %w", err)
	}
	l.files[key] = f
	return f, nil
}

// Close flushes queued events and closes every file.
func (l *fileConversationLogger) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	close(l.events)
	l.mu.Unlock()

	l.wg.Wait()

	var errs []error
	for _, f := range l.files {
		errs = append(errs, f.Close())
	}
	if l.global != nil {
		errs = append(errs, l.global.Close())
	}
	return errors.Join(errs...)
}

var (
	ansiPattern       = regexp.MustCompile(`\x1b\[[0-9;?]*[ -/]*[@-~]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	unsafeNamePattern = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// cleanForReadability strips escape sequences and control characters and
// collapses runs of whitespace.
func cleanForReadability(raw string) string {
	s := ansiPattern.ReplaceAllString(raw, "")
	s = strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return -1
		}
		if r == 0x7f {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}

func safeName(s string) string {
	s = unsafeNamePattern.ReplaceAllString(s, "_")
	s = strings.Trim(s, ".")
	if s == "" {
		return "unknown"
	}
	return s
}
