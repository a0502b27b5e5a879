package chat

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Transcript records chat traffic for later review.
type Transcript interface {
	Log(event TranscriptEvent)
	Close() error
}

// TranscriptEvent is one line in a per-connection NDJSON transcript.
type TranscriptEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	UserID     string    `json:"user_id"`
	ConnID     string    `json:"conn_id"`
	Channel    string    `json:"channel"`
	Direction  string    `json:"direction"`
	EventType  string    `json:"event_type"`
	Content    string    `json:"content"`
	ContentRaw string    `json:"content_raw,omitempty"`
}

// TranscriptConfig configures transcript logging.
type TranscriptConfig struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// NopTranscript discards all events.
type NopTranscript struct{}

func (NopTranscript) Log(TranscriptEvent) {}
func (NopTranscript) Close() error        { return nil }

// TranscriptLogger writes events asynchronously to per-user, per-connection
// NDJSON files under Dir. Log never blocks the caller: when the queue is
// full the event is dropped and counted.
type TranscriptLogger struct {
	dir     string
	queue   chan TranscriptEvent
	done    chan struct{}
	log     *slog.Logger
	mu      sync.Mutex
	closed  bool
	dropped int64
}

// NewTranscriptLogger creates a transcript logger. When the config is
// disabled it returns a no-op implementation.
func NewTranscriptLogger(cfg TranscriptConfig, log *slog.Logger) (Transcript, error) {
	if !cfg.Enabled {
		return NopTranscript{}, nil
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("transcript dir is required when transcripts are enabled")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}

	t := &TranscriptLogger{
		dir:   cfg.Dir,
		queue: make(chan TranscriptEvent, queueSize),
		done:  make(chan struct{}),
		log:   log,
	}
	go t.run()
	return t, nil
}

// Log enqueues an event. The timestamp and cleaned content are filled in
// here so callers only provide the raw payload.
func (t *TranscriptLogger) Log(event TranscriptEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Content == "" {
		event.Content = cleanForReadability(event.ContentRaw)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	select {
	case t.queue <- event:
		t.mu.Unlock()
	default:
		t.dropped++
		n := t.dropped
		t.mu.Unlock()
		if n%100 == 1 {
			t.log.Warn("Transcript queue full, dropping events", "dropped_total", n)
		}
	}
}

// Close drains the queue and closes all open transcript files.
func (t *TranscriptLogger) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	close(t.queue)
	<-t.done
	return nil
}

func (t *TranscriptLogger) run() {
	defer close(t.done)

	files := make(map[string]*os.File)
	defer func() {
		for _, f := range files {
			if err := f.Close(); err != nil {
				t.log.Debug("Failed to close transcript file", "error", err)
			}
		}
	}()

	for event := range t.queue {
		f, err := t.fileFor(files, event.UserID, event.ConnID)
		if err != nil {
			t.log.Warn("Failed to open transcript file",
				"user_id", event.UserID, "conn_id", event.ConnID, "error", err)
			continue
		}
		line, err := json.Marshal(event)
		if err != nil {
			t.log.Warn("Failed to marshal transcript event", "error", err)
			continue
		}
		if _, err := f.Write(append(line, '\n')); err != nil {
			t.log.Warn("Failed to write transcript line", "error", err)
		}
	}
}

func (t *TranscriptLogger) fileFor(files map[string]*os.File, userID, connID string) (*os.File, error) {
	key := userID + "/" + connID
	if f, ok := files[key]; ok {
		return f, nil
	}

	userDir := filepath.Join(t.dir, sanitizePathComponent(userID))
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(userDir, sanitizePathComponent(connID)+".ndjson")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	files[key] = f
	return f, nil
}

var unsafePathChars = regexp.MustCompile(`[^a-zA-Z0-9_.-]`)

// sanitizePathComponent keeps transcript paths inside the configured dir
// even if an ID contains separators.
func sanitizePathComponent(s string) string {
	s = unsafePathChars.ReplaceAllString(s, "_")
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;?]*[a-zA-Z]|\x1b\][^\x07]*(\x07|\x1b\\)`)

// cleanForReadability strips ANSI escape sequences and control characters so
// transcript lines stay readable in a plain text viewer.
func cleanForReadability(raw string) string {
	clean := ansiEscape.ReplaceAllString(raw, "")
	clean = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, clean)
	return clean
}
