package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event
type EventType string

const (
	EventScan    EventType = "scan"
	EventResolve EventType = "resolve"
	EventUpdate  EventType = "update"
	EventRefresh EventType = "refresh"
	EventSkip    EventType = "skip"
	EventError   EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event in the sync pipeline
type Event struct {
	Timestamp time.Time  `json:"ts"`
	Level     EventLevel `json:"level"`
	Event     EventType  `json:"event"`
	FilePath  string     `json:"file_path,omitempty"`
	VideoID   string     `json:"video_id,omitempty"`
	Title     string     `json:"title,omitempty"`
	ItemID    string     `json:"item_id,omitempty"`
	LibraryID string     `json:"library_id,omitempty"`
	Reason    string     `json:"reason,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	// Generate filename with timestamp
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil // Skip events below minimum level
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogScan logs a discovered candidate file
func (l *EventLogger) LogScan(filePath, videoID string) error {
	return l.Log(&Event{
		Level:    LevelDebug,
		Event:    EventScan,
		FilePath: filePath,
		VideoID:  videoID,
	})
}

// LogResolve logs a title resolution
func (l *EventLogger) LogResolve(filePath, videoID, title string, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:    level,
		Event:    EventResolve,
		FilePath: filePath,
		VideoID:  videoID,
		Title:    title,
		Error:    errMsg,
	})
}

// LogUpdate logs a library item rename
func (l *EventLogger) LogUpdate(filePath, videoID, itemID, title string, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:    level,
		Event:    EventUpdate,
		FilePath: filePath,
		VideoID:  videoID,
		ItemID:   itemID,
		Title:    title,
		Error:    errMsg,
	})
}

// LogRefresh logs a library section refresh request
func (l *EventLogger) LogRefresh(libraryID string, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelWarning
		errMsg = err.Error()
	}

	return l.Log(&Event{
		Level:     level,
		Event:     EventRefresh,
		LibraryID: libraryID,
		Error:     errMsg,
	})
}

// LogSkip logs a skipped file with its reason
func (l *EventLogger) LogSkip(filePath, videoID, reason string) error {
	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    EventSkip,
		FilePath: filePath,
		VideoID:  videoID,
		Reason:   reason,
	})
}

// LogError logs an unexpected per-file error
func (l *EventLogger) LogError(filePath string, err error) error {
	return l.Log(&Event{
		Level:    LevelError,
		Event:    EventError,
		FilePath: filePath,
		Error:    err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
