package attendance

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/presence-station/internal/constants"
)

// Log is the durable, append-only attendance log.
type Log interface {
	// Append durably writes one entry. It must not return before the entry is persisted.
	Append(ctx context.Context, entry Entry) error
	// Entries returns every entry in append order.
	Entries(ctx context.Context) ([]Entry, error)
}

// FormatLine renders an entry as "name,ACTION,YYYY-MM-DD HH:MM:SS".
func FormatLine(e Entry) string {
	return fmt.Sprintf("%s,%s,%s", e.Key, e.Action, e.Timestamp.Format(constants.LogTimeLayout))
}

// ParseLine parses one log line. Timestamps are interpreted in loc.
func ParseLine(line string, loc *time.Location) (Entry, error) {
	parts := strings.Split(strings.TrimRight(line, "\r\n"), ",")
	if len(parts) != 3 {
		return Entry{}, fmt.Errorf("%w: expected 3 fields, got %d", ErrMalformedLine, len(parts))
	}

	action := Action(parts[1])
	if action != ActionIn && action != ActionOut {
		return Entry{}, fmt.Errorf("%w: unknown action %q", ErrMalformedLine, parts[1])
	}
	if parts[0] == "" {
		return Entry{}, fmt.Errorf("%w: empty name", ErrMalformedLine)
	}

	ts, err := time.ParseInLocation(constants.LogTimeLayout, parts[2], loc)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %w", ErrMalformedLine, err)
	}

	return Entry{Key: parts[0], Action: action, Timestamp: ts}, nil
}

// FileLog appends entries to a plain text file, one line per event.
type FileLog struct {
	path string
	loc  *time.Location
	mu   sync.Mutex
}

// NewFileLog creates a log backed by path. The parent directory is created if missing.
func NewFileLog(path string, loc *time.Location) (*FileLog, error) {
	if loc == nil {
		loc = time.Local
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}
	return &FileLog{path: path, loc: loc}, nil
}

// Path returns the file path of the log.
func (l *FileLog) Path() string {
	return l.path
}

// Append writes the entry and syncs the file before returning.
func (l *FileLog) Append(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening attendance log: %w", err)
	}

	if _, err := f.WriteString(FormatLine(entry) + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("writing attendance log: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("syncing attendance log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing attendance log: %w", err)
	}
	return nil
}

// Entries reads the whole log. Lines that do not parse (for example the two-column
// lines written by older releases) are skipped.
func (l *FileLog) Entries(ctx context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening attendance log: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := ParseLine(line, l.loc)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading attendance log: %w", err)
	}
	return entries, nil
}

// KeyedLog is a Log that can look up the entries of one identity itself.
type KeyedLog interface {
	Log
	EntriesFor(ctx context.Context, key string) ([]Entry, error)
}

// EntriesFor returns the entries for key in append order. Logs implementing
// KeyedLog answer directly; others are read in full and filtered.
func EntriesFor(ctx context.Context, log Log, key string) ([]Entry, error) {
	if kl, ok := log.(KeyedLog); ok {
		return kl.EntriesFor(ctx, key)
	}
	entries, err := log.Entries(ctx)
	if err != nil {
		return nil, err
	}
	return Filter(entries, key), nil
}

// Filter returns the entries for key, preserving order.
func Filter(entries []Entry, key string) []Entry {
	var out []Entry
	for _, e := range entries {
		if e.Key == key {
			out = append(out, e)
		}
	}
	return out
}
