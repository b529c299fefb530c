// Package history manages the log of past rolls.
package history

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/CaptShanks/redroll/internal/dice"
)

const (
	// LogFile is the JSON-lines file holding one Entry per line
	LogFile = "history.jsonl"

	// SourceCLI marks rolls made from the command line
	SourceCLI = "cli"
	// SourceTUI marks rolls made in the interactive roller
	SourceTUI = "tui"
	// SourceAPI marks rolls made through the HTTP API
	SourceAPI = "api"
)

// Entry represents a single recorded roll
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Notation  string    `json:"notation"`
	Rolls     []int     `json:"rolls"`
	Modifier  int       `json:"modifier"`
	Total     int       `json:"total"`
	Source    string    `json:"source"` // cli, tui, api
}

// NewEntry builds an entry for a roll made now
func NewEntry(result dice.Result, source string) Entry {
	return Entry{
		Timestamp: time.Now(),
		Notation:  result.Formula().String(),
		Rolls:     result.Rolls(),
		Modifier:  result.Modifier(),
		Total:     result.Total(),
		Source:    source,
	}
}

// Line renders the stored roll the same way dice.Result does
func (e Entry) Line() string {
	parts := make([]string, len(e.Rolls))
	for i, r := range e.Rolls {
		parts[i] = fmt.Sprint(r)
	}
	sign, mod := "+", e.Modifier
	if mod < 0 {
		sign, mod = "-", -mod
	}
	return fmt.Sprintf("%s %s %d = %d", strings.Join(parts, " + "), sign, mod, e.Total)
}

// Store reads and writes the roll log in a directory. It is safe for
// concurrent use within one process.
type Store struct {
	mu  sync.Mutex
	dir string
}

// NewStore creates a store rooted at dir
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory holding the log
func (s *Store) Dir() string {
	return s.dir
}

// Path returns the path to the log file
func (s *Store) Path() string {
	return filepath.Join(s.dir, LogFile)
}

// ensureDir creates the history directory if it doesn't exist
func (s *Store) ensureDir() error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	return nil
}

// Append adds an entry to the end of the log
func (s *Store) Append(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.append(e)
}

func (s *Store) append(e Entry) error {
	if err := s.ensureDir(); err != nil {
		return err
	}

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode history entry: %w", err)
	}

	f, err := os.OpenFile(s.Path(), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open history file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append to history file: %w", err)
	}
	return nil
}

// readAll returns every well-formed entry in file order
func (s *Store) readAll() ([]Entry, error) {
	data, err := os.ReadFile(s.Path())
	if os.IsNotExist(err) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read history file: %w", err)
	}

	var entries []Entry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue // Skip lines that don't match our format
		}
		if !dice.Validate(e.Notation) {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan history file: %w", err)
	}
	return entries, nil
}

// List returns entries sorted newest first, optionally filtered by source
func (s *Store) List(filterSource string) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.list(filterSource)
}

func (s *Store) list(filterSource string) ([]Entry, error) {
	all, err := s.readAll()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(all))
	for _, e := range all {
		if filterSource != "" && e.Source != filterSource {
			continue
		}
		entries = append(entries, e)
	}

	// Newest first; equal timestamps keep reverse log order
	reverse(entries)
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

// Trim keeps only the newest max entries and returns how many were removed
func (s *Store) Trim(max int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trim(max)
}

func (s *Store) trim(max int) (int, error) {
	if max <= 0 {
		return 0, nil
	}
	entries, err := s.list("")
	if err != nil {
		return 0, err
	}
	if len(entries) <= max {
		return 0, nil
	}

	kept := entries[:max]
	reverse(kept) // back to oldest first

	var buf bytes.Buffer
	for _, e := range kept {
		data, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("failed to encode history entry: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	tmp := s.Path() + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return 0, fmt.Errorf("failed to write history file: %w", err)
	}
	if err := os.Rename(tmp, s.Path()); err != nil {
		return 0, fmt.Errorf("failed to replace history file: %w", err)
	}
	return len(entries) - max, nil
}

// Clear removes the log and returns how many entries it held
func (s *Store) Clear() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.readAll()
	if err != nil {
		return 0, err
	}
	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("failed to delete history file: %w", err)
	}
	return len(entries), nil
}

// Record appends a result and trims the log to max entries
func (s *Store) Record(result dice.Result, source string, max int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.append(NewEntry(result, source)); err != nil {
		return err
	}
	_, err := s.trim(max)
	return err
}

// FormatEntry formats an entry for display
func FormatEntry(e Entry) string {
	notation := e.Notation
	if len(notation) > 14 {
		notation = notation[:11] + "..."
	}
	return fmt.Sprintf("%s  %-14s  %-4s  %6d",
		e.Timestamp.Format("2006-01-02 15:04:05"),
		notation,
		e.Source,
		e.Total,
	)
}

func reverse(entries []Entry) {
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
}
