// Package client is a typed HTTP client for the sheetcharts API, with an
// explicit record of the actions a session performed.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// HistoryEntry is one recorded action.
type HistoryEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// History is an ordered, append-only log of client actions. The zero value
// is ready to use.
type History struct {
	mu      sync.Mutex
	entries []HistoryEntry
	now     func() time.Time
}

// NewHistory creates an empty History.
func NewHistory() *History {
	return &History{}
}

// Add records msg with the current time.
func (h *History) Add(msg string) HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now
	if h.now != nil {
		now = h.now
	}
	e := HistoryEntry{Timestamp: now().UTC(), Message: msg}
	h.entries = append(h.entries, e)
	return e
}

// Entries returns a copy of the recorded entries, oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Load replaces the entries with those stored at path. A missing file
// leaves the history empty.
func (h *History) Load(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		h.mu.Lock()
		h.entries = nil
		h.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("read history: %w", err)
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse history: %w", err)
	}
	h.mu.Lock()
	h.entries = entries
	h.mu.Unlock()
	return nil
}

// Save writes the entries to path, replacing it atomically.
func (h *History) Save(path string) error {
	entries := h.Entries()
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".history-*")
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}
