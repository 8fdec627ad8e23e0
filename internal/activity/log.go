// Package activity keeps meshview's event log: one JSON object per line in
// the config directory. The live view draws over the whole terminal, so
// anything worth remembering goes here instead of stdout.
package activity

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/msalah0e/meshview/internal/config"
)

// Event names written by meshview.
const (
	ActionJoin    = "join"
	ActionKick    = "kick"
	ActionRemove  = "remove"
	ActionRestart = "restart"
	ActionDefect  = "defect"
	ActionStop    = "stop"
	ActionSnap    = "snapshot"
)

// Entry is one line of the event log.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Node      string    `json:"node,omitempty"`
	Details   string    `json:"details,omitempty"`
}

var mu sync.Mutex

// Path is where the event log lives.
func Path() string {
	return filepath.Join(config.ConfigDir(), "events.jsonl")
}

// Log appends an entry. node may be empty for events that are not about a
// single ring member.
func Log(action, node, details string) error {
	return appendEntry(Entry{
		Timestamp: time.Now(),
		Action:    action,
		Node:      node,
		Details:   details,
	})
}

// Logf is Log with a formatted details string.
func Logf(action, node, format string, args ...any) error {
	return Log(action, node, fmt.Sprintf(format, args...))
}

func appendEntry(entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	mu.Lock()
	defer mu.Unlock()

	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%s\n", data)
	return err
}

// Read returns the newest count entries, newest first. count <= 0 means all.
// Lines that do not parse are skipped.
func Read(count int) ([]Entry, error) {
	data, err := os.ReadFile(Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Entry
		if json.Unmarshal(line, &e) == nil {
			entries = append(entries, e)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	if count > 0 && len(entries) > count {
		entries = entries[:count]
	}
	return entries, nil
}

// Search returns up to count entries whose action, node or details contain
// query, ignoring case.
func Search(query string, count int) ([]Entry, error) {
	all, err := Read(0)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	var results []Entry
	for _, e := range all {
		if matches(e, q) {
			results = append(results, e)
			if count > 0 && len(results) >= count {
				break
			}
		}
	}
	return results, nil
}

func matches(e Entry, q string) bool {
	for _, field := range []string{e.Action, e.Node, e.Details} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

// Clear removes the log. Clearing a log that does not exist is not an error.
func Clear() error {
	mu.Lock()
	defer mu.Unlock()
	if err := os.Remove(Path()); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
