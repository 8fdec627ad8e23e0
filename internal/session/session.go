// Package session records one line per meshview run so past views can be
// compared: how long they ran, how many frames they drew and how big the
// ring got.
package session

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/msalah0e/meshview/internal/config"
)

// Session tracks a single run of a command.
type Session struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at,omitempty"`
	Duration  float64   `json:"duration_secs,omitempty"`
	Frames    uint64    `json:"frames,omitempty"`
	Restarts  uint64    `json:"restarts,omitempty"`
	PeakNodes int       `json:"peak_nodes,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// FPS is the average frame rate over the run.
func (s Session) FPS() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.Frames) / s.Duration
}

// Summary aggregates session data.
type Summary struct {
	TotalSessions int
	TotalDuration time.Duration
	TotalFrames   uint64
	ByCommand     map[string]CommandSummary
}

// CommandSummary tracks per-command session metrics.
type CommandSummary struct {
	Sessions  int
	Duration  time.Duration
	Frames    uint64
	PeakNodes int
}

// Path is where the session history lives.
func Path() string {
	return filepath.Join(config.ConfigDir(), "sessions.jsonl")
}

// Start begins a session. Nothing is written until End.
func Start(command string) *Session {
	now := time.Now()
	return &Session{
		ID:        now.Format("20060102-150405"),
		Command:   command,
		StartedAt: now,
	}
}

// ObserveNodes raises the recorded peak ring size.
func (s *Session) ObserveNodes(n int) {
	if n > s.PeakNodes {
		s.PeakNodes = n
	}
}

// End finalizes a session and appends it to the history. runErr, if any, is
// stored as the session's outcome.
func End(s *Session, frames, restarts uint64, runErr error) error {
	s.EndedAt = time.Now()
	s.Duration = s.EndedAt.Sub(s.StartedAt).Seconds()
	s.Frames = frames
	s.Restarts = restarts
	if runErr != nil {
		s.Error = runErr.Error()
	}
	return save(s)
}

func save(s *Session) error {
	path := Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(s)
}

// List returns the most recent n sessions, newest first. n <= 0 means all.
func List(n int) ([]Session, error) {
	f, err := os.Open(Path())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var all []Session
	dec := json.NewDecoder(f)
	for dec.More() {
		var s Session
		if err := dec.Decode(&s); err != nil {
			break
		}
		all = append(all, s)
	}

	if n > 0 && len(all) > n {
		all = all[len(all)-n:]
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all, nil
}

// Summarize aggregates all session data.
func Summarize() (*Summary, error) {
	sessions, err := List(0)
	if err != nil {
		return nil, err
	}

	sum := &Summary{ByCommand: make(map[string]CommandSummary)}
	for _, s := range sessions {
		dur := time.Duration(s.Duration * float64(time.Second))
		sum.TotalSessions++
		sum.TotalDuration += dur
		sum.TotalFrames += s.Frames

		cs := sum.ByCommand[s.Command]
		cs.Sessions++
		cs.Duration += dur
		cs.Frames += s.Frames
		cs.PeakNodes = max(cs.PeakNodes, s.PeakNodes)
		sum.ByCommand[s.Command] = cs
	}
	return sum, nil
}
