// Package screen owns the terminal while the live view runs: raw key input,
// a hidden cursor, size tracking and the status row under the canvas.
package screen

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/msalah0e/meshview/internal/render/term"
	xterm "golang.org/x/term"
)

// ErrNotTerminal is returned by Open when stdin or stdout is redirected.
var ErrNotTerminal = errors.New("screen: not a terminal")

// KeyCtrlC is what Ctrl+C reads as in raw mode, where it raises no signal.
const KeyCtrlC = 0x03

var (
	brand  = color.New(color.FgHiGreen, color.Bold)
	subtle = color.New(color.FgHiBlack)
)

// Screen is a terminal in raw mode. The last row is kept for the status line;
// everything above it is canvas.
type Screen struct {
	in    *os.File
	out   *os.File
	state *xterm.State
}

// Open switches the terminal to raw mode, hides the cursor and clears it.
// Close must be called to put everything back.
func Open() (*Screen, error) {
	in, out := os.Stdin, os.Stdout
	if !xterm.IsTerminal(int(in.Fd())) || !xterm.IsTerminal(int(out.Fd())) {
		return nil, ErrNotTerminal
	}
	state, err := xterm.MakeRaw(int(in.Fd()))
	if err != nil {
		return nil, fmt.Errorf("screen: raw mode: %w", err)
	}
	s := &Screen{in: in, out: out, state: state}
	fmt.Fprint(out, "\033[?25l\033[2J")
	return s, nil
}

// Close restores the terminal mode and cursor.
func (s *Screen) Close() error {
	fmt.Fprint(s.out, "\033[0m\033[2J\033[H\033[?25h")
	return xterm.Restore(int(s.in.Fd()), s.state)
}

// Out is where frames are written.
func (s *Screen) Out() io.Writer {
	return s.out
}

// Cells returns the terminal size in character cells.
func (s *Screen) Cells() (cols, rows int) {
	cols, rows, err := xterm.GetSize(int(s.out.Fd()))
	if err != nil {
		return 80, 24
	}
	return cols, rows
}

// Size returns the canvas size in world pixels, excluding the status row.
func (s *Screen) Size() (int, int) {
	return CanvasSize(s.Cells())
}

// CanvasSize converts a terminal size in cells to canvas pixels, keeping the
// bottom row free.
func CanvasSize(cols, rows int) (int, int) {
	rows--
	if rows < 1 {
		rows = 1
	}
	return cols * term.CellWidth, rows * term.CellHeight
}

// Status writes text on the bottom row without disturbing the canvas.
func (s *Screen) Status(text string) error {
	cols, rows := s.Cells()
	_, err := fmt.Fprintf(s.out, "\033[%d;1H\033[0m%s\033[K", rows, StatusLine(text, cols))
	return err
}

// StatusLine styles text for the status row, truncated to cols.
func StatusLine(text string, cols int) string {
	label := " meshview "
	if r := []rune(text); len(r)+len(label) > cols {
		n := cols - len(label)
		if n < 0 {
			n = 0
		}
		text = string(r[:n])
	}
	return brand.Sprint(label) + subtle.Sprint(text)
}

// ReadKeys forwards every byte read from r to keys until r fails. It closes
// keys when it returns. Reads cannot be interrupted, so callers leave it
// running and stop listening instead.
func ReadKeys(r io.Reader, keys chan<- byte) {
	defer close(keys)
	br := bufio.NewReader(r)
	for {
		b, err := br.ReadByte()
		if err != nil {
			return
		}
		keys <- b
	}
}

// Keys starts reading raw key presses from the terminal.
func (s *Screen) Keys() <-chan byte {
	keys := make(chan byte, 16)
	go ReadKeys(s.in, keys)
	return keys
}

// WatchSize polls size every interval and sends on notify whenever it
// changes. It returns nil when ctx is done.
func WatchSize(ctx context.Context, interval time.Duration, size func() (int, int), notify chan<- struct{}) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastW, lastH := size()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w, h := size()
			if w == lastW && h == lastH {
				continue
			}
			lastW, lastH = w, h
			select {
			case notify <- struct{}{}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
