package ui

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Fallback size when the output is not a terminal.
const (
	defaultWidth  = 120
	defaultHeight = 40
)

// ANSISurface draws with plain escape sequences and no input handling.
// Each frame is assembled in a buffer and written with a single Write.
type ANSISurface struct {
	w  io.Writer
	fd int // -1 when w is not a terminal

	mu     sync.Mutex
	buf    bytes.Buffer
	opened bool
}

// NewANSISurface draws to w. fd is the terminal descriptor used for sizing,
// or -1 to use the fallback size.
func NewANSISurface(w io.Writer, fd int) *ANSISurface {
	return &ANSISurface{w: w, fd: fd}
}

func (a *ANSISurface) Open() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.opened {
		return nil
	}
	a.buf.Reset()
	o := termenv.NewOutput(&a.buf)
	o.AltScreen()
	o.HideCursor()
	o.ClearScreen()
	if err := a.flushLocked(); err != nil {
		return err
	}
	a.opened = true
	return nil
}

func (a *ANSISurface) Size() (int, int) { return terminalSize(a.fd) }

// terminalSize asks the terminal behind fd for its size.
func terminalSize(fd int) (int, int) {
	if fd >= 0 {
		if w, h, err := term.GetSize(fd); err == nil && w > 0 {
			return w, h
		}
	}
	return defaultWidth, defaultHeight
}

// Draw homes the cursor and overwrites the previous frame line by line,
// erasing leftovers to the right and below, so the screen is never blank
// between frames.
func (a *ANSISurface) Draw(content string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.opened {
		return ErrSurfaceClosed
	}
	a.buf.Reset()
	o := termenv.NewOutput(&a.buf)
	o.MoveCursor(1, 1)
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		a.buf.WriteString(line)
		o.ClearLineRight()
		if i < len(lines)-1 {
			a.buf.WriteString("\r\n")
		}
	}
	fmt.Fprintf(&a.buf, termenv.CSI+termenv.EraseDisplaySeq, 0)
	return a.flushLocked()
}

func (a *ANSISurface) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.opened {
		return nil
	}
	a.opened = false
	a.buf.Reset()
	o := termenv.NewOutput(&a.buf)
	o.ShowCursor()
	o.ExitAltScreen()
	return a.flushLocked()
}

func (a *ANSISurface) flushLocked() error {
	_, err := a.w.Write(a.buf.Bytes())
	a.buf.Reset()
	return err
}
