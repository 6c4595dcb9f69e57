package ui

import (
	"errors"
	"sync"
)

// ErrSurfaceClosed is returned when drawing after the surface went away.
var ErrSurfaceClosed = errors.New("terminal surface closed")

// Surface is the terminal output capability. Draw must replace the whole
// visible frame in one update; Close must restore the terminal to the state it
// had before Open and be safe to call more than once.
type Surface interface {
	Open() error
	Size() (width, height int)
	Draw(content string) error
	Close() error
}

// MemorySurface records frames in memory. Used by tests and by nothing else.
type MemorySurface struct {
	mu      sync.Mutex
	Width   int
	Height  int
	Frames  []string
	Opened  bool
	Closed  bool
	OpenErr error
	DrawErr error
}

// NewMemorySurface returns a surface with a fixed size.
func NewMemorySurface(width, height int) *MemorySurface {
	return &MemorySurface{Width: width, Height: height}
}

func (m *MemorySurface) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.OpenErr != nil {
		return m.OpenErr
	}
	m.Opened = true
	return nil
}

func (m *MemorySurface) Size() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Width, m.Height
}

func (m *MemorySurface) Draw(content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Closed {
		return ErrSurfaceClosed
	}
	if m.DrawErr != nil {
		return m.DrawErr
	}
	m.Frames = append(m.Frames, content)
	return nil
}

func (m *MemorySurface) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Restored reports whether the surface was opened and then closed again.
func (m *MemorySurface) Restored() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Opened && m.Closed
}

// FrameCount returns how many frames were drawn.
func (m *MemorySurface) FrameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Frames)
}

// Last returns the most recent frame.
func (m *MemorySurface) Last() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Frames) == 0 {
		return ""
	}
	return m.Frames[len(m.Frames)-1]
}
