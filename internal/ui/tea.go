package ui

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// closeTimeout bounds how long Close waits for Bubble Tea to restore the terminal.
const closeTimeout = 2 * time.Second

type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q/ctrl+c", "quit"),
	),
}

// frameMsg carries one composed frame into the program.
type frameMsg string

// teaModel shows whatever frame it was last sent. It has no logic of its own:
// sampling and layout happen in the loop, which pushes frames in via Send.
type teaModel struct {
	content string
	surface *TeaSurface
}

func (m teaModel) Init() tea.Cmd { return nil }

func (m teaModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.surface.setSize(msg.Width, msg.Height)
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			if m.surface.onQuit == nil {
				return m, tea.Quit
			}
			m.surface.onQuit()
		}
	case frameMsg:
		m.content = string(msg)
	}
	return m, nil
}

func (m teaModel) View() string { return m.content }

// TeaSurface hands frames to a Bubble Tea program running on the alt screen.
// Bubble Tea owns raw mode and restores the terminal when the program ends.
type TeaSurface struct {
	in     io.Reader
	out    io.Writer
	fd     int
	onQuit func()

	program *tea.Program
	done    chan struct{}
	runErr  error

	width  atomic.Int32
	height atomic.Int32

	closeOnce sync.Once
}

// NewTeaSurface creates a surface reading keys from in and drawing to out.
// onQuit runs when the user presses a quit key; nil makes the program quit by itself.
func NewTeaSurface(in io.Reader, out io.Writer, fd int, onQuit func()) *TeaSurface {
	return &TeaSurface{in: in, out: out, fd: fd, onQuit: onQuit}
}

func (s *TeaSurface) Open() error {
	if s.program != nil {
		return nil
	}
	s.done = make(chan struct{})
	s.program = tea.NewProgram(teaModel{surface: s},
		tea.WithAltScreen(),
		tea.WithInput(s.in),
		tea.WithOutput(s.out),
		// the loop owns SIGINT/SIGTERM
		tea.WithoutSignalHandler(),
	)
	go func() {
		defer close(s.done)
		_, s.runErr = s.program.Run()
	}()
	return nil
}

func (s *TeaSurface) setSize(w, h int) {
	s.width.Store(int32(w))
	s.height.Store(int32(h))
}

func (s *TeaSurface) Size() (int, int) {
	if w := s.width.Load(); w > 0 {
		return int(w), int(s.height.Load())
	}
	return terminalSize(s.fd)
}

func (s *TeaSurface) Draw(content string) error {
	if s.program == nil {
		return ErrSurfaceClosed
	}
	select {
	case <-s.done:
		if s.runErr != nil {
			return s.runErr
		}
		return ErrSurfaceClosed
	default:
	}
	s.program.Send(frameMsg(content))
	return nil
}

func (s *TeaSurface) Close() error {
	if s.program == nil {
		return nil
	}
	var err error
	s.closeOnce.Do(func() {
		s.program.Quit()
		select {
		case <-s.done:
			err = s.runErr
		case <-time.After(closeTimeout):
			s.program.Kill()
			<-s.done
		}
	})
	return err
}
