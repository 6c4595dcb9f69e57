package ui

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ssmerrors "github.com/sourcli/ssm/internal/errors"
	"github.com/sourcli/ssm/internal/format"
	"github.com/sourcli/ssm/internal/logger"
	"github.com/sourcli/ssm/internal/model"
	"github.com/sourcli/ssm/internal/view"
)

func init() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

func sampleFrame() view.Frame {
	return view.Frame{
		Title:  "Sour CLI Sys Monitor — box",
		Status: "Uptime: 01:00:00 | tick 1",
		Hint:   view.Hint,
		Gauges: []view.Gauge{
			{Label: "CPU", Bar: format.Bar(50, 10), Value: format.Usage(50, format.DefaultThresholds), Detail: "load 0.10 0.20 0.30"},
			{Label: "Disk /data", Bar: format.Bar(0, 10), Value: format.NotAvailable()},
		},
		Cores:        []format.Display{{Text: " 12"}, {Text: " 99", Level: format.Critical}},
		Network:      []view.NetRow{{Name: "Total", Up: format.Display{Text: "0 B/s"}, Down: format.Display{Text: "1.0 MB/s"}}},
		ProcessTitle: "Top 10 by CPU (2 processes)",
		Processes: []view.ProcRow{
			{PID: "42", Name: "postgres", CPU: format.Display{Text: "12.5"}, Mem: format.Display{Text: "3.0"}},
		},
		Faults: []string{"disk /data"},
	}
}

func TestCompose(t *testing.T) {
	out := Compose(sampleFrame(), 200)

	for _, want := range []string{
		"Sour CLI Sys Monitor — box",
		"Commands: Ctrl+C / q = Exit",
		"CPU",
		"█████░░░░░",
		"50.0%",
		"load 0.10 0.20 0.30",
		"Disk /data",
		"N/A",
		"Cores",
		"Network Info",
		"Upload",
		"1.0 MB/s",
		"PID",
		"postgres",
		"12.5",
		"unavailable: disk /data",
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "[stale]")
}

func TestCompose_Stale(t *testing.T) {
	f := sampleFrame()
	f.Stale = true
	assert.Contains(t, Compose(f, 200), "[stale]")
}

func TestCompose_NarrowStacksCards(t *testing.T) {
	wide := Compose(sampleFrame(), 500)
	narrow := Compose(sampleFrame(), 40)

	assert.Greater(t, strings.Count(narrow, "\n"), strings.Count(wide, "\n"))
}

func TestCompose_UnavailableSections(t *testing.T) {
	f := sampleFrame()
	f.Network = nil
	f.NetworkNote = format.NA
	f.Processes = nil
	f.ProcessNote = format.NA

	out := Compose(f, 200)
	assert.NotContains(t, out, "Download")
	assert.NotContains(t, out, "postgres")
	assert.GreaterOrEqual(t, strings.Count(out, "N/A"), 3)
}

func TestRenderer_DrawsWholeFrameOnce(t *testing.T) {
	s := NewMemorySurface(200, 50)
	r := NewRenderer(s, view.Options{BarWidth: 10, Thresholds: format.DefaultThresholds, TopK: 5}, nil)
	require.NoError(t, r.Start())

	rep := model.Report{Tick: 1, Snapshot: model.Snapshot{Timestamp: time.Now(), Hostname: "box"}}
	require.NoError(t, r.Present(context.Background(), rep))
	require.NoError(t, r.Present(context.Background(), rep))

	assert.Equal(t, 2, s.FrameCount())
	assert.Contains(t, s.Last(), "Sour CLI Sys Monitor — box")

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.True(t, s.Restored())
}

func TestRenderer_DrawErrorRestoresTerminal(t *testing.T) {
	s := NewMemorySurface(80, 24)
	log := logger.NewBufferLogger()
	r := NewRenderer(s, view.Options{BarWidth: 5}, log)
	require.NoError(t, r.Start())

	s.DrawErr = fmt.Errorf("write /dev/stdout: broken pipe")
	err := r.Render(sampleFrame())

	require.Error(t, err)
	assert.True(t, ssmerrors.IsCode(err, ssmerrors.ErrRender))
	assert.True(t, s.Restored())
	assert.Equal(t, 0, s.FrameCount())
	assert.True(t, log.HasLevel("error"))

	err = r.Render(sampleFrame())
	assert.True(t, ssmerrors.IsCode(err, ssmerrors.ErrRender))
}

func TestRenderer_StartError(t *testing.T) {
	s := NewMemorySurface(80, 24)
	s.OpenErr = fmt.Errorf("not a tty")
	r := NewRenderer(s, view.Options{}, nil)

	err := r.Start()
	assert.True(t, ssmerrors.IsCode(err, ssmerrors.ErrRender))
}

// countingWriter records each Write call separately.
type countingWriter struct {
	writes []string
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.writes = append(c.writes, string(p))
	return len(p), nil
}

func TestANSISurface_Lifecycle(t *testing.T) {
	w := &countingWriter{}
	s := NewANSISurface(w, -1)

	assert.ErrorIs(t, s.Draw("early"), ErrSurfaceClosed)

	require.NoError(t, s.Open())
	require.Len(t, w.writes, 1)
	assert.Contains(t, w.writes[0], termenv.CSI+termenv.AltScreenSeq)
	assert.Contains(t, w.writes[0], termenv.CSI+termenv.HideCursorSeq)

	require.NoError(t, s.Draw("line one\nline two"))
	require.Len(t, w.writes, 2, "a frame is one write")
	frame := w.writes[1]
	assert.True(t, strings.HasPrefix(frame, termenv.CSI+"1;1H"))
	assert.Contains(t, frame, "line one"+termenv.CSI+termenv.EraseLineRightSeq+"\r\nline two")
	assert.True(t, strings.HasSuffix(frame, termenv.CSI+"0J"))
	assert.NotContains(t, frame, termenv.CSI+"2J", "no full clear between frames")

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.Len(t, w.writes, 3)
	assert.Contains(t, w.writes[2], termenv.CSI+termenv.ShowCursorSeq)
	assert.Contains(t, w.writes[2], termenv.CSI+termenv.ExitAltScreenSeq)
}

func TestANSISurface_FallbackSize(t *testing.T) {
	w, h := NewANSISurface(&bytes.Buffer{}, -1).Size()
	assert.Equal(t, defaultWidth, w)
	assert.Equal(t, defaultHeight, h)
}

func TestTeaModel_Frames(t *testing.T) {
	s := NewTeaSurface(nil, nil, -1, nil)
	var m tea.Model = teaModel{surface: s}

	m, _ = m.Update(frameMsg("hello frame"))
	assert.Equal(t, "hello frame", m.View())

	m, _ = m.Update(tea.WindowSizeMsg{Width: 90, Height: 30})
	w, h := s.Size()
	assert.Equal(t, 90, w)
	assert.Equal(t, 30, h)
	assert.Equal(t, "hello frame", m.View())
}

func TestTeaModel_QuitKeys(t *testing.T) {
	quits := 0
	s := NewTeaSurface(nil, nil, -1, func() { quits++ })
	m := teaModel{surface: s}

	for _, k := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyCtrlC},
		{Type: tea.KeyRunes, Runes: []rune("x")},
	} {
		_, cmd := m.Update(k)
		assert.Nil(t, cmd)
	}
	assert.Equal(t, 2, quits)
}

func TestTeaModel_QuitWithoutCallback(t *testing.T) {
	m := teaModel{surface: NewTeaSurface(nil, nil, -1, nil)}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
}

func TestTeaSurface_UnopenedIsClosed(t *testing.T) {
	s := NewTeaSurface(nil, nil, -1, nil)
	assert.ErrorIs(t, s.Draw("x"), ErrSurfaceClosed)
	assert.NoError(t, s.Close())
}
