package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/sourcli/ssm/internal/format"
)

// Palette
const (
	ColorTitle    = lipgloss.Color("45")
	ColorSubtle   = lipgloss.Color("244")
	ColorLabel    = lipgloss.Color("81")
	ColorBorder   = lipgloss.Color("60")
	ColorNormal   = lipgloss.Color("42")
	ColorWarning  = lipgloss.Color("214")
	ColorCritical = lipgloss.Color("196")
	ColorStale    = lipgloss.Color("201")
)

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(ColorTitle)
	subtleStyle = lipgloss.NewStyle().Foreground(ColorSubtle)
	labelStyle  = lipgloss.NewStyle().Foreground(ColorLabel).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(ColorLabel).Bold(true)
	staleStyle  = lipgloss.NewStyle().Foreground(ColorStale).Bold(true)
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1).
			MarginRight(1)

	levelStyles = map[format.Level]lipgloss.Style{
		format.Normal:      lipgloss.NewStyle().Foreground(ColorNormal),
		format.Warning:     lipgloss.NewStyle().Foreground(ColorWarning),
		format.Critical:    lipgloss.NewStyle().Foreground(ColorCritical).Bold(true),
		format.Unavailable: lipgloss.NewStyle().Foreground(ColorSubtle).Italic(true),
	}
)

// styled renders text in the color of its level.
func styled(d format.Display) string {
	st, ok := levelStyles[d.Level]
	if !ok {
		return d.Text
	}
	return st.Render(d.Text)
}

// DisableColor strips all color from lipgloss output.
func DisableColor() {
	lipgloss.SetColorProfile(termenv.Ascii)
}
