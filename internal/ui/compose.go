package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sourcli/ssm/internal/format"
	"github.com/sourcli/ssm/internal/view"
)

const labelWidth = 14

// Compose lays a frame out as one string. width is the terminal width; when it
// fits, the gauge and network cards sit side by side.
func Compose(f view.Frame, width int) string {
	header := titleStyle.Render(f.Title) + "  " + subtleStyle.Render(f.Status)
	if f.Stale {
		header += "  " + staleStyle.Render("[stale]")
	}
	hint := subtleStyle.Render(f.Hint)

	gauges := card("Resources", gaugeBody(f))
	network := card("Network Info", networkBody(f))

	var top string
	if width <= 0 || lipgloss.Width(gauges)+lipgloss.Width(network) <= width {
		top = lipgloss.JoinHorizontal(lipgloss.Top, gauges, network)
	} else {
		top = lipgloss.JoinVertical(lipgloss.Left, gauges, network)
	}

	procs := card(f.ProcessTitle, processBody(f))

	parts := []string{header, hint, top, procs}
	if len(f.Faults) > 0 {
		parts = append(parts, subtleStyle.Render("unavailable: "+strings.Join(f.Faults, ", ")))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func gaugeBody(f view.Frame) string {
	lines := make([]string, 0, len(f.Gauges)+1)
	for _, g := range f.Gauges {
		bar := styled(format.Display{Text: g.Bar, Level: g.Value.Level})
		line := fmt.Sprintf("%-*s [%s] %s", labelWidth, format.Truncate(g.Label, labelWidth), bar,
			styled(format.Display{Text: fmt.Sprintf("%6s", g.Value.Text), Level: g.Value.Level}))
		if g.Detail != "" {
			line += "  " + subtleStyle.Render(g.Detail)
		}
		lines = append(lines, line)
	}
	if len(f.Cores) > 0 {
		cores := make([]string, 0, len(f.Cores))
		for _, c := range f.Cores {
			cores = append(cores, styled(c))
		}
		lines = append(lines, fmt.Sprintf("%-*s %s", labelWidth, "Cores", strings.Join(cores, " ")))
	}
	return strings.Join(lines, "\n")
}

func networkBody(f view.Frame) string {
	if f.NetworkNote != "" {
		return styled(format.Display{Text: f.NetworkNote, Level: format.Unavailable})
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-12s %12s %12s", "Interface", "Upload", "Download")))
	for _, r := range f.Network {
		fmt.Fprintf(&b, "\n%-12s %12s %12s", format.Truncate(r.Name, 12), r.Up.Text, r.Down.Text)
	}
	return b.String()
}

func processBody(f view.Frame) string {
	if f.ProcessNote != "" {
		return styled(format.Display{Text: f.ProcessNote, Level: format.Unavailable})
	}
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%7s  %-20s %7s %9s", "PID", "Name", "CPU %", "Memory %")))
	for _, p := range f.Processes {
		fmt.Fprintf(&b, "\n%7s  %-20s %s %s", p.PID, p.Name,
			styled(format.Display{Text: fmt.Sprintf("%7s", p.CPU.Text), Level: p.CPU.Level}),
			styled(format.Display{Text: fmt.Sprintf("%9s", p.Mem.Text), Level: p.Mem.Level}))
	}
	return b.String()
}

func card(title, body string) string {
	content := labelStyle.Render(title) + "\n" + body
	return cardStyle.Render(content)
}
