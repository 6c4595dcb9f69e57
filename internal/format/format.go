// Package format maps raw numbers to display strings and color levels.
// Every function here is pure.
package format

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// NA is shown in place of any value that could not be read.
const NA = "N/A"

// Bar glyphs, same as the original gauge.
const (
	GaugeFill  = "█"
	GaugeEmpty = "░"
)

// Level is the color class of a value.
type Level int

const (
	Normal Level = iota
	Warning
	Critical
	Unavailable
)

func (l Level) String() string {
	switch l {
	case Normal:
		return "normal"
	case Warning:
		return "warning"
	case Critical:
		return "critical"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Thresholds partition 0..100 into levels: below Warning is normal, up to and
// including Critical is warning, above Critical is critical.
type Thresholds struct {
	Warning  float64 `mapstructure:"warning" yaml:"warning" json:"warning"`
	Critical float64 `mapstructure:"critical" yaml:"critical" json:"critical"`
}

// DefaultThresholds are the stock cut points.
var DefaultThresholds = Thresholds{Warning: 60, Critical: 85}

// Level classifies pct.
func (t Thresholds) Level(pct float64) Level {
	switch {
	case math.IsNaN(pct):
		return Unavailable
	case pct < t.Warning:
		return Normal
	case pct <= t.Critical:
		return Warning
	default:
		return Critical
	}
}

// Display is one formatted leaf value.
type Display struct {
	Text  string
	Level Level
}

// NotAvailable is the display for a field that failed this tick.
func NotAvailable() Display { return Display{Text: NA, Level: Unavailable} }

var byteUnits = []string{"B", "KB", "MB", "GB"}

// Bytes scales v to the largest 1024-based unit that keeps it at or above 1.
// Bytes have no decimals, larger units one.
func Bytes(v float64) string {
	if math.IsNaN(v) || v < 1 {
		return "0 B"
	}
	exp := 0
	for exp < len(byteUnits)-1 && v >= 1024 {
		v /= 1024
		exp++
	}
	if exp == 0 {
		return fmt.Sprintf("%.0f B", math.Floor(v))
	}
	// 1023.95 KB and up would print as "1024.0 KB"
	if exp < len(byteUnits)-1 && math.Round(v*10) >= 10240 {
		v /= 1024
		exp++
	}
	return fmt.Sprintf("%.1f %s", v, byteUnits[exp])
}

// Rate formats a bytes-per-second value.
func Rate(bytesPerSec float64) string {
	return Bytes(bytesPerSec) + "/s"
}

// Percent formats a percentage with one decimal.
func Percent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// PercentOf returns used/total as a percentage, or 0 when total is 0.
func PercentOf(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) * 100 / float64(total)
}

// Clamp limits pct to 0..100.
func Clamp(pct float64) float64 {
	if math.IsNaN(pct) || pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Bar draws pct as exactly width glyphs.
func Bar(pct float64, width int) string {
	if width <= 0 {
		return ""
	}
	pct = Clamp(pct)
	filled := int((pct / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat(GaugeFill, filled) + strings.Repeat(GaugeEmpty, width-filled)
}

// Usage formats pct and picks its level.
func Usage(pct float64, t Thresholds) Display {
	return Display{Text: Percent(pct), Level: t.Level(pct)}
}

// Uptime formats d as "3d 04:05:06", dropping the day part under one day.
func Uptime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int64(d / time.Second)
	days := secs / 86400
	h := (secs % 86400) / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	if days > 0 {
		return fmt.Sprintf("%dd %02d:%02d:%02d", days, h, m, s)
	}
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Since describes then relative to now ("3 days ago").
func Since(then, now time.Time) string {
	if then.IsZero() {
		return NA
	}
	return humanize.RelTime(then, now, "ago", "from now")
}

// Count formats n with thousands separators.
func Count(n int) string {
	return humanize.Comma(int64(n))
}

// Truncate shortens s to n runes, ending with an ellipsis when cut.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
