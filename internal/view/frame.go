// Package view builds the complete formatted view model for one tick.
//
// A Frame holds only display strings and levels; the ui package decides how
// they look. Building a frame never fails: every unreadable field turns into
// an N/A value in place.
package view

import (
	"fmt"
	"strconv"

	"github.com/sourcli/ssm/internal/format"
	"github.com/sourcli/ssm/internal/model"
)

// Title is the dashboard banner.
const Title = "Sour CLI Sys Monitor"

// Hint is the key help shown under the banner.
const Hint = "Commands: Ctrl+C / q = Exit"

// Options controls formatting.
type Options struct {
	BarWidth   int
	Thresholds format.Thresholds
	SortLabel  string // "CPU" or "MEM"
	TopK       int
}

// Gauge is one labelled bar row.
type Gauge struct {
	Label  string
	Bar    string
	Value  format.Display
	Detail string
}

// NetRow is one network throughput row.
type NetRow struct {
	Name string
	Up   format.Display
	Down format.Display
}

// ProcRow is one process table row.
type ProcRow struct {
	PID  string
	Name string
	CPU  format.Display
	Mem  format.Display
}

// Frame is everything the renderer draws for one tick.
type Frame struct {
	Title  string
	Status string
	Hint   string
	Stale  bool

	Gauges []Gauge
	Cores  []format.Display

	Network     []NetRow
	NetworkNote string

	ProcessTitle string
	Processes    []ProcRow
	ProcessNote  string

	Faults []string
}

// Build formats a report into a frame.
func Build(r model.Report, opts Options) Frame {
	s := r.Snapshot
	th := opts.Thresholds

	f := Frame{
		Title: Title,
		Hint:  Hint,
		Stale: s.Stale,
	}
	if s.Unavailable(model.FieldHostname) {
		f.Title += " — " + format.NA
	} else if s.Hostname != "" {
		f.Title += " — " + s.Hostname
	}
	f.Status = status(r)

	f.Gauges = append(f.Gauges, cpuGauge(s, opts))
	f.Gauges = append(f.Gauges, memoryGauge(s, opts))
	if s.Memory.SwapTotal > 0 || s.Unavailable(model.FieldSwap) {
		f.Gauges = append(f.Gauges, usageGauge("Swap", s.Memory.SwapUsed, s.Memory.SwapTotal,
			s.Unavailable(model.FieldSwap), opts))
	}
	if s.Unavailable(model.FieldDisk) && len(s.Disks) == 0 {
		f.Gauges = append(f.Gauges, naGauge("Disk", opts.BarWidth))
	}
	for _, d := range s.Disks {
		f.Gauges = append(f.Gauges, usageGauge("Disk "+d.Path, d.UsedBytes, d.TotalBytes, !d.Available(), opts))
	}

	if !s.Unavailable(model.FieldCPU) {
		for _, c := range s.CPU.PerCore {
			f.Cores = append(f.Cores, format.Display{Text: fmt.Sprintf("%3.0f", c), Level: th.Level(c)})
		}
	}

	if s.Unavailable(model.FieldNetwork) {
		f.NetworkNote = format.NA
	} else {
		f.Network = append(f.Network, netRow("Total", r.Total))
		for _, rt := range r.Rates {
			f.Network = append(f.Network, netRow(rt.Interface, rt))
		}
	}

	label := opts.SortLabel
	if label == "" {
		label = "CPU"
	}
	if s.Unavailable(model.FieldProcesses) {
		f.ProcessTitle = fmt.Sprintf("Top processes by %s", label)
		f.ProcessNote = format.NA
	} else {
		f.ProcessTitle = fmt.Sprintf("Top %d by %s (%s processes)", opts.TopK, label, format.Count(len(s.Processes)))
		for _, p := range r.Top {
			f.Processes = append(f.Processes, ProcRow{
				PID:  strconv.Itoa(int(p.PID)),
				Name: procName(p.Name),
				CPU:  format.Display{Text: fmt.Sprintf("%.1f", p.CPU), Level: th.Level(p.CPU)},
				Mem:  format.Display{Text: fmt.Sprintf("%.1f", p.Memory), Level: th.Level(p.Memory)},
			})
		}
	}

	for _, field := range s.FaultFields() {
		f.Faults = append(f.Faults, string(field))
	}
	for _, d := range s.Disks {
		if !d.Available() {
			f.Faults = append(f.Faults, "disk "+d.Path)
		}
	}
	return f
}

func status(r model.Report) string {
	s := r.Snapshot
	up := format.NA
	booted := format.NA
	if !s.Unavailable(model.FieldBootTime) && !s.BootTime.IsZero() {
		up = format.Uptime(s.Uptime())
		booted = "booted " + format.Since(s.BootTime, s.Timestamp)
	}
	return fmt.Sprintf("Uptime: %s | %s | tick %d | session %s",
		up, booted, r.Tick, format.Uptime(r.Session()))
}

func cpuGauge(s model.Snapshot, opts Options) Gauge {
	if s.Unavailable(model.FieldCPU) {
		g := naGauge("CPU", opts.BarWidth)
		g.Detail = loadDetail(s)
		return g
	}
	return Gauge{
		Label:  "CPU",
		Bar:    format.Bar(s.CPU.Total, opts.BarWidth),
		Value:  format.Usage(s.CPU.Total, opts.Thresholds),
		Detail: loadDetail(s),
	}
}

func loadDetail(s model.Snapshot) string {
	if s.Unavailable(model.FieldLoad) {
		return "load " + format.NA
	}
	return fmt.Sprintf("load %.2f %.2f %.2f", s.CPU.Load1, s.CPU.Load5, s.CPU.Load15)
}

func memoryGauge(s model.Snapshot, opts Options) Gauge {
	return usageGauge("Memory", s.Memory.UsedBytes, s.Memory.TotalBytes, s.Unavailable(model.FieldMemory), opts)
}

func usageGauge(label string, used, total uint64, unavailable bool, opts Options) Gauge {
	if unavailable {
		return naGauge(label, opts.BarWidth)
	}
	pct := format.PercentOf(used, total)
	return Gauge{
		Label:  label,
		Bar:    format.Bar(pct, opts.BarWidth),
		Value:  format.Usage(pct, opts.Thresholds),
		Detail: fmt.Sprintf("%s / %s", format.Bytes(float64(used)), format.Bytes(float64(total))),
	}
}

func naGauge(label string, width int) Gauge {
	return Gauge{
		Label: label,
		Bar:   format.Bar(0, width),
		Value: format.NotAvailable(),
	}
}

func netRow(name string, r model.Rate) NetRow {
	return NetRow{
		Name: name,
		Up:   format.Display{Text: format.Rate(r.SentPerSec)},
		Down: format.Display{Text: format.Rate(r.RecvPerSec)},
	}
}

func procName(name string) string {
	if name == "" {
		return format.NA
	}
	return format.Truncate(name, 20)
}
