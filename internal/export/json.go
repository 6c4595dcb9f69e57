// Package export writes reports as JSON for scripts and pipes.
package export

import (
	"bufio"
	"context"
	"io"
	"time"

	jsoniter "github.com/json-iterator/go"

	ssmerrors "github.com/sourcli/ssm/internal/errors"
	"github.com/sourcli/ssm/internal/format"
	"github.com/sourcli/ssm/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Document is the JSON shape of one report. Unreadable sections are null and
// listed in Unavailable.
type Document struct {
	Timestamp     time.Time  `json:"timestamp"`
	Tick          uint64     `json:"tick"`
	Hostname      string     `json:"hostname,omitempty"`
	BootTime      *time.Time `json:"boot_time,omitempty"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	Stale         bool       `json:"stale"`
	CPU           *CPU       `json:"cpu"`
	Memory        *Memory    `json:"memory"`
	Disks         []Disk     `json:"disks"`
	Network       []Rate     `json:"network"`
	NetworkTotal  *Rate      `json:"network_total"`
	Top           []Process  `json:"top"`
	Processes     int        `json:"process_count"`
	Unavailable   []string   `json:"unavailable,omitempty"`
}

type CPU struct {
	Percent float64     `json:"percent"`
	PerCore []float64   `json:"per_core,omitempty"`
	Load    *[3]float64 `json:"load,omitempty"`
}

type Memory struct {
	UsedBytes  uint64  `json:"used_bytes"`
	TotalBytes uint64  `json:"total_bytes"`
	Percent    float64 `json:"percent"`
	SwapUsed   uint64  `json:"swap_used_bytes"`
	SwapTotal  uint64  `json:"swap_total_bytes"`
}

type Disk struct {
	Path       string  `json:"path"`
	UsedBytes  uint64  `json:"used_bytes"`
	TotalBytes uint64  `json:"total_bytes"`
	Percent    float64 `json:"percent"`
	Error      string  `json:"error,omitempty"`
}

type Rate struct {
	Interface     string  `json:"interface"`
	SentPerSecond float64 `json:"sent_bytes_per_sec"`
	RecvPerSecond float64 `json:"recv_bytes_per_sec"`
}

type Process struct {
	PID    int32   `json:"pid"`
	Name   string  `json:"name"`
	CPU    float64 `json:"cpu_percent"`
	Memory float64 `json:"memory_percent"`
}

// NewDocument converts a report.
func NewDocument(r model.Report) Document {
	s := r.Snapshot
	d := Document{
		Timestamp:     s.Timestamp,
		Tick:          r.Tick,
		Hostname:      s.Hostname,
		UptimeSeconds: int64(s.Uptime() / time.Second),
		Stale:         s.Stale,
		Processes:     len(s.Processes),
		Disks:         []Disk{},
		Network:       []Rate{},
		Top:           []Process{},
	}
	if !s.BootTime.IsZero() && !s.Unavailable(model.FieldBootTime) {
		boot := s.BootTime
		d.BootTime = &boot
	}
	if !s.Unavailable(model.FieldCPU) {
		d.CPU = &CPU{Percent: s.CPU.Total, PerCore: s.CPU.PerCore}
		if !s.Unavailable(model.FieldLoad) {
			d.CPU.Load = &[3]float64{s.CPU.Load1, s.CPU.Load5, s.CPU.Load15}
		}
	}
	if !s.Unavailable(model.FieldMemory) {
		d.Memory = &Memory{
			UsedBytes:  s.Memory.UsedBytes,
			TotalBytes: s.Memory.TotalBytes,
			Percent:    format.PercentOf(s.Memory.UsedBytes, s.Memory.TotalBytes),
			SwapUsed:   s.Memory.SwapUsed,
			SwapTotal:  s.Memory.SwapTotal,
		}
	}
	for _, disk := range s.Disks {
		out := Disk{Path: disk.Path}
		if disk.Available() {
			out.UsedBytes, out.TotalBytes = disk.UsedBytes, disk.TotalBytes
			out.Percent = format.PercentOf(disk.UsedBytes, disk.TotalBytes)
		} else {
			out.Error = format.NA
		}
		d.Disks = append(d.Disks, out)
	}
	if !s.Unavailable(model.FieldNetwork) {
		for _, rt := range r.Rates {
			d.Network = append(d.Network, rateDoc(rt))
		}
		total := rateDoc(r.Total)
		d.NetworkTotal = &total
	}
	for _, p := range r.Top {
		d.Top = append(d.Top, Process{PID: p.PID, Name: p.Name, CPU: p.CPU, Memory: p.Memory})
	}
	for _, f := range s.FaultFields() {
		d.Unavailable = append(d.Unavailable, string(f))
	}
	return d
}

func rateDoc(r model.Rate) Rate {
	return Rate{Interface: r.Interface, SentPerSecond: r.SentPerSec, RecvPerSecond: r.RecvPerSec}
}

// Presenter writes one JSON document per report: NDJSON when streaming,
// indented when Pretty is set.
type Presenter struct {
	w      *bufio.Writer
	Pretty bool
}

// NewPresenter writes to w.
func NewPresenter(w io.Writer, pretty bool) *Presenter {
	return &Presenter{w: bufio.NewWriter(w), Pretty: pretty}
}

// Present encodes and flushes one report.
func (p *Presenter) Present(_ context.Context, r model.Report) error {
	var (
		data []byte
		err  error
	)
	doc := NewDocument(r)
	if p.Pretty {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return ssmerrors.Render(err)
	}
	if _, err := p.w.Write(append(data, '\n')); err != nil {
		return ssmerrors.Render(err)
	}
	if err := p.w.Flush(); err != nil {
		return ssmerrors.Render(err)
	}
	return nil
}

// Close flushes anything buffered.
func (p *Presenter) Close() error {
	return p.w.Flush()
}
