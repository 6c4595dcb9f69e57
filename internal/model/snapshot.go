package model

import (
	"sort"
	"time"
)

// Field names one sub-metric of a Snapshot. Each field can fail on its own.
type Field string

const (
	FieldCPU       Field = "cpu"
	FieldLoad      Field = "load"
	FieldMemory    Field = "memory"
	FieldSwap      Field = "swap"
	FieldDisk      Field = "disk"
	FieldNetwork   Field = "network"
	FieldProcesses Field = "processes"
	FieldHostname  Field = "hostname"
	FieldBootTime  Field = "boottime"
)

// CPU aggregates instantaneous CPU usage.
type CPU struct {
	Total   float64   // percent 0-100
	PerCore []float64 // per-core percent
	Load1   float64
	Load5   float64
	Load15  float64
}

// Memory captures RAM and swap usage in bytes for precision.
type Memory struct {
	UsedBytes  uint64
	TotalBytes uint64
	SwapUsed   uint64
	SwapTotal  uint64
}

// DiskUsage is the usage of one monitored mount. Err is set when that mount
// could not be read; the other mounts are unaffected.
type DiskUsage struct {
	Path       string
	UsedBytes  uint64
	TotalBytes uint64
	Err        error `json:"-"`
}

// Available reports whether the mount was read successfully.
func (d DiskUsage) Available() bool { return d.Err == nil }

// NetCounters holds cumulative byte counters for one interface.
type NetCounters struct {
	Name      string
	BytesSent uint64
	BytesRecv uint64
}

// ProcessInfo is a lightweight process table entry. No identity persists
// across ticks: a reused pid is a new entity.
type ProcessInfo struct {
	PID    int32
	Name   string
	CPU    float64 // percent
	Memory float64 // percent
}

// Snapshot is the immutable record captured at one tick. All values share Timestamp.
type Snapshot struct {
	Timestamp time.Time
	Hostname  string
	BootTime  time.Time
	CPU       CPU
	Memory    Memory
	Disks     []DiskUsage
	Network   []NetCounters
	Processes []ProcessInfo

	// Faults records the fields whose query failed this tick.
	Faults map[Field]error `json:"-"`
	// Stale is set when the sampler deadline expired and these values were reused.
	Stale bool
}

// Unavailable reports whether f failed this tick.
func (s Snapshot) Unavailable(f Field) bool {
	_, bad := s.Faults[f]
	return bad
}

// FaultFields returns the failed fields in a stable order.
func (s Snapshot) FaultFields() []Field {
	out := make([]Field, 0, len(s.Faults))
	for f := range s.Faults {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Uptime returns how long the host has been up at Timestamp, or 0 if unknown.
func (s Snapshot) Uptime() time.Duration {
	if s.BootTime.IsZero() || s.Unavailable(FieldBootTime) {
		return 0
	}
	d := s.Timestamp.Sub(s.BootTime)
	if d < 0 {
		return 0
	}
	return d
}

// Rate is the per-second throughput of one interface.
type Rate struct {
	Interface  string
	SentPerSec float64
	RecvPerSec float64
}

// Report is everything one tick hands to a presenter.
type Report struct {
	Tick     uint64
	Started  time.Time
	Snapshot Snapshot
	Rates    []Rate
	Total    Rate
	Top      []ProcessInfo
}

// Session returns the time since the loop started, measured at the snapshot.
func (r Report) Session() time.Duration {
	if r.Started.IsZero() {
		return 0
	}
	return r.Snapshot.Timestamp.Sub(r.Started)
}
