package provider

import (
	"context"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/sourcli/ssm/internal/model"
)

// Host reads counters from the local OS via gopsutil.
// It is not safe for concurrent use; the sampler keeps at most one read in flight.
type Host struct {
	prevTotal float64
	prevIdle  float64
	prevCore  []cpu.TimesStat

	mu    sync.Mutex
	procs map[int32]trackedProc
}

// trackedProc keeps the gopsutil handle alive between ticks so Percent can
// diff CPU times. createTime detects pid reuse.
type trackedProc struct {
	proc       *process.Process
	createTime int64
}

// NewHost returns a provider for the local machine.
func NewHost() *Host {
	return &Host{procs: make(map[int32]trackedProc)}
}

// Check primes the CPU counters and fails if the core stats cannot be read.
func (h *Host) Check(ctx context.Context) error {
	if _, err := host.InfoWithContext(ctx); err != nil {
		return err
	}
	if _, err := mem.VirtualMemoryWithContext(ctx); err != nil {
		return err
	}
	_, _, err := h.CPUPercent(ctx)
	return err
}

// CPUPercent computes usage from cpu time deltas. The first call seeds the
// counters and reports zero.
func (h *Host) CPUPercent(ctx context.Context) (total float64, perCore []float64, err error) {
	times, err := cpu.TimesWithContext(ctx, false)
	if err != nil {
		return 0, nil, err
	}
	if len(times) == 0 {
		return 0, nil, errNoData
	}
	cur := times[0]
	curTotal := cur.Total()
	curIdle := cur.Idle + cur.Iowait
	if h.prevTotal > 0 {
		dt := curTotal - h.prevTotal
		di := curIdle - h.prevIdle
		if dt > 0 {
			total = clampPercent(100 * (1 - di/dt))
		}
	}
	h.prevTotal, h.prevIdle = curTotal, curIdle

	coreTimes, err := cpu.TimesWithContext(ctx, true)
	if err != nil {
		// aggregate is still good
		return total, nil, nil
	}
	perCore = make([]float64, len(coreTimes))
	for i, c := range coreTimes {
		if i >= len(h.prevCore) {
			continue
		}
		prev := h.prevCore[i]
		dt := c.Total() - prev.Total()
		di := (c.Idle + c.Iowait) - (prev.Idle + prev.Iowait)
		if dt > 0 {
			perCore[i] = clampPercent(100 * (1 - di/dt))
		}
	}
	h.prevCore = coreTimes
	return total, perCore, nil
}

func (h *Host) LoadAvg(ctx context.Context) ([3]float64, error) {
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return [3]float64{}, err
	}
	return [3]float64{avg.Load1, avg.Load5, avg.Load15}, nil
}

func (h *Host) Memory(ctx context.Context) (used, total uint64, err error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return vm.Used, vm.Total, nil
}

func (h *Host) Swap(ctx context.Context) (used, total uint64, err error) {
	sw, err := mem.SwapMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, err
	}
	return sw.Used, sw.Total, nil
}

func (h *Host) Mounts(ctx context.Context) ([]string, error) {
	parts, err := disk.PartitionsWithContext(ctx, false)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if seen[p.Mountpoint] {
			continue
		}
		seen[p.Mountpoint] = true
		out = append(out, p.Mountpoint)
	}
	sort.Strings(out)
	return out, nil
}

func (h *Host) DiskUsage(ctx context.Context, path string) (used, total uint64, err error) {
	u, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return 0, 0, err
	}
	return u.Used, u.Total, nil
}

func (h *Host) NetCounters(ctx context.Context) ([]model.NetCounters, error) {
	stats, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]model.NetCounters, 0, len(stats))
	for _, st := range stats {
		out = append(out, model.NetCounters{
			Name:      st.Name,
			BytesSent: st.BytesSent,
			BytesRecv: st.BytesRecv,
		})
	}
	return out, nil
}

// Processes lists running processes. CPU is the usage since the previous call
// for the same process, so a process seen for the first time reports 0.
func (h *Host) Processes(ctx context.Context) ([]model.ProcessInfo, error) {
	pids, err := process.PidsWithContext(ctx)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	alive := make(map[int32]trackedProc, len(pids))
	out := make([]model.ProcessInfo, 0, len(pids))
	for _, pid := range pids {
		tp, ok := h.track(ctx, pid)
		if !ok {
			continue
		}
		// Skip kernel threads without name
		name, err := tp.proc.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		cpuPct, _ := tp.proc.PercentWithContext(ctx, 0)
		memPct, _ := tp.proc.MemoryPercentWithContext(ctx)
		alive[pid] = tp
		out = append(out, model.ProcessInfo{
			PID:    pid,
			Name:   name,
			CPU:    clampPercent(cpuPct),
			Memory: float64(memPct),
		})
	}
	h.procs = alive
	return out, nil
}

// track returns the cached handle for pid, replacing it when the pid was reused.
// gopsutil caches the create time on a handle, so reuse is only visible
// through a freshly built one.
func (h *Host) track(ctx context.Context, pid int32) (trackedProc, bool) {
	p, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return trackedProc{}, false
	}
	created, err := p.CreateTimeWithContext(ctx)
	if err != nil {
		created = -1
	}
	if tp, ok := h.procs[pid]; ok && created >= 0 && tp.createTime == created {
		return tp, true
	}
	return trackedProc{proc: p, createTime: created}, true
}

func (h *Host) Hostname(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return os.Hostname()
}

func (h *Host) BootTime(ctx context.Context) (time.Time, error) {
	secs, err := host.BootTimeWithContext(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(int64(secs), 0), nil
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
