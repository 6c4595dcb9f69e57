// Package provider defines the stats capability the sampler reads from.
//
// Host is the real implementation backed by gopsutil. Fake is an in-memory
// implementation for tests. Every method may fail on its own; callers are
// expected to degrade the affected field rather than give up on the tick.
package provider

import (
	"context"
	"time"

	"github.com/sourcli/ssm/internal/model"
)

// Provider returns raw host counters.
type Provider interface {
	// Check verifies the stats subsystem is reachable at all.
	Check(ctx context.Context) error

	// CPUPercent returns aggregate and per-core busy percentages since the previous call.
	CPUPercent(ctx context.Context) (total float64, perCore []float64, err error)
	// LoadAvg returns the 1, 5 and 15 minute load averages.
	LoadAvg(ctx context.Context) ([3]float64, error)
	// Memory returns used and total RAM in bytes.
	Memory(ctx context.Context) (used, total uint64, err error)
	// Swap returns used and total swap in bytes.
	Swap(ctx context.Context) (used, total uint64, err error)
	// Mounts lists the physical mount points.
	Mounts(ctx context.Context) ([]string, error)
	// DiskUsage returns used and total bytes for the filesystem at path.
	DiskUsage(ctx context.Context, path string) (used, total uint64, err error)
	// NetCounters returns cumulative byte counters per interface.
	NetCounters(ctx context.Context) ([]model.NetCounters, error)
	// Processes returns the current process table.
	Processes(ctx context.Context) ([]model.ProcessInfo, error)
	// Hostname returns the host name.
	Hostname(ctx context.Context) (string, error)
	// BootTime returns when the host booted.
	BootTime(ctx context.Context) (time.Time, error)
}
