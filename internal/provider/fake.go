package provider

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sourcli/ssm/internal/model"
)

var errNoData = errors.New("no data returned")

// Fake is an in-memory Provider. Zero values are valid readings; set an entry
// in Errs to make one method fail. Safe for concurrent use.
type Fake struct {
	mu sync.Mutex

	CPU       float64
	PerCore   []float64
	Load      [3]float64
	MemUsed   uint64
	MemTotal  uint64
	SwapUsed  uint64
	SwapTotal uint64
	MountList []string
	Disks     map[string][2]uint64 // path -> {used, total}
	Net       []model.NetCounters
	Procs     []model.ProcessInfo
	Host      string
	Boot      time.Time

	// Errs maps a method name ("CPUPercent", "DiskUsage:/data", ...) to its failure.
	Errs map[string]error
	// Delay blocks every read this long, honoring ctx.
	Delay time.Duration

	calls map[string]int
}

// NewFake returns a Fake with plausible defaults.
func NewFake() *Fake {
	return &Fake{
		MemUsed:   4 << 30,
		MemTotal:  16 << 30,
		MountList: []string{"/"},
		Disks:     map[string][2]uint64{"/": {50 << 30, 100 << 30}},
		Host:      "fakehost",
		Boot:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Errs:      make(map[string]error),
	}
}

// Update runs fn with the fake locked so tests can mutate readings safely.
func (f *Fake) Update(fn func(f *Fake)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// Calls returns how many times method was invoked.
func (f *Fake) Calls(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *Fake) enter(ctx context.Context, method string) error {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[method]++
	delay := f.Delay
	err := f.Errs[method]
	f.mu.Unlock()

	if delay > 0 {
		t := time.NewTimer(delay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (f *Fake) Check(ctx context.Context) error {
	return f.enter(ctx, "Check")
}

func (f *Fake) CPUPercent(ctx context.Context) (float64, []float64, error) {
	if err := f.enter(ctx, "CPUPercent"); err != nil {
		return 0, nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.CPU, append([]float64(nil), f.PerCore...), nil
}

func (f *Fake) LoadAvg(ctx context.Context) ([3]float64, error) {
	if err := f.enter(ctx, "LoadAvg"); err != nil {
		return [3]float64{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Load, nil
}

func (f *Fake) Memory(ctx context.Context) (uint64, uint64, error) {
	if err := f.enter(ctx, "Memory"); err != nil {
		return 0, 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.MemUsed, f.MemTotal, nil
}

func (f *Fake) Swap(ctx context.Context) (uint64, uint64, error) {
	if err := f.enter(ctx, "Swap"); err != nil {
		return 0, 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.SwapUsed, f.SwapTotal, nil
}

func (f *Fake) Mounts(ctx context.Context) ([]string, error) {
	if err := f.enter(ctx, "Mounts"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.MountList...), nil
}

func (f *Fake) DiskUsage(ctx context.Context, path string) (uint64, uint64, error) {
	if err := f.enter(ctx, "DiskUsage:"+path); err != nil {
		return 0, 0, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.Disks[path]
	if !ok {
		return 0, 0, errNoData
	}
	return d[0], d[1], nil
}

func (f *Fake) NetCounters(ctx context.Context) ([]model.NetCounters, error) {
	if err := f.enter(ctx, "NetCounters"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.NetCounters(nil), f.Net...), nil
}

func (f *Fake) Processes(ctx context.Context) ([]model.ProcessInfo, error) {
	if err := f.enter(ctx, "Processes"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.ProcessInfo(nil), f.Procs...), nil
}

func (f *Fake) Hostname(ctx context.Context) (string, error) {
	if err := f.enter(ctx, "Hostname"); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Host, nil
}

func (f *Fake) BootTime(ctx context.Context) (time.Time, error) {
	if err := f.enter(ctx, "BootTime"); err != nil {
		return time.Time{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Boot, nil
}
