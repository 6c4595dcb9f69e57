package sampler

import (
	"context"
	"errors"
	"strings"
	"time"

	ssmerrors "github.com/sourcli/ssm/internal/errors"
	"github.com/sourcli/ssm/internal/logger"
	"github.com/sourcli/ssm/internal/model"
	"github.com/sourcli/ssm/internal/provider"
)

// ErrDeadline marks fields of a snapshot that could not be read before the sample deadline.
var ErrDeadline = errors.New("sample deadline exceeded")

// Options selects what the sampler reads.
type Options struct {
	// Mounts to report. Empty means every physical mount the provider lists.
	Mounts []string
	// Interfaces to report. Empty means all.
	Interfaces []string
	// IncludeLoopback keeps lo/lo0 when Interfaces is empty.
	IncludeLoopback bool
	// Timeout bounds one sample. Zero waits forever.
	Timeout time.Duration
}

// Sampler pulls one Snapshot per tick from a Provider.
type Sampler struct {
	provider provider.Provider
	opts     Options
	log      logger.Logger
	now      func() time.Time

	last    model.Snapshot
	hasLast bool
	pending chan model.Snapshot
	faulted map[string]bool
}

// New creates a sampler reading from p.
func New(p provider.Provider, opts Options, log logger.Logger) *Sampler {
	if log == nil {
		log = logger.Noop()
	}
	return &Sampler{
		provider: p,
		opts:     opts,
		log:      log,
		now:      time.Now,
		faulted:  make(map[string]bool),
	}
}

// Sample captures one snapshot. Failed sub-metrics are recorded in
// Snapshot.Faults and never abort the tick; the returned error is a PROVIDER
// error only when every field failed, or the context error on cancellation.
//
// With a Timeout set, a read that overruns returns the previous snapshot marked
// Stale. The overrunning read keeps going and is picked up by a later call;
// no second read is started while one is in flight.
func (s *Sampler) Sample(ctx context.Context) (model.Snapshot, error) {
	if s.opts.Timeout <= 0 {
		return s.finish(s.collect(ctx))
	}

	if s.pending == nil {
		ch := make(chan model.Snapshot, 1)
		s.pending = ch
		go func() { ch <- s.collect(ctx) }()
	}

	timer := time.NewTimer(s.opts.Timeout)
	defer timer.Stop()

	select {
	case snap := <-s.pending:
		s.pending = nil
		return s.finish(snap)
	case <-timer.C:
		s.log.Warn("sample exceeded %s, reusing previous values", s.opts.Timeout)
		return s.stale(), nil
	case <-ctx.Done():
		return model.Snapshot{}, ctx.Err()
	}
}

// collect reads every field within one logical tick. It touches no sampler
// state besides the immutable options, so it may run on another goroutine.
func (s *Sampler) collect(ctx context.Context) model.Snapshot {
	snap := model.Snapshot{
		Timestamp: s.now(),
		Faults:    make(map[model.Field]error),
	}
	fail := func(f model.Field, err error) {
		snap.Faults[f] = ssmerrors.Provider(string(f), err)
	}

	if total, perCore, err := s.provider.CPUPercent(ctx); err != nil {
		fail(model.FieldCPU, err)
	} else {
		snap.CPU.Total, snap.CPU.PerCore = total, perCore
	}

	if avg, err := s.provider.LoadAvg(ctx); err != nil {
		fail(model.FieldLoad, err)
	} else {
		snap.CPU.Load1, snap.CPU.Load5, snap.CPU.Load15 = avg[0], avg[1], avg[2]
	}

	if used, total, err := s.provider.Memory(ctx); err != nil {
		fail(model.FieldMemory, err)
	} else {
		snap.Memory.UsedBytes, snap.Memory.TotalBytes = used, total
	}

	if used, total, err := s.provider.Swap(ctx); err != nil {
		fail(model.FieldSwap, err)
	} else {
		snap.Memory.SwapUsed, snap.Memory.SwapTotal = used, total
	}

	mounts := s.opts.Mounts
	if len(mounts) == 0 {
		var err error
		if mounts, err = s.provider.Mounts(ctx); err != nil {
			fail(model.FieldDisk, err)
		}
	}
	for _, path := range mounts {
		d := model.DiskUsage{Path: path}
		d.UsedBytes, d.TotalBytes, d.Err = s.provider.DiskUsage(ctx, path)
		if d.Err != nil {
			d.Err = ssmerrors.Provider("disk "+path, d.Err)
		}
		snap.Disks = append(snap.Disks, d)
	}

	if counters, err := s.provider.NetCounters(ctx); err != nil {
		fail(model.FieldNetwork, err)
	} else {
		snap.Network = s.selectInterfaces(counters)
	}

	if procs, err := s.provider.Processes(ctx); err != nil {
		fail(model.FieldProcesses, err)
	} else {
		snap.Processes = procs
	}

	if name, err := s.provider.Hostname(ctx); err != nil {
		fail(model.FieldHostname, err)
	} else {
		snap.Hostname = name
	}

	if boot, err := s.provider.BootTime(ctx); err != nil {
		fail(model.FieldBootTime, err)
	} else {
		snap.BootTime = boot
	}

	return snap
}

func (s *Sampler) selectInterfaces(all []model.NetCounters) []model.NetCounters {
	out := make([]model.NetCounters, 0, len(all))
	if len(s.opts.Interfaces) > 0 {
		want := make(map[string]bool, len(s.opts.Interfaces))
		for _, name := range s.opts.Interfaces {
			want[name] = true
		}
		for _, c := range all {
			if want[c.Name] {
				out = append(out, c)
			}
		}
		return out
	}
	for _, c := range all {
		if !s.opts.IncludeLoopback && isLoopback(c.Name) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func isLoopback(name string) bool {
	return name == "lo" || strings.HasPrefix(name, "lo0") || strings.HasPrefix(name, "Loopback")
}

// finish records the snapshot as the latest good one and logs fault transitions.
func (s *Sampler) finish(snap model.Snapshot) (model.Snapshot, error) {
	if ctxErr := contextError(snap); ctxErr != nil {
		return model.Snapshot{}, ctxErr
	}
	s.logFaults(snap)
	s.last, s.hasLast = snap, true

	if allFailed(snap) {
		return snap, ssmerrors.WrapWithCode(errors.Join(faultErrors(snap)...), ssmerrors.ErrProvider,
			"Every system statistic failed this tick", "")
	}
	return snap, nil
}

// stale returns the previous values marked stale, keeping their timestamp so
// rate math never sees fresh time against old counters.
func (s *Sampler) stale() model.Snapshot {
	if !s.hasLast {
		snap := model.Snapshot{Timestamp: s.now(), Stale: true, Faults: make(map[model.Field]error)}
		for _, f := range []model.Field{
			model.FieldCPU, model.FieldLoad, model.FieldMemory, model.FieldSwap, model.FieldDisk,
			model.FieldNetwork, model.FieldProcesses, model.FieldHostname, model.FieldBootTime,
		} {
			snap.Faults[f] = ssmerrors.Provider(string(f), ErrDeadline)
		}
		return snap
	}
	snap := s.last
	snap.Stale = true
	return snap
}

func (s *Sampler) logFaults(snap model.Snapshot) {
	current := make(map[string]error, len(snap.Faults)+len(snap.Disks))
	for f, err := range snap.Faults {
		current[string(f)] = err
	}
	for _, d := range snap.Disks {
		if d.Err != nil {
			current["disk "+d.Path] = d.Err
		}
	}
	for key, err := range current {
		if !s.faulted[key] {
			s.log.Warn("%s unavailable: %v", key, errors.Unwrap(err))
		}
	}
	for key := range s.faulted {
		if _, still := current[key]; !still {
			s.log.Info("%s recovered", key)
		}
	}
	s.faulted = make(map[string]bool, len(current))
	for key := range current {
		s.faulted[key] = true
	}
}

func allFailed(snap model.Snapshot) bool {
	const fields = 9
	return len(snap.Faults) >= fields
}

func faultErrors(snap model.Snapshot) []error {
	errs := make([]error, 0, len(snap.Faults))
	for _, f := range snap.FaultFields() {
		errs = append(errs, snap.Faults[f])
	}
	return errs
}

// contextError reports a cancellation that hit the read, so a half-read tick
// during shutdown is not mistaken for provider faults.
func contextError(snap model.Snapshot) error {
	for _, err := range snap.Faults {
		if errors.Is(err, context.Canceled) {
			return context.Canceled
		}
	}
	return nil
}
