// Package rank derives the top-K process list from one tick's process table.
package rank

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/sourcli/ssm/internal/model"
)

// SortKey selects the ranking metric.
type SortKey string

const (
	ByCPU    SortKey = "cpu"
	ByMemory SortKey = "mem"
)

// ParseSortKey validates a sort column name.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case ByCPU, "":
		return ByCPU, nil
	case ByMemory, "memory":
		return ByMemory, nil
	}
	return "", fmt.Errorf("unknown sort column %q (want cpu or mem)", s)
}

// Options tunes ranking beyond the default CPU order.
type Options struct {
	By     SortKey
	Filter *regexp.Regexp // keep only names matching, nil keeps all
}

// Top returns at most k processes sorted by CPU percent descending, ties
// broken by ascending pid. Duplicate pids keep their first occurrence.
func Top(procs []model.ProcessInfo, k int) []model.ProcessInfo {
	return Rank(procs, k, Options{By: ByCPU})
}

// Rank is Top with a configurable metric and name filter. Ties on the metric
// always fall back to ascending pid so the order is deterministic.
func Rank(procs []model.ProcessInfo, k int, opts Options) []model.ProcessInfo {
	if k <= 0 || len(procs) == 0 {
		return []model.ProcessInfo{}
	}

	seen := make(map[int32]bool, len(procs))
	out := make([]model.ProcessInfo, 0, len(procs))
	for _, p := range procs {
		if seen[p.PID] {
			continue
		}
		seen[p.PID] = true
		if opts.Filter != nil && !opts.Filter.MatchString(p.Name) {
			continue
		}
		out = append(out, p)
	}

	metric := func(p model.ProcessInfo) float64 { return p.CPU }
	if opts.By == ByMemory {
		metric = func(p model.ProcessInfo) float64 { return p.Memory }
	}

	sort.Slice(out, func(i, j int) bool {
		mi, mj := metric(out[i]), metric(out[j])
		if mi != mj {
			return mi > mj
		}
		return out[i].PID < out[j].PID
	})

	if len(out) > k {
		out = out[:k]
	}
	return out
}
