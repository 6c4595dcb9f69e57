package rank

import (
	"math/rand"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcli/ssm/internal/model"
)

func proc(pid int32, cpu, mem float64) model.ProcessInfo {
	return model.ProcessInfo{PID: pid, Name: "p", CPU: cpu, Memory: mem}
}

func pids(ps []model.ProcessInfo) []int32 {
	out := make([]int32, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.PID)
	}
	return out
}

func TestTop(t *testing.T) {
	tests := []struct {
		name   string
		procs  []model.ProcessInfo
		k      int
		expect []int32
	}{
		{
			name:   "empty list",
			procs:  nil,
			k:      10,
			expect: []int32{},
		},
		{
			name:   "fewer than k",
			procs:  []model.ProcessInfo{proc(3, 1, 0), proc(1, 5, 0)},
			k:      10,
			expect: []int32{1, 3},
		},
		{
			name:   "truncates to k",
			procs:  []model.ProcessInfo{proc(1, 1, 0), proc(2, 2, 0), proc(3, 3, 0), proc(4, 4, 0)},
			k:      2,
			expect: []int32{4, 3},
		},
		{
			name:   "ties broken by pid ascending",
			procs:  []model.ProcessInfo{proc(9, 10, 0), proc(2, 10, 0), proc(5, 10, 0), proc(1, 50, 0)},
			k:      3,
			expect: []int32{1, 2, 5},
		},
		{
			name:   "duplicate pid keeps first occurrence",
			procs:  []model.ProcessInfo{proc(7, 1, 0), proc(8, 2, 0), proc(7, 99, 0)},
			k:      5,
			expect: []int32{8, 7},
		},
		{
			name:   "zero k",
			procs:  []model.ProcessInfo{proc(1, 1, 0)},
			k:      0,
			expect: []int32{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Top(tt.procs, tt.k)
			assert.Equal(t, tt.expect, pids(got))
		})
	}
}

func TestTop_DuplicateKeepsFirstValues(t *testing.T) {
	got := Top([]model.ProcessInfo{proc(7, 1, 0), proc(7, 99, 0)}, 5)
	require.Len(t, got, 1)
	assert.Equal(t, 1.0, got[0].CPU)
}

func TestTop_DoesNotMutateInput(t *testing.T) {
	in := []model.ProcessInfo{proc(1, 1, 0), proc(2, 2, 0)}
	Top(in, 1)
	assert.Equal(t, []int32{1, 2}, pids(in))
}

func TestTop_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := rng.Intn(60)
		procs := make([]model.ProcessInfo, 0, n)
		distinct := make(map[int32]bool)
		for i := 0; i < n; i++ {
			pid := int32(rng.Intn(40))
			distinct[pid] = true
			procs = append(procs, proc(pid, float64(rng.Intn(5)), 0))
		}
		k := rng.Intn(15)

		got := Top(procs, k)

		assert.Len(t, got, min(k, len(distinct)))
		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1], got[i]
			ordered := prev.CPU > cur.CPU || (prev.CPU == cur.CPU && prev.PID < cur.PID)
			assert.True(t, ordered, "position %d out of order: %+v then %+v", i, prev, cur)
		}
	}
}

func TestRank_ByMemoryAndFilter(t *testing.T) {
	procs := []model.ProcessInfo{
		{PID: 1, Name: "postgres", CPU: 1, Memory: 30},
		{PID: 2, Name: "chrome", CPU: 80, Memory: 10},
		{PID: 3, Name: "postgres", CPU: 5, Memory: 30},
		{PID: 4, Name: "bash", CPU: 0, Memory: 1},
	}

	got := Rank(procs, 10, Options{By: ByMemory})
	assert.Equal(t, []int32{1, 3, 2, 4}, pids(got))

	got = Rank(procs, 10, Options{By: ByCPU, Filter: regexp.MustCompile("^post")})
	assert.Equal(t, []int32{3, 1}, pids(got))
}

func TestParseSortKey(t *testing.T) {
	tests := []struct {
		in      string
		expect  SortKey
		wantErr bool
	}{
		{in: "", expect: ByCPU},
		{in: "cpu", expect: ByCPU},
		{in: "mem", expect: ByMemory},
		{in: "memory", expect: ByMemory},
		{in: "pid", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSortKey(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expect, got)
		})
	}
}
