package model

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshot_Unavailable(t *testing.T) {
	s := Snapshot{Faults: map[Field]error{FieldDisk: fmt.Errorf("gone"), FieldCPU: fmt.Errorf("x")}}

	assert.True(t, s.Unavailable(FieldDisk))
	assert.False(t, s.Unavailable(FieldMemory))
	assert.Equal(t, []Field{FieldCPU, FieldDisk}, s.FaultFields())

	var empty Snapshot
	assert.False(t, empty.Unavailable(FieldCPU))
	assert.Empty(t, empty.FaultFields())
}

func TestSnapshot_Uptime(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name   string
		snap   Snapshot
		expect time.Duration
	}{
		{
			name:   "known boot time",
			snap:   Snapshot{Timestamp: now, BootTime: now.Add(-90 * time.Minute)},
			expect: 90 * time.Minute,
		},
		{
			name:   "unknown boot time",
			snap:   Snapshot{Timestamp: now},
			expect: 0,
		},
		{
			name:   "boot time in the future",
			snap:   Snapshot{Timestamp: now, BootTime: now.Add(time.Hour)},
			expect: 0,
		},
		{
			name: "boot time fault",
			snap: Snapshot{Timestamp: now, BootTime: now.Add(-time.Hour),
				Faults: map[Field]error{FieldBootTime: fmt.Errorf("x")}},
			expect: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.snap.Uptime())
		})
	}
}

func TestReport_Session(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := Report{Started: start, Snapshot: Snapshot{Timestamp: start.Add(42 * time.Second)}}
	assert.Equal(t, 42*time.Second, r.Session())
	assert.Zero(t, Report{}.Session())
}

func TestDiskUsage_Available(t *testing.T) {
	assert.True(t, DiskUsage{Path: "/"}.Available())
	assert.False(t, DiskUsage{Path: "/mnt", Err: fmt.Errorf("EIO")}.Available())
}
