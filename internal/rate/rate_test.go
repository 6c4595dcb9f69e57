package rate

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sourcli/ssm/internal/model"
)

var t0 = time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

func snap(at time.Duration, counters ...model.NetCounters) model.Snapshot {
	return model.Snapshot{Timestamp: t0.Add(at), Network: counters}
}

func eth0(sent, recv uint64) model.NetCounters {
	return model.NetCounters{Name: "eth0", BytesSent: sent, BytesRecv: recv}
}

func TestEstimate_FirstTickSeedsAndReportsZero(t *testing.T) {
	var st State
	rates := Estimate(snap(0, eth0(1<<40, 1<<41)), &st)

	require.Len(t, rates, 1)
	assert.Equal(t, model.Rate{Interface: "eth0"}, rates[0])
	assert.True(t, st.Seeded())
}

func TestEstimate_SecondTick(t *testing.T) {
	var st State
	Estimate(snap(0, eth0(100, 5000)), &st)
	rates := Estimate(snap(time.Second, eth0(100+2048, 5000+1048576)), &st)

	require.Len(t, rates, 1)
	assert.InDelta(t, 2048, rates[0].SentPerSec, 1e-9)
	assert.InDelta(t, 1048576, rates[0].RecvPerSec, 1e-9)
}

func TestEstimate_DividesByElapsed(t *testing.T) {
	var st State
	Estimate(snap(0, eth0(0, 0)), &st)
	rates := Estimate(snap(4*time.Second, eth0(4000, 400)), &st)

	assert.InDelta(t, 1000, rates[0].SentPerSec, 1e-9)
	assert.InDelta(t, 100, rates[0].RecvPerSec, 1e-9)
}

func TestEstimate_CounterDecreaseIsNewBaseline(t *testing.T) {
	var st State
	Estimate(snap(0, eth0(10000, 10000)), &st)

	rates := Estimate(snap(time.Second, eth0(500, 20000)), &st)
	assert.Equal(t, 0.0, rates[0].SentPerSec)
	assert.InDelta(t, 10000, rates[0].RecvPerSec, 1e-9)

	// next tick is relative to the decreased value
	rates = Estimate(snap(2*time.Second, eth0(1500, 20000)), &st)
	assert.InDelta(t, 1000, rates[0].SentPerSec, 1e-9)
	assert.Equal(t, 0.0, rates[0].RecvPerSec)
}

func TestEstimate_ClockAnomalyReusesPreviousRate(t *testing.T) {
	tests := []struct {
		name string
		at   time.Duration
	}{
		{name: "same timestamp", at: time.Second},
		{name: "below epsilon", at: time.Second + Epsilon/2},
		{name: "clock went backwards", at: -time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var st State
			Estimate(snap(0, eth0(0, 0)), &st)
			first := Estimate(snap(time.Second, eth0(3000, 6000)), &st)

			again := Estimate(snap(tt.at, eth0(9000, 9000)), &st)
			assert.Equal(t, first, again)
		})
	}
}

func TestEstimate_ClockAnomalyReseedsBaseline(t *testing.T) {
	var st State
	Estimate(snap(time.Hour, eth0(0, 0)), &st)
	Estimate(snap(0, eth0(100, 100)), &st) // clock stepped back an hour

	rates := Estimate(snap(time.Second, eth0(1124, 100)), &st)
	assert.InDelta(t, 1024, rates[0].SentPerSec, 1e-9)
}

func TestEstimate_NewInterfaceStartsAtZero(t *testing.T) {
	var st State
	Estimate(snap(0, eth0(0, 0)), &st)

	wlan := model.NetCounters{Name: "wlan0", BytesSent: 1 << 30, BytesRecv: 1 << 30}
	rates := Estimate(snap(time.Second, eth0(10, 10), wlan), &st)

	require.Len(t, rates, 2)
	assert.Equal(t, model.Rate{Interface: "wlan0"}, rates[1])

	rates = Estimate(snap(2*time.Second, eth0(10, 10), model.NetCounters{Name: "wlan0", BytesSent: 1<<30 + 10, BytesRecv: 1 << 30}), &st)
	assert.InDelta(t, 10, rates[1].SentPerSec, 1e-9)
}

func TestEstimate_NetworkFaultKeepsBaseline(t *testing.T) {
	var st State
	Estimate(snap(0, eth0(0, 0)), &st)

	broken := model.Snapshot{Timestamp: t0.Add(time.Second), Faults: map[model.Field]error{model.FieldNetwork: fmt.Errorf("x")}}
	assert.Nil(t, Estimate(broken, &st))

	rates := Estimate(snap(2*time.Second, eth0(2000, 0)), &st)
	assert.InDelta(t, 1000, rates[0].SentPerSec, 1e-9)
}

func TestEstimate_NeverNegative(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	var st State
	var sent, recv uint64
	at := time.Duration(0)

	for i := 0; i < 500; i++ {
		// mostly increasing, with occasional resets
		if rng.Intn(20) == 0 {
			sent, recv = uint64(rng.Intn(100)), uint64(rng.Intn(100))
		} else {
			sent += uint64(rng.Intn(1 << 20))
			recv += uint64(rng.Intn(1 << 20))
		}
		at += time.Duration(1+rng.Intn(2000)) * time.Millisecond

		for _, r := range Estimate(snap(at, eth0(sent, recv)), &st) {
			assert.GreaterOrEqual(t, r.SentPerSec, 0.0)
			assert.GreaterOrEqual(t, r.RecvPerSec, 0.0)
		}
	}
}

func TestTotal(t *testing.T) {
	total := Total([]model.Rate{
		{Interface: "eth0", SentPerSec: 1, RecvPerSec: 2},
		{Interface: "wlan0", SentPerSec: 10, RecvPerSec: 20},
	})
	assert.Equal(t, model.Rate{Interface: "total", SentPerSec: 11, RecvPerSec: 22}, total)
	assert.Equal(t, model.Rate{Interface: "total"}, Total(nil))
}
