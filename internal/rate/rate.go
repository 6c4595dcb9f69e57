// Package rate turns cumulative network byte counters into per-second rates.
package rate

import (
	"time"

	"github.com/sourcli/ssm/internal/model"
)

// Epsilon is the smallest elapsed time a rate is computed over. Anything at or
// below it (including negative elapsed time after a clock step) reuses the
// previous rates.
const Epsilon = time.Millisecond

// State is the only data carried between ticks: the previous counters per
// interface, when they were read, and the last computed rates.
// The zero value means "no previous sample".
type State struct {
	seeded   bool
	at       time.Time
	counters map[string]model.NetCounters
	rates    map[string]model.Rate
}

// Seeded reports whether a baseline has been recorded.
func (s *State) Seeded() bool { return s.seeded }

// Estimate computes per-interface rates for current and advances st to it.
//
// The first call only seeds st and reports zero for every interface. A counter
// that went down (wrap, driver reset) reports zero and becomes the new
// baseline. An interface seen for the first time reports zero.
func Estimate(current model.Snapshot, st *State) []model.Rate {
	if current.Unavailable(model.FieldNetwork) {
		// keep the baseline, the counters will be back
		return nil
	}

	out := make([]model.Rate, 0, len(current.Network))

	if !st.seeded {
		for _, c := range current.Network {
			out = append(out, model.Rate{Interface: c.Name})
		}
		st.advance(current, out)
		return out
	}

	elapsed := current.Timestamp.Sub(st.at)
	if elapsed <= Epsilon {
		for _, c := range current.Network {
			prev, ok := st.rates[c.Name]
			if !ok {
				prev = model.Rate{Interface: c.Name}
			}
			out = append(out, prev)
		}
		st.advance(current, out)
		return out
	}

	secs := elapsed.Seconds()
	for _, c := range current.Network {
		r := model.Rate{Interface: c.Name}
		if prev, ok := st.counters[c.Name]; ok {
			r.SentPerSec = perSecond(prev.BytesSent, c.BytesSent, secs)
			r.RecvPerSec = perSecond(prev.BytesRecv, c.BytesRecv, secs)
		}
		out = append(out, r)
	}
	st.advance(current, out)
	return out
}

func perSecond(prev, cur uint64, secs float64) float64 {
	if cur < prev {
		return 0
	}
	return float64(cur-prev) / secs
}

func (st *State) advance(current model.Snapshot, rates []model.Rate) {
	st.seeded = true
	st.at = current.Timestamp
	st.counters = make(map[string]model.NetCounters, len(current.Network))
	for _, c := range current.Network {
		st.counters[c.Name] = c
	}
	st.rates = make(map[string]model.Rate, len(rates))
	for _, r := range rates {
		st.rates[r.Interface] = r
	}
}

// Total sums rates into one aggregate row.
func Total(rates []model.Rate) model.Rate {
	total := model.Rate{Interface: "total"}
	for _, r := range rates {
		total.SentPerSec += r.SentPerSec
		total.RecvPerSec += r.RecvPerSec
	}
	return total
}
